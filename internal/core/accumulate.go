package core

import (
	"errors"
	"fmt"

	"github.com/kilupskalvis/mvc/internal/models"
)

// ErrInvalidOpcodePair is returned in strict mode when a changeset stream
// produces an opcode pairing the accumulation state machine does not know.
// Such a pairing indicates a consistency bug upstream.
var ErrInvalidOpcodePair = errors.New("invalid opcode combination")

// Accumulate folds one incoming per-changeset record into the reconciled map.
// In forward mode the map holds the older state and incoming is the newer
// record; backward mode is the reverse. Entries are replaced, never patched
// in place. The first record seen for an entity is inserted as-is (properties
// cleared unless it is an update). Unknown opcode pairings return
// ErrInvalidOpcodePair when strict is set and are silently dropped otherwise.
func Accumulate(m map[string]*models.ChangeRecord, incoming *models.ChangeRecord, forward, strict bool) error {
	current, ok := m[incoming.ID]
	if !ok {
		rec := incoming.Clone()
		if rec.Opcode != models.OpcodeUpdate {
			rec.Properties = nil
		}
		m[incoming.ID] = rec
		return nil
	}

	// Normalize to chronological order regardless of traversal direction.
	older, newer := current, incoming
	if !forward {
		older, newer = incoming, current
	}

	switch {
	case older.Opcode == models.OpcodeInsert && newer.Opcode == models.OpcodeUpdate:
		// Created within range; later edits fold into the insert.
		m[incoming.ID] = asInsert(current, incoming, forward)

	case older.Opcode == models.OpcodeInsert && newer.Opcode == models.OpcodeInsert:
		// Duplicate insert, a known schema/overflow artifact. Keep the
		// existing entry.

	case older.Opcode == models.OpcodeUpdate && newer.Opcode == models.OpcodeUpdate,
		older.Opcode == models.OpcodeUpdate && newer.Opcode == models.OpcodeInsert:
		m[incoming.ID] = mergedUpdate(current, incoming, older, newer)

	case older.Opcode == models.OpcodeInsert && newer.Opcode == models.OpcodeDelete:
		// Created and destroyed within range: net no-op.
		delete(m, incoming.ID)

	case older.Opcode == models.OpcodeUpdate && newer.Opcode == models.OpcodeDelete:
		rec := newestOf(current, incoming, forward).Clone()
		rec.Opcode = models.OpcodeDelete
		rec.Type = older.Type | newer.Type
		rec.Properties = nil
		m[incoming.ID] = rec

	case older.Opcode == models.OpcodeDelete && newer.Opcode == models.OpcodeInsert:
		// Deleted then re-created: the entity survived the range modified.
		rec := mergedUpdate(current, incoming, older, newer)
		rec.Opcode = models.OpcodeUpdate
		m[incoming.ID] = rec

	default:
		if strict {
			return fmt.Errorf("%w %s+%s for entity %s",
				ErrInvalidOpcodePair, current.Opcode, incoming.Opcode, incoming.ID)
		}
	}

	return nil
}

// asInsert produces the surviving record for an insert-then-update pairing.
// Forward traversal already holds the insert in the map, so it stays; in
// backward traversal the map entry is rewritten as an insert carrying the
// newest known state.
func asInsert(current, incoming *models.ChangeRecord, forward bool) *models.ChangeRecord {
	if forward {
		return current
	}
	rec := current.Clone()
	rec.Opcode = models.OpcodeInsert
	rec.Properties = nil
	return rec
}

// mergedUpdate combines two update-like records into one update entry. The
// chronologically newer record's checksums win on the new side, the older
// record's on the old side; missing model/parent linkage is backfilled from
// whichever record has it.
func mergedUpdate(current, incoming, older, newer *models.ChangeRecord) *models.ChangeRecord {
	rec := current.Clone()
	rec.Opcode = models.OpcodeUpdate
	rec.Type = older.Type | newer.Type
	rec.Properties = MergeProperties(newer.Properties, older.Properties)
	if rec.ModelID == "" {
		rec.ModelID = incoming.ModelID
	}
	if rec.ParentID == "" {
		rec.ParentID = incoming.ParentID
		rec.ParentClassID = incoming.ParentClassID
	}
	return rec
}

// newestOf returns whichever record represents the newest state
func newestOf(current, incoming *models.ChangeRecord, forward bool) *models.ChangeRecord {
	if forward {
		return incoming
	}
	return current
}
