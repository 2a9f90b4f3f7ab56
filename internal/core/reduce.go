package core

import (
	"fmt"
	"log/slog"

	"github.com/kilupskalvis/mvc/internal/models"
)

// ignoredProperties are reserved property names that reflect internal
// bookkeeping rather than user-visible changes. They are dropped during the
// cleanup pass so they cannot keep an otherwise-unchanged entity alive.
var ignoredProperties = map[string]struct{}{
	"LastMod":  {},
	"Checksum": {},
	"Version":  {},
}

// Reducer applies the opcode accumulator across an ordered list of changesets
// and performs the cleanup passes that remove no-op modifications.
type Reducer struct {
	// Forward selects older-to-newer traversal of the changeset sequence.
	Forward bool
	// Strict makes unknown opcode pairings fail the whole reduction instead
	// of being dropped.
	Strict bool
	Logger *slog.Logger
}

// Reduce folds the given changesets, in the given order, into a fresh
// reconciled map of entity id to net change record.
func (r *Reducer) Reduce(changesets []models.RawChangeset) (map[string]*models.ChangeRecord, error) {
	reconciled := make(map[string]*models.ChangeRecord)

	hasTypeInfo := len(changesets) > 0
	hasPropertyInfo := len(changesets) > 0

	for _, cs := range changesets {
		e := &cs.Elements
		if err := e.Validate(); err != nil {
			return nil, fmt.Errorf("changeset %s: %w", cs.ID, err)
		}
		hasTypeInfo = hasTypeInfo && e.HasTypeInfo()
		hasPropertyInfo = hasPropertyInfo && e.HasPropertyInfo()

		for i := 0; i < e.Len(); i++ {
			rec := recordAt(e, i)
			if err := Accumulate(reconciled, rec, r.Forward, r.Strict); err != nil {
				return nil, fmt.Errorf("changeset %s: %w", cs.ID, err)
			}
		}
	}

	// The cleanup pass can only judge no-ops safely when the batch supplied
	// both type-of-change flags and property-name lists.
	if hasTypeInfo && hasPropertyInfo {
		removed := cleanupNoOps(reconciled)
		if removed > 0 && r.Logger != nil {
			r.Logger.Debug("removed no-op entities after accumulation", "count", removed)
		}
	}

	return reconciled, nil
}

// recordAt builds the change record for entity index i of a changeset's
// parallel arrays. Property checksums are only extracted for updates, and the
// Property bit is cleared when the raw type flags claim property changes that
// the property data does not back up.
func recordAt(e *models.ChangedElements, i int) *models.ChangeRecord {
	rec := &models.ChangeRecord{
		ID:      e.IDs[i],
		ClassID: e.ClassIDs[i],
		Opcode:  e.Opcodes[i],
	}
	if e.HasTypeInfo() {
		rec.Type = e.Types[i]
	}
	if len(e.ModelIDs) > 0 {
		rec.ModelID = e.ModelIDs[i]
	}
	if len(e.ParentIDs) > 0 {
		rec.ParentID = e.ParentIDs[i]
	}
	if len(e.ParentClassIDs) > 0 {
		rec.ParentClassID = e.ParentClassIDs[i]
	}

	if rec.Opcode == models.OpcodeUpdate && e.HasPropertyInfo() {
		rec.Properties = checksumsAt(e, i)
		if len(rec.Properties) == 0 && rec.Type.Has(models.TypeProperty) {
			rec.Type &^= models.TypeProperty
		}
	}

	return rec
}

// checksumsAt extracts the per-property checksum pairs for entity index i.
// Properties whose checksums prove the value did not really change are
// discarded here, so a raw update touching nothing observable reduces to an
// empty property map.
func checksumsAt(e *models.ChangedElements, i int) map[string]models.Checksums {
	names := e.Properties[i]
	if len(names) == 0 {
		return nil
	}
	props := make(map[string]models.Checksums, len(names))
	for j, name := range names {
		var cs models.Checksums
		if len(e.OldChecksums) > i && len(e.OldChecksums[i]) > j {
			cs.Old = e.OldChecksums[i][j]
		}
		if len(e.NewChecksums) > i && len(e.NewChecksums[i]) > j {
			cs.New = e.NewChecksums[i][j]
		}
		if cs.Changed() {
			props[name] = cs
		}
	}
	return props
}

// cleanupNoOps drops bookkeeping properties, clears change-type bits whose
// supporting property evidence is gone, and removes update entities that
// netted to no observable change. Returns the number of removed entities.
func cleanupNoOps(m map[string]*models.ChangeRecord) int {
	removed := 0
	for id, rec := range m {
		next := rec.Clone()
		for name := range next.Properties {
			if _, ignore := ignoredProperties[name]; ignore {
				delete(next.Properties, name)
			}
		}
		// Bit-clearing applies to every opcode; only the zero-type removal
		// below is update-specific.
		if len(next.Properties) == 0 && next.Type&(models.TypeProperty|models.TypeIndirect) != 0 {
			next.Type &^= models.TypeProperty | models.TypeIndirect
		}
		if next.Opcode == models.OpcodeUpdate && next.Type == 0 {
			delete(m, id)
			removed++
			continue
		}
		m[id] = next
	}
	return removed
}
