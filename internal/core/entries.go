package core

import (
	"context"
	"fmt"

	"github.com/kilupskalvis/mvc/internal/models"
	"github.com/kilupskalvis/mvc/internal/query"
)

// DefaultEntryChunkSize is the per-query id limit of the entry loader
const DefaultEntryChunkSize = 1000

// EntryLoadOptions configures the chunked entry loader
type EntryLoadOptions struct {
	// ChunkSize bounds the ids per query; DefaultEntryChunkSize when zero.
	ChunkSize int
	Progress  ProgressFunc
}

// MaterializeEntry turns one raw query row into an entry, consulting the
// reconciled map for the net opcode and change type. A row with no change
// record was discovered only as a structural parent and is flagged indirect;
// its opcode defaults to update.
func MaterializeEntry(row models.EntryRow, reconciled map[string]*models.ChangeRecord) *models.Entry {
	entry := &models.Entry{
		ID:       row.ID,
		Label:    row.Label,
		Code:     row.Code,
		ModelID:  row.ModelID,
		ClassID:  row.ClassID,
		ParentID: row.ParentID,
		ChildIDs: row.ChildIDs,
		Opcode:   models.OpcodeUpdate,
	}

	if rec, ok := reconciled[row.ID]; ok {
		entry.Opcode = rec.Opcode
		entry.Type = rec.Type
		if entry.ModelID == "" {
			entry.ModelID = rec.ModelID
		}
		if entry.ClassID == "" {
			entry.ClassID = rec.ClassID
		}
	} else {
		entry.Indirect = true
		entry.Type = models.TypeIndirect
	}

	switch {
	case row.ParentID == "":
		entry.Kind = models.KindTopAssembly
	case len(row.ChildIDs) == 0:
		entry.Kind = models.KindElement
	default:
		entry.Kind = models.KindAssembly
	}

	return entry
}

// LoadEntries fetches the raw rows for the given element ids from one
// snapshot in chunks and materializes them against the reconciled map. Ids
// unknown to the snapshot are skipped; callers comparing against deletions
// load those from the other snapshot.
func LoadEntries(ctx context.Context, exec query.Executor, ids []string, reconciled map[string]*models.ChangeRecord, opts EntryLoadOptions) ([]*models.Entry, error) {
	chunkSize := opts.ChunkSize
	if chunkSize <= 0 {
		chunkSize = DefaultEntryChunkSize
	}

	var entries []*models.Entry
	processed := 0
	for _, chunk := range query.Chunk(ids, chunkSize) {
		rows, err := loadEntryRows(ctx, exec, chunk)
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			entries = append(entries, MaterializeEntry(row, reconciled))
		}

		processed += len(chunk)
		if opts.Progress != nil {
			opts.Progress("loading entries", processed*100/len(ids))
		}
	}
	return entries, nil
}

// loadEntryRows fetches one chunk of element rows plus their child ids
func loadEntryRows(ctx context.Context, exec query.Executor, chunk []string) ([]models.EntryRow, error) {
	params := query.NewParamList(len(chunk))
	params.AddStrings(chunk)
	stmt := fmt.Sprintf(
		"SELECT id, label, code, model_id, class_id, parent_id FROM element WHERE id IN (%s)",
		params.Placeholders())

	raw, err := exec.Select(ctx, stmt, params.Args())
	if err != nil {
		return nil, fmt.Errorf("load entry rows: %w", err)
	}

	rows := make([]models.EntryRow, 0, len(raw))
	index := make(map[string]int, len(raw))
	for _, r := range raw {
		row := models.EntryRow{
			ID:       query.AsString(r[0]),
			Label:    query.AsString(r[1]),
			Code:     query.AsString(r[2]),
			ModelID:  query.AsString(r[3]),
			ClassID:  query.AsString(r[4]),
			ParentID: query.AsString(r[5]),
		}
		index[row.ID] = len(rows)
		rows = append(rows, row)
	}

	childParams := query.NewParamList(len(chunk))
	childParams.AddStrings(chunk)
	childStmt := fmt.Sprintf(
		"SELECT parent_id, id FROM element WHERE parent_id IN (%s)",
		childParams.Placeholders())

	childRows, err := exec.Select(ctx, childStmt, childParams.Args())
	if err != nil {
		return nil, fmt.Errorf("load entry children: %w", err)
	}
	for _, r := range childRows {
		parent := query.AsString(r[0])
		if i, ok := index[parent]; ok {
			rows[i].ChildIDs = append(rows[i].ChildIDs, query.AsString(r[1]))
		}
	}

	return rows, nil
}
