package core

import (
	"context"
	"fmt"
	"testing"

	"github.com/kilupskalvis/mvc/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaterializeEntry_Kinds(t *testing.T) {
	reconciled := map[string]*models.ChangeRecord{}

	top := MaterializeEntry(models.EntryRow{ID: "a", ChildIDs: []string{"b"}}, reconciled)
	assert.Equal(t, models.KindTopAssembly, top.Kind)

	mid := MaterializeEntry(models.EntryRow{ID: "b", ParentID: "a", ChildIDs: []string{"c"}}, reconciled)
	assert.Equal(t, models.KindAssembly, mid.Kind)

	leaf := MaterializeEntry(models.EntryRow{ID: "c", ParentID: "b"}, reconciled)
	assert.Equal(t, models.KindElement, leaf.Kind)
}

func TestMaterializeEntry_ChangedElement(t *testing.T) {
	reconciled := map[string]*models.ChangeRecord{
		"e1": {ID: "e1", Opcode: models.OpcodeInsert, Type: models.TypeGeometry, ModelID: "m1", ClassID: "0x100"},
	}

	entry := MaterializeEntry(models.EntryRow{ID: "e1", Label: "Beam", ParentID: "a"}, reconciled)

	assert.Equal(t, models.OpcodeInsert, entry.Opcode)
	assert.Equal(t, models.TypeGeometry, entry.Type)
	assert.False(t, entry.Indirect)
	// Blank row fields are backfilled from the change record.
	assert.Equal(t, "m1", entry.ModelID)
	assert.Equal(t, "0x100", entry.ClassID)
}

func TestMaterializeEntry_StructuralParentIsIndirect(t *testing.T) {
	entry := MaterializeEntry(models.EntryRow{ID: "assembly"}, map[string]*models.ChangeRecord{})

	assert.True(t, entry.Indirect)
	assert.Equal(t, models.TypeIndirect, entry.Type)
	assert.Equal(t, models.OpcodeUpdate, entry.Opcode)
}

func TestLoadEntries(t *testing.T) {
	ctx := context.Background()
	db := newTestSnapshot(t)

	addElement(t, db, "a", "0x100", "m1", "", "Assembly", "")
	addElement(t, db, "b", "0x100", "m1", "a", "Child", "")

	reconciled := map[string]*models.ChangeRecord{
		"b": {ID: "b", Opcode: models.OpcodeUpdate, Type: models.TypeProperty},
	}

	entries, err := LoadEntries(ctx, db, []string{"a", "b", "missing"}, reconciled, EntryLoadOptions{})
	require.NoError(t, err)
	require.Len(t, entries, 2)

	byID := make(map[string]*models.Entry, len(entries))
	for _, e := range entries {
		byID[e.ID] = e
	}

	require.Contains(t, byID, "a")
	assert.True(t, byID["a"].Indirect)
	assert.Equal(t, []string{"b"}, byID["a"].ChildIDs)
	assert.Equal(t, models.KindTopAssembly, byID["a"].Kind)

	require.Contains(t, byID, "b")
	assert.False(t, byID["b"].Indirect)
	assert.Equal(t, models.TypeProperty, byID["b"].Type)
	assert.Equal(t, models.KindElement, byID["b"].Kind)
}

func TestLoadEntries_ChunkingTransparency(t *testing.T) {
	ctx := context.Background()
	db := newTestSnapshot(t)

	const count = 25
	ids := make([]string, 0, count)
	for i := 0; i < count; i++ {
		id := fmt.Sprintf("e%02d", i)
		addElement(t, db, id, "0x100", "m1", "", "", "")
		ids = append(ids, id)
	}

	reconciled := map[string]*models.ChangeRecord{}

	var phases []string
	progress := func(phase string, percent int) { phases = append(phases, fmt.Sprintf("%s:%d", phase, percent)) }

	chunked, err := LoadEntries(ctx, db, ids, reconciled, EntryLoadOptions{ChunkSize: 10, Progress: progress})
	require.NoError(t, err)

	whole, err := LoadEntries(ctx, db, ids, reconciled, EntryLoadOptions{})
	require.NoError(t, err)

	require.Len(t, chunked, count)
	assert.ElementsMatch(t, whole, chunked)
	assert.Equal(t, []string{"loading entries:40", "loading entries:80", "loading entries:100"}, phases)
}
