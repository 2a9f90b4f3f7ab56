package core

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/kilupskalvis/mvc/internal/models"
	"github.com/kilupskalvis/mvc/internal/query"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestSnapshot creates an empty snapshot database in a temp directory.
func newTestSnapshot(t *testing.T) *query.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "snapshot.db")
	db, err := query.OpenWritable(path)
	require.NoError(t, err)
	require.NoError(t, db.InitSchema(context.Background()))
	t.Cleanup(func() { db.Close() })
	return db
}

func addElement(t *testing.T, db *query.DB, id, classID, modelID, parentID, label, jsonProps string) {
	t.Helper()
	err := db.Exec(context.Background(),
		"INSERT INTO element (id, class_id, model_id, parent_id, label, json_properties) VALUES (?, ?, ?, ?, ?, ?)",
		id, classID, modelID, parentID, label, jsonProps)
	require.NoError(t, err)
}

func addModel(t *testing.T, db *query.DB, id, classID, modeledElementID string, isPrivate bool) {
	t.Helper()
	private := 0
	if isPrivate {
		private = 1
	}
	err := db.Exec(context.Background(),
		"INSERT INTO model (id, class_id, modeled_element_id, is_private) VALUES (?, ?, ?, ?)",
		id, classID, modeledElementID, private)
	require.NoError(t, err)
}

func addClass(t *testing.T, db *query.DB, id, name, baseClassID string) {
	t.Helper()
	err := db.Exec(context.Background(),
		"INSERT INTO class (id, name, base_class_id) VALUES (?, ?, ?)",
		id, name, baseClassID)
	require.NoError(t, err)
}

func TestFixMissingModelIDs(t *testing.T) {
	ctx := context.Background()
	current := newTestSnapshot(t)
	target := newTestSnapshot(t)

	// Live element in current; deleted element only known to target.
	addElement(t, current, "e1", "0x100", "m1", "", "", "")
	addElement(t, target, "e2", "0x100", "m2", "", "", "")

	m := map[string]*models.ChangeRecord{
		"e1": {ID: "e1", ClassID: "0x100", Opcode: models.OpcodeUpdate},
		"e2": {ID: "e2", ClassID: "0x100", Opcode: models.OpcodeDelete},
		"e3": {ID: "e3", ClassID: "0x100", Opcode: models.OpcodeUpdate},
	}

	h := NewHierarchyResolver(current, target, nil, nil)
	require.NoError(t, h.FixMissingModelIDs(ctx, m))

	assert.Equal(t, "m1", m["e1"].ModelID)
	assert.Equal(t, "m2", m["e2"].ModelID)
	// Unresolvable ids keep an empty model id; not an error.
	assert.Empty(t, m["e3"].ModelID)
}

func TestFindChangedModels_CheapPath(t *testing.T) {
	ctx := context.Background()
	current := newTestSnapshot(t)
	target := newTestSnapshot(t)

	m := map[string]*models.ChangeRecord{
		"e1": {ID: "e1", Opcode: models.OpcodeUpdate, ModelID: "m1"},
		"e2": {ID: "e2", Opcode: models.OpcodeInsert, ModelID: "m2"},
	}

	// No fixtures needed: model ids come straight from the map.
	h := NewHierarchyResolver(current, target, nil, nil)
	changed, err := h.FindChangedModels(ctx, m)
	require.NoError(t, err)

	assert.Len(t, changed, 2)
	assert.Contains(t, changed, "m1")
	assert.Contains(t, changed, "m2")
}

func TestFindChangedModels_QueryPath(t *testing.T) {
	ctx := context.Background()
	current := newTestSnapshot(t)
	target := newTestSnapshot(t)

	addElement(t, current, "e1", "0x100", "m1", "", "", "")
	addElement(t, target, "e2", "0x100", "m2", "", "", "")

	m := map[string]*models.ChangeRecord{
		"e1": {ID: "e1", Opcode: models.OpcodeUpdate},
		"e2": {ID: "e2", Opcode: models.OpcodeDelete},
	}

	var phases []string
	progress := func(phase string, percent int) { phases = append(phases, fmt.Sprintf("%s:%d", phase, percent)) }

	h := NewHierarchyResolver(current, target, progress, nil)
	changed, err := h.FindChangedModels(ctx, m)
	require.NoError(t, err)

	assert.Len(t, changed, 2)
	assert.Contains(t, changed, "m1")
	assert.Contains(t, changed, "m2")
	assert.NotEmpty(t, phases)
	assert.Equal(t, "finding changed models:100", phases[len(phases)-1])
}

func TestFindUnchangedModels(t *testing.T) {
	ctx := context.Background()
	current := newTestSnapshot(t)
	target := newTestSnapshot(t)

	addModel(t, current, "m1", "0x200", "", false)
	addModel(t, current, "m2", "0x200", "", false)
	addModel(t, current, "m3", "0x200", "", true) // private models never listed

	h := NewHierarchyResolver(current, target, nil, nil)
	unchanged, err := h.FindUnchangedModels(ctx, map[string]struct{}{"m2": {}})
	require.NoError(t, err)

	assert.Equal(t, []string{"m1"}, unchanged)
}

func TestFindParentModels_SubjectClimb(t *testing.T) {
	ctx := context.Background()
	current := newTestSnapshot(t)
	target := newTestSnapshot(t)

	// Root subject s0 <- bridge-job subject s1 <- partition p1 <- model m1.
	// The climb must skip s1 and settle on s0.
	addElement(t, current, "s0", "0x10", "", "", "Root", "")
	addElement(t, current, "s1", "0x10", "", "s0", "Job", `{"Subject":{"Job":"bridge-a"}}`)
	addElement(t, current, "p1", "0x20", "", "s1", "Physical", "")
	addModel(t, current, "m1", "0x200", "p1", false)

	h := NewHierarchyResolver(current, target, nil, nil)
	parents, err := h.FindParentModels(ctx, map[string]struct{}{"m1": {}})
	require.NoError(t, err)

	assert.Equal(t, "s0", parents["m1"])
}

func TestFindParentModels_HierarchySubjectSkipped(t *testing.T) {
	ctx := context.Background()
	current := newTestSnapshot(t)
	target := newTestSnapshot(t)

	addElement(t, current, "s0", "0x10", "", "", "Root", "")
	addElement(t, current, "s1", "0x10", "", "s0", "Tree", `{"Subject":{"Model":{"Type":"Hierarchy"}}}`)
	addElement(t, current, "p1", "0x20", "", "s1", "Physical", "")
	addModel(t, current, "m1", "0x200", "p1", false)

	h := NewHierarchyResolver(current, target, nil, nil)
	parents, err := h.FindParentModels(ctx, map[string]struct{}{"m1": {}})
	require.NoError(t, err)

	assert.Equal(t, "s0", parents["m1"])
}

func TestFindParentModels_NonModelDefiningPartition(t *testing.T) {
	ctx := context.Background()
	current := newTestSnapshot(t)
	target := newTestSnapshot(t)

	addElement(t, current, "s1", "0x10", "", "", "Subject", "")
	addElement(t, current, "p1", "0x20", "", "s1", "Partition",
		`{"Subject":{"Model":{"Type":"Hierarchy"}}}`)
	addModel(t, current, "m1", "0x200", "p1", false)

	h := NewHierarchyResolver(current, target, nil, nil)
	parents, err := h.FindParentModels(ctx, map[string]struct{}{"m1": {}})
	require.NoError(t, err)

	// No subject climb for partitions that do not define a model of their
	// own: the partition's parent is used directly.
	assert.Equal(t, "s1", parents["m1"])
}

func TestFindParentModels_DeletedModelResolvedInTarget(t *testing.T) {
	ctx := context.Background()
	current := newTestSnapshot(t)
	target := newTestSnapshot(t)

	// The model only exists in the target snapshot (deleted since).
	addElement(t, target, "s0", "0x10", "", "", "Root", "")
	addElement(t, target, "p1", "0x20", "", "s0", "Physical", "")
	addModel(t, target, "m1", "0x200", "p1", false)

	h := NewHierarchyResolver(current, target, nil, nil)
	parents, err := h.FindParentModels(ctx, map[string]struct{}{"m1": {}})
	require.NoError(t, err)

	assert.Equal(t, "s0", parents["m1"])
}

func TestFindParentModels_ChunkingTransparency(t *testing.T) {
	ctx := context.Background()
	current := newTestSnapshot(t)
	target := newTestSnapshot(t)

	addElement(t, current, "s0", "0x10", "", "", "Root", "")

	// Enough models to span multiple 200-id chunks.
	const count = 250
	changed := make(map[string]struct{}, count)
	for i := 0; i < count; i++ {
		partID := fmt.Sprintf("p%03d", i)
		modelID := fmt.Sprintf("m%03d", i)
		addElement(t, current, partID, "0x20", "", "s0", "", "")
		addModel(t, current, modelID, "0x200", partID, false)
		changed[modelID] = struct{}{}
	}

	h := NewHierarchyResolver(current, target, nil, nil)
	all, err := h.FindParentModels(ctx, changed)
	require.NoError(t, err)
	require.Len(t, all, count)

	single, err := NewHierarchyResolver(current, target, nil, nil).
		FindParentModels(ctx, map[string]struct{}{"m000": {}})
	require.NoError(t, err)

	// Chunking must not affect per-model results.
	assert.Equal(t, single["m000"], all["m000"])
	for _, parent := range all {
		assert.Equal(t, "s0", parent)
	}
}

func TestModelInfos(t *testing.T) {
	ctx := context.Background()
	current := newTestSnapshot(t)
	target := newTestSnapshot(t)

	addElement(t, current, "p1", "0x20", "", "", "Structural Model", "")
	addModel(t, current, "m1", "0x200", "p1", false)
	require.NoError(t, current.Exec(ctx,
		"INSERT INTO model_source (model_id, file_name) VALUES (?, ?)", "m1", "plant.dgn"))

	h := NewHierarchyResolver(current, target, nil, nil)
	infos, err := h.ModelInfos(ctx, map[string]struct{}{"m1": {}})
	require.NoError(t, err)

	require.Contains(t, infos, "m1")
	assert.Equal(t, "Structural Model", infos["m1"].Name)
	assert.Equal(t, "plant.dgn", infos["m1"].Source)
}

func TestModelInfos_SourceLookupFailureSwallowed(t *testing.T) {
	ctx := context.Background()
	current := newTestSnapshot(t)
	target := newTestSnapshot(t)

	addElement(t, current, "p1", "0x20", "", "", "Structural Model", "")
	addModel(t, current, "m1", "0x200", "p1", false)

	// A snapshot without source metadata makes the lookup fail; the failure
	// is cosmetic and must not surface.
	require.NoError(t, current.Exec(ctx, "DROP TABLE model_source"))
	require.NoError(t, target.Exec(ctx, "DROP TABLE model_source"))

	h := NewHierarchyResolver(current, target, nil, nil)
	infos, err := h.ModelInfos(ctx, map[string]struct{}{"m1": {}})
	require.NoError(t, err)

	assert.Equal(t, "Structural Model", infos["m1"].Name)
	assert.Empty(t, infos["m1"].Source)
}
