package core

import (
	"context"
	"testing"

	"github.com/kilupskalvis/mvc/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterByModelClass(t *testing.T) {
	ctx := context.Background()
	current := newTestSnapshot(t)
	target := newTestSnapshot(t)

	addClass(t, current, "0x200", "PhysicalModel", "")
	addClass(t, current, "0x201", "DrawingModel", "")
	addModel(t, current, "m1", "0x200", "", false)
	addModel(t, current, "m2", "0x201", "", false)

	m := map[string]*models.ChangeRecord{
		"e1": {ID: "e1", Opcode: models.OpcodeUpdate, ModelID: "m1"},
		"e2": {ID: "e2", Opcode: models.OpcodeUpdate, ModelID: "m2"},
		"e3": {ID: "e3", Opcode: models.OpcodeUpdate},
	}

	require.NoError(t, FilterByModelClass(ctx, m, current, target, []string{"PhysicalModel"}))

	assert.Contains(t, m, "e1")
	assert.NotContains(t, m, "e2")
	// Entities without a model id cannot be classified and are dropped.
	assert.NotContains(t, m, "e3")
}

func TestFilterByModelClass_NoFilterIsNoOp(t *testing.T) {
	ctx := context.Background()
	current := newTestSnapshot(t)
	target := newTestSnapshot(t)

	m := map[string]*models.ChangeRecord{
		"e1": {ID: "e1", Opcode: models.OpcodeUpdate},
	}

	require.NoError(t, FilterByModelClass(ctx, m, current, target, nil))
	assert.Contains(t, m, "e1")
}

func TestFilterByModelClass_DeletedModelFoundInTarget(t *testing.T) {
	ctx := context.Background()
	current := newTestSnapshot(t)
	target := newTestSnapshot(t)

	// The owning model only exists in the target snapshot.
	addClass(t, target, "0x200", "PhysicalModel", "")
	addModel(t, target, "m1", "0x200", "", false)

	m := map[string]*models.ChangeRecord{
		"e1": {ID: "e1", Opcode: models.OpcodeDelete, ModelID: "m1"},
	}

	require.NoError(t, FilterByModelClass(ctx, m, current, target, []string{"PhysicalModel"}))
	assert.Contains(t, m, "e1")
}

func TestFilterSpatial(t *testing.T) {
	ctx := context.Background()
	current := newTestSnapshot(t)
	target := newTestSnapshot(t)

	// GeometricElement3d <- PhysicalElement <- Pipe; Annotation is unrelated.
	addClass(t, current, "0x100", GeometricBaseClass, "")
	addClass(t, current, "0x101", "PhysicalElement", "0x100")
	addClass(t, current, "0x102", "Pipe", "0x101")
	addClass(t, current, "0x103", "Annotation", "")

	m := map[string]*models.ChangeRecord{
		"e1": {ID: "e1", ClassID: "0x102", Opcode: models.OpcodeUpdate},
		"e2": {ID: "e2", ClassID: "0x101", Opcode: models.OpcodeUpdate},
		"e3": {ID: "e3", ClassID: "0x103", Opcode: models.OpcodeUpdate},
	}

	require.NoError(t, FilterSpatial(ctx, m, current, target))

	assert.Contains(t, m, "e1")
	assert.Contains(t, m, "e2")
	assert.NotContains(t, m, "e3")
}

func TestFilterSpatial_ClassOnlyInTarget(t *testing.T) {
	ctx := context.Background()
	current := newTestSnapshot(t)
	target := newTestSnapshot(t)

	// Subtype membership in either snapshot keeps the entity.
	addClass(t, target, "0x100", GeometricBaseClass, "")
	addClass(t, target, "0x101", "PhysicalElement", "0x100")

	m := map[string]*models.ChangeRecord{
		"e1": {ID: "e1", ClassID: "0x101", Opcode: models.OpcodeDelete},
	}

	require.NoError(t, FilterSpatial(ctx, m, current, target))
	assert.Contains(t, m, "e1")
}
