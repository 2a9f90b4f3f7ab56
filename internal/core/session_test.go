package core

import (
	"context"
	"testing"

	"github.com/kilupskalvis/mvc/internal/models"
	"github.com/kilupskalvis/mvc/internal/query"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sessionFixtures builds a pair of snapshots and a two-changeset history:
// e1 is inserted then updated (net insert, model m1, still present), e2 is
// updated then deleted (net delete, model m2, only known to the target
// snapshot). m3 is an untouched model in the current snapshot.
func sessionFixtures(t *testing.T) (current, target *query.DB, changesets []models.RawChangeset) {
	t.Helper()
	current = newTestSnapshot(t)
	target = newTestSnapshot(t)

	addElement(t, current, "s0", "0x10", "", "", "Root", "")
	addElement(t, current, "p1", "0x20", "", "s0", "Piping", "")
	addElement(t, current, "e1", "0x100", "m1", "", "Pipe Run", "")
	addModel(t, current, "m1", "0x200", "p1", false)
	addModel(t, current, "m3", "0x200", "", false)

	addElement(t, target, "s0", "0x10", "", "", "Root", "")
	addElement(t, target, "p2", "0x20", "", "s0", "Structure", "")
	addElement(t, target, "e2", "0x100", "m2", "", "Beam", "")
	addModel(t, target, "m2", "0x200", "p2", false)

	changesets = []models.RawChangeset{
		{
			ID: "cs1",
			Elements: models.ChangedElements{
				IDs:      []string{"e1", "e2"},
				ClassIDs: []string{"0x100", "0x100"},
				Opcodes:  []models.Opcode{models.OpcodeInsert, models.OpcodeUpdate},
			},
		},
		{
			ID:       "cs2",
			ParentID: "cs1",
			Elements: models.ChangedElements{
				IDs:      []string{"e1", "e2"},
				ClassIDs: []string{"0x100", "0x100"},
				Opcodes:  []models.Opcode{models.OpcodeUpdate, models.OpcodeDelete},
			},
		},
	}
	return current, target, changesets
}

func TestSession_SetChangesets(t *testing.T) {
	ctx := context.Background()
	current, target, changesets := sessionFixtures(t)

	s := NewSession(current, target, Options{})
	require.NoError(t, s.SetChangesets(ctx, changesets))

	elements := s.Elements()
	require.Len(t, elements, 2)
	assert.Equal(t, models.OpcodeInsert, elements["e1"].Opcode)
	assert.Equal(t, models.OpcodeDelete, elements["e2"].Opcode)

	// Model ids are backfilled from the snapshots; deletions resolve
	// against the target.
	assert.Equal(t, "m1", elements["e1"].ModelID)
	assert.Equal(t, "m2", elements["e2"].ModelID)

	changed := s.ChangedModels()
	assert.Contains(t, changed, "m1")
	assert.Contains(t, changed, "m2")
	assert.Equal(t, []string{"m3"}, s.UnchangedModels())

	parents := s.ModelParents()
	assert.Equal(t, "s0", parents["m1"])
	assert.Equal(t, "s0", parents["m2"])

	infos := s.ModelInfos()
	require.Contains(t, infos, "m1")
	assert.Equal(t, "Piping", infos["m1"].Name)
	require.Contains(t, infos, "m2")
	assert.Equal(t, "Structure", infos["m2"].Name)
}

func TestSession_BackwardComparison(t *testing.T) {
	ctx := context.Background()
	current, target, changesets := sessionFixtures(t)

	// Changesets arrive in chronological order either way; a backward run
	// must net to the same opcodes as a forward one, and a valid history
	// must not trip strict mode.
	s := NewSession(current, target, Options{Backward: true, Strict: true})
	require.NoError(t, s.SetChangesets(ctx, changesets))

	elements := s.Elements()
	require.Len(t, elements, 2)
	assert.Equal(t, models.OpcodeInsert, elements["e1"].Opcode)
	assert.Equal(t, models.OpcodeDelete, elements["e2"].Opcode)

	// The caller's slice is left untouched.
	assert.Equal(t, "cs1", changesets[0].ID)
	assert.Equal(t, "cs2", changesets[1].ID)

	result, err := s.Result("cs1", "cs2")
	require.NoError(t, err)
	assert.True(t, result.Backward)
	assert.Equal(t, "cs1..cs2:backward", result.RangeKey())
}

func TestSession_Entries(t *testing.T) {
	ctx := context.Background()
	current, target, changesets := sessionFixtures(t)

	s := NewSession(current, target, Options{})
	require.NoError(t, s.SetChangesets(ctx, changesets))

	entries, err := s.Entries(ctx, []string{"e1", "e2"})
	require.NoError(t, err)
	require.Len(t, entries, 2)

	byID := make(map[string]*models.Entry, len(entries))
	for _, e := range entries {
		byID[e.ID] = e
	}

	// e1 rows come from the current snapshot, the deleted e2 from the target.
	assert.Equal(t, "Pipe Run", byID["e1"].Label)
	assert.Equal(t, models.OpcodeInsert, byID["e1"].Opcode)
	assert.Equal(t, "Beam", byID["e2"].Label)
	assert.Equal(t, models.OpcodeDelete, byID["e2"].Opcode)
}

func TestSession_Result(t *testing.T) {
	ctx := context.Background()
	current, target, changesets := sessionFixtures(t)

	s := NewSession(current, target, Options{})

	_, err := s.Result("cs1", "cs2")
	require.Error(t, err)

	require.NoError(t, s.SetChangesets(ctx, changesets))

	result, err := s.Result("cs1", "cs2")
	require.NoError(t, err)

	assert.NotEmpty(t, result.ID)
	assert.Equal(t, "cs1", result.StartChangeset)
	assert.Equal(t, "cs2", result.EndChangeset)
	assert.False(t, result.Backward)
	assert.Equal(t, []string{"m1", "m2"}, result.ChangedModels)
	assert.Equal(t, []string{"m3"}, result.UnchangedModels)
	assert.Equal(t, "cs1..cs2", result.RangeKey())
}

func TestSession_Cleanup(t *testing.T) {
	ctx := context.Background()
	current, target, changesets := sessionFixtures(t)

	s := NewSession(current, target, Options{})
	require.NoError(t, s.SetChangesets(ctx, changesets))

	s.Cleanup()

	assert.Empty(t, s.Elements())
	_, err := s.Result("cs1", "cs2")
	assert.Error(t, err)

	// The session is reusable after cleanup.
	require.NoError(t, s.SetChangesets(ctx, changesets))
	assert.Len(t, s.Elements(), 2)
}

func TestSession_ExpandDriven(t *testing.T) {
	current, target, _ := sessionFixtures(t)

	s := NewSession(current, target, Options{})

	// No driven relationships supplied yet.
	assert.Nil(t, s.ExpandDriven([]string{"e1"}))

	s.SetDrivenEdges(map[string][]string{"e1": {"e5", "e6"}, "e5": {"e7"}})

	levels := s.ExpandDriven([]string{"e1"})
	require.Len(t, levels, 2)
	assert.ElementsMatch(t, []string{"e5", "e6"}, levels[0])
	assert.Equal(t, []string{"e7"}, levels[1])
}

func TestSession_SpatialOnly(t *testing.T) {
	ctx := context.Background()
	current, target, changesets := sessionFixtures(t)

	// Only the 0x100 class is geometric; register the hierarchy.
	addClass(t, current, "0x99", GeometricBaseClass, "")
	addClass(t, current, "0x100", "Pipe", "0x99")

	s := NewSession(current, target, Options{SpatialOnly: true})
	require.NoError(t, s.SetChangesets(ctx, changesets))
	assert.Len(t, s.Elements(), 2)

	// A non-geometric change is filtered out.
	extra := changesets
	extra[0].Elements.IDs = append(extra[0].Elements.IDs, "e9")
	extra[0].Elements.ClassIDs = append(extra[0].Elements.ClassIDs, "0x50")
	extra[0].Elements.Opcodes = append(extra[0].Elements.Opcodes, models.OpcodeInsert)

	require.NoError(t, s.SetChangesets(ctx, extra))
	assert.NotContains(t, s.Elements(), "e9")
	assert.Contains(t, s.Elements(), "e1")
}
