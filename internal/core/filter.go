package core

import (
	"context"
	"fmt"

	"github.com/kilupskalvis/mvc/internal/models"
	"github.com/kilupskalvis/mvc/internal/query"
)

// filterChunkSize bounds the id count of a single existence query issued by
// the downstream filters.
const filterChunkSize = 1000

// GeometricBaseClass is the root of the 3D geometric class hierarchy used by
// the spatial filter.
const GeometricBaseClass = "GeometricElement3d"

// FilterByModelClass removes entities from the reconciled map whose owning
// model is not an instance of one of the allowed model classes. Model
// membership is resolved by chunked existence queries against both snapshots
// and intersected with the map contents. Entities without a model id are
// removed as unclassifiable.
func FilterByModelClass(ctx context.Context, m map[string]*models.ChangeRecord, current, target query.Executor, allowed []string) error {
	if len(allowed) == 0 {
		return nil
	}

	modelIDs := make(map[string]struct{})
	for _, rec := range m {
		if rec.ModelID != "" {
			modelIDs[rec.ModelID] = struct{}{}
		}
	}

	allowedModels := make(map[string]struct{}, len(modelIDs))
	ids := keys(modelIDs)
	for _, exec := range []query.Executor{current, target} {
		for _, chunk := range query.Chunk(ids, filterChunkSize) {
			classParams := query.NewParamList(len(allowed))
			classParams.AddStrings(allowed)
			idParams := query.NewParamList(len(chunk))
			idParams.AddStrings(chunk)

			stmt := fmt.Sprintf(
				"SELECT m.id FROM model m JOIN class c ON c.id = m.class_id WHERE c.name IN (%s) AND m.id IN (%s)",
				classParams.Placeholders(), idParams.Placeholders())

			rows, err := exec.Select(ctx, stmt, append(classParams.Args(), idParams.Args()...))
			if err != nil {
				return fmt.Errorf("model class filter: %w", err)
			}
			for _, row := range rows {
				allowedModels[query.AsString(row[0])] = struct{}{}
			}
		}
	}

	for id, rec := range m {
		if _, ok := allowedModels[rec.ModelID]; !ok {
			delete(m, id)
		}
	}
	return nil
}

// FilterSpatial keeps only entities whose class is a transitive subtype of
// the 3D geometric base class in either snapshot. The subtype closure is
// evaluated by the snapshot itself; the engine only intersects chunked
// existence results with the reconciled map.
func FilterSpatial(ctx context.Context, m map[string]*models.ChangeRecord, current, target query.Executor) error {
	classIDs := make(map[string]struct{})
	for _, rec := range m {
		if rec.ClassID != "" {
			classIDs[rec.ClassID] = struct{}{}
		}
	}

	geometric := make(map[string]struct{}, len(classIDs))
	ids := keys(classIDs)
	for _, exec := range []query.Executor{current, target} {
		for _, chunk := range query.Chunk(ids, filterChunkSize) {
			baseParam := query.NewParamList(1)
			baseParam.Add(GeometricBaseClass)
			idParams := query.NewParamList(len(chunk))
			idParams.AddStrings(chunk)
			stmt := fmt.Sprintf(`
				WITH RECURSIVE geo(id) AS (
					SELECT id FROM class WHERE name = %s
					UNION
					SELECT c.id FROM class c JOIN geo g ON c.base_class_id = g.id
				)
				SELECT id FROM geo WHERE id IN (%s)`,
				baseParam.Placeholders(), idParams.Placeholders())

			rows, err := exec.Select(ctx, stmt, append(baseParam.Args(), idParams.Args()...))
			if err != nil {
				return fmt.Errorf("spatial filter: %w", err)
			}
			for _, row := range rows {
				geometric[query.AsString(row[0])] = struct{}{}
			}
		}
	}

	for id, rec := range m {
		if _, ok := geometric[rec.ClassID]; !ok {
			delete(m, id)
		}
	}
	return nil
}

func keys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	return out
}
