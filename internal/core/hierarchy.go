package core

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"

	"github.com/kilupskalvis/mvc/internal/models"
	"github.com/kilupskalvis/mvc/internal/query"
)

// Chunk sizes for the hierarchy queries. These bound the parameter count and
// response size of any single query issued against a snapshot; one chunk is
// in flight at a time.
const (
	modelIDChunkSize      = 1000
	changedModelChunkSize = 800
	parentModelChunkSize  = 200
)

// ProgressFunc receives fire-and-forget progress events for long-running
// phases. Implementations must not block; losing an event is not an error.
type ProgressFunc func(phase string, percent int)

// HierarchyResolver backfills model ids on reconciled records, derives the
// changed and unchanged model sets, and walks the subject/partition hierarchy
// to find the display parent of each affected model.
type HierarchyResolver struct {
	current  query.Executor
	target   query.Executor
	progress ProgressFunc
	logger   *slog.Logger

	// subjectCache memoizes subject rows per snapshot during a parent walk
	subjectCache map[query.Executor]map[string]*subjectRow
}

// NewHierarchyResolver creates a resolver over the two snapshots being
// compared. progress and logger may be nil.
func NewHierarchyResolver(current, target query.Executor, progress ProgressFunc, logger *slog.Logger) *HierarchyResolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &HierarchyResolver{
		current:      current,
		target:       target,
		progress:     progress,
		logger:       logger,
		subjectCache: make(map[query.Executor]map[string]*subjectRow),
	}
}

func (h *HierarchyResolver) report(phase string, percent int) {
	if h.progress != nil {
		h.progress(phase, percent)
	}
}

// FixMissingModelIDs backfills the model id of entities that lack one, a
// known data-quality gap for deletions. Deleted entities are looked up in the
// target snapshot, everything else in the current one. Entities that still
// cannot be resolved keep an empty model id.
func (h *HierarchyResolver) FixMissingModelIDs(ctx context.Context, m map[string]*models.ChangeRecord) error {
	var fromCurrent, fromTarget []string
	for id, rec := range m {
		if rec.ModelID != "" {
			continue
		}
		if rec.Opcode == models.OpcodeDelete {
			fromTarget = append(fromTarget, id)
		} else {
			fromCurrent = append(fromCurrent, id)
		}
	}

	backfill := func(exec query.Executor, ids []string) error {
		for _, chunk := range query.Chunk(ids, modelIDChunkSize) {
			params := query.NewParamList(len(chunk))
			params.AddStrings(chunk)
			stmt := fmt.Sprintf("SELECT id, model_id FROM element WHERE id IN (%s)", params.Placeholders())

			rows, err := exec.Select(ctx, stmt, params.Args())
			if err != nil {
				return fmt.Errorf("backfill model ids: %w", err)
			}
			for _, row := range rows {
				id := query.AsString(row[0])
				modelID := query.AsString(row[1])
				if rec, ok := m[id]; ok && modelID != "" {
					next := rec.Clone()
					next.ModelID = modelID
					m[id] = next
				}
			}
		}
		return nil
	}

	if err := backfill(h.current, fromCurrent); err != nil {
		return err
	}
	return backfill(h.target, fromTarget)
}

// FindChangedModels returns the set of models containing at least one changed
// entity. When any record already carries a model id the set is derived from
// the reconciled map directly; otherwise the owning models are queried from
// both snapshots in chunks with incremental progress reporting.
func (h *HierarchyResolver) FindChangedModels(ctx context.Context, m map[string]*models.ChangeRecord) (map[string]struct{}, error) {
	changed := make(map[string]struct{})

	haveModelIDs := false
	for _, rec := range m {
		if rec.ModelID != "" {
			haveModelIDs = true
			break
		}
	}
	if haveModelIDs {
		for _, rec := range m {
			if rec.ModelID != "" {
				changed[rec.ModelID] = struct{}{}
			}
		}
		return changed, nil
	}

	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	chunks := query.Chunk(ids, changedModelChunkSize)
	processed := 0
	for _, chunk := range chunks {
		for _, exec := range []query.Executor{h.current, h.target} {
			params := query.NewParamList(len(chunk))
			params.AddStrings(chunk)
			stmt := fmt.Sprintf("SELECT DISTINCT model_id FROM element WHERE id IN (%s) AND model_id IS NOT NULL", params.Placeholders())

			rows, err := exec.Select(ctx, stmt, params.Args())
			if err != nil {
				return nil, fmt.Errorf("find changed models: %w", err)
			}
			for _, row := range rows {
				if modelID := query.AsString(row[0]); modelID != "" {
					changed[modelID] = struct{}{}
				}
			}
		}
		processed += len(chunk)
		h.report("finding changed models", processed*100/len(ids))
	}

	return changed, nil
}

// FindUnchangedModels returns all non-private models loaded in the current
// snapshot that contain no changed entity, sorted for deterministic output.
func (h *HierarchyResolver) FindUnchangedModels(ctx context.Context, changed map[string]struct{}) ([]string, error) {
	rows, err := h.current.Select(ctx, "SELECT id FROM model WHERE is_private = 0", nil)
	if err != nil {
		return nil, fmt.Errorf("find unchanged models: %w", err)
	}

	var unchanged []string
	for _, row := range rows {
		id := query.AsString(row[0])
		if _, ok := changed[id]; !ok {
			unchanged = append(unchanged, id)
		}
	}
	sort.Strings(unchanged)
	return unchanged, nil
}

// partitionRow is one model's partition element as returned by the parent
// query.
type partitionRow struct {
	modelID   string
	partition string
	parentID  string
	jsonProps string
}

// subjectRow is one subject element in the display hierarchy
type subjectRow struct {
	id        string
	parentID  string
	jsonProps string
}

// FindParentModels resolves the display parent of every changed model. Models
// still present in the current snapshot are walked there; models that only
// exist in the target snapshot (deleted models) are walked in the target. The
// walk climbs from the model's partition to its owning subject and up the
// subject chain until the first ancestor that qualifies as a model node.
func (h *HierarchyResolver) FindParentModels(ctx context.Context, changed map[string]struct{}) (map[string]string, error) {
	ids := make([]string, 0, len(changed))
	for id := range changed {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	currentOwned, targetOwned, err := h.splitByOwnership(ctx, ids)
	if err != nil {
		return nil, err
	}

	parents := make(map[string]string, len(ids))
	if err := h.resolveParents(ctx, h.current, currentOwned, parents); err != nil {
		return nil, err
	}
	if err := h.resolveParents(ctx, h.target, targetOwned, parents); err != nil {
		return nil, err
	}
	return parents, nil
}

// splitByOwnership partitions changed model ids into those present in the
// current snapshot and those only found in the target snapshot.
func (h *HierarchyResolver) splitByOwnership(ctx context.Context, ids []string) (currentOwned, targetOwned []string, err error) {
	present := make(map[string]struct{}, len(ids))
	for _, chunk := range query.Chunk(ids, parentModelChunkSize) {
		params := query.NewParamList(len(chunk))
		params.AddStrings(chunk)
		stmt := fmt.Sprintf("SELECT id FROM model WHERE id IN (%s)", params.Placeholders())

		rows, err := h.current.Select(ctx, stmt, params.Args())
		if err != nil {
			return nil, nil, fmt.Errorf("split changed models: %w", err)
		}
		for _, row := range rows {
			present[query.AsString(row[0])] = struct{}{}
		}
	}

	for _, id := range ids {
		if _, ok := present[id]; ok {
			currentOwned = append(currentOwned, id)
		} else {
			targetOwned = append(targetOwned, id)
		}
	}
	return currentOwned, targetOwned, nil
}

// resolveParents walks the partition/subject hierarchy of the given models in
// one snapshot and records each model's display parent.
func (h *HierarchyResolver) resolveParents(ctx context.Context, exec query.Executor, ids []string, parents map[string]string) error {
	for _, chunk := range query.Chunk(ids, parentModelChunkSize) {
		params := query.NewParamList(len(chunk))
		params.AddStrings(chunk)
		stmt := fmt.Sprintf(`
			SELECT m.id, p.id, p.parent_id, p.json_properties
			FROM model m JOIN element p ON p.id = m.modeled_element_id
			WHERE m.id IN (%s)`, params.Placeholders())

		rows, err := exec.Select(ctx, stmt, params.Args())
		if err != nil {
			return fmt.Errorf("resolve parent models: %w", err)
		}

		for _, row := range rows {
			part := partitionRow{
				modelID:   query.AsString(row[0]),
				partition: query.AsString(row[1]),
				parentID:  query.AsString(row[2]),
				jsonProps: query.AsString(row[3]),
			}
			if !isModelDefiningPartition(part.jsonProps) {
				parents[part.modelID] = part.parentID
				continue
			}
			parent, err := h.climbSubjects(ctx, exec, part.parentID)
			if err != nil {
				return err
			}
			if parent != "" {
				parents[part.modelID] = parent
			}
		}
	}
	return nil
}

// climbSubjects walks up the subject chain starting at subjectID until it
// finds a subject that qualifies as a model node, or the root of the chain.
func (h *HierarchyResolver) climbSubjects(ctx context.Context, exec query.Executor, subjectID string) (string, error) {
	for subjectID != "" {
		subj, err := h.subject(ctx, exec, subjectID)
		if err != nil {
			return "", err
		}
		if subj == nil {
			// Dangling reference; treat the last known id as the parent.
			return subjectID, nil
		}
		if !isDisqualifiedSubject(subj.jsonProps) || subj.parentID == "" {
			return subj.id, nil
		}
		subjectID = subj.parentID
	}
	return "", nil
}

// subject loads one subject row, memoized per snapshot for the lifetime of
// the resolver.
func (h *HierarchyResolver) subject(ctx context.Context, exec query.Executor, id string) (*subjectRow, error) {
	cache, ok := h.subjectCache[exec]
	if !ok {
		cache = make(map[string]*subjectRow)
		h.subjectCache[exec] = cache
	}
	if subj, ok := cache[id]; ok {
		return subj, nil
	}

	rows, err := exec.Select(ctx, "SELECT id, parent_id, json_properties FROM element WHERE id = ?", []any{id})
	if err != nil {
		return nil, fmt.Errorf("load subject %s: %w", id, err)
	}
	if len(rows) == 0 {
		cache[id] = nil
		return nil, nil
	}
	subj := &subjectRow{
		id:        query.AsString(rows[0][0]),
		parentID:  query.AsString(rows[0][1]),
		jsonProps: query.AsString(rows[0][2]),
	}
	cache[id] = subj
	return subj, nil
}

// ModelInfos resolves the display name and source file of every changed
// model. Name lookups propagate failures; the source-file lookup is cosmetic
// and any failure there is swallowed.
func (h *HierarchyResolver) ModelInfos(ctx context.Context, changed map[string]struct{}) (map[string]*models.ModelInfo, error) {
	ids := make([]string, 0, len(changed))
	for id := range changed {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	infos := make(map[string]*models.ModelInfo, len(ids))
	for _, id := range ids {
		infos[id] = &models.ModelInfo{ModelID: id}
	}

	for _, exec := range []query.Executor{h.current, h.target} {
		for _, chunk := range query.Chunk(ids, parentModelChunkSize) {
			params := query.NewParamList(len(chunk))
			params.AddStrings(chunk)
			stmt := fmt.Sprintf(`
				SELECT m.id, e.label FROM model m
				LEFT JOIN element e ON e.id = m.modeled_element_id
				WHERE m.id IN (%s)`, params.Placeholders())

			rows, err := exec.Select(ctx, stmt, params.Args())
			if err != nil {
				return nil, fmt.Errorf("resolve model names: %w", err)
			}
			for _, row := range rows {
				info := infos[query.AsString(row[0])]
				if info != nil && info.Name == "" {
					info.Name = query.AsString(row[1])
				}
			}
		}
	}

	h.fillModelSources(ctx, ids, infos)
	return infos, nil
}

// fillModelSources performs the best-effort source-file lookup. Failures are
// logged and ignored: missing source metadata is a data-quality gap, not an
// error.
func (h *HierarchyResolver) fillModelSources(ctx context.Context, ids []string, infos map[string]*models.ModelInfo) {
	for _, exec := range []query.Executor{h.current, h.target} {
		for _, chunk := range query.Chunk(ids, parentModelChunkSize) {
			params := query.NewParamList(len(chunk))
			params.AddStrings(chunk)
			stmt := fmt.Sprintf("SELECT model_id, file_name FROM model_source WHERE model_id IN (%s)", params.Placeholders())

			rows, err := exec.Select(ctx, stmt, params.Args())
			if err != nil {
				h.logger.Debug("model source lookup failed", "error", err)
				continue
			}
			for _, row := range rows {
				info := infos[query.AsString(row[0])]
				if info != nil && info.Source == "" {
					info.Source = query.AsString(row[1])
				}
			}
		}
	}
}

// partitionProps mirrors the JSON metadata shape carried by partition and
// subject elements.
type partitionProps struct {
	Subject struct {
		Job   json.RawMessage `json:"Job"`
		Model struct {
			Type string `json:"Type"`
		} `json:"Model"`
	} `json:"Subject"`
}

// isModelDefiningPartition reports whether a partition's JSON metadata marks
// it as defining a model of its own. Partitions without metadata count as
// model-defining.
func isModelDefiningPartition(jsonProps string) bool {
	if jsonProps == "" {
		return true
	}
	var props partitionProps
	if err := json.Unmarshal([]byte(jsonProps), &props); err != nil {
		return true
	}
	return props.Subject.Model.Type != "Hierarchy"
}

// isDisqualifiedSubject reports whether a subject cannot act as a display
// parent: federation/bridge job subjects and hierarchy-type model subjects
// are skipped during the climb.
func isDisqualifiedSubject(jsonProps string) bool {
	if jsonProps == "" {
		return false
	}
	var props partitionProps
	if err := json.Unmarshal([]byte(jsonProps), &props); err != nil {
		return false
	}
	if len(props.Subject.Job) > 0 {
		return true
	}
	return props.Subject.Model.Type == "Hierarchy"
}
