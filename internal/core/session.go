package core

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kilupskalvis/mvc/internal/models"
	"github.com/kilupskalvis/mvc/internal/query"
)

// Options configure one comparison session
type Options struct {
	// Backward accumulates the changeset sequence from newer to older
	Backward bool
	// Strict aborts the comparison on unknown opcode pairings instead of
	// dropping them
	Strict bool
	// AllowedModelClasses, when non-empty, restricts results to entities
	// whose model is an instance of one of these classes
	AllowedModelClasses []string
	// SpatialOnly restricts results to classes derived from the 3D
	// geometric base class
	SpatialOnly bool
	// EntryChunkSize overrides the entry loader chunk size
	EntryChunkSize int
	Progress       ProgressFunc
	Logger         *slog.Logger
}

// Session owns all state of one comparison run: the reconciled element map,
// the model sets derived from it, the driven-element graph, and the
// per-session label cache. A session is built fresh per comparison and
// cleared by Cleanup or the next SetChangesets call. The engine itself runs
// strictly sequentially; the mutex only protects callers reading results
// from another goroutine.
type Session struct {
	mu      sync.Mutex
	current query.Executor
	target  query.Executor
	opts    Options
	logger  *slog.Logger

	resolver *HierarchyResolver
	labels   *LabelCache

	elements        map[string]*models.ChangeRecord
	changedModels   map[string]struct{}
	unchangedModels []string
	modelParents    map[string]string
	modelInfos      map[string]*models.ModelInfo
	driven          *DrivenGraph
	ready           bool
}

// NewSession creates a session comparing the current snapshot against the
// target snapshot.
func NewSession(current, target query.Executor, opts Options) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		current:  current,
		target:   target,
		opts:     opts,
		logger:   logger,
		resolver: NewHierarchyResolver(current, target, opts.Progress, logger),
		labels:   NewLabelCache(current),
		elements: make(map[string]*models.ChangeRecord),
	}
}

// SetChangesets runs the full comparison pipeline over the changeset
// sequence: accumulation, model-id backfill, downstream filters, and
// hierarchy resolution. Changesets are given in chronological order
// regardless of direction; a backward session traverses them newest first.
// Any previous result is discarded first. Query failures abort the run; the
// session holds no partial state afterwards.
func (s *Session) SetChangesets(ctx context.Context, changesets []models.RawChangeset) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()

	ordered := changesets
	if s.opts.Backward {
		ordered = make([]models.RawChangeset, len(changesets))
		for i, cs := range changesets {
			ordered[len(changesets)-1-i] = cs
		}
	}

	s.report("accumulating changes", 0)
	reducer := &Reducer{
		Forward: !s.opts.Backward,
		Strict:  s.opts.Strict,
		Logger:  s.logger,
	}
	elements, err := reducer.Reduce(ordered)
	if err != nil {
		return err
	}
	s.report("accumulating changes", 100)

	if err := s.resolver.FixMissingModelIDs(ctx, elements); err != nil {
		return err
	}
	if err := FilterByModelClass(ctx, elements, s.current, s.target, s.opts.AllowedModelClasses); err != nil {
		return err
	}
	if s.opts.SpatialOnly {
		if err := FilterSpatial(ctx, elements, s.current, s.target); err != nil {
			return err
		}
	}

	changed, err := s.resolver.FindChangedModels(ctx, elements)
	if err != nil {
		return err
	}
	unchanged, err := s.resolver.FindUnchangedModels(ctx, changed)
	if err != nil {
		return err
	}
	parents, err := s.resolver.FindParentModels(ctx, changed)
	if err != nil {
		return err
	}
	infos, err := s.resolver.ModelInfos(ctx, changed)
	if err != nil {
		return err
	}

	s.elements = elements
	s.changedModels = changed
	s.unchangedModels = unchanged
	s.modelParents = parents
	s.modelInfos = infos
	s.ready = true

	s.logger.Info("comparison complete",
		"elements", len(elements),
		"changedModels", len(changed),
		"unchangedModels", len(unchanged))
	return nil
}

// SetDrivenEdges installs the driven-element relationships for this
// comparison. The graph is held read-only.
func (s *Session) SetDrivenEdges(drives map[string][]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.driven = NewDrivenGraph(drives)
}

// ExpandDriven answers "what else changed because these elements changed":
// the BFS levels of elements transitively driven by the seeds. Returns nil
// when no driven relationships were supplied.
func (s *Session) ExpandDriven(seeds []string) [][]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.driven == nil {
		return nil
	}
	return s.driven.Expand(seeds)
}

// Elements returns the reconciled map. The returned map must be treated as
// read-only.
func (s *Session) Elements() map[string]*models.ChangeRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.elements
}

// Element returns one reconciled record, or nil
func (s *Session) Element(id string) *models.ChangeRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.elements[id]
}

// ChangedModels returns the set of models containing changed entities
func (s *Session) ChangedModels() map[string]struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.changedModels
}

// UnchangedModels returns the sorted ids of wholly unaffected models
func (s *Session) UnchangedModels() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unchangedModels
}

// ModelParents returns the model id to display-parent mapping
func (s *Session) ModelParents() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.modelParents
}

// ModelInfos returns name/source metadata for the changed models
func (s *Session) ModelInfos() map[string]*models.ModelInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.modelInfos
}

// PropertyLabel resolves the display label of a property name through the
// session's label cache.
func (s *Session) PropertyLabel(ctx context.Context, name string) string {
	return s.labels.Get(ctx, name)
}

// Entries materializes richer entries for the given element ids. Rows are
// loaded from the current snapshot first; ids unknown there (deletions) are
// loaded from the target snapshot.
func (s *Session) Entries(ctx context.Context, ids []string) ([]*models.Entry, error) {
	s.mu.Lock()
	elements := s.elements
	s.mu.Unlock()

	opts := EntryLoadOptions{ChunkSize: s.opts.EntryChunkSize, Progress: s.opts.Progress}
	entries, err := LoadEntries(ctx, s.current, ids, elements, opts)
	if err != nil {
		return nil, err
	}

	found := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		found[e.ID] = struct{}{}
	}
	var missing []string
	for _, id := range ids {
		if _, ok := found[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		fromTarget, err := LoadEntries(ctx, s.target, missing, elements, opts)
		if err != nil {
			return nil, err
		}
		entries = append(entries, fromTarget...)
	}
	return entries, nil
}

// Result assembles the completed comparison into a cacheable value. It must
// only be called after a successful SetChangesets.
func (s *Session) Result(startChangeset, endChangeset string) (*models.ComparisonResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ready {
		return nil, fmt.Errorf("comparison has not been run")
	}

	changed := make([]string, 0, len(s.changedModels))
	for id := range s.changedModels {
		changed = append(changed, id)
	}
	sort.Strings(changed)

	return &models.ComparisonResult{
		ID:              uuid.NewString(),
		StartChangeset:  startChangeset,
		EndChangeset:    endChangeset,
		Backward:        s.opts.Backward,
		CreatedAt:       time.Now().UTC(),
		Elements:        s.elements,
		ChangedModels:   changed,
		UnchangedModels: s.unchangedModels,
		ModelParents:    s.modelParents,
		ModelInfos:      s.modelInfos,
	}, nil
}

// Cleanup clears all session state. The session can be reused for a new
// comparison afterwards.
func (s *Session) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
}

func (s *Session) resetLocked() {
	s.elements = make(map[string]*models.ChangeRecord)
	s.changedModels = nil
	s.unchangedModels = nil
	s.modelParents = nil
	s.modelInfos = nil
	s.ready = false
	s.resolver = NewHierarchyResolver(s.current, s.target, s.opts.Progress, s.logger)
	s.labels = NewLabelCache(s.current)
}

func (s *Session) report(phase string, percent int) {
	if s.opts.Progress != nil {
		s.opts.Progress(phase, percent)
	}
}
