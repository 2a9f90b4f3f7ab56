package models

import "time"

// ModelInfo describes one container model affected by a comparison. It is
// queried on demand per comparison and never persisted beyond the result
// cache.
type ModelInfo struct {
	ModelID string `json:"modelId"`
	Name    string `json:"name,omitempty"`
	Source  string `json:"source,omitempty"`
}

// ComparisonResult is the complete output of one comparison run: the
// reconciled element map plus the model-level sets derived from it.
type ComparisonResult struct {
	ID              string                   `json:"id"`
	StartChangeset  string                   `json:"startChangeset"`
	EndChangeset    string                   `json:"endChangeset"`
	Backward        bool                     `json:"backward"`
	CreatedAt       time.Time                `json:"createdAt"`
	Elements        map[string]*ChangeRecord `json:"elements"`
	ChangedModels   []string                 `json:"changedModels,omitempty"`
	UnchangedModels []string                 `json:"unchangedModels,omitempty"`
	ModelParents    map[string]string        `json:"modelParents,omitempty"`
	ModelInfos      map[string]*ModelInfo    `json:"modelInfos,omitempty"`
}

// RangeKey returns the cache key identifying the compared changeset range
// and traversal direction.
func (r *ComparisonResult) RangeKey() string {
	key := r.StartChangeset + ".." + r.EndChangeset
	if r.Backward {
		key += ":backward"
	}
	return key
}
