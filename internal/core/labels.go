package core

import (
	"context"
	"fmt"
	"sync"

	"github.com/kilupskalvis/mvc/internal/query"
)

// LabelCache resolves display labels for property names, caching results for
// the lifetime of one comparison session. Each session owns its own cache;
// nothing is shared across sessions.
type LabelCache struct {
	mu     sync.Mutex
	exec   query.Executor
	labels map[string]string
}

// NewLabelCache creates a cache resolving labels against the given snapshot
func NewLabelCache(exec query.Executor) *LabelCache {
	return &LabelCache{
		exec:   exec,
		labels: make(map[string]string),
	}
}

// Get returns the display label for a property name. Labels are cosmetic:
// lookup failures and unknown names fall back to the property name itself.
func (c *LabelCache) Get(ctx context.Context, name string) string {
	c.mu.Lock()
	if label, ok := c.labels[name]; ok {
		c.mu.Unlock()
		return label
	}
	c.mu.Unlock()

	label := name
	rows, err := c.exec.Select(ctx, "SELECT label FROM property_label WHERE name = ?", []any{name})
	if err == nil && len(rows) > 0 {
		if l := query.AsString(rows[0][0]); l != "" {
			label = l
		}
	}

	c.mu.Lock()
	c.labels[name] = label
	c.mu.Unlock()
	return label
}

// Prime bulk-loads labels for the given property names in one chunked pass
func (c *LabelCache) Prime(ctx context.Context, names []string) {
	var missing []string
	c.mu.Lock()
	for _, name := range names {
		if _, ok := c.labels[name]; !ok {
			missing = append(missing, name)
		}
	}
	c.mu.Unlock()

	for _, chunk := range query.Chunk(missing, DefaultEntryChunkSize) {
		params := query.NewParamList(len(chunk))
		params.AddStrings(chunk)
		stmt := fmt.Sprintf("SELECT name, label FROM property_label WHERE name IN (%s)", params.Placeholders())

		rows, err := c.exec.Select(ctx, stmt, params.Args())
		if err != nil {
			continue
		}

		c.mu.Lock()
		for _, row := range rows {
			name := query.AsString(row[0])
			if label := query.AsString(row[1]); label != "" {
				c.labels[name] = label
			}
		}
		for _, name := range chunk {
			if _, ok := c.labels[name]; !ok {
				c.labels[name] = name
			}
		}
		c.mu.Unlock()
	}
}
