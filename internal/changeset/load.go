// Package changeset loads raw changeset documents from disk. A changeset file
// is one JSON document of parallel arrays describing the per-entity deltas of
// a single recorded increment.
package changeset

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kilupskalvis/mvc/internal/models"
)

// Load reads and validates one changeset file.
func Load(path string) (*models.RawChangeset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read changeset: %w", err)
	}

	var cs models.RawChangeset
	if err := json.Unmarshal(data, &cs); err != nil {
		return nil, fmt.Errorf("parse changeset %s: %w", filepath.Base(path), err)
	}
	if cs.ID == "" {
		cs.ID = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if err := cs.Elements.Validate(); err != nil {
		return nil, fmt.Errorf("changeset %s: %w", cs.ID, err)
	}
	return &cs, nil
}

// LoadDir reads every *.json changeset in a directory in lexical filename
// order. Changeset files are prefixed with their sequence index, so lexical
// order is chronological order.
func LoadDir(dir string) ([]models.RawChangeset, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read changeset directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	changesets := make([]models.RawChangeset, 0, len(names))
	for _, name := range names {
		cs, err := Load(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		changesets = append(changesets, *cs)
	}
	return changesets, nil
}

// LoadRange returns the contiguous subsequence of changesets from start to
// end inclusive, identified by changeset id. An empty start begins at the
// first changeset; an empty end extends to the last.
func LoadRange(dir, start, end string) ([]models.RawChangeset, error) {
	all, err := LoadDir(dir)
	if err != nil {
		return nil, err
	}

	first, last := 0, len(all)-1
	if start != "" {
		first = indexOf(all, start)
		if first < 0 {
			return nil, fmt.Errorf("changeset %s not found", start)
		}
	}
	if end != "" {
		last = indexOf(all, end)
		if last < 0 {
			return nil, fmt.Errorf("changeset %s not found", end)
		}
	}
	if first > last {
		return nil, fmt.Errorf("changeset %s is newer than %s", start, end)
	}
	return all[first : last+1], nil
}

func indexOf(changesets []models.RawChangeset, id string) int {
	for i := range changesets {
		if changesets[i].ID == id {
			return i
		}
	}
	return -1
}
