package changeset

import (
	"encoding/json"
	"fmt"
	"os"
)

// LoadDrivenEdges reads a driven-relationship document: a JSON object mapping
// each driving element id to the ids of the elements it drives.
func LoadDrivenEdges(path string) (map[string][]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read driven edges: %w", err)
	}

	var edges map[string][]string
	if err := json.Unmarshal(data, &edges); err != nil {
		return nil, fmt.Errorf("parse driven edges: %w", err)
	}
	return edges, nil
}
