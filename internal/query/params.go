package query

import "strings"

// ParamList builds a placeholder list and its bound-parameter array together,
// so query text and arguments cannot drift apart.
type ParamList struct {
	args []any
}

// NewParamList returns a builder with capacity for n parameters
func NewParamList(n int) *ParamList {
	return &ParamList{args: make([]any, 0, n)}
}

// Add appends one bound parameter
func (p *ParamList) Add(v any) {
	p.args = append(p.args, v)
}

// AddStrings appends every string in vals as a bound parameter
func (p *ParamList) AddStrings(vals []string) {
	for _, v := range vals {
		p.args = append(p.args, v)
	}
}

// Placeholders returns a comma-separated "?" list matching the bound
// parameters added so far, e.g. "?,?,?".
func (p *ParamList) Placeholders() string {
	if len(p.args) == 0 {
		return ""
	}
	return strings.Repeat("?,", len(p.args)-1) + "?"
}

// Args returns the bound-parameter array in insertion order
func (p *ParamList) Args() []any {
	return p.args
}

// Len returns the number of bound parameters
func (p *ParamList) Len() int {
	return len(p.args)
}

// Chunk splits ids into consecutive slices of at most size elements. The
// chunk sizes used by the engine exist to keep any single query within the
// parameter-count limits of the backing query engine.
func Chunk(ids []string, size int) [][]string {
	if size <= 0 || len(ids) == 0 {
		if len(ids) == 0 {
			return nil
		}
		return [][]string{ids}
	}
	chunks := make([][]string, 0, (len(ids)+size-1)/size)
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		chunks = append(chunks, ids[start:end])
	}
	return chunks
}
