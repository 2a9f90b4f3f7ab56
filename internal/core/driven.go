package core

// DrivenGraph holds the "element A drives element B" relationships supplied
// by the relationship-change data of a comparison. The engine holds it
// read-only and uses it only for transitive-closure queries.
type DrivenGraph struct {
	drives   map[string][]string
	drivenBy map[string][]string
}

// NewDrivenGraph builds a graph from the drives adjacency (source element to
// the elements it drives) and derives the inverse map.
func NewDrivenGraph(drives map[string][]string) *DrivenGraph {
	g := &DrivenGraph{
		drives:   make(map[string][]string, len(drives)),
		drivenBy: make(map[string][]string),
	}
	for src, dsts := range drives {
		g.drives[src] = append([]string(nil), dsts...)
		for _, dst := range dsts {
			g.drivenBy[dst] = append(g.drivenBy[dst], src)
		}
	}
	return g
}

// Drives returns the elements directly driven by id
func (g *DrivenGraph) Drives(id string) []string {
	return g.drives[id]
}

// DrivenBy returns the elements that directly drive id
func (g *DrivenGraph) DrivenBy(id string) []string {
	return g.drivenBy[id]
}

// Expand computes the transitive closure of elements indirectly affected by
// the seed elements, level by level. Level i of the result contains the
// elements first reached after i+1 hops; seeds themselves are not included.
// A visited set bounds the walk so cyclic driven relationships terminate.
func (g *DrivenGraph) Expand(seeds []string) [][]string {
	visited := make(map[string]struct{}, len(seeds))
	for _, id := range seeds {
		visited[id] = struct{}{}
	}

	var levels [][]string
	frontier := seeds
	for len(frontier) > 0 {
		var next []string
		for _, id := range frontier {
			for _, driven := range g.drives[id] {
				if _, seen := visited[driven]; seen {
					continue
				}
				visited[driven] = struct{}{}
				next = append(next, driven)
			}
		}
		if len(next) == 0 {
			break
		}
		levels = append(levels, next)
		frontier = next
	}
	return levels
}

// ExpandSet flattens Expand into a single membership set
func (g *DrivenGraph) ExpandSet(seeds []string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, level := range g.Expand(seeds) {
		for _, id := range level {
			out[id] = struct{}{}
		}
	}
	return out
}
