// Package core implements the changed-element accumulation engine: property
// checksum merging, opcode accumulation across changesets, hierarchy and
// model resolution, driven-element expansion, and entry materialization.
package core

import "github.com/kilupskalvis/mvc/internal/models"

// MergeProperties merges two property-checksum maps for the same entity.
// newer is the chronologically more recent set of changes, older the less
// recent one. For every property appearing in either map the resultant new
// checksum is taken from newer when present, the resultant old checksum from
// older when present. A property whose resultant checksums ended up equal
// canceled out and is dropped; properties without any checksum data are
// conservatively kept.
func MergeProperties(newer, older map[string]models.Checksums) map[string]models.Checksums {
	merged := make(map[string]models.Checksums, len(newer)+len(older))

	names := make(map[string]struct{}, len(newer)+len(older))
	for name := range newer {
		names[name] = struct{}{}
	}
	for name := range older {
		names[name] = struct{}{}
	}

	for name := range names {
		n := newer[name]
		o := older[name]

		cs := models.Checksums{New: n.New, Old: o.Old}
		if cs.New == nil {
			cs.New = o.New
		}
		if cs.Old == nil {
			cs.Old = n.Old
		}

		if cs.Changed() {
			merged[name] = cs
		}
	}

	return merged
}
