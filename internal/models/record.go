// Package models defines the core data structures used throughout MVC
// including change records, changesets, entries, and comparison results.
package models

import "strings"

// Opcode represents the net operation type of a change record
type Opcode string

const (
	OpcodeInsert Opcode = "insert"
	OpcodeUpdate Opcode = "update"
	OpcodeDelete Opcode = "delete"
)

// Valid reports whether the opcode is one of the three known operations
func (o Opcode) Valid() bool {
	return o == OpcodeInsert || o == OpcodeUpdate || o == OpcodeDelete
}

// ChangeType is a bitmask of change categories, OR-accumulated across a
// changeset range.
type ChangeType uint32

const (
	TypeGeometry ChangeType = 1 << iota
	TypePlacement
	TypeProperty
	TypeIndirect
	TypeHidden
)

// Has reports whether all bits in mask are set
func (t ChangeType) Has(mask ChangeType) bool {
	return t&mask == mask
}

// String returns a pipe-separated list of set category names
func (t ChangeType) String() string {
	if t == 0 {
		return "none"
	}
	names := make([]string, 0, 5)
	if t.Has(TypeGeometry) {
		names = append(names, "geometry")
	}
	if t.Has(TypePlacement) {
		names = append(names, "placement")
	}
	if t.Has(TypeProperty) {
		names = append(names, "property")
	}
	if t.Has(TypeIndirect) {
		names = append(names, "indirect")
	}
	if t.Has(TypeHidden) {
		names = append(names, "hidden")
	}
	return strings.Join(names, "|")
}

// Checksums holds the before and after checksum of one property over a range.
// A nil field means the data source did not supply a checksum.
type Checksums struct {
	Old *uint64 `json:"oldChecksum,omitempty"`
	New *uint64 `json:"newChecksum,omitempty"`
}

// Changed reports whether the property really changed. The only case that
// counts as unchanged is both checksums present and equal; missing checksum
// data is conservatively treated as changed.
func (c Checksums) Changed() bool {
	if c.Old != nil && c.New != nil {
		return *c.Old != *c.New
	}
	return true
}

// ChangeRecord is the accumulated, canonical representation of one entity's
// net change over a changeset range. It is the value type of the reconciled
// map keyed by entity id.
type ChangeRecord struct {
	ID            string               `json:"id"`
	ClassID       string               `json:"classId"`
	Opcode        Opcode               `json:"opcode"`
	Type          ChangeType           `json:"type"`
	Properties    map[string]Checksums `json:"properties,omitempty"`
	ModelID       string               `json:"modelId,omitempty"`
	ParentID      string               `json:"parentId,omitempty"`
	ParentClassID string               `json:"parentClassId,omitempty"`
}

// Clone returns a deep copy of the record
func (r *ChangeRecord) Clone() *ChangeRecord {
	out := *r
	if r.Properties != nil {
		out.Properties = make(map[string]Checksums, len(r.Properties))
		for name, cs := range r.Properties {
			out.Properties[name] = cs
		}
	}
	return &out
}
