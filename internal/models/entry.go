package models

// EntryKind classifies an entry's position in the structural hierarchy
type EntryKind string

const (
	KindTopAssembly EntryKind = "top-assembly"
	KindAssembly    EntryKind = "assembly"
	KindElement     EntryKind = "element"
)

// EntryRow is one raw per-entity query row as returned by the snapshot query
// collaborator, before materialization.
type EntryRow struct {
	ID       string
	Label    string
	Code     string
	ModelID  string
	ClassID  string
	ParentID string
	ChildIDs []string
}

// Entry is a materialized changed-element entry carrying parent/child linkage
// and hierarchy classification, ready for UI consumption.
type Entry struct {
	ID       string     `json:"id"`
	Label    string     `json:"label,omitempty"`
	Code     string     `json:"code,omitempty"`
	ModelID  string     `json:"modelId,omitempty"`
	ClassID  string     `json:"classId"`
	Opcode   Opcode     `json:"opcode"`
	Type     ChangeType `json:"type"`
	Indirect bool       `json:"indirect"`
	Kind     EntryKind  `json:"kind"`
	ParentID string     `json:"parentId,omitempty"`
	ChildIDs []string   `json:"childIds,omitempty"`
}
