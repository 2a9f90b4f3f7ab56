package models

import "fmt"

// RawChangeset is one recorded increment of modification to the dataset. The
// per-entity deltas are encoded as parallel arrays: index i across all arrays
// of Elements describes one changed entity.
type RawChangeset struct {
	ID       string          `json:"id"`
	ParentID string          `json:"parentId,omitempty"`
	Elements ChangedElements `json:"elements"`
}

// ChangedElements holds the parallel arrays of a raw changeset. IDs,
// ClassIDs, and Opcodes are mandatory; the remaining arrays are optional but
// must match the entity count when present.
type ChangedElements struct {
	IDs            []string     `json:"ids"`
	ClassIDs       []string     `json:"classIds"`
	Opcodes        []Opcode     `json:"opcodes"`
	Types          []ChangeType `json:"types,omitempty"`
	Properties     [][]string   `json:"properties,omitempty"`
	OldChecksums   [][]*uint64  `json:"oldChecksums,omitempty"`
	NewChecksums   [][]*uint64  `json:"newChecksums,omitempty"`
	ModelIDs       []string     `json:"modelIds,omitempty"`
	ParentIDs      []string     `json:"parentIds,omitempty"`
	ParentClassIDs []string     `json:"parentClassIds,omitempty"`
}

// Len returns the number of changed entities in the changeset
func (e *ChangedElements) Len() int {
	return len(e.IDs)
}

// HasTypeInfo reports whether type-of-change flags were supplied
func (e *ChangedElements) HasTypeInfo() bool {
	return len(e.Types) > 0
}

// HasPropertyInfo reports whether per-entity property-name lists were supplied
func (e *ChangedElements) HasPropertyInfo() bool {
	return len(e.Properties) > 0
}

// Validate checks that every supplied parallel array matches the entity count
func (e *ChangedElements) Validate() error {
	n := e.Len()
	check := func(name string, got int) error {
		if got != n {
			return fmt.Errorf("parallel array %s has %d entries, want %d", name, got, n)
		}
		return nil
	}
	if err := check("classIds", len(e.ClassIDs)); err != nil {
		return err
	}
	if err := check("opcodes", len(e.Opcodes)); err != nil {
		return err
	}
	if e.HasTypeInfo() {
		if err := check("types", len(e.Types)); err != nil {
			return err
		}
	}
	if e.HasPropertyInfo() {
		if err := check("properties", len(e.Properties)); err != nil {
			return err
		}
	}
	if len(e.OldChecksums) > 0 {
		if err := check("oldChecksums", len(e.OldChecksums)); err != nil {
			return err
		}
	}
	if len(e.NewChecksums) > 0 {
		if err := check("newChecksums", len(e.NewChecksums)); err != nil {
			return err
		}
	}
	if len(e.ModelIDs) > 0 {
		if err := check("modelIds", len(e.ModelIDs)); err != nil {
			return err
		}
	}
	if len(e.ParentIDs) > 0 {
		if err := check("parentIds", len(e.ParentIDs)); err != nil {
			return err
		}
	}
	if len(e.ParentClassIDs) > 0 {
		if err := check("parentClassIds", len(e.ParentClassIDs)); err != nil {
			return err
		}
	}
	for i, op := range e.Opcodes {
		if !op.Valid() {
			return fmt.Errorf("entity %s: unknown opcode %q", e.IDs[i], op)
		}
	}
	return nil
}
