package model

import (
	"fmt"
	"strings"
)

// CatalogRecord is one flat catalog entry. Hierarchy is expressed only
// through ParentName, which references another record's Name.
type CatalogRecord struct {
	Name        string            `json:"name" yaml:"name"`
	ParentName  string            `json:"parent_name,omitempty" yaml:"parent_name,omitempty"`
	Kind        Kind              `json:"kind,omitempty" yaml:"kind,omitempty"`
	DisplayName string            `json:"display_name,omitempty" yaml:"display_name,omitempty"`
	Properties  map[string]string `json:"properties,omitempty" yaml:"properties,omitempty"`
}

// IsRoot returns true if the record declares no parent.
func (r CatalogRecord) IsRoot() bool {
	return strings.TrimSpace(r.ParentName) == ""
}

// Label returns the text shown for the record in the tree and table.
// Falls back to Name when no display name was supplied.
func (r CatalogRecord) Label() string {
	if r.DisplayName != "" {
		return r.DisplayName
	}
	return r.Name
}

// Clone creates a deep copy of the record
func (r CatalogRecord) Clone() CatalogRecord {
	clone := r
	if r.Properties != nil {
		clone.Properties = make(map[string]string, len(r.Properties))
		for k, v := range r.Properties {
			clone.Properties[k] = v
		}
	}
	return clone
}

// Validate checks if the record data is logically valid
func (r *CatalogRecord) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("catalog name cannot be empty")
	}
	if r.ParentName == r.Name {
		return fmt.Errorf("catalog %q cannot be its own parent", r.Name)
	}
	return nil
}

// Kind tags a record for iconography. It carries no structural meaning.
type Kind string

const (
	KindArc    Kind = "arc"
	KindADR    Kind = "adr"
	KindIoTHub Kind = "iot-hub"
	KindSite   Kind = "site"
)

// IsKnownKind returns true if the kind has a dedicated icon.
func (k Kind) IsKnownKind() bool {
	switch k {
	case KindArc, KindADR, KindIoTHub, KindSite:
		return true
	}
	return false
}

// Column describes one table column. Only the number of columns affects
// row projection; ID and Label are used for headers and field mapping.
type Column struct {
	ID    string `json:"id" yaml:"id"`
	Label string `json:"label" yaml:"label"`
}

// Title returns the header text, falling back to the ID.
func (c Column) Title() string {
	if c.Label != "" {
		return c.Label
	}
	return c.ID
}

// Validate checks if the column data is logically valid
func (c *Column) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("column ID cannot be empty")
	}
	return nil
}

// DefaultColumns is used when neither the catalog source nor the config
// supplies columns.
func DefaultColumns() []Column {
	return []Column{{ID: "name", Label: "Name"}}
}

// ResolveColumns picks the catalog's own columns, then the configured ones,
// then DefaultColumns.
func ResolveColumns(fromCatalog, configured []Column) []Column {
	switch {
	case len(fromCatalog) > 0:
		return fromCatalog
	case len(configured) > 0:
		return configured
	default:
		return DefaultColumns()
	}
}

// CloneRecords deep-copies a record slice.
func CloneRecords(records []CatalogRecord) []CatalogRecord {
	if records == nil {
		return nil
	}
	out := make([]CatalogRecord, len(records))
	for i, r := range records {
		out[i] = r.Clone()
	}
	return out
}
