package model

import (
	"strings"
	"testing"
)

func TestKind_IsKnownKind(t *testing.T) {
	tests := []struct {
		name string
		kind Kind
		want bool
	}{
		{"Arc", KindArc, true},
		{"ADR", KindADR, true},
		{"IoTHub", KindIoTHub, true},
		{"Site", KindSite, true},
		{"Custom", "gateway", false},
		{"Empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.kind.IsKnownKind(); got != tt.want {
				t.Errorf("Kind.IsKnownKind() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCatalogRecord_IsRoot(t *testing.T) {
	tests := []struct {
		name   string
		parent string
		want   bool
	}{
		{"EmptyParent", "", true},
		{"WhitespaceParent", "  ", true},
		{"HasParent", "region-1", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := CatalogRecord{Name: "x", ParentName: tt.parent}
			if got := r.IsRoot(); got != tt.want {
				t.Errorf("IsRoot() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCatalogRecord_Label(t *testing.T) {
	r := CatalogRecord{Name: "site-1"}
	if got := r.Label(); got != "site-1" {
		t.Errorf("expected fallback to name, got %q", got)
	}
	r.DisplayName = "Seattle Site"
	if got := r.Label(); got != "Seattle Site" {
		t.Errorf("expected display name, got %q", got)
	}
}

func TestCatalogRecord_Validate(t *testing.T) {
	tests := []struct {
		name    string
		record  CatalogRecord
		wantErr string
	}{
		{"Valid", CatalogRecord{Name: "a"}, ""},
		{"ValidWithParent", CatalogRecord{Name: "a", ParentName: "b"}, ""},
		{"EmptyName", CatalogRecord{}, "name cannot be empty"},
		{"SelfParent", CatalogRecord{Name: "a", ParentName: "a"}, "own parent"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.record.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestCatalogRecord_CloneIsDeep(t *testing.T) {
	orig := CatalogRecord{
		Name:       "a",
		Properties: map[string]string{"region": "west"},
	}
	clone := orig.Clone()
	clone.Properties["region"] = "east"

	if orig.Properties["region"] != "west" {
		t.Errorf("clone mutated original properties: %v", orig.Properties)
	}
}

func TestCloneRecords(t *testing.T) {
	if CloneRecords(nil) != nil {
		t.Error("expected nil for nil input")
	}
	records := []CatalogRecord{
		{Name: "a", Properties: map[string]string{"k": "v"}},
		{Name: "b"},
	}
	out := CloneRecords(records)
	if len(out) != 2 {
		t.Fatalf("expected 2 records, got %d", len(out))
	}
	out[0].Properties["k"] = "changed"
	if records[0].Properties["k"] != "v" {
		t.Error("CloneRecords should deep copy properties")
	}
}

func TestColumn_TitleAndValidate(t *testing.T) {
	c := Column{ID: "status"}
	if c.Title() != "status" {
		t.Errorf("expected ID fallback, got %q", c.Title())
	}
	c.Label = "Status"
	if c.Title() != "Status" {
		t.Errorf("expected label, got %q", c.Title())
	}
	if err := c.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	empty := Column{Label: "x"}
	if err := empty.Validate(); err == nil {
		t.Error("expected error for empty column ID")
	}
}

func TestDefaultColumns(t *testing.T) {
	cols := DefaultColumns()
	if len(cols) != 1 || cols[0].ID != "name" {
		t.Errorf("unexpected default columns: %+v", cols)
	}
}

func TestResolveColumns(t *testing.T) {
	own := []Column{{ID: "own"}}
	configured := []Column{{ID: "cfg"}}

	if got := ResolveColumns(own, configured); got[0].ID != "own" {
		t.Errorf("catalog columns should win, got %+v", got)
	}
	if got := ResolveColumns(nil, configured); got[0].ID != "cfg" {
		t.Errorf("configured columns should be next, got %+v", got)
	}
	if got := ResolveColumns(nil, nil); len(got) != 1 || got[0].ID != "name" {
		t.Errorf("expected default column, got %+v", got)
	}
}
