package loader

import (
	"fmt"
	"strings"

	"github.com/vanderheijden86/catview/pkg/model"
)

// rawRecord accepts both the flat record shape and the resource envelope
// used by catalog exports:
//
//	{"name": "edge-1", "parent_name": "site-1", "kind": "arc", "display_name": "Edge 1"}
//	{"spec": {"name": "edge-1", "parentName": "site-1", "objectRef": {"kind": "arc"}, "properties": {"name": "Edge 1"}}}
type rawRecord struct {
	Name        string         `json:"name" yaml:"name"`
	ParentName  string         `json:"parent_name" yaml:"parent_name"`
	ParentCamel string         `json:"parentName" yaml:"parentName"`
	Kind        string         `json:"kind" yaml:"kind"`
	DisplayName string         `json:"display_name" yaml:"display_name"`
	Properties  map[string]any `json:"properties" yaml:"properties"`
	Spec        *rawSpec       `json:"spec" yaml:"spec"`
}

type rawSpec struct {
	Name       string         `json:"name" yaml:"name"`
	ParentName string         `json:"parentName" yaml:"parentName"`
	ObjectRef  *rawObjectRef  `json:"objectRef" yaml:"objectRef"`
	Properties map[string]any `json:"properties" yaml:"properties"`
}

type rawObjectRef struct {
	Kind string `json:"kind" yaml:"kind"`
}

type rawDocument struct {
	Catalogs []rawRecord    `json:"catalogs" yaml:"catalogs"`
	Columns  []model.Column `json:"columns" yaml:"columns"`
}

func (r rawRecord) toModel() model.CatalogRecord {
	if r.Spec != nil {
		rec := model.CatalogRecord{
			Name:       strings.TrimSpace(r.Spec.Name),
			ParentName: strings.TrimSpace(r.Spec.ParentName),
		}
		if r.Spec.ObjectRef != nil {
			rec.Kind = model.Kind(strings.TrimSpace(r.Spec.ObjectRef.Kind))
		}
		props := stringifyProperties(r.Spec.Properties)
		if name, ok := props["name"]; ok {
			rec.DisplayName = name
			delete(props, "name")
		}
		if len(props) > 0 {
			rec.Properties = props
		}
		return rec
	}

	parent := r.ParentName
	if parent == "" {
		parent = r.ParentCamel
	}
	rec := model.CatalogRecord{
		Name:        strings.TrimSpace(r.Name),
		ParentName:  strings.TrimSpace(parent),
		Kind:        model.Kind(strings.TrimSpace(r.Kind)),
		DisplayName: r.DisplayName,
	}
	if props := stringifyProperties(r.Properties); len(props) > 0 {
		rec.Properties = props
	}
	return rec
}

func stringifyProperties(in map[string]any) map[string]string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		switch val := v.(type) {
		case nil:
			out[k] = ""
		case string:
			out[k] = val
		default:
			out[k] = fmt.Sprint(val)
		}
	}
	return out
}

// convertRecords validates as it converts; a record without a name is a
// data error, not something to drop silently.
func convertRecords(raw []rawRecord, source string) ([]model.CatalogRecord, error) {
	records := make([]model.CatalogRecord, 0, len(raw))
	for i, r := range raw {
		rec := r.toModel()
		if rec.Name == "" {
			return nil, fmt.Errorf("%s: record %d has no name", source, i+1)
		}
		records = append(records, rec)
	}
	return records, nil
}
