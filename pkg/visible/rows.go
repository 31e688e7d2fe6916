package visible

import (
	"github.com/vanderheijden86/catview/pkg/forest"
	"github.com/vanderheijden86/catview/pkg/model"
)

// Row is one projected table row.
type Row struct {
	NodeID string   `json:"node_id"`
	Name   string   `json:"name"`
	Cells  []string `json:"cells"`
}

// ProjectRows emits one row per visible identifier that matches a record,
// in visibleIDs order. Each row has one cell per column and every cell
// holds the record's display name. Identifiers with no matching record
// produce no row.
func ProjectRows(visibleIDs []string, records []model.CatalogRecord, columns []model.Column) []Row {
	return ProjectRowsWithFields(visibleIDs, records, columns, nil)
}

// ProjectRowsWithFields is ProjectRows with an optional column ID -> record
// field mapping. Unmapped columns fall back to the display name.
func ProjectRowsWithFields(visibleIDs []string, records []model.CatalogRecord, columns []model.Column, fields map[string]string) []Row {
	if len(visibleIDs) == 0 {
		return nil
	}

	// First record wins for a given node identifier.
	byID := make(map[string]int, len(records))
	for i := range records {
		id := forest.NodeID(records[i].Name)
		if _, ok := byID[id]; !ok {
			byID[id] = i
		}
	}

	rows := make([]Row, 0, len(visibleIDs))
	for _, id := range visibleIDs {
		idx, ok := byID[id]
		if !ok {
			continue
		}
		rec := &records[idx]
		cells := make([]string, len(columns))
		for c, col := range columns {
			cells[c] = cellValue(rec, fields[col.ID])
		}
		rows = append(rows, Row{NodeID: id, Name: rec.Name, Cells: cells})
	}
	return rows
}

func cellValue(rec *model.CatalogRecord, field string) string {
	switch field {
	case "":
		return rec.Label()
	case "name":
		return rec.Name
	case "parent_name":
		return rec.ParentName
	case "kind":
		return string(rec.Kind)
	case "display_name":
		return rec.Label()
	default:
		return rec.Properties[field]
	}
}
