package ui

import (
	"strings"
	"testing"

	"github.com/vanderheijden86/catview/pkg/model"
	"github.com/vanderheijden86/catview/pkg/visible"
)

func TestTableSetRowsAndSelect(t *testing.T) {
	tbl := NewTableModel(newTreeTestTheme(), model.DefaultColumns())
	tbl.SetSize(60, 10)

	tbl.SetRows([]visible.Row{
		{NodeID: "tree-a", Name: "a", Cells: []string{"A"}},
		{NodeID: "tree-b", Name: "b", Cells: []string{"B"}},
	})

	if len(tbl.Rows()) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(tbl.Rows()))
	}
	if !tbl.SelectNodeID("tree-b") {
		t.Fatal("expected tree-b to be found")
	}
	row, ok := tbl.SelectedRow()
	if !ok || row.Name != "b" {
		t.Errorf("selected row = %+v, %v", row, ok)
	}
	if tbl.SelectNodeID("tree-missing") {
		t.Error("unexpected match for missing id")
	}
}

func TestTableShrinkingRowsClampsCursor(t *testing.T) {
	tbl := NewTableModel(newTreeTestTheme(), model.DefaultColumns())
	tbl.SetRows([]visible.Row{
		{NodeID: "tree-a", Cells: []string{"A"}},
		{NodeID: "tree-b", Cells: []string{"B"}},
		{NodeID: "tree-c", Cells: []string{"C"}},
	})
	tbl.SelectNodeID("tree-c")

	tbl.SetRows([]visible.Row{{NodeID: "tree-a", Cells: []string{"A"}}})
	row, ok := tbl.SelectedRow()
	if !ok || row.NodeID != "tree-a" {
		t.Errorf("expected cursor clamped to remaining row, got %+v %v", row, ok)
	}

	tbl.SetRows(nil)
	if _, ok := tbl.SelectedRow(); ok {
		t.Error("expected no selection in empty table")
	}
}

func TestTableSetColumnsKeepsRows(t *testing.T) {
	tbl := NewTableModel(newTreeTestTheme(), model.DefaultColumns())
	tbl.SetSize(80, 10)
	tbl.SetRows([]visible.Row{{NodeID: "tree-a", Cells: []string{"A"}}})

	cols := []model.Column{{ID: "name", Label: "Name"}, {ID: "kind", Label: "Kind"}}
	tbl.SetColumns(cols)

	if len(tbl.Columns()) != 2 {
		t.Errorf("expected 2 columns, got %d", len(tbl.Columns()))
	}
	view := tbl.View()
	if !strings.Contains(view, "Kind") || !strings.Contains(view, "A") {
		t.Errorf("view missing header or cell:\n%s", view)
	}
}

func TestTableResizeKeepsCursorOnRow(t *testing.T) {
	tbl := NewTableModel(newTreeTestTheme(), model.DefaultColumns())
	tbl.SetRows([]visible.Row{
		{NodeID: "tree-a", Cells: []string{"A"}},
		{NodeID: "tree-b", Cells: []string{"B"}},
		{NodeID: "tree-c", Cells: []string{"C"}},
	})
	tbl.SelectNodeID("tree-b")

	tbl.SetSize(80, 12)
	row, ok := tbl.SelectedRow()
	if !ok || row.NodeID != "tree-b" {
		t.Errorf("resize moved the cursor: %+v %v", row, ok)
	}

	tbl.SetColumns([]model.Column{{ID: "name"}, {ID: "kind"}})
	if row, ok := tbl.SelectedRow(); !ok || row.NodeID != "tree-b" {
		t.Errorf("new header moved the cursor: %+v %v", row, ok)
	}
}

func TestTableRowsAfterEmptyTableAreSelectable(t *testing.T) {
	tbl := NewTableModel(newTreeTestTheme(), model.DefaultColumns())
	tbl.SetRows(nil)
	tbl.SetRows([]visible.Row{
		{NodeID: "tree-a", Cells: []string{"A"}},
		{NodeID: "tree-b", Cells: []string{"B"}},
	})

	row, ok := tbl.SelectedRow()
	if !ok || row.NodeID != "tree-a" {
		t.Errorf("expected first row selected, got %+v %v", row, ok)
	}
}

func TestTableColumnWidths(t *testing.T) {
	tbl := NewTableModel(newTreeTestTheme(), []model.Column{{ID: "a"}, {ID: "b"}, {ID: "c"}})

	tbl.SetSize(40, 10)
	widths := tbl.columnWidths()
	sum := 0
	for _, w := range widths {
		sum += w
	}
	if sum != 40-6 {
		t.Errorf("widths %v sum to %d, want %d", widths, sum, 34)
	}

	tbl.SetSize(10, 10)
	for _, w := range tbl.columnWidths() {
		if w < minColumnWidth {
			t.Errorf("width %d below minimum", w)
		}
	}
}

func TestTableNoColumns(t *testing.T) {
	tbl := NewTableModel(newTreeTestTheme(), nil)
	if !strings.Contains(tbl.View(), "No columns") {
		t.Error("expected placeholder for empty header")
	}
}
