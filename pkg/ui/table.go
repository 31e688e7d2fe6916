package ui

import (
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/vanderheijden86/catview/pkg/model"
	"github.com/vanderheijden86/catview/pkg/visible"
)

const minColumnWidth = 8

// TableModel shows the rows projected from the visible tree nodes. It is
// the tracker's row sink: rows are always replaced wholesale.
type TableModel struct {
	table   table.Model
	columns []model.Column
	rows    []visible.Row
	theme   Theme
	width   int
	height  int
}

// NewTableModel creates an empty table with the given columns.
func NewTableModel(theme Theme, columns []model.Column) *TableModel {
	t := &TableModel{
		table: table.New(
			table.WithFocused(false),
			table.WithHeight(10),
		),
		theme: theme,
	}
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		BorderStyle(theme.Panel.GetBorderStyle()).
		BorderForeground(theme.Border).
		BorderBottom(true).
		Bold(true)
	styles.Selected = styles.Selected.
		Foreground(theme.Primary).
		Background(theme.Highlight).
		Bold(true)
	t.table.SetStyles(styles)
	t.SetColumns(columns)
	return t
}

// SetRows replaces the table content.
func (t *TableModel) SetRows(rows []visible.Row) {
	cursor := t.table.Cursor()
	t.rows = rows
	t.table.SetRows(t.tableRows())
	t.restoreCursor(cursor)
}

// SetColumns replaces the header. Rows are cleared first so the widget
// never renders rows whose cell count disagrees with the header.
func (t *TableModel) SetColumns(columns []model.Column) {
	cursor := t.table.Cursor()
	t.columns = columns
	t.table.SetRows(nil)
	t.table.SetColumns(t.tableColumns())
	t.table.SetRows(t.tableRows())
	t.restoreCursor(cursor)
}

// restoreCursor puts the cursor back on a real row. The widget parks it at
// -1 whenever it is emptied.
func (t *TableModel) restoreCursor(cursor int) {
	if len(t.rows) == 0 {
		return
	}
	t.table.SetCursor(min(max(cursor, 0), len(t.rows)-1))
}

func (t *TableModel) tableColumns() []table.Column {
	cols := make([]table.Column, len(t.columns))
	widths := t.columnWidths()
	for i, c := range t.columns {
		cols[i] = table.Column{Title: c.Title(), Width: widths[i]}
	}
	return cols
}

// columnWidths splits the available width evenly.
func (t *TableModel) columnWidths() []int {
	n := len(t.columns)
	widths := make([]int, n)
	if n == 0 {
		return widths
	}
	// Each cell carries one column of padding on both sides.
	avail := t.width - 2*n
	each := avail / n
	if each < minColumnWidth {
		each = minColumnWidth
	}
	for i := range widths {
		widths[i] = each
	}
	if extra := avail - each*n; extra > 0 {
		widths[n-1] += extra
	}
	return widths
}

func (t *TableModel) tableRows() []table.Row {
	if len(t.rows) == 0 {
		return nil
	}
	out := make([]table.Row, len(t.rows))
	for i, r := range t.rows {
		cells := make(table.Row, len(t.columns))
		copy(cells, r.Cells)
		out[i] = cells
	}
	return out
}

// SetSize updates the available dimensions; the header takes two lines.
func (t *TableModel) SetSize(width, height int) {
	t.width = width
	t.height = height
	t.table.SetWidth(width)
	t.table.SetHeight(max(height-2, 1))
	t.SetColumns(t.columns)
}

// SelectNodeID moves the cursor to the row for the given node ID.
func (t *TableModel) SelectNodeID(id string) bool {
	for i, r := range t.rows {
		if r.NodeID == id {
			t.table.SetCursor(i)
			return true
		}
	}
	return false
}

// SelectedRow returns the row under the cursor.
func (t *TableModel) SelectedRow() (visible.Row, bool) {
	idx := t.table.Cursor()
	if idx < 0 || idx >= len(t.rows) {
		return visible.Row{}, false
	}
	return t.rows[idx], true
}

// Rows returns the rows currently displayed.
func (t *TableModel) Rows() []visible.Row {
	return t.rows
}

// Columns returns the header columns.
func (t *TableModel) Columns() []model.Column {
	return t.columns
}

// Focus toggles keyboard handling by the underlying table.
func (t *TableModel) Focus(focused bool) {
	if focused {
		t.table.Focus()
	} else {
		t.table.Blur()
	}
}

// Update forwards navigation keys to the table.
func (t *TableModel) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	t.table, cmd = t.table.Update(msg)
	return cmd
}

// View renders the table.
func (t *TableModel) View() string {
	if len(t.columns) == 0 {
		return t.theme.MutedText.Render("No columns configured.")
	}
	return t.table.View()
}
