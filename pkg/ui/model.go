package ui

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/catview/pkg/forest"
	"github.com/vanderheijden86/catview/pkg/model"
	"github.com/vanderheijden86/catview/pkg/visible"
)

const (
	SplitViewThreshold = 100
	DefaultSplitRatio  = 0.4
)

type focus int

const (
	focusTree focus = iota
	focusTable
	focusDetail
)

// Options configures the Model. Zero values fall back to defaults.
type Options struct {
	Theme *Theme
	// Columns are used when the catalog declares none.
	Columns      []model.Column
	ColumnFields map[string]string
	ExpandDepth  *int
	SplitRatio   float64
	Worker       *BackgroundWorker
	// Clipboard overrides the system clipboard (tests).
	Clipboard func(string) error
	// Catalogs are offered by the catalog picker (o).
	Catalogs []CatalogEntry
	// Open loads another catalog picked at runtime. The returned worker,
	// if any, is already started and replaces the current one.
	Open CatalogOpener
}

// CatalogOpener loads the catalog at path and starts watching it.
type CatalogOpener func(ctx context.Context, path string) (*CatalogSnapshot, *BackgroundWorker, error)

// catalogOpenedMsg carries the result of a runtime catalog switch.
type catalogOpenedMsg struct {
	path     string
	snapshot *CatalogSnapshot
	worker   *BackgroundWorker
	err      error
}

// Model is the top-level bubbletea model: the catalog tree on the left, the
// table of visible rows on the right.
type Model struct {
	tree     *TreeModel
	table    *TableModel
	tracker  *visible.Tracker
	worker   *BackgroundWorker
	viewport viewport.Model
	renderer *glamour.TermRenderer
	theme    Theme

	snapshot       *CatalogSnapshot
	fallbackColumn []model.Column
	copyToClip     func(string) error
	catalogs       []CatalogEntry
	open           CatalogOpener
	picker         CatalogPickerModel

	// State
	focused     focus
	isSplitView bool
	showDetails bool
	showHelp    bool
	showPicker  bool
	ready       bool
	width       int
	height      int
	splitRatio  float64

	statusMsg     string
	statusIsError bool
}

// NewModel wires the tree, tracker and table around an initial snapshot.
func NewModel(snapshot *CatalogSnapshot, opts Options) Model {
	theme := DefaultTheme(lipgloss.DefaultRenderer())
	if opts.Theme != nil {
		theme = *opts.Theme
	}
	split := opts.SplitRatio
	if split <= 0 {
		split = DefaultSplitRatio
	}
	copyFn := opts.Clipboard
	if copyFn == nil {
		copyFn = clipboard.WriteAll
	}

	tree := NewTreeModel(theme)
	if opts.ExpandDepth != nil {
		tree.SetExpandDepth(*opts.ExpandDepth)
	}
	table := NewTableModel(theme, nil)

	trackerOpts := []visible.Option{visible.WithSink(table)}
	if len(opts.ColumnFields) > 0 {
		trackerOpts = append(trackerOpts, visible.WithColumnFields(opts.ColumnFields))
	}

	r, _ := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)

	m := Model{
		tree:           tree,
		table:          table,
		tracker:        visible.New(trackerOpts...),
		worker:         opts.Worker,
		renderer:       r,
		theme:          theme,
		fallbackColumn: opts.Columns,
		copyToClip:     copyFn,
		catalogs:       opts.Catalogs,
		open:           opts.Open,
		focused:        focusTree,
		splitRatio:     split,
	}

	if snapshot != nil {
		m.applySnapshot(snapshot)
	}
	m.tracker.Attach(m.tree)
	m.syncTableCursor()
	return m
}

// applySnapshot installs new records. The tree rebuild notifies the tracker,
// which re-derives the table rows.
func (m *Model) applySnapshot(s *CatalogSnapshot) {
	m.snapshot = s
	cols := model.ResolveColumns(s.Columns, m.fallbackColumn)
	m.table.SetColumns(cols)
	m.tracker.SetColumns(cols)
	m.tracker.SetRecords(s.Records)
	m.tree.Build(s.Forest)
	m.syncTableCursor()
	m.updateViewportContent()
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case RecordsReadyMsg:
		if msg.Snapshot != nil {
			m.applySnapshot(msg.Snapshot)
			m.statusMsg = fmt.Sprintf("Reloaded %s", pluralize(len(msg.Snapshot.Records), "record", "records"))
			m.statusIsError = false
		}
		return m, nil

	case RecordsErrorMsg:
		m.statusMsg = fmt.Sprintf("Reload failed: %v", msg.Err)
		m.statusIsError = true
		return m, nil

	case SwitchCatalogMsg:
		m.showPicker = false
		if m.open == nil {
			return m, nil
		}
		m.statusMsg = "Opening " + msg.Path + "..."
		m.statusIsError = false
		open, path := m.open, msg.Path
		return m, func() tea.Msg {
			snapshot, worker, err := open(context.Background(), path)
			return catalogOpenedMsg{path: path, snapshot: snapshot, worker: worker, err: err}
		}

	case catalogOpenedMsg:
		if msg.err != nil {
			m.statusMsg = fmt.Sprintf("Open failed: %v", msg.err)
			m.statusIsError = true
			return m, nil
		}
		if m.worker != nil {
			m.worker.Stop()
		}
		m.worker = msg.worker
		m.setActiveCatalog(msg.path)
		m.applySnapshot(msg.snapshot)
		m.statusMsg = fmt.Sprintf("Opened %s (%s)", msg.path, pluralize(len(msg.snapshot.Records), "record", "records"))
		m.statusIsError = false
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.layout()
		return m, nil

	case tea.KeyMsg:
		if m.showHelp {
			switch msg.String() {
			case "esc", "?", "q":
				m.showHelp = false
			case "ctrl+c":
				return m.quit()
			}
			return m, nil
		}

		if m.showPicker {
			switch msg.String() {
			case "esc":
				m.showPicker = false
				return m, nil
			case "ctrl+c":
				return m.quit()
			}
			var cmd tea.Cmd
			m.picker, cmd = m.picker.Update(msg)
			return m, cmd
		}

		switch msg.String() {
		case "ctrl+c", "q":
			if m.showDetails && msg.String() == "q" {
				m.closeDetails()
				return m, nil
			}
			return m.quit()
		case "?":
			m.showHelp = true
			return m, nil
		case "tab":
			m.cycleFocus()
			return m, nil
		case "o":
			if len(m.catalogs) == 0 {
				m.statusMsg = "No other catalogs discovered"
				m.statusIsError = false
				return m, nil
			}
			m.picker = NewCatalogPicker(m.catalogs, m.theme)
			m.picker.SetWidth(m.width)
			m.showPicker = true
			return m, nil
		case "r":
			if m.worker != nil {
				m.worker.ResetHash()
				m.worker.TriggerRefresh()
				m.statusMsg = "Reloading..."
				m.statusIsError = false
			}
			return m, nil
		case "d":
			if m.showDetails {
				m.closeDetails()
			} else {
				m.showDetails = true
				m.focused = focusDetail
				m.updateViewportContent()
			}
			return m, nil
		case "esc":
			if m.showDetails {
				m.closeDetails()
			}
			m.statusMsg = ""
			return m, nil
		}

		switch m.focused {
		case focusTree:
			m.handleTreeKey(msg)
		case focusTable:
			cmds = append(cmds, m.handleTableKey(msg))
		case focusDetail:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	return m, tea.Batch(cmds...)
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	m.Close()
	return m, tea.Quit
}

// Close releases the tracker subscriptions and stops the background worker.
func (m Model) Close() {
	m.tracker.Detach()
	if m.worker != nil {
		m.worker.Stop()
	}
}

func (m *Model) setActiveCatalog(path string) {
	found := false
	for i := range m.catalogs {
		m.catalogs[i].IsActive = m.catalogs[i].Path == path
		found = found || m.catalogs[i].IsActive
	}
	if !found {
		m.catalogs = append(m.catalogs, CatalogEntry{Path: path, IsActive: true})
	}
}

func (m *Model) closeDetails() {
	m.showDetails = false
	m.focused = focusTree
}

func (m *Model) cycleFocus() {
	switch m.focused {
	case focusTree:
		m.focused = focusTable
	default:
		m.focused = focusTree
		m.showDetails = false
	}
	m.table.Focus(m.focused == focusTable)
}

func (m *Model) handleTreeKey(msg tea.KeyMsg) {
	switch msg.String() {
	case "j", "down":
		m.tree.MoveDown()
	case "k", "up":
		m.tree.MoveUp()
	case "g", "home":
		m.tree.JumpToTop()
	case "G", "end":
		m.tree.JumpToBottom()
	case "ctrl+d", "pgdown":
		m.tree.PageDown()
	case "ctrl+u", "pgup":
		m.tree.PageUp()
	case "p":
		m.tree.JumpToParent()
	case "enter", " ":
		m.tree.ToggleExpand()
	case "l", "right":
		m.tree.ExpandOrMoveToChild()
	case "h", "left":
		m.tree.CollapseOrJumpToParent()
	case "E":
		m.tree.ExpandAll()
		m.statusMsg = "Expanded all"
		m.statusIsError = false
	case "C":
		m.tree.CollapseAll()
		m.statusMsg = "Collapsed all"
		m.statusIsError = false
	case "y":
		m.yankSelected()
	default:
		return
	}
	m.syncTableCursor()
}

func (m *Model) handleTableKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "enter":
		if row, ok := m.table.SelectedRow(); ok {
			m.tree.SelectByID(row.NodeID)
			m.focused = focusTree
			m.table.Focus(false)
		}
		return nil
	case "y":
		if row, ok := m.table.SelectedRow(); ok {
			m.yank(row.Name)
		}
		return nil
	}
	return m.table.Update(msg)
}

func (m *Model) yankSelected() {
	if rec := m.tree.SelectedRecord(); rec != nil {
		m.yank(rec.Name)
	}
}

func (m *Model) yank(name string) {
	if err := m.copyToClip(name); err != nil {
		m.statusMsg = fmt.Sprintf("Clipboard error: %v", err)
		m.statusIsError = true
		return
	}
	m.statusMsg = fmt.Sprintf("Copied %s to clipboard", name)
	m.statusIsError = false
}

func (m *Model) syncTableCursor() {
	m.table.SelectNodeID(m.tree.GetSelectedID())
	if m.showDetails {
		m.updateViewportContent()
	}
}

// layout sizes the panes for the current window.
func (m *Model) layout() {
	m.isSplitView = m.width > SplitViewThreshold
	bodyHeight := m.height - 1 // status bar
	if bodyHeight < 3 {
		bodyHeight = 3
	}
	innerHeight := bodyHeight - 2 // panel border

	if m.isSplitView {
		treeWidth := int(float64(m.width) * m.splitRatio)
		tableWidth := m.width - treeWidth - 4
		m.tree.SetSize(treeWidth-2, innerHeight)
		m.table.SetSize(tableWidth, innerHeight)
		m.viewport = viewport.New(tableWidth, innerHeight)
	} else {
		m.tree.SetSize(m.width-2, innerHeight)
		m.table.SetSize(m.width-2, innerHeight)
		m.viewport = viewport.New(m.width-2, innerHeight)
	}

	m.renderer, _ = glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(max(m.viewport.Width-2, 20)),
	)
	m.table.SelectNodeID(m.tree.GetSelectedID())
	m.updateViewportContent()
}

func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	bodyHeight := max(m.height-3, 1)
	var body string

	treeStyle, rightStyle := m.theme.Panel, m.theme.Panel
	if m.focused == focusTree {
		treeStyle = m.theme.FocusedPanel
	} else {
		rightStyle = m.theme.FocusedPanel
	}

	right := m.table.View()
	if m.showDetails {
		right = m.viewport.View()
	}

	if m.isSplitView {
		treeWidth := int(float64(m.width) * m.splitRatio)
		treeView := treeStyle.Width(treeWidth - 2).Height(bodyHeight).Render(m.tree.View())
		rightView := rightStyle.Width(m.width - treeWidth - 2).Height(bodyHeight).Render(right)
		body = lipgloss.JoinHorizontal(lipgloss.Top, treeView, rightView)
	} else {
		pane := m.tree.View()
		style := treeStyle
		if m.focused != focusTree {
			pane = right
			style = rightStyle
		}
		body = style.Width(m.width - 2).Height(bodyHeight).Render(pane)
	}

	if m.showHelp {
		body = RenderContextHelp(m.helpContext(), m.theme, m.width, bodyHeight+2)
	} else if m.showPicker {
		body = lipgloss.Place(m.width, bodyHeight+2, lipgloss.Center, lipgloss.Center, m.picker.View())
	}

	return lipgloss.JoinVertical(lipgloss.Left, body, m.renderFooter())
}

func (m Model) helpContext() Context {
	switch m.focused {
	case focusTable:
		return ContextTable
	case focusDetail:
		return ContextDetail
	default:
		return ContextTree
	}
}

func (m Model) renderFooter() string {
	r := m.theme.Renderer

	nodes := 0
	if f := m.tree.Forest(); f != nil {
		nodes = f.Len()
	}
	count := fmt.Sprintf(" %d/%d visible ", m.tree.NodeCount(), nodes)
	countSection := m.theme.Header.Render(count)

	var status string
	if m.statusMsg != "" {
		style := m.theme.SecondaryText
		if m.statusIsError {
			style = m.theme.ErrorText
		}
		status = style.Padding(0, 1).Render(m.statusMsg)
	} else if f := m.tree.Forest(); f != nil && len(f.Unattached) > 0 {
		status = m.theme.MutedText.Padding(0, 1).Render(
			pluralize(len(f.Unattached), "record hidden (missing parent)", "records hidden (missing parent)"))
	}

	keys := "enter: toggle • E/C: expand/collapse all • tab: focus • ?: help • q: quit"
	if m.showDetails {
		keys = "j/k: scroll • d/esc: close • q: back"
	}
	keysSection := m.theme.MutedText.Padding(0, 1).Render(keys)

	used := lipgloss.Width(countSection) + lipgloss.Width(status) + lipgloss.Width(keysSection)
	filler := r.NewStyle().Width(max(m.width-used, 0)).Render("")
	return lipgloss.JoinHorizontal(lipgloss.Bottom, countSection, status, filler, keysSection)
}

func (m *Model) updateViewportContent() {
	if m.renderer == nil {
		return
	}
	node := m.tree.SelectedNode()
	if node == nil {
		m.viewport.SetContent("No record selected")
		return
	}
	rendered, err := m.renderer.Render(RecordMarkdown(node))
	if err != nil {
		m.viewport.SetContent(fmt.Sprintf("Error rendering markdown: %v", err))
		return
	}
	m.viewport.SetContent(rendered)
}

// RecordMarkdown describes one node as markdown for the detail pane.
func RecordMarkdown(node *forest.Node) string {
	rec := node.Record
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", rec.Label())
	sb.WriteString("| Field | Value |\n|---|---|\n")
	fmt.Fprintf(&sb, "| Name | `%s` |\n", rec.Name)
	if rec.ParentName != "" {
		fmt.Fprintf(&sb, "| Parent | `%s` |\n", rec.ParentName)
	}
	if rec.Kind != "" {
		fmt.Fprintf(&sb, "| Kind | %s |\n", rec.Kind)
	}
	fmt.Fprintf(&sb, "| Depth | %d |\n", node.Depth)
	fmt.Fprintf(&sb, "| Children | %d |\n", len(node.Children))

	if len(rec.Properties) > 0 {
		keys := make([]string, 0, len(rec.Properties))
		for k := range rec.Properties {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		sb.WriteString("\n### Properties\n\n| Key | Value |\n|---|---|\n")
		for _, k := range keys {
			fmt.Fprintf(&sb, "| %s | %s |\n", k, rec.Properties[k])
		}
	}
	return sb.String()
}

// Tree exposes the tree widget (tests, robot output).
func (m Model) Tree() *TreeModel { return m.tree }

// Table exposes the table widget.
func (m Model) Table() *TableModel { return m.table }

// Tracker exposes the visible-node tracker.
func (m Model) Tracker() *visible.Tracker { return m.tracker }

// StatusMessage returns the current status bar text and whether it is an error.
func (m Model) StatusMessage() (string, bool) { return m.statusMsg, m.statusIsError }
