package ui

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sahilm/fuzzy"
)

// CatalogEntry is one discovered catalog offered by the picker.
type CatalogEntry struct {
	Path     string
	IsActive bool // Currently loaded catalog
}

// Name is the label shown for the entry: the directory owning the
// .catalog folder, or the file name for plain catalog files.
func (e CatalogEntry) Name() string {
	base := filepath.Base(e.Path)
	if base == ".catalog" {
		return filepath.Base(filepath.Dir(e.Path))
	}
	return base
}

// SwitchCatalogMsg is sent when the user picks another catalog.
type SwitchCatalogMsg struct {
	Path string
}

// CatalogPickerModel is a filterable list of discovered catalogs.
type CatalogPickerModel struct {
	entries     []CatalogEntry
	filtered    []int // indices into entries
	cursor      int
	width       int
	filterInput textinput.Model
	theme       Theme
}

// NewCatalogPicker creates a picker over the given entries.
func NewCatalogPicker(entries []CatalogEntry, theme Theme) CatalogPickerModel {
	ti := textinput.New()
	ti.Placeholder = "type to filter..."
	ti.CharLimit = 50
	ti.Width = 30
	ti.Focus()

	m := CatalogPickerModel{
		entries:     entries,
		filterInput: ti,
		theme:       theme,
	}
	m.applyFilter()
	for i, idx := range m.filtered {
		if entries[idx].IsActive {
			m.cursor = i
		}
	}
	return m
}

// SetWidth updates the available width.
func (m *CatalogPickerModel) SetWidth(w int) {
	m.width = w
}

// Update handles keyboard input. Esc is left to the caller.
func (m CatalogPickerModel) Update(msg tea.Msg) (CatalogPickerModel, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "enter":
		entry := m.SelectedEntry()
		if entry == nil || entry.IsActive {
			return m, nil
		}
		path := entry.Path
		return m, func() tea.Msg { return SwitchCatalogMsg{Path: path} }
	case "up", "ctrl+p":
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil
	case "down", "ctrl+n":
		if m.cursor < len(m.filtered)-1 {
			m.cursor++
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.filterInput, cmd = m.filterInput.Update(msg)
	m.applyFilter()
	return m, cmd
}

// applyFilter ranks entries by fuzzy match on name and path.
func (m *CatalogPickerModel) applyFilter() {
	query := strings.TrimSpace(m.filterInput.Value())
	if query == "" {
		m.filtered = make([]int, len(m.entries))
		for i := range m.entries {
			m.filtered[i] = i
		}
	} else {
		targets := make([]string, len(m.entries))
		for i, e := range m.entries {
			targets[i] = e.Name() + " " + e.Path
		}
		matches := fuzzy.Find(query, targets)
		m.filtered = make([]int, len(matches))
		for i, match := range matches {
			m.filtered[i] = match.Index
		}
	}
	if m.cursor >= len(m.filtered) {
		m.cursor = max(0, len(m.filtered)-1)
	}
}

// View renders the picker as a bordered modal.
func (m CatalogPickerModel) View() string {
	t := m.theme
	r := t.Renderer

	width := m.width
	if width <= 0 {
		width = 80
	}
	modalWidth := min(max(width-8, 30), 90)

	var b strings.Builder
	title := t.PrimaryBold.Render("catalogs") +
		t.SecondaryText.Render(fmt.Sprintf("[%d]", len(m.filtered)))
	b.WriteString(title)
	b.WriteString("\n")
	b.WriteString(r.NewStyle().Foreground(t.Primary).Render("/ " + m.filterInput.View()))
	b.WriteString("\n\n")

	if len(m.filtered) == 0 {
		b.WriteString(t.MutedText.Italic(true).Render("No catalogs found. Configure discovery.scan_paths in ~/.config/catview/config.yaml"))
	}
	for i, idx := range m.filtered {
		entry := m.entries[idx]
		marker := "  "
		if entry.IsActive {
			marker = "● "
		}
		name := padRight(truncate(entry.Name(), 24), 24)
		path := truncate(entry.Path, modalWidth-32)
		line := marker + name + " " + t.MutedText.Render(path)
		if i == m.cursor {
			line = t.Selected.Render(marker+name) + " " + t.MutedText.Render(path)
		}
		b.WriteString(line)
		if i < len(m.filtered)-1 {
			b.WriteString("\n")
		}
	}

	return r.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.Secondary).
		Padding(0, 1).
		Width(modalWidth).
		Render(b.String())
}

// FilteredCount returns the number of entries matching the current filter.
func (m CatalogPickerModel) FilteredCount() int {
	return len(m.filtered)
}

// Cursor returns the highlighted index within the filtered list.
func (m CatalogPickerModel) Cursor() int {
	return m.cursor
}

// SelectedEntry returns the highlighted entry, or nil if none.
func (m CatalogPickerModel) SelectedEntry() *CatalogEntry {
	if m.cursor < 0 || m.cursor >= len(m.filtered) {
		return nil
	}
	entry := m.entries[m.filtered[m.cursor]]
	return &entry
}
