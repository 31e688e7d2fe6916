package ui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vanderheijden86/catview/pkg/model"
)

func pickerEntries() []CatalogEntry {
	return []CatalogEntry{
		{Path: "/srv/east/.catalog", IsActive: true},
		{Path: "/srv/west/.catalog"},
		{Path: "/data/lab.json"},
	}
}

func TestCatalogEntryName(t *testing.T) {
	entries := pickerEntries()
	if got := entries[0].Name(); got != "east" {
		t.Errorf("Name() = %q, want east", got)
	}
	if got := entries[2].Name(); got != "lab.json" {
		t.Errorf("Name() = %q, want lab.json", got)
	}
}

func TestCatalogPickerStartsOnActive(t *testing.T) {
	entries := pickerEntries()
	entries[0].IsActive = false
	entries[1].IsActive = true

	p := NewCatalogPicker(entries, newTreeTestTheme())
	if p.Cursor() != 1 {
		t.Errorf("cursor = %d, want 1", p.Cursor())
	}
	if p.FilteredCount() != 3 {
		t.Errorf("expected all entries listed, got %d", p.FilteredCount())
	}
}

func TestCatalogPickerFilter(t *testing.T) {
	p := NewCatalogPicker(pickerEntries(), newTreeTestTheme())

	p, _ = p.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("west")})
	if p.FilteredCount() != 1 {
		t.Fatalf("expected 1 match, got %d", p.FilteredCount())
	}
	if e := p.SelectedEntry(); e == nil || e.Name() != "west" {
		t.Errorf("selected = %+v", e)
	}

	p, _ = p.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("zzz")})
	if p.FilteredCount() != 0 || p.SelectedEntry() != nil {
		t.Error("expected no matches")
	}
	if !strings.Contains(p.View(), "No catalogs found") {
		t.Error("expected empty-state hint")
	}
}

func TestCatalogPickerEnterSwitches(t *testing.T) {
	p := NewCatalogPicker(pickerEntries(), newTreeTestTheme())

	// Active entry: nothing to do.
	if _, cmd := p.Update(tea.KeyMsg{Type: tea.KeyEnter}); cmd != nil {
		t.Error("selecting the active catalog should not switch")
	}

	p, _ = p.Update(tea.KeyMsg{Type: tea.KeyDown})
	_, cmd := p.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("expected switch command")
	}
	msg, ok := cmd().(SwitchCatalogMsg)
	if !ok || msg.Path != "/srv/west/.catalog" {
		t.Errorf("got %+v", msg)
	}
}

func TestModelSwitchCatalog(t *testing.T) {
	var opened string
	other := []model.CatalogRecord{{Name: "lab"}, {Name: "bench", ParentName: "lab"}}
	m := newTestModel(t, Options{
		Catalogs: pickerEntries(),
		Open: func(_ context.Context, path string) (*CatalogSnapshot, *BackgroundWorker, error) {
			opened = path
			return testSnapshot(t, other, nil), nil, nil
		},
	})

	m = press(t, m, "o")
	if !m.showPicker {
		t.Fatal("expected picker to open")
	}
	m = press(t, m, "esc")
	if m.showPicker {
		t.Fatal("esc should close picker")
	}

	next, cmd := m.Update(SwitchCatalogMsg{Path: "/data/lab.json"})
	m = next.(Model)
	if cmd == nil {
		t.Fatal("expected open command")
	}
	m = update(t, m, cmd())

	if opened != "/data/lab.json" {
		t.Errorf("opened %q", opened)
	}
	if got := rowNames(m.Table().Rows()); len(got) != 2 || got[0] != "lab" {
		t.Errorf("rows after switch = %v", got)
	}
	for _, e := range m.catalogs {
		if e.IsActive != (e.Path == "/data/lab.json") {
			t.Errorf("active flag wrong for %s", e.Path)
		}
	}
}

func TestModelSwitchCatalogFailure(t *testing.T) {
	m := newTestModel(t, Options{
		Catalogs: pickerEntries(),
		Open: func(context.Context, string) (*CatalogSnapshot, *BackgroundWorker, error) {
			return nil, nil, errors.New("cycle")
		},
	})
	before := rowNames(m.Table().Rows())

	next, cmd := m.Update(SwitchCatalogMsg{Path: "/srv/west/.catalog"})
	m = update(t, next.(Model), cmd())

	if msg, isErr := m.StatusMessage(); !isErr || !strings.Contains(msg, "cycle") {
		t.Errorf("status = %q (error=%v)", msg, isErr)
	}
	if got := rowNames(m.Table().Rows()); strings.Join(got, ",") != strings.Join(before, ",") {
		t.Errorf("rows changed after failed switch: %v", got)
	}
}

func TestModelPickerWithoutCatalogs(t *testing.T) {
	m := newTestModel(t, Options{})
	m = press(t, m, "o")
	if m.showPicker {
		t.Error("picker should not open without catalogs")
	}
}

func TestContextHelp(t *testing.T) {
	if !strings.Contains(GetContextHelp(ContextTree), "Expand all") {
		t.Error("tree help missing expand all")
	}
	if GetContextHelp(Context("unknown")) != contextHelpGeneric {
		t.Error("unknown context should fall back to generic help")
	}
	out := RenderContextHelp(ContextTable, newTreeTestTheme(), 100, 30)
	if !strings.Contains(out, "Visible Rows") {
		t.Error("rendered help missing table section")
	}
}
