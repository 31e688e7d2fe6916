package visible

import (
	"fmt"
	"testing"

	"pgregory.net/rapid"

	"github.com/vanderheijden86/catview/pkg/forest"
	"github.com/vanderheijden86/catview/pkg/model"
)

func drawRecords(t *rapid.T) []model.CatalogRecord {
	n := rapid.IntRange(1, 30).Draw(t, "n")
	records := make([]model.CatalogRecord, n)
	for i := 0; i < n; i++ {
		rec := model.CatalogRecord{Name: fmt.Sprintf("n%d", i), DisplayName: fmt.Sprintf("Node %d", i)}
		if i > 0 && rapid.Bool().Draw(t, fmt.Sprintf("nested%d", i)) {
			rec.ParentName = fmt.Sprintf("n%d", rapid.IntRange(0, i-1).Draw(t, fmt.Sprintf("parent%d", i)))
		}
		records[i] = rec
	}
	return records
}

// rapidTree is fakeTree without *testing.T plumbing.
func rapidTree(t *rapid.T, records []model.CatalogRecord) *fakeTree {
	f, err := forest.Build(records)
	if err != nil {
		t.Fatalf("forest.Build: %v", err)
	}
	return &fakeTree{
		f:         f,
		collapsed: make(map[string]bool),
		mounted:   true,
		subs:      make(map[int]func()),
		toggles:   make(map[int]func([]string)),
	}
}

func TestPropertyAllExpandedIsPreOrder(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		records := drawRecords(t)
		ft := rapidTree(t, records)
		tr := New()
		tr.Attach(ft)

		got := tr.Visible()
		want := ft.f.AllNodeIDs()
		if len(got) != len(want) {
			t.Fatalf("expected %d ids, got %d", len(want), len(got))
		}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("position %d: got %s want %s", i, got[i], want[i])
			}
		}
	})
}

func TestPropertyCollapseHidesOnlyDescendants(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		records := drawRecords(t)
		ft := rapidTree(t, records)
		tr := New()
		tr.Attach(ft)

		target := records[rapid.IntRange(0, len(records)-1).Draw(t, "target")].Name
		ft.toggle(target)

		visible := make(map[string]bool)
		for _, id := range tr.Visible() {
			visible[id] = true
		}
		if !visible[forest.NodeID(target)] {
			t.Fatalf("collapsed node %s must stay visible", target)
		}
		hidden := make(map[string]bool)
		for _, id := range forest.Descendants(ft.f.Find(target)) {
			hidden[id] = true
			if visible[id] {
				t.Fatalf("descendant %s of collapsed %s is visible", id, target)
			}
		}
		for _, id := range ft.f.AllNodeIDs() {
			if !hidden[id] && !visible[id] {
				t.Fatalf("node %s outside the collapsed subtree disappeared", id)
			}
		}
	})
}

func TestPropertyRecomputeIsIdempotent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		records := drawRecords(t)
		ft := rapidTree(t, records)
		for _, r := range records {
			if rapid.Bool().Draw(t, "collapse-"+r.Name) {
				ft.collapsed[r.Name] = true
			}
		}
		tr := New()
		tr.Attach(ft)

		first := tr.Visible()
		tr.RecomputeVisible()
		second := tr.Visible()
		if fmt.Sprint(first) != fmt.Sprint(second) {
			t.Fatalf("recompute changed result: %v vs %v", first, second)
		}
	})
}

func TestPropertyProjectRowsLengthAndOrder(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		records := drawRecords(t)
		pool := make([]string, 0, len(records)+3)
		for _, r := range records {
			pool = append(pool, forest.NodeID(r.Name))
		}
		pool = append(pool, "tree-ghost", "ghost", "")
		ids := rapid.SliceOf(rapid.SampledFrom(pool)).Draw(t, "ids")
		cols := rapid.IntRange(0, 4).Draw(t, "cols")
		columns := make([]model.Column, cols)
		for i := range columns {
			columns[i] = model.Column{ID: fmt.Sprintf("c%d", i)}
		}

		rows := ProjectRows(ids, records, columns)

		var matched []string
		for _, id := range ids {
			if _, ok := forest.NameFromNodeID(id); ok && id != "tree-ghost" {
				matched = append(matched, id)
			}
		}
		if len(rows) != len(matched) {
			t.Fatalf("expected %d rows, got %d", len(matched), len(rows))
		}
		for i, row := range rows {
			if row.NodeID != matched[i] {
				t.Fatalf("row %d is %s, want %s", i, row.NodeID, matched[i])
			}
			if len(row.Cells) != cols {
				t.Fatalf("row %d has %d cells, want %d", i, len(row.Cells), cols)
			}
		}
	})
}
