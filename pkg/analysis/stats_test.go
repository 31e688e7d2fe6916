package analysis

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/vanderheijden86/catview/pkg/forest"
	"github.com/vanderheijden86/catview/pkg/model"
)

func buildForest(t *testing.T, records []model.CatalogRecord) *forest.Forest {
	t.Helper()
	f, err := forest.Build(records)
	if err != nil {
		t.Fatalf("forest.Build: %v", err)
	}
	return f
}

func TestComputeStatsShape(t *testing.T) {
	f := buildForest(t, []model.CatalogRecord{
		{Name: "contoso"},
		{Name: "arc-east", ParentName: "contoso", Kind: model.KindArc},
		{Name: "adr-east", ParentName: "arc-east", Kind: model.KindADR},
		{Name: "site-east", ParentName: "adr-east", Kind: model.KindSite},
		{Name: "arc-west", ParentName: "contoso", Kind: model.KindArc},
		{Name: "lab"},
		{Name: "lost", ParentName: "missing"},
	})

	stats := ComputeStats(f, DefaultStatsConfig())

	if stats.Records != 6 || stats.Roots != 2 || stats.Unattached != 1 {
		t.Errorf("counts = %d records, %d roots, %d unattached", stats.Records, stats.Roots, stats.Unattached)
	}
	if stats.Leaves != 3 {
		t.Errorf("leaves = %d, want 3 (site-east, arc-west, lab)", stats.Leaves)
	}
	if stats.MaxDepth != 3 {
		t.Errorf("max depth = %d, want 3", stats.MaxDepth)
	}
	if !reflect.DeepEqual(stats.PerDepth, []int{2, 2, 1, 1}) {
		t.Errorf("per depth = %v", stats.PerDepth)
	}
	if stats.KindCount(model.KindArc) != 2 || stats.KindCount(model.KindIoTHub) != 0 {
		t.Errorf("kinds = %v", stats.Kinds)
	}
	if !reflect.DeepEqual(stats.DeepestPath, []string{"contoso", "arc-east", "adr-east", "site-east"}) {
		t.Errorf("deepest path = %v", stats.DeepestPath)
	}
	if len(stats.Widest) == 0 || stats.Widest[0].Name != "contoso" || stats.Widest[0].Children != 2 {
		t.Errorf("widest = %+v", stats.Widest)
	}
}

func TestComputeStatsWidestIsCapped(t *testing.T) {
	records := []model.CatalogRecord{{Name: "root"}}
	for i := 0; i < 8; i++ {
		parent := fmt.Sprintf("p%d", i)
		records = append(records,
			model.CatalogRecord{Name: parent, ParentName: "root"},
			model.CatalogRecord{Name: parent + "-leaf", ParentName: parent},
		)
	}

	stats := ComputeStats(buildForest(t, records), StatsConfig{WidestLimit: 3})

	if len(stats.Widest) != 3 {
		t.Fatalf("expected 3 widest, got %d", len(stats.Widest))
	}
	if !stats.WidestStatus.Capped || stats.WidestStatus.Limited != 9 || stats.WidestStatus.Count != 3 {
		t.Errorf("status = %+v", stats.WidestStatus)
	}
	// Ties keep document order.
	if stats.Widest[0].Name != "root" || stats.Widest[1].Name != "p0" || stats.Widest[2].Name != "p1" {
		t.Errorf("widest order = %+v", stats.Widest)
	}
}

func TestComputeStatsPathCap(t *testing.T) {
	records := []model.CatalogRecord{{Name: "n0"}}
	for i := 1; i < 10; i++ {
		records = append(records, model.CatalogRecord{Name: fmt.Sprintf("n%d", i), ParentName: fmt.Sprintf("n%d", i-1)})
	}

	stats := ComputeStats(buildForest(t, records), StatsConfig{PathLengthCap: 4})

	if !stats.PathCapped || len(stats.DeepestPath) != 4 || stats.DeepestPath[0] != "n0" {
		t.Errorf("path = %v capped=%v", stats.DeepestPath, stats.PathCapped)
	}
	if stats.MaxDepth != 9 {
		t.Errorf("max depth = %d", stats.MaxDepth)
	}
}

func TestComputeStatsEmpty(t *testing.T) {
	stats := ComputeStats(nil, StatsConfig{})
	if stats.Records != 0 || stats.PerDepth == nil || stats.Config.WidestLimit != 5 {
		t.Errorf("unexpected stats for nil forest: %+v", stats)
	}

	stats = ComputeStats(buildForest(t, nil), DefaultStatsConfig())
	if stats.MaxDepth != 0 || len(stats.DeepestPath) != 0 {
		t.Errorf("unexpected stats for empty forest: %+v", stats)
	}
}
