package export

import (
	"bytes"
	"encoding/xml"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vanderheijden86/catview/pkg/forest"
	"github.com/vanderheijden86/catview/pkg/model"
)

func sampleForest(t *testing.T) *forest.Forest {
	t.Helper()
	f, err := forest.Build([]model.CatalogRecord{
		{Name: "contoso", DisplayName: "Contoso & Co"},
		{Name: "arc-east", ParentName: "contoso", Kind: model.KindArc},
		{Name: "site-east", ParentName: "arc-east", Kind: model.KindSite, DisplayName: "East <Site>"},
		{Name: "arc-west", ParentName: "contoso", Kind: model.KindArc},
		{Name: "lost", ParentName: "missing"},
	})
	if err != nil {
		t.Fatalf("forest.Build: %v", err)
	}
	return f
}

func validateXML(t *testing.T, content []byte) {
	t.Helper()
	dec := xml.NewDecoder(bytes.NewReader(content))
	for {
		_, err := dec.Token()
		if err == io.EOF {
			return
		}
		if err != nil {
			t.Fatalf("SVG is not valid XML: %v\nContent:\n%s", err, content)
		}
	}
}

func TestSaveForestSnapshotSVG(t *testing.T) {
	out := filepath.Join(t.TempDir(), "nested", "forest.svg")
	err := SaveForestSnapshot(ForestSnapshotOptions{
		Path:     out,
		Forest:   sampleForest(t),
		Title:    "Contoso catalog",
		DataHash: "abc123",
	})
	if err != nil {
		t.Fatalf("SaveForestSnapshot: %v", err)
	}

	content, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	validateXML(t, content)

	svgText := string(content)
	for _, want := range []string{"<svg", "Contoso catalog", "data_hash: abc123", "unattached: 1", `id="tree-site-east"`, "East &lt;Site&gt;"} {
		if !strings.Contains(svgText, want) {
			t.Errorf("SVG missing %q", want)
		}
	}
	if strings.Count(svgText, "<polyline") != 3 {
		t.Errorf("expected 3 connectors, got %d", strings.Count(svgText, "<polyline"))
	}
}

func TestSaveForestSnapshotRespectsExpansion(t *testing.T) {
	out := filepath.Join(t.TempDir(), "collapsed.svg")
	err := SaveForestSnapshot(ForestSnapshotOptions{
		Path:     out,
		Forest:   sampleForest(t),
		Expanded: func(n *forest.Node) bool { return n.Name() != "arc-east" },
	})
	if err != nil {
		t.Fatalf("SaveForestSnapshot: %v", err)
	}
	content, _ := os.ReadFile(out)
	if strings.Contains(string(content), "tree-site-east") {
		t.Error("collapsed subtree should not be drawn")
	}
	if !strings.Contains(string(content), "shown: 3") {
		t.Error("summary should count drawn nodes")
	}
}

func TestSaveForestSnapshotPNG(t *testing.T) {
	out := filepath.Join(t.TempDir(), "forest.png")
	if err := SaveForestSnapshot(ForestSnapshotOptions{Path: out, Forest: sampleForest(t)}); err != nil {
		t.Fatalf("SaveForestSnapshot: %v", err)
	}

	file, err := os.Open(out)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer file.Close()
	img, err := png.Decode(file)
	if err != nil {
		t.Fatalf("output is not a PNG: %v", err)
	}
	if b := img.Bounds(); b.Dx() < 480 || b.Dy() < 4*int(nodeH) {
		t.Errorf("unexpected image size %v", b)
	}
}

func TestSaveForestSnapshotFormatInference(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "diagram")
	if err := SaveForestSnapshot(ForestSnapshotOptions{Path: base, Forest: sampleForest(t)}); err != nil {
		t.Fatalf("SaveForestSnapshot: %v", err)
	}
	if _, err := os.Stat(base + ".svg"); err != nil {
		t.Errorf("expected .svg to be appended: %v", err)
	}

	err := SaveForestSnapshot(ForestSnapshotOptions{Path: base + ".gif", Format: "gif", Forest: sampleForest(t)})
	if err == nil || !strings.Contains(err.Error(), "unsupported format") {
		t.Errorf("expected unsupported format error, got %v", err)
	}
}

func TestSaveForestSnapshotEmpty(t *testing.T) {
	f, _ := forest.Build(nil)
	err := SaveForestSnapshot(ForestSnapshotOptions{Path: filepath.Join(t.TempDir(), "x.svg"), Forest: f})
	if err == nil {
		t.Error("expected error for empty forest")
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"a longer label", 8, "a lon..."},
		{"héllo wörld", 6, "hél..."},
		{"abc", 2, "ab"},
		{"abc", 0, ""},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.max); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}

func TestSVGID(t *testing.T) {
	if got := svgID("tree-a b/c"); got != "tree-a_b_c" {
		t.Errorf("svgID = %q", got)
	}
}
