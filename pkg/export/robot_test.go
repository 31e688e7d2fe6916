package export

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	toon "github.com/Dicklesworthstone/toon-go"
	"github.com/goccy/go-json"
)

func TestNewRobotForest(t *testing.T) {
	rf := NewRobotForest(sampleForest(t))

	if rf.NodeCount != 4 {
		t.Errorf("node count = %d, want 4", rf.NodeCount)
	}
	if len(rf.Roots) != 1 || rf.Roots[0].Name != "contoso" {
		t.Fatalf("roots = %+v", rf.Roots)
	}
	root := rf.Roots[0]
	if len(root.Children) != 2 || root.Children[0].ID != "tree-arc-east" {
		t.Errorf("children = %+v", root.Children)
	}
	site := root.Children[0].Children[0]
	if site.Depth != 2 || site.Kind != "site" || site.DisplayName != "East <Site>" {
		t.Errorf("site node = %+v", site)
	}
	if len(rf.Unattached) != 1 || rf.Unattached[0] != "lost" {
		t.Errorf("unattached = %v", rf.Unattached)
	}
	if rf.Stats == nil || rf.Stats.MaxDepth != 2 || rf.Stats.Leaves != 2 {
		t.Errorf("stats = %+v", rf.Stats)
	}
}

func TestNewRobotForestNil(t *testing.T) {
	rf := NewRobotForest(nil)
	if rf.Roots == nil || len(rf.Roots) != 0 {
		t.Error("expected empty, non-nil roots")
	}
}

func TestWriteRobotJSON(t *testing.T) {
	rf := NewRobotForest(sampleForest(t))
	rf.GeneratedAt = Timestamp(time.Date(2026, 3, 1, 13, 0, 0, 0, time.FixedZone("CET", 3600)))

	var buf bytes.Buffer
	if err := WriteRobot(&buf, rf, FormatJSON); err != nil {
		t.Fatalf("WriteRobot: %v", err)
	}

	var decoded RobotForest
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, buf.String())
	}
	if decoded.GeneratedAt != "2026-03-01T12:00:00Z" {
		t.Errorf("generated_at = %q", decoded.GeneratedAt)
	}
	if decoded.Roots[0].Children[1].Name != "arc-west" {
		t.Errorf("decoded = %+v", decoded.Roots)
	}
	if !strings.Contains(buf.String(), "\n  \"generated_at\"") {
		t.Error("expected indented output")
	}
}

func TestWriteRobotTOON(t *testing.T) {
	var buf bytes.Buffer
	err := WriteRobot(&buf, map[string]int{"a": 1}, FormatTOON)
	if !toon.Available() {
		if err == nil || !strings.Contains(err.Error(), "tru") {
			t.Errorf("expected missing encoder error, got %v", err)
		}
		return
	}
	if err != nil {
		t.Fatalf("WriteRobot: %v", err)
	}
	if !strings.HasSuffix(buf.String(), "\n") {
		t.Error("expected trailing newline")
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]string{"": FormatJSON, "JSON": FormatJSON, " toon ": FormatTOON} {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseFormat("xml"); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("expected ErrUnknownFormat, got %v", err)
	}
	if err := WriteRobot(&bytes.Buffer{}, 1, "xml"); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("expected ErrUnknownFormat, got %v", err)
	}
}
