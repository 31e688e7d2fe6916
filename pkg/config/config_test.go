package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadFrom_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	def := DefaultConfig()
	if cfg.UI.SplitRatio != def.UI.SplitRatio || cfg.UI.ExpandDepth != def.UI.ExpandDepth {
		t.Errorf("expected default UI config, got %+v", cfg.UI)
	}
	if cfg.Watch.Debounce != 200*time.Millisecond {
		t.Errorf("expected default debounce, got %v", cfg.Watch.Debounce)
	}
}

func TestLoadFrom_ParsesAllSections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
catalog: /data/catalog.json
columns:
  - id: name
    label: Name
  - id: region
ui:
  split_ratio: 0.5
  expand_depth: -1
tree:
  adopt_orphans: true
table:
  column_fields:
    region: region
watch:
  debounce: 500ms
  force_poll: true
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.Catalog != "/data/catalog.json" {
		t.Errorf("catalog = %q", cfg.Catalog)
	}
	if len(cfg.Columns) != 2 || cfg.Columns[1].Title() != "region" {
		t.Errorf("columns = %+v", cfg.Columns)
	}
	if cfg.UI.SplitRatio != 0.5 || cfg.UI.ExpandDepth != -1 {
		t.Errorf("ui = %+v", cfg.UI)
	}
	if !cfg.Tree.AdoptOrphans {
		t.Error("expected adopt_orphans")
	}
	if cfg.Table.ColumnFields["region"] != "region" {
		t.Errorf("column_fields = %v", cfg.Table.ColumnFields)
	}
	if cfg.Watch.Debounce != 500*time.Millisecond || !cfg.Watch.ForcePoll {
		t.Errorf("watch = %+v", cfg.Watch)
	}
}

func TestLoadFrom_ExpandsHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("catalog: ~/cat/.catalog\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if want := filepath.Join(home, "cat", ".catalog"); cfg.Catalog != want {
		t.Errorf("expected %q, got %q", want, cfg.Catalog)
	}
}

func TestLoadFrom_RejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"split ratio":  "ui:\n  split_ratio: 0.95\n",
		"empty column": "columns:\n  - label: Nameless\n",
		"bad yaml":     "ui: [\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
				t.Fatal(err)
			}
			if _, err := LoadFrom(path); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestSaveToRoundTripsThroughLoadFrom(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := DefaultConfig()
	cfg.Catalog = "/srv/.catalog"
	cfg.Tree.AdoptOrphans = true
	cfg.Watch.Debounce = time.Second

	if err := SaveTo(cfg, path); err != nil {
		t.Fatalf("SaveTo: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "adopt_orphans: true") {
		t.Errorf("expected yaml to contain adopt_orphans, got:\n%s", data)
	}

	loaded, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if loaded.Catalog != cfg.Catalog || !loaded.Tree.AdoptOrphans || loaded.Watch.Debounce != time.Second {
		t.Errorf("round trip mismatch: %+v", loaded)
	}
}

func TestConfigPath_UsesXDG(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	if want := filepath.Join(dir, "catview", "config.yaml"); ConfigPath() != want {
		t.Errorf("expected %q, got %q", want, ConfigPath())
	}
}

