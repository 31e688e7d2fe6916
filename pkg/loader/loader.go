// Package loader reads catalog records and column definitions from disk.
//
// Supported sources are JSON (an array of records or a {catalogs, columns}
// document), JSON Lines, YAML with the same two shapes, and SQLite databases
// with `catalogs` and `columns` tables. Every record may be flat or wrapped
// in a {spec: ...} envelope.
package loader

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/vanderheijden86/catview/pkg/debug"
	"github.com/vanderheijden86/catview/pkg/model"
)

// ErrUnsupportedFormat is returned for files whose extension has no decoder.
var ErrUnsupportedFormat = errors.New("unsupported catalog format")

// ErrNoCatalog is returned when a directory holds no supported catalog file.
var ErrNoCatalog = errors.New("no catalog file found")

// Catalog is the decoded content of one or more catalog sources.
type Catalog struct {
	Records []model.CatalogRecord
	Columns []model.Column
	// Sources lists the files that contributed, in merge order.
	Sources []string
}

// PreferredNames are checked first, in order, when resolving a directory.
var PreferredNames = []string{
	"catalog.json",
	"catalog.jsonl",
	"catalog.yaml",
	"catalog.yml",
	"catalog.db",
	"catalog.sqlite",
}

// IsSupported reports whether path has an extension the loader can decode.
func IsSupported(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonl", ".yaml", ".yml", ".db", ".sqlite":
		return true
	}
	return false
}

// Load reads a catalog from path. A directory is loaded with LoadDir.
func Load(ctx context.Context, path string) (*Catalog, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat catalog: %w", err)
	}
	if info.IsDir() {
		return LoadDir(ctx, path)
	}
	return LoadFile(path)
}

// LoadFile decodes a single catalog file, choosing the decoder by extension.
func LoadFile(path string) (*Catalog, error) {
	start := time.Now()
	defer func() { debug.LogTiming("loader.LoadFile "+filepath.Base(path), time.Since(start)) }()

	var (
		cat *Catalog
		err error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		cat, err = loadJSON(path)
	case ".jsonl":
		cat, err = loadJSONL(path)
	case ".yaml", ".yml":
		cat, err = loadYAML(path)
	case ".db", ".sqlite":
		cat, err = loadSQLite(path)
	default:
		return nil, fmt.Errorf("%s: %w", path, ErrUnsupportedFormat)
	}
	if err != nil {
		return nil, err
	}
	cat.Sources = []string{path}
	debug.Log("loaded %d records, %d columns from %s", len(cat.Records), len(cat.Columns), path)
	return cat, nil
}

// LoadDir loads every supported file in dir concurrently and merges them.
// Records are concatenated in file order (preferred names first, then
// lexical). Columns come from the first file that declares any.
func LoadDir(ctx context.Context, dir string) (*Catalog, error) {
	files, err := CatalogFiles(dir)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%s: %w", dir, ErrNoCatalog)
	}

	results := make([]*Catalog, len(files))
	g, gctx := errgroup.WithContext(ctx)
	for i, file := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			cat, err := LoadFile(file)
			if err != nil {
				return err
			}
			results[i] = cat
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := &Catalog{}
	for _, cat := range results {
		merged.Records = append(merged.Records, cat.Records...)
		if len(merged.Columns) == 0 {
			merged.Columns = cat.Columns
		}
		merged.Sources = append(merged.Sources, cat.Sources...)
	}
	return merged, nil
}

// CatalogFiles lists the supported files directly inside dir.
func CatalogFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog dir: %w", err)
	}

	rank := make(map[string]int, len(PreferredNames))
	for i, name := range PreferredNames {
		rank[name] = i
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") || !IsSupported(e.Name()) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.SliceStable(names, func(i, j int) bool {
		ri, iok := rank[names[i]]
		rj, jok := rank[names[j]]
		switch {
		case iok && jok:
			return ri < rj
		case iok != jok:
			return iok
		default:
			return names[i] < names[j]
		}
	})

	files := make([]string, len(names))
	for i, name := range names {
		files[i] = filepath.Join(dir, name)
	}
	return files, nil
}

func loadJSON(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return &Catalog{}, nil
	}

	var doc rawDocument
	if data[0] == '[' {
		if err := json.Unmarshal(data, &doc.Catalogs); err != nil {
			return nil, fmt.Errorf("%s: invalid JSON: %w", path, err)
		}
	} else if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%s: invalid JSON: %w", path, err)
	}
	return fromDocument(doc, path)
}

func loadJSONL(path string) (*Catalog, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	defer file.Close()

	var raw []rawRecord
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var r rawRecord
		if err := json.Unmarshal(line, &r); err != nil {
			return nil, fmt.Errorf("%s:%d: invalid JSON: %w", path, lineNum, err)
		}
		raw = append(raw, r)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	return fromDocument(rawDocument{Catalogs: raw}, path)
}

func loadYAML(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}

	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("%s: invalid YAML: %w", path, err)
	}
	if len(root.Content) == 0 {
		return &Catalog{}, nil
	}

	var doc rawDocument
	node := root.Content[0]
	switch node.Kind {
	case yaml.SequenceNode:
		err = node.Decode(&doc.Catalogs)
	case yaml.MappingNode:
		err = node.Decode(&doc)
	default:
		err = fmt.Errorf("expected a list or a mapping at line %d", node.Line)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: invalid YAML: %w", path, err)
	}
	return fromDocument(doc, path)
}

func fromDocument(doc rawDocument, source string) (*Catalog, error) {
	records, err := convertRecords(doc.Catalogs, source)
	if err != nil {
		return nil, err
	}
	for i := range doc.Columns {
		if err := doc.Columns[i].Validate(); err != nil {
			return nil, fmt.Errorf("%s: column %d: %w", source, i+1, err)
		}
	}
	return &Catalog{Records: records, Columns: doc.Columns}, nil
}
