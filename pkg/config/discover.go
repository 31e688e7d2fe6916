package config

import (
	"os"
	"path/filepath"
	"strings"
)

// CatalogDirName is the per-project directory holding catalog files.
const CatalogDirName = ".catalog"

// EnvCatalogDir overrides catalog discovery when set.
const EnvCatalogDir = "CATVIEW_DIR"

// DiscoverCatalogs scans the configured paths for directories containing a
// .catalog/ subdirectory and returns the catalog directories found. The
// configured catalog, if any, comes first.
func DiscoverCatalogs(cfg Config) []string {
	seen := make(map[string]bool)
	var result []string

	if cfg.Catalog != "" {
		seen[cfg.Catalog] = true
		result = append(result, cfg.Catalog)
	}

	for _, scanPath := range cfg.Discovery.ScanPaths {
		maxDepth := cfg.Discovery.MaxDepth
		if maxDepth <= 0 {
			maxDepth = 3
		}
		for _, found := range scanForCatalogs(scanPath, maxDepth) {
			dir := filepath.Join(found, CatalogDirName)
			if !seen[dir] {
				seen[dir] = true
				result = append(result, dir)
			}
		}
	}

	return result
}

// scanForCatalogs walks a directory tree up to maxDepth levels deep,
// looking for directories that contain a .catalog/ subdirectory.
func scanForCatalogs(root string, maxDepth int) []string {
	root = expandHome(root)
	var results []string

	rootDepth := strings.Count(filepath.Clean(root), string(filepath.Separator))

	_ = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return filepath.SkipDir
		}
		if !d.IsDir() {
			return nil
		}

		currentDepth := strings.Count(filepath.Clean(path), string(filepath.Separator)) - rootDepth
		if currentDepth > maxDepth {
			return filepath.SkipDir
		}

		name := d.Name()
		if path != root && strings.HasPrefix(name, ".") {
			return filepath.SkipDir
		}

		if isDir(filepath.Join(path, CatalogDirName)) {
			results = append(results, path)
			return filepath.SkipDir
		}

		return nil
	})

	return results
}

// DetectCatalogDir returns the catalog directory for the current working
// directory: $CATVIEW_DIR when set, otherwise the nearest .catalog/ found
// walking up from cwd (stopping at $HOME).
func DetectCatalogDir() (string, bool) {
	if dir := strings.TrimSpace(os.Getenv(EnvCatalogDir)); dir != "" {
		return expandHome(dir), true
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", false
	}
	return findCatalogRoot(cwd)
}

// findCatalogRoot walks up from dir looking for a .catalog/ directory and
// returns the .catalog path itself.
func findCatalogRoot(dir string) (string, bool) {
	home, _ := os.UserHomeDir()

	for {
		candidate := filepath.Join(dir, CatalogDirName)
		if isDir(candidate) {
			return candidate, true
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break // Reached filesystem root
		}
		// Don't go above home directory
		if home != "" && dir == home {
			break
		}
		dir = parent
	}
	return "", false
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
