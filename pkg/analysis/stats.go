// Package analysis summarizes the shape of a catalog forest.
//
// Every list in the output is capped and deterministically ordered so the
// result is safe to hand to agents (--robot-forest) and to print in reports.
package analysis

import (
	"sort"

	"github.com/vanderheijden86/catview/pkg/forest"
	"github.com/vanderheijden86/catview/pkg/model"
)

// StatsConfig holds caps for the ranked lists.
type StatsConfig struct {
	WidestLimit   int `json:"widest_limit"`    // Max nodes in Widest (default 5)
	PathLengthCap int `json:"path_length_cap"` // Max names kept in DeepestPath (default 50)
}

// DefaultStatsConfig returns safe defaults for all caps.
func DefaultStatsConfig() StatsConfig {
	return StatsConfig{
		WidestLimit:   5,
		PathLengthCap: 50,
	}
}

// ListStatus reports whether a ranked list was truncated.
type ListStatus struct {
	Capped  bool `json:"capped,omitempty"`
	Count   int  `json:"count"`
	Limited int  `json:"limited,omitempty"` // Original count before capping
}

// FanoutItem is a node ranked by its number of direct children.
type FanoutItem struct {
	Name     string `json:"name"`
	Children int    `json:"children"`
	Depth    int    `json:"depth"`
}

// ForestStats describes a forest's size and shape.
type ForestStats struct {
	Records    int            `json:"records"`
	Roots      int            `json:"roots"`
	Leaves     int            `json:"leaves"`
	MaxDepth   int            `json:"max_depth"`
	PerDepth   []int          `json:"per_depth"` // Node count per depth, index 0 = roots
	Kinds      map[string]int `json:"kinds,omitempty"`
	Unattached int            `json:"unattached,omitempty"`

	Widest       []FanoutItem `json:"widest,omitempty"`
	WidestStatus ListStatus   `json:"widest_status"`

	// DeepestPath is the first root-to-leaf chain reaching MaxDepth.
	DeepestPath []string `json:"deepest_path,omitempty"`
	PathCapped  bool     `json:"path_capped,omitempty"`

	Config StatsConfig `json:"config"`
}

// ComputeStats walks f once. A nil or empty forest yields zero stats.
func ComputeStats(f *forest.Forest, cfg StatsConfig) ForestStats {
	if cfg.WidestLimit <= 0 {
		cfg.WidestLimit = DefaultStatsConfig().WidestLimit
	}
	if cfg.PathLengthCap <= 0 {
		cfg.PathLengthCap = DefaultStatsConfig().PathLengthCap
	}
	stats := ForestStats{Config: cfg, PerDepth: []int{}}
	if f == nil {
		return stats
	}

	stats.Records = f.Len()
	stats.Roots = f.RootCount()
	stats.Unattached = len(f.Unattached)

	var deepest *forest.Node
	var fanout []FanoutItem
	f.Walk(func(n *forest.Node) bool {
		for len(stats.PerDepth) <= n.Depth {
			stats.PerDepth = append(stats.PerDepth, 0)
		}
		stats.PerDepth[n.Depth]++

		if n.IsLeaf() {
			stats.Leaves++
		} else {
			fanout = append(fanout, FanoutItem{Name: n.Name(), Children: len(n.Children), Depth: n.Depth})
		}
		if deepest == nil || n.Depth > deepest.Depth {
			deepest = n
		}
		if n.Record.Kind != "" {
			if stats.Kinds == nil {
				stats.Kinds = make(map[string]int)
			}
			stats.Kinds[string(n.Record.Kind)]++
		}
		return true
	})

	if deepest != nil {
		stats.MaxDepth = deepest.Depth
		stats.DeepestPath, stats.PathCapped = pathTo(deepest, cfg.PathLengthCap)
	}

	// Stable sort keeps walk order among equals.
	sort.SliceStable(fanout, func(i, j int) bool {
		return fanout[i].Children > fanout[j].Children
	})
	stats.WidestStatus.Count = len(fanout)
	if len(fanout) > cfg.WidestLimit {
		stats.WidestStatus.Capped = true
		stats.WidestStatus.Limited = len(fanout)
		stats.WidestStatus.Count = cfg.WidestLimit
		fanout = fanout[:cfg.WidestLimit]
	}
	stats.Widest = fanout
	return stats
}

// pathTo returns root-first names down to n, keeping at most max names from
// the root end.
func pathTo(n *forest.Node, max int) ([]string, bool) {
	var rev []string
	for cur := n; cur != nil; cur = cur.Parent {
		rev = append(rev, cur.Name())
	}
	path := make([]string, 0, len(rev))
	for i := len(rev) - 1; i >= 0; i-- {
		path = append(path, rev[i])
	}
	if len(path) > max {
		return path[:max], true
	}
	return path, false
}

// KindCount returns how many records of kind k the stats saw.
func (s ForestStats) KindCount(k model.Kind) int {
	return s.Kinds[string(k)]
}
