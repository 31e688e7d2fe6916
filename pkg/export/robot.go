package export

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	toon "github.com/Dicklesworthstone/toon-go"
	"github.com/goccy/go-json"

	"github.com/vanderheijden86/catview/pkg/analysis"
	"github.com/vanderheijden86/catview/pkg/forest"
	"github.com/vanderheijden86/catview/pkg/model"
	"github.com/vanderheijden86/catview/pkg/visible"
)

// Output formats for robot mode.
const (
	FormatJSON = "json"
	FormatTOON = "toon"
)

// ErrUnknownFormat is returned for formats other than json and toon.
var ErrUnknownFormat = errors.New("unknown output format")

// RobotRows is the --robot-rows payload: what the table shows.
type RobotRows struct {
	GeneratedAt string         `json:"generated_at"`
	DataHash    string         `json:"data_hash"`
	Sources     []string       `json:"sources,omitempty"`
	Columns     []model.Column `json:"columns"`
	Visible     []string       `json:"visible"`
	Rows        []visible.Row  `json:"rows"`
	Unattached  []string       `json:"unattached,omitempty"`
}

// RobotForest is the --robot-forest payload: the full hierarchy.
type RobotForest struct {
	GeneratedAt string                `json:"generated_at"`
	DataHash    string                `json:"data_hash"`
	Sources     []string              `json:"sources,omitempty"`
	NodeCount   int                   `json:"node_count"`
	Roots       []ForestNode          `json:"roots"`
	Unattached  []string              `json:"unattached,omitempty"`
	Stats       *analysis.ForestStats `json:"stats,omitempty"`
}

// ForestNode is one node of RobotForest.
type ForestNode struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	DisplayName string            `json:"display_name,omitempty"`
	Kind        string            `json:"kind,omitempty"`
	Depth       int               `json:"depth"`
	Properties  map[string]string `json:"properties,omitempty"`
	Children    []ForestNode      `json:"children,omitempty"`
}

// Timestamp formats generation times for robot payloads.
func Timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// NewRobotForest converts a forest into its serializable form.
func NewRobotForest(f *forest.Forest) RobotForest {
	out := RobotForest{Roots: []ForestNode{}}
	if f == nil {
		return out
	}
	out.NodeCount = f.Len()
	out.Unattached = f.Unattached
	stats := analysis.ComputeStats(f, analysis.DefaultStatsConfig())
	out.Stats = &stats
	for _, root := range f.Roots {
		out.Roots = append(out.Roots, forestNode(root))
	}
	return out
}

func forestNode(n *forest.Node) ForestNode {
	fn := ForestNode{
		ID:          n.ID(),
		Name:        n.Record.Name,
		DisplayName: n.Record.DisplayName,
		Kind:        string(n.Record.Kind),
		Depth:       n.Depth,
		Properties:  n.Record.Properties,
	}
	for _, c := range n.Children {
		fn.Children = append(fn.Children, forestNode(c))
	}
	return fn
}

// ParseFormat normalizes a --format value.
func ParseFormat(s string) (string, error) {
	switch f := strings.ToLower(strings.TrimSpace(s)); f {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatTOON:
		return FormatTOON, nil
	default:
		return "", fmt.Errorf("%w %q (want json or toon)", ErrUnknownFormat, s)
	}
}

// WriteRobot encodes v to w as indented JSON or TOON. TOON needs the tru
// encoder on PATH.
func WriteRobot(w io.Writer, v any, format string) error {
	switch format {
	case FormatJSON, "":
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(v)
	case FormatTOON:
		if !toon.Available() {
			return fmt.Errorf("toon output needs the tru encoder on PATH (or TOON_TRU_BIN)")
		}
		out, err := toon.Encode(v)
		if err != nil {
			return err
		}
		if !strings.HasSuffix(out, "\n") {
			out += "\n"
		}
		_, err = io.WriteString(w, out)
		return err
	default:
		return fmt.Errorf("%w %q", ErrUnknownFormat, format)
	}
}
