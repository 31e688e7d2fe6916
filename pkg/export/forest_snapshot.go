package export

import (
	"fmt"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"strings"

	"git.sr.ht/~sbinet/gg"
	"github.com/ajstarks/svgo"
	"golang.org/x/image/font/basicfont"

	"github.com/vanderheijden86/catview/pkg/forest"
	"github.com/vanderheijden86/catview/pkg/model"
)

// ForestSnapshotOptions controls diagram export.
type ForestSnapshotOptions struct {
	Path     string // Output path; format inferred from extension when Format empty
	Format   string // "svg" or "png" (case-insensitive)
	Title    string
	Forest   *forest.Forest
	DataHash string
	// Expanded decides which nodes show their children. Nil draws every node.
	Expanded func(n *forest.Node) bool
}

// SaveForestSnapshot renders the hierarchy as an indented box diagram.
func SaveForestSnapshot(opts ForestSnapshotOptions) error {
	if opts.Forest == nil || opts.Forest.Len() == 0 {
		return fmt.Errorf("no records to export")
	}

	format := strings.ToLower(strings.TrimPrefix(opts.Format, "."))
	if format == "" {
		switch strings.ToLower(filepath.Ext(opts.Path)) {
		case ".png":
			format = "png"
		case ".svg":
			format = "svg"
		default:
			format = "svg"
			if opts.Path != "" && filepath.Ext(opts.Path) == "" {
				opts.Path += ".svg"
			}
		}
	}
	if format != "svg" && format != "png" {
		return fmt.Errorf("unsupported format %q (want svg or png)", format)
	}
	if opts.Path == "" {
		return fmt.Errorf("output path is required")
	}
	if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
		return fmt.Errorf("create parent dir: %w", err)
	}

	layout := buildLayout(opts)
	if format == "png" {
		return renderPNG(opts.Path, layout)
	}
	file, err := os.Create(opts.Path)
	if err != nil {
		return err
	}
	defer file.Close()
	return renderSVG(file, layout)
}

// --- layout ----------------------------------------------------------------

const (
	nodeW        = 200.0
	nodeH        = 44.0
	indentW      = 48.0
	rowGap       = 14.0
	padding      = 32.0
	headerHeight = 96.0
)

type layoutNode struct {
	ID       string
	Label    string
	Name     string
	Kind     model.Kind
	IsRoot   bool
	X, Y     float64
	ParentID string
}

type layoutResult struct {
	Nodes   []layoutNode
	Width   int
	Height  int
	Title   string
	Hash    string
	Total   int
	Roots   int
	Missing int
}

func buildLayout(opts ForestSnapshotOptions) layoutResult {
	expanded := opts.Expanded
	if expanded == nil {
		expanded = func(*forest.Node) bool { return true }
	}

	var nodes []layoutNode
	maxDepth := 0
	for i, n := range opts.Forest.Flatten(expanded) {
		ln := layoutNode{
			ID:     n.ID(),
			Label:  truncate(n.Record.Label(), 26),
			Name:   truncate(n.Record.Name, 28),
			Kind:   n.Record.Kind,
			IsRoot: n.Parent == nil,
			X:      padding + float64(n.Depth)*indentW,
			Y:      padding + headerHeight + float64(i)*(nodeH+rowGap),
		}
		if n.Parent != nil {
			ln.ParentID = n.Parent.ID()
		}
		if n.Depth > maxDepth {
			maxDepth = n.Depth
		}
		nodes = append(nodes, ln)
	}

	width := int(padding*2 + float64(maxDepth)*indentW + nodeW)
	if width < 480 {
		width = 480
	}
	height := int(padding*2 + headerHeight + float64(len(nodes))*(nodeH+rowGap))

	title := opts.Title
	if strings.TrimSpace(title) == "" {
		title = "Catalog"
	}

	return layoutResult{
		Nodes:   nodes,
		Width:   width,
		Height:  height,
		Title:   title,
		Hash:    opts.DataHash,
		Total:   opts.Forest.Len(),
		Roots:   opts.Forest.RootCount(),
		Missing: len(opts.Forest.Unattached),
	}
}

// --- rendering -------------------------------------------------------------

var (
	colorCommunity = color.RGBA{0xff, 0xe0, 0xb2, 0xff}
	colorArc       = color.RGBA{0xbb, 0xde, 0xfb, 0xff}
	colorADR       = color.RGBA{0xc8, 0xe6, 0xc9, 0xff}
	colorIoTHub    = color.RGBA{0xb2, 0xeb, 0xf2, 0xff}
	colorSite      = color.RGBA{0xe1, 0xbe, 0xe7, 0xff}
	colorOther     = color.RGBA{0xec, 0xef, 0xf1, 0xff}
	colorStroke    = color.RGBA{0x22, 0x22, 0x22, 0xff}
	colorEdge      = color.RGBA{0x90, 0xa4, 0xae, 0xff}
	colorText      = color.RGBA{0x11, 0x11, 0x11, 0xff}
	colorSubtle    = color.RGBA{0x66, 0x66, 0x66, 0xff}
	colorBackdrop  = color.RGBA{0xf9, 0xfa, 0xfb, 0xff}
	colorHeaderBG  = color.RGBA{0xf3, 0xf4, 0xf6, 0xff}
)

func kindColor(n layoutNode) color.RGBA {
	if n.IsRoot {
		return colorCommunity
	}
	switch n.Kind {
	case model.KindArc:
		return colorArc
	case model.KindADR:
		return colorADR
	case model.KindIoTHub:
		return colorIoTHub
	case model.KindSite:
		return colorSite
	default:
		return colorOther
	}
}

func summaryLines(layout layoutResult) []string {
	lines := []string{
		fmt.Sprintf("records: %d  roots: %d  shown: %d", layout.Total, layout.Roots, len(layout.Nodes)),
	}
	if layout.Hash != "" {
		lines = append(lines, "data_hash: "+layout.Hash)
	}
	if layout.Missing > 0 {
		lines = append(lines, fmt.Sprintf("unattached: %d", layout.Missing))
	}
	return lines
}

// edge returns the elbow connector from a parent's left edge down to the
// child's vertical center.
func edge(parent, child layoutNode) (x1, y1, x2, y2, x3, y3 float64) {
	x1 = parent.X + indentW/2
	y1 = parent.Y + nodeH
	x2 = x1
	y2 = child.Y + nodeH/2
	x3 = child.X
	y3 = y2
	return
}

func renderPNG(path string, layout layoutResult) error {
	dc := gg.NewContext(layout.Width, layout.Height)
	dc.SetColor(colorBackdrop)
	dc.Clear()

	dc.SetColor(colorHeaderBG)
	dc.DrawRoundedRectangle(16, 16, float64(layout.Width)-32, headerHeight-24, 10)
	dc.Fill()

	dc.SetFontFace(basicfont.Face7x13)
	dc.SetColor(colorText)
	dc.DrawStringAnchored(layout.Title, 32, 40, 0, 0.5)
	dc.SetColor(colorSubtle)
	for i, line := range summaryLines(layout) {
		dc.DrawStringAnchored(line, 32, 58+float64(i)*16, 0, 0.5)
	}

	pos := make(map[string]layoutNode, len(layout.Nodes))
	for _, n := range layout.Nodes {
		pos[n.ID] = n
	}
	dc.SetColor(colorEdge)
	dc.SetLineWidth(1.5)
	for _, n := range layout.Nodes {
		parent, ok := pos[n.ParentID]
		if !ok {
			continue
		}
		x1, y1, x2, y2, x3, y3 := edge(parent, n)
		dc.MoveTo(x1, y1)
		dc.LineTo(x2, y2)
		dc.LineTo(x3, y3)
		dc.Stroke()
	}

	for _, n := range layout.Nodes {
		dc.SetColor(kindColor(n))
		dc.DrawRoundedRectangle(n.X, n.Y, nodeW, nodeH, 6)
		dc.Fill()
		dc.SetColor(colorStroke)
		dc.SetLineWidth(1)
		dc.DrawRoundedRectangle(n.X, n.Y, nodeW, nodeH, 6)
		dc.Stroke()

		dc.SetColor(colorText)
		dc.DrawStringAnchored(n.Label, n.X+10, n.Y+15, 0, 0.5)
		dc.SetColor(colorSubtle)
		dc.DrawStringAnchored(nodeCaption(n), n.X+10, n.Y+32, 0, 0.5)
	}

	return dc.SavePNG(path)
}

func renderSVG(w io.Writer, layout layoutResult) error {
	canvas := svg.New(w)
	canvas.Start(layout.Width, layout.Height)
	canvas.Rect(0, 0, layout.Width, layout.Height, "fill:"+css(colorBackdrop))
	canvas.Roundrect(16, 16, layout.Width-32, int(headerHeight-24), 10, 10, "fill:"+css(colorHeaderBG))

	canvas.Text(32, 44, layout.Title, fmt.Sprintf("fill:%s;font-size:16px;font-family:monospace;font-weight:bold", css(colorText)))
	for i, line := range summaryLines(layout) {
		canvas.Text(32, 64+i*16, line, fmt.Sprintf("fill:%s;font-size:12px;font-family:monospace", css(colorSubtle)))
	}

	pos := make(map[string]layoutNode, len(layout.Nodes))
	for _, n := range layout.Nodes {
		pos[n.ID] = n
	}
	for _, n := range layout.Nodes {
		parent, ok := pos[n.ParentID]
		if !ok {
			continue
		}
		x1, y1, x2, y2, x3, y3 := edge(parent, n)
		canvas.Polyline(
			[]int{int(x1), int(x2), int(x3)},
			[]int{int(y1), int(y2), int(y3)},
			fmt.Sprintf("fill:none;stroke:%s;stroke-width:1.5", css(colorEdge)),
		)
	}

	for _, n := range layout.Nodes {
		x, y := int(n.X), int(n.Y)
		canvas.Group(fmt.Sprintf(`id="%s"`, svgID(n.ID)))
		canvas.Roundrect(x, y, int(nodeW), int(nodeH), 6, 6,
			fmt.Sprintf("fill:%s;stroke:%s;stroke-width:1", css(kindColor(n)), css(colorStroke)))
		canvas.Text(x+10, y+18, n.Label, fmt.Sprintf("fill:%s;font-size:13px;font-family:monospace;font-weight:bold", css(colorText)))
		canvas.Text(x+10, y+35, nodeCaption(n), fmt.Sprintf("fill:%s;font-size:11px;font-family:monospace", css(colorSubtle)))
		canvas.Gend()
	}

	canvas.End()
	return nil
}

func nodeCaption(n layoutNode) string {
	if n.Kind == "" {
		return n.Name
	}
	return truncate(fmt.Sprintf("%s · %s", n.Kind, n.Name), 28)
}

// svgID keeps element ids to characters valid in XML names.
func svgID(id string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		default:
			return '_'
		}
	}, id)
}

// --- helpers ---------------------------------------------------------------

func truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}

func css(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
