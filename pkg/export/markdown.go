package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"

	"github.com/vanderheijden86/catview/pkg/analysis"
	"github.com/vanderheijden86/catview/pkg/forest"
	"github.com/vanderheijden86/catview/pkg/model"
	"github.com/vanderheijden86/catview/pkg/visible"
)

// MarkdownReport is the input for a visible-rows report.
type MarkdownReport struct {
	Title    string
	Columns  []model.Column
	Rows     []visible.Row
	Forest   *forest.Forest // Optional; adds depth indentation and the unattached list
	DataHash string
	Now      func() time.Time
}

// GenerateMarkdown renders the rows the table currently shows as a
// markdown table, in row order.
func GenerateMarkdown(r MarkdownReport) string {
	var sb strings.Builder

	title := r.Title
	if strings.TrimSpace(title) == "" {
		title = "Catalog"
	}
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}

	sb.WriteString(fmt.Sprintf("# %s\n\n", title))
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", now().Format(time.RFC1123)))

	sb.WriteString("## Summary\n\n")
	sb.WriteString(fmt.Sprintf("- **Visible rows**: %d\n", len(r.Rows)))
	if r.Forest != nil {
		sb.WriteString(fmt.Sprintf("- **Records in tree**: %d\n", r.Forest.Len()))
		sb.WriteString(fmt.Sprintf("- **Roots**: %d\n", r.Forest.RootCount()))
		stats := analysis.ComputeStats(r.Forest, analysis.DefaultStatsConfig())
		sb.WriteString(fmt.Sprintf("- **Leaves**: %d\n", stats.Leaves))
		sb.WriteString(fmt.Sprintf("- **Max depth**: %d\n", stats.MaxDepth))
	}
	if r.DataHash != "" {
		sb.WriteString(fmt.Sprintf("- **Data hash**: `%s`\n", r.DataHash))
	}
	sb.WriteString("\n")

	if len(r.Columns) == 0 {
		sb.WriteString("_No columns._\n")
		return sb.String()
	}

	sb.WriteString("|")
	for _, c := range r.Columns {
		sb.WriteString(" " + escapeCell(c.Title()) + " |")
	}
	sb.WriteString("\n|")
	for range r.Columns {
		sb.WriteString("---|")
	}
	sb.WriteString("\n")

	for _, row := range r.Rows {
		sb.WriteString("|")
		for i := range r.Columns {
			cell := ""
			if i < len(row.Cells) {
				cell = row.Cells[i]
			}
			if i == 0 {
				cell = indentFor(r.Forest, row.Name) + cell
			}
			sb.WriteString(" " + escapeCell(cell) + " |")
		}
		sb.WriteString("\n")
	}

	if r.Forest != nil && len(r.Forest.Unattached) > 0 {
		sb.WriteString("\n## Unattached records\n\n")
		sb.WriteString("These records reference a parent that does not exist.\n\n")
		for _, name := range r.Forest.Unattached {
			sb.WriteString(fmt.Sprintf("- `%s`\n", name))
		}
	}

	return sb.String()
}

// indentFor prefixes nested rows with non-breaking spaces so depth
// survives markdown whitespace collapsing.
func indentFor(f *forest.Forest, name string) string {
	if f == nil {
		return ""
	}
	n := f.Find(name)
	if n == nil || n.Depth == 0 {
		return ""
	}
	return strings.Repeat("\u00a0\u00a0", n.Depth)
}

func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}

// SaveMarkdownToFile writes the generated markdown to a file.
func SaveMarkdownToFile(r MarkdownReport, filename string) error {
	if dir := filepath.Dir(filename); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create parent dir: %w", err)
		}
	}
	return os.WriteFile(filename, []byte(GenerateMarkdown(r)), 0o644)
}

// RenderMarkdown renders markdown for a terminal of the given width.
func RenderMarkdown(md string, width int) (string, error) {
	if width <= 0 {
		width = 80
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", fmt.Errorf("markdown renderer: %w", err)
	}
	return r.Render(md)
}
