package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/catview/pkg/forest"
	"github.com/vanderheijden86/catview/pkg/model"
	"github.com/vanderheijden86/catview/pkg/visible"
)

// HeadlessOptions drives the tree and tracker without a terminal.
type HeadlessOptions struct {
	Columns      []model.Column // Fallback when the catalog declares none
	ColumnFields map[string]string
	ExpandDepth  int
	Collapse     []string // Record names to collapse after the initial mount
	Expand       []string // Record names to expand after the initial mount
}

// HeadlessResult is what the table would show.
type HeadlessResult struct {
	Columns []model.Column
	Visible []string
	Rows    []visible.Row
	// Unknown lists requested names that match no record.
	Unknown []string
}

// RunHeadless mounts the snapshot in a tree widget, applies the requested
// toggles through the widget and returns the tracker's rows.
func RunHeadless(s *CatalogSnapshot, opts HeadlessOptions) HeadlessResult {
	tree := NewTreeModel(DefaultTheme(lipgloss.NewRenderer(nil)))
	tree.SetExpandDepth(opts.ExpandDepth)

	var trackerOpts []visible.Option
	if len(opts.ColumnFields) > 0 {
		trackerOpts = append(trackerOpts, visible.WithColumnFields(opts.ColumnFields))
	}
	tracker := visible.New(trackerOpts...)
	defer tracker.Detach()

	cols := model.ResolveColumns(s.Columns, opts.Columns)
	tracker.SetColumns(cols)
	tracker.SetRecords(s.Records)
	tree.Build(s.Forest)
	tracker.Attach(tree)

	var unknown []string
	apply := func(names []string, expanded bool) {
		for _, name := range names {
			if s.Forest == nil || s.Forest.Find(name) == nil {
				unknown = append(unknown, name)
				continue
			}
			tree.SetExpandedByID(forest.NodeID(name), expanded)
		}
	}
	apply(opts.Expand, true)
	apply(opts.Collapse, false)

	return HeadlessResult{
		Columns: cols,
		Visible: tracker.Visible(),
		Rows:    tracker.Rows(),
		Unknown: unknown,
	}
}
