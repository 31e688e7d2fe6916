package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Context identifies which pane has focus for help purposes.
type Context string

const (
	ContextTree   Context = "tree"
	ContextTable  Context = "table"
	ContextDetail Context = "detail"
)

// ContextHelpContent contains compact help content for each context.
// Content should fit on one screen (~20 lines) without scrolling.
var ContextHelpContent = map[Context]string{
	ContextTree:   contextHelpTree,
	ContextTable:  contextHelpTable,
	ContextDetail: contextHelpDetail,
}

// GetContextHelp returns the help content for a given context.
// Falls back to generic help if the context has no specific content.
func GetContextHelp(ctx Context) string {
	if content, ok := ContextHelpContent[ctx]; ok {
		return content
	}
	return contextHelpGeneric
}

// RenderContextHelp renders the context-specific help modal.
func RenderContextHelp(ctx Context, theme Theme, width, height int) string {
	content := GetContextHelp(ctx)
	r := theme.Renderer

	modalWidth := 56
	if modalWidth > width-4 {
		modalWidth = width - 4
	}
	if modalWidth < 20 {
		modalWidth = 20
	}

	titleStyle := r.NewStyle().Bold(true).Foreground(theme.Primary)
	contentStyle := r.NewStyle().Foreground(theme.Subtext)
	footerStyle := r.NewStyle().Foreground(theme.Muted).Italic(true)

	var b strings.Builder
	b.WriteString(titleStyle.Render("Quick Reference"))
	b.WriteString("\n")
	b.WriteString(r.NewStyle().Foreground(theme.Border).Render(strings.Repeat("─", modalWidth-4)))
	b.WriteString("\n\n")
	b.WriteString(contentStyle.Render(content))
	b.WriteString("\n\n")
	b.WriteString(footerStyle.Render("Esc or ? to close"))

	modalStyle := r.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(theme.Secondary).
		Padding(1, 2).
		Width(modalWidth)

	modal := modalStyle.Render(b.String())
	if width > 0 && height > 0 {
		return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, modal)
	}
	return modal
}

const contextHelpTree = `## Catalog Tree

**Navigation**
  j/k       Move up/down
  g/G       Jump to top/bottom
  Ctrl+D/U  Page down/up
  p         Jump to parent

**Expand / Collapse**
  Enter     Toggle node
  l/→       Expand, then first child
  h/←       Collapse, then parent
  E / C     Expand all / collapse all

**Other**
  y         Copy name to clipboard
  d         Record details
  o         Open another catalog
  r         Reload from disk
  Tab       Focus table`

const contextHelpTable = `## Visible Rows

One row per node shown in the tree,
in tree order. Collapsing a node
removes its descendants' rows.

**Navigation**
  j/k       Move up/down
  Enter     Select node in tree
  Tab       Focus tree`

const contextHelpDetail = `## Record Details

  j/k       Scroll
  d / Esc   Close details`

const contextHelpGeneric = `## Quick Reference

  ?         Help overlay
  r         Reload catalog
  o         Catalog picker
  Esc       Close/back
  q         Quit`
