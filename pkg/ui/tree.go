// tree.go - Expandable catalog tree; the rendered structure the visible-node
// tracker observes.
package ui

import (
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/vanderheijden86/catview/pkg/forest"
	"github.com/vanderheijden86/catview/pkg/model"
)

// DefaultExpandDepth expands roots and their children on first render.
const DefaultExpandDepth = 2

// TreeModel manages the hierarchical tree view state.
//
// Expansion is kept by node ID, so it survives a rebuild from reloaded
// records. Only explicit user changes are stored; every other node falls
// back to the depth rule.
type TreeModel struct {
	forest         *forest.Forest
	flatList       []*forest.Node  // Flattened visible nodes for navigation
	expanded       map[string]bool // Node ID -> explicitly set state
	expandDepth    int             // Levels expanded by default; <0 expands everything
	cursor         int             // Current selection index in flatList
	theme          Theme
	width          int
	height         int
	viewportOffset int // Index of first rendered node

	built bool

	// Observers. Notified only after flatList is committed.
	nextSubID  int
	structSubs map[int]func()
	toggleSubs map[int]func(ids []string)
}

// NewTreeModel creates an empty tree model
func NewTreeModel(theme Theme) *TreeModel {
	return &TreeModel{
		theme:       theme,
		expanded:    make(map[string]bool),
		expandDepth: DefaultExpandDepth,
		structSubs:  make(map[int]func()),
		toggleSubs:  make(map[int]func([]string)),
	}
}

// SetExpandDepth changes the default expansion depth. Explicit user
// choices are kept.
func (t *TreeModel) SetExpandDepth(depth int) {
	t.expandDepth = depth
	if t.built {
		t.rebuildFlatList()
	}
}

// SetSize updates the available dimensions for the tree view
func (t *TreeModel) SetSize(width, height int) {
	t.width = width
	t.height = height
	t.ensureCursorVisible()
}

// Build installs a freshly built forest. The selection follows the
// previously selected node ID when it still exists.
func (t *TreeModel) Build(f *forest.Forest) {
	selected := t.GetSelectedID()

	t.forest = f
	t.built = true
	t.pruneExpanded()
	t.rebuildFlatList()

	if selected != "" && t.SelectByID(selected) {
		return
	}
	t.ensureCursorVisible()
}

// pruneExpanded drops explicit state for nodes that no longer exist.
func (t *TreeModel) pruneExpanded() {
	if t.forest == nil {
		return
	}
	for id := range t.expanded {
		name, ok := forest.NameFromNodeID(id)
		if !ok || t.forest.Find(name) == nil {
			delete(t.expanded, id)
		}
	}
}

func (t *TreeModel) defaultExpanded(n *forest.Node) bool {
	return t.expandDepth < 0 || n.Depth < t.expandDepth
}

// IsExpanded reports whether a node currently shows its children.
func (t *TreeModel) IsExpanded(n *forest.Node) bool {
	if n == nil {
		return false
	}
	if v, ok := t.expanded[n.ID()]; ok {
		return v
	}
	return t.defaultExpanded(n)
}

// setExpanded records an explicit state and reports whether it changed.
func (t *TreeModel) setExpanded(n *forest.Node, v bool) bool {
	if n == nil || n.IsLeaf() || t.IsExpanded(n) == v {
		return false
	}
	if v == t.defaultExpanded(n) {
		delete(t.expanded, n.ID())
	} else {
		t.expanded[n.ID()] = v
	}
	return true
}

// RenderedNodeIDs returns the IDs of the rendered rows in document order.
// The tree counts as mounted once a forest has been installed.
func (t *TreeModel) RenderedNodeIDs() ([]string, bool) {
	if !t.built {
		return nil, false
	}
	ids := make([]string, len(t.flatList))
	for i, n := range t.flatList {
		ids[i] = n.ID()
	}
	return ids, true
}

// Subscribe registers fn to run after every committed structure change.
func (t *TreeModel) Subscribe(fn func()) (cancel func()) {
	id := t.nextSubID
	t.nextSubID++
	t.structSubs[id] = fn
	return func() { delete(t.structSubs, id) }
}

// OnToggle registers fn to run after the user expands or collapses nodes.
func (t *TreeModel) OnToggle(fn func(ids []string)) (cancel func()) {
	id := t.nextSubID
	t.nextSubID++
	t.toggleSubs[id] = fn
	return func() { delete(t.toggleSubs, id) }
}

// Callbacks may cancel subscriptions, so they are copied out first.
func (t *TreeModel) notifyStructure() {
	keys := make([]int, 0, len(t.structSubs))
	for k := range t.structSubs {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	fns := make([]func(), 0, len(keys))
	for _, k := range keys {
		fns = append(fns, t.structSubs[k])
	}
	for _, fn := range fns {
		fn()
	}
}

func (t *TreeModel) notifyToggle(ids []string) {
	if len(ids) == 0 {
		return
	}
	keys := make([]int, 0, len(t.toggleSubs))
	for k := range t.toggleSubs {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	fns := make([]func([]string), 0, len(keys))
	for _, k := range keys {
		fns = append(fns, t.toggleSubs[k])
	}
	for _, fn := range fns {
		fn(append([]string(nil), ids...))
	}
}

// View renders the tree view.
func (t *TreeModel) View() string {
	if !t.built || len(t.flatList) == 0 {
		return t.renderEmptyState()
	}

	var sb strings.Builder
	start, end := t.visibleRange()
	for i := start; i < end; i++ {
		node := t.flatList[i]
		isSelected := i == t.cursor
		line := t.renderNode(node)
		if isSelected {
			line = t.theme.Selected.Render(line)
		}
		sb.WriteString(line)
		if i < end-1 {
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

// renderEmptyState renders the view when there are no records.
func (t *TreeModel) renderEmptyState() string {
	var sb strings.Builder
	sb.WriteString(t.theme.PrimaryBold.Render("Catalog"))
	sb.WriteString("\n\n")
	if !t.built {
		sb.WriteString(t.theme.MutedText.Render("Loading catalog..."))
		return sb.String()
	}
	sb.WriteString(t.theme.MutedText.Render("No catalog records to display."))
	if t.forest != nil && len(t.forest.Unattached) > 0 {
		sb.WriteString("\n")
		sb.WriteString(t.theme.MutedText.Render(
			pluralize(len(t.forest.Unattached), "record references", "records reference") + " a missing parent."))
	}
	return sb.String()
}

// renderNode renders a single tree node with tree characters and styling.
func (t *TreeModel) renderNode(node *forest.Node) string {
	r := t.theme.Renderer
	rec := node.Record
	var sb strings.Builder

	prefix := t.buildTreePrefix(node)
	sb.WriteString(prefix)

	indicatorStyle := r.NewStyle().Foreground(t.theme.Secondary)
	sb.WriteString(indicatorStyle.Render(t.getExpandIndicator(node)))
	sb.WriteString(" ")

	icon, iconColor := t.theme.KindIcon(rec.Kind, node.Parent == nil)
	sb.WriteString(r.NewStyle().Foreground(iconColor).Render(icon))
	sb.WriteString(" ")

	used := lipgloss.Width(prefix) + 4
	label := t.truncateTitle(rec.Label(), t.width-used)
	sb.WriteString(label)

	if rec.DisplayName != "" && rec.DisplayName != rec.Name {
		remaining := t.width - used - runewidth.StringWidth(label) - 1
		if remaining > 6 {
			sb.WriteString(" ")
			sb.WriteString(t.theme.SecondaryText.Render(t.truncateTitle(rec.Name, remaining)))
		}
	}

	return sb.String()
}

// buildTreePrefix builds the indentation and branch characters for a node.
func (t *TreeModel) buildTreePrefix(node *forest.Node) string {
	if node.Depth == 0 {
		return ""
	}

	var parts []string
	ancestors := t.getAncestors(node)
	for i := 0; i < len(ancestors)-1; i++ {
		if t.hasSiblingsBelow(ancestors[i]) {
			parts = append(parts, "│   ")
		} else {
			parts = append(parts, "    ")
		}
	}
	if t.isLastChild(node) {
		parts = append(parts, "└── ")
	} else {
		parts = append(parts, "├── ")
	}

	return t.theme.MutedText.Render(strings.Join(parts, ""))
}

// getAncestors returns the ancestors below the root, root-most first, with
// the node itself at the end.
func (t *TreeModel) getAncestors(node *forest.Node) []*forest.Node {
	var ancestors []*forest.Node
	for cur := node.Parent; cur != nil && cur.Parent != nil; cur = cur.Parent {
		ancestors = append([]*forest.Node{cur}, ancestors...)
	}
	return append(ancestors, node)
}

func (t *TreeModel) siblings(node *forest.Node) []*forest.Node {
	if node.Parent == nil {
		if t.forest == nil {
			return nil
		}
		return t.forest.Roots
	}
	return node.Parent.Children
}

// hasSiblingsBelow checks if a node has siblings below it in the tree.
func (t *TreeModel) hasSiblingsBelow(node *forest.Node) bool {
	sibs := t.siblings(node)
	for i, s := range sibs {
		if s == node {
			return i < len(sibs)-1
		}
	}
	return false
}

// isLastChild checks if a node is the last child of its parent.
func (t *TreeModel) isLastChild(node *forest.Node) bool {
	sibs := t.siblings(node)
	return len(sibs) > 0 && sibs[len(sibs)-1] == node
}

// getExpandIndicator returns the expand/collapse indicator for a node.
func (t *TreeModel) getExpandIndicator(node *forest.Node) string {
	if node.IsLeaf() {
		return "•"
	}
	if t.IsExpanded(node) {
		return "▾"
	}
	return "▸"
}

// truncateTitle truncates to a display width, so wide runes count double.
func (t *TreeModel) truncateTitle(title string, maxWidth int) string {
	if maxWidth < 8 {
		maxWidth = 8
	}
	return runewidth.Truncate(title, maxWidth, "…")
}

// SelectedNode returns the currently selected tree node, or nil if none.
func (t *TreeModel) SelectedNode() *forest.Node {
	if t.cursor >= 0 && t.cursor < len(t.flatList) {
		return t.flatList[t.cursor]
	}
	return nil
}

// SelectedRecord returns the record under the cursor, or nil.
func (t *TreeModel) SelectedRecord() *model.CatalogRecord {
	if n := t.SelectedNode(); n != nil {
		return n.Record
	}
	return nil
}

// GetSelectedID returns the node ID under the cursor, or empty string.
func (t *TreeModel) GetSelectedID() string {
	if n := t.SelectedNode(); n != nil {
		return n.ID()
	}
	return ""
}

// SelectByID moves cursor to the node with the given ID.
// Returns true if found, false otherwise.
func (t *TreeModel) SelectByID(id string) bool {
	for i, n := range t.flatList {
		if n.ID() == id {
			t.cursor = i
			t.ensureCursorVisible()
			return true
		}
	}
	return false
}

// Cursor returns the selection index in the rendered list.
func (t *TreeModel) Cursor() int {
	return t.cursor
}

// MoveDown moves the cursor down in the flat list.
func (t *TreeModel) MoveDown() {
	if t.cursor < len(t.flatList)-1 {
		t.cursor++
		t.ensureCursorVisible()
	}
}

// MoveUp moves the cursor up in the flat list.
func (t *TreeModel) MoveUp() {
	if t.cursor > 0 {
		t.cursor--
		t.ensureCursorVisible()
	}
}

// ToggleExpand expands or collapses the currently selected node.
func (t *TreeModel) ToggleExpand() {
	node := t.SelectedNode()
	if node == nil || node.IsLeaf() {
		return
	}
	t.setExpanded(node, !t.IsExpanded(node))
	t.commitToggle([]string{node.ID()})
}

// SetExpandedByID expands or collapses the node with the given ID and
// reports whether anything changed. Unknown IDs and leaves are ignored.
func (t *TreeModel) SetExpandedByID(id string, expanded bool) bool {
	name, ok := forest.NameFromNodeID(id)
	if !ok || t.forest == nil {
		return false
	}
	node := t.forest.Find(name)
	if !t.setExpanded(node, expanded) {
		return false
	}
	selected := t.GetSelectedID()
	t.commitToggle([]string{id})
	if !t.SelectByID(selected) {
		t.selectNearestAncestor(selected)
	}
	return true
}

// ExpandAll expands all nodes in the tree.
func (t *TreeModel) ExpandAll() {
	t.setAll(true)
}

// CollapseAll collapses all nodes in the tree.
func (t *TreeModel) CollapseAll() {
	t.setAll(false)
}

func (t *TreeModel) setAll(expanded bool) {
	if t.forest == nil {
		return
	}
	selected := t.GetSelectedID()
	var changed []string
	t.forest.Walk(func(n *forest.Node) bool {
		if t.setExpanded(n, expanded) {
			changed = append(changed, n.ID())
		}
		return true
	})
	if len(changed) == 0 {
		return
	}
	t.commitToggle(changed)
	if !t.SelectByID(selected) {
		t.selectNearestAncestor(selected)
	}
}

// selectNearestAncestor keeps the cursor on the closest visible ancestor of
// a node that just got hidden.
func (t *TreeModel) selectNearestAncestor(id string) {
	name, ok := forest.NameFromNodeID(id)
	if !ok || t.forest == nil {
		return
	}
	for n := t.forest.Find(name); n != nil; n = n.Parent {
		if t.SelectByID(n.ID()) {
			return
		}
	}
}

// commitToggle rebuilds the rendered list and then reports the toggled IDs.
func (t *TreeModel) commitToggle(ids []string) {
	t.rebuildFlatList()
	t.notifyToggle(ids)
}

// JumpToTop moves cursor to the first node.
func (t *TreeModel) JumpToTop() {
	t.cursor = 0
	t.ensureCursorVisible()
}

// JumpToBottom moves cursor to the last node.
func (t *TreeModel) JumpToBottom() {
	if len(t.flatList) > 0 {
		t.cursor = len(t.flatList) - 1
		t.ensureCursorVisible()
	}
}

// JumpToParent moves cursor to the parent of the currently selected node.
// If already at a root node, does nothing.
func (t *TreeModel) JumpToParent() {
	node := t.SelectedNode()
	if node == nil || node.Parent == nil {
		return
	}
	t.SelectByID(node.Parent.ID())
}

// ExpandOrMoveToChild handles the → / l key:
//   - collapsed parent: expand it
//   - expanded parent: move to first child
//   - leaf: do nothing
func (t *TreeModel) ExpandOrMoveToChild() {
	node := t.SelectedNode()
	if node == nil || node.IsLeaf() {
		return
	}
	if !t.IsExpanded(node) {
		t.setExpanded(node, true)
		t.commitToggle([]string{node.ID()})
		return
	}
	t.SelectByID(node.Children[0].ID())
}

// CollapseOrJumpToParent handles the ← / h key:
//   - expanded parent: collapse it
//   - collapsed node or leaf: jump to parent
func (t *TreeModel) CollapseOrJumpToParent() {
	node := t.SelectedNode()
	if node == nil {
		return
	}
	if !node.IsLeaf() && t.IsExpanded(node) {
		t.setExpanded(node, false)
		t.commitToggle([]string{node.ID()})
		return
	}
	t.JumpToParent()
}

// PageDown moves cursor down by half a viewport.
func (t *TreeModel) PageDown() {
	t.cursor += t.pageSize()
	if t.cursor >= len(t.flatList) {
		t.cursor = len(t.flatList) - 1
	}
	if t.cursor < 0 {
		t.cursor = 0
	}
	t.ensureCursorVisible()
}

// PageUp moves cursor up by half a viewport.
func (t *TreeModel) PageUp() {
	t.cursor -= t.pageSize()
	if t.cursor < 0 {
		t.cursor = 0
	}
	t.ensureCursorVisible()
}

func (t *TreeModel) pageSize() int {
	if size := t.height / 2; size >= 1 {
		return size
	}
	return 5
}

func (t *TreeModel) rowsAvailable() int {
	if t.height <= 0 {
		return 20
	}
	return t.height
}

// ensureCursorVisible scrolls the viewport so the cursor row is rendered.
func (t *TreeModel) ensureCursorVisible() {
	rows := t.rowsAvailable()
	if t.cursor < t.viewportOffset {
		t.viewportOffset = t.cursor
	}
	if t.cursor >= t.viewportOffset+rows {
		t.viewportOffset = t.cursor - rows + 1
	}
	if maxOffset := len(t.flatList) - rows; t.viewportOffset > maxOffset {
		t.viewportOffset = maxOffset
	}
	if t.viewportOffset < 0 {
		t.viewportOffset = 0
	}
}

// visibleRange returns the [start, end) indices of nodes in the viewport.
func (t *TreeModel) visibleRange() (start, end int) {
	if len(t.flatList) == 0 {
		return 0, 0
	}
	start = t.viewportOffset
	end = start + t.rowsAvailable()
	if end > len(t.flatList) {
		end = len(t.flatList)
	}
	if start > end {
		start = end
	}
	return start, end
}

// rebuildFlatList commits the flattened list of visible nodes and then
// notifies structure observers.
func (t *TreeModel) rebuildFlatList() {
	if t.forest == nil {
		t.flatList = nil
	} else {
		t.flatList = t.forest.Flatten(t.IsExpanded)
	}
	if t.cursor >= len(t.flatList) {
		t.cursor = len(t.flatList) - 1
	}
	if t.cursor < 0 {
		t.cursor = 0
	}
	t.ensureCursorVisible()
	t.notifyStructure()
}

// IsBuilt returns whether the tree has been built.
func (t *TreeModel) IsBuilt() bool {
	return t.built
}

// NodeCount returns the total number of visible nodes.
func (t *TreeModel) NodeCount() int {
	return len(t.flatList)
}

// RootCount returns the number of root nodes.
func (t *TreeModel) RootCount() int {
	if t.forest == nil {
		return 0
	}
	return t.forest.RootCount()
}

// Forest returns the installed forest, or nil before the first Build.
func (t *TreeModel) Forest() *forest.Forest {
	return t.forest
}
