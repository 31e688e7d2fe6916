// Package forest rebuilds the catalog hierarchy from flat records.
//
// Records reference their parent only by name. Build indexes those
// references once (parent name -> children in input order) and assembles
// one tree per root record, so the whole build is O(n).
package forest

import (
	"strings"

	"github.com/vanderheijden86/catview/pkg/debug"
	"github.com/vanderheijden86/catview/pkg/model"
)

// NodeIDPrefix namespaces record names when they are used as rendered
// node identifiers. The tree widget and row matching must agree on it.
const NodeIDPrefix = "tree-"

// NodeID returns the rendered node identifier for a record name.
func NodeID(name string) string {
	return NodeIDPrefix + name
}

// NameFromNodeID strips the node prefix. The second return is false when
// id was not produced by NodeID.
func NameFromNodeID(id string) (string, bool) {
	if !strings.HasPrefix(id, NodeIDPrefix) {
		return "", false
	}
	return id[len(NodeIDPrefix):], true
}

// Node is one record placed in the hierarchy.
type Node struct {
	Record   *model.CatalogRecord // Owned copy of the input record
	Children []*Node              // Input order
	Depth    int                  // 0 for roots
	Parent   *Node                // nil for roots
}

// ID returns the rendered node identifier.
func (n *Node) ID() string {
	return NodeID(n.Record.Name)
}

// Name returns the record name.
func (n *Node) Name() string {
	return n.Record.Name
}

// IsLeaf reports whether the node has no children.
func (n *Node) IsLeaf() bool {
	return len(n.Children) == 0
}

// Forest is the ordered set of root trees built from one record
// collection. It is immutable once Build returns.
type Forest struct {
	Roots []*Node

	// Unattached lists, in input order, the names of records that are not
	// part of any tree because their parent chain never reaches a root.
	Unattached []string

	records []model.CatalogRecord
	byName  map[string]*Node
	size    int
}

// Option configures Build.
type Option func(*buildOptions)

type buildOptions struct {
	orphansAsRoots bool
}

// WithOrphansAsRoots places records whose parent name matches no record
// at the top level instead of dropping them.
func WithOrphansAsRoots() Option {
	return func(o *buildOptions) {
		o.orphansAsRoots = true
	}
}

// Build constructs the forest. Records whose ParentName is empty become
// roots in input order; every other record is attached beneath the first
// record carrying its parent's name, again in input order. Records with a
// dangling parent are dropped together with their descendants unless
// WithOrphansAsRoots is given. Cyclic parent references fail the build
// with a *CycleError.
func Build(records []model.CatalogRecord, opts ...Option) (*Forest, error) {
	defer debug.LogEnterExit("forest.Build")()

	var o buildOptions
	for _, opt := range opts {
		opt(&o)
	}

	f := &Forest{
		records: make([]model.CatalogRecord, len(records)),
		byName:  make(map[string]*Node, len(records)),
	}
	copy(f.records, records)

	if len(f.records) == 0 {
		return f, nil
	}

	// Step 1: index names and parent -> children references
	firstByName := make(map[string]int, len(f.records))
	childrenOf := make(map[string][]int)
	for i := range f.records {
		rec := &f.records[i]
		if _, seen := firstByName[rec.Name]; !seen {
			firstByName[rec.Name] = i
		}
		if !rec.IsRoot() {
			childrenOf[rec.ParentName] = append(childrenOf[rec.ParentName], i)
		}
	}

	// Step 2: reject cyclic references before any recursion
	if err := detectCycles(f.records, firstByName); err != nil {
		return nil, err
	}

	// Step 3: collect roots
	var roots []int
	for i := range f.records {
		rec := &f.records[i]
		if rec.IsRoot() {
			roots = append(roots, i)
			continue
		}
		if _, ok := firstByName[rec.ParentName]; !ok && o.orphansAsRoots {
			roots = append(roots, i)
		}
	}

	// Step 4: assemble with an active-path guard
	b := &assembler{
		forest:      f,
		firstByName: firstByName,
		childrenOf:  childrenOf,
		onPath:      make(map[int]bool),
		attached:    make([]bool, len(f.records)),
	}
	for _, idx := range roots {
		node, err := b.build(idx, 0, nil)
		if err != nil {
			return nil, err
		}
		f.Roots = append(f.Roots, node)
	}

	for i, ok := range b.attached {
		if !ok {
			f.Unattached = append(f.Unattached, f.records[i].Name)
		}
	}
	debug.LogIf(len(f.Unattached) > 0, "forest: %d records not attached: %v", len(f.Unattached), f.Unattached)

	return f, nil
}

type assembler struct {
	forest      *Forest
	firstByName map[string]int
	childrenOf  map[string][]int
	onPath      map[int]bool
	attached    []bool
}

func (b *assembler) build(idx, depth int, parent *Node) (*Node, error) {
	if b.onPath[idx] {
		return nil, newCycleError(b.forest.records, b.firstByName, idx)
	}
	b.onPath[idx] = true
	defer func() { b.onPath[idx] = false }()

	rec := &b.forest.records[idx]
	node := &Node{
		Record: rec,
		Depth:  depth,
		Parent: parent,
	}
	b.attached[idx] = true
	b.forest.size++

	// Only the first record with a given name owns that name's children.
	if b.firstByName[rec.Name] != idx {
		return node, nil
	}
	b.forest.byName[rec.Name] = node

	for _, childIdx := range b.childrenOf[rec.Name] {
		child, err := b.build(childIdx, depth+1, node)
		if err != nil {
			return nil, err
		}
		node.Children = append(node.Children, child)
	}
	return node, nil
}

// Len returns the number of nodes in the forest.
func (f *Forest) Len() int {
	return f.size
}

// RootCount returns the number of root trees.
func (f *Forest) RootCount() int {
	return len(f.Roots)
}

// Find returns the node owning the given record name, or nil.
func (f *Forest) Find(name string) *Node {
	return f.byName[name]
}

// Records returns the forest's copy of the input records, in input order.
func (f *Forest) Records() []model.CatalogRecord {
	return f.records
}

// Walk visits nodes in pre-order. When fn returns false the node's
// children are skipped.
func (f *Forest) Walk(fn func(n *Node) bool) {
	for _, root := range f.Roots {
		walk(root, fn)
	}
}

func walk(n *Node, fn func(n *Node) bool) {
	if !fn(n) {
		return
	}
	for _, child := range n.Children {
		walk(child, fn)
	}
}

// Flatten returns the nodes a tree widget would render in document order
// given an expansion predicate: every root, then the children of each
// expanded node.
func (f *Forest) Flatten(expanded func(n *Node) bool) []*Node {
	var out []*Node
	f.Walk(func(n *Node) bool {
		out = append(out, n)
		return expanded(n)
	})
	return out
}

// AllNodeIDs returns every node identifier in pre-order, as rendered when
// all nodes are expanded.
func (f *Forest) AllNodeIDs() []string {
	ids := make([]string, 0, f.size)
	f.Walk(func(n *Node) bool {
		ids = append(ids, n.ID())
		return true
	})
	return ids
}

// Descendants returns the identifiers below n in pre-order, excluding n.
func Descendants(n *Node) []string {
	var ids []string
	for _, child := range n.Children {
		walk(child, func(d *Node) bool {
			ids = append(ids, d.ID())
			return true
		})
	}
	return ids
}
