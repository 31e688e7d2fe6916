package forest

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/vanderheijden86/catview/pkg/model"
)

// ErrCycle is matched by every *CycleError.
var ErrCycle = errors.New("cyclic parent reference")

// CycleError reports a parent chain that loops back on itself. Names is
// ordered child to parent, starting at the earliest record in the input.
type CycleError struct {
	Names []string
}

func (e *CycleError) Error() string {
	if len(e.Names) == 0 {
		return ErrCycle.Error()
	}
	chain := append(append([]string{}, e.Names...), e.Names[0])
	return fmt.Sprintf("%s: %s", ErrCycle, strings.Join(chain, " -> "))
}

func (e *CycleError) Is(target error) bool {
	return target == ErrCycle
}

// detectCycles builds a parent -> child graph over the records and fails
// on the first strongly connected component that forms a loop.
// Self-parenting is checked separately since simple graphs reject self
// edges.
func detectCycles(records []model.CatalogRecord, firstByName map[string]int) error {
	g := simple.NewDirectedGraph()
	for i := range records {
		g.AddNode(simple.Node(i))
	}

	for i := range records {
		rec := &records[i]
		if rec.IsRoot() {
			continue
		}
		if rec.ParentName == rec.Name {
			return &CycleError{Names: []string{rec.Name}}
		}
		p, ok := firstByName[rec.ParentName]
		if !ok || p == i {
			continue
		}
		g.SetEdge(g.NewEdge(simple.Node(p), simple.Node(i)))
	}

	var smallest []int
	for _, scc := range topo.TarjanSCC(g) {
		if len(scc) < 2 {
			continue
		}
		ids := make([]int, len(scc))
		for j, n := range scc {
			ids[j] = int(n.ID())
		}
		sort.Ints(ids)
		if smallest == nil || ids[0] < smallest[0] {
			smallest = ids
		}
	}
	if smallest == nil {
		return nil
	}
	return newCycleError(records, firstByName, smallest[0])
}

// newCycleError follows parent references from start until a record
// repeats and reports the loop.
func newCycleError(records []model.CatalogRecord, firstByName map[string]int, start int) *CycleError {
	seenAt := make(map[int]int)
	var chain []int
	cur := start
	for {
		if pos, ok := seenAt[cur]; ok {
			loop := chain[pos:]
			names := make([]string, len(loop))
			for i, idx := range loop {
				names[i] = records[idx].Name
			}
			return &CycleError{Names: names}
		}
		seenAt[cur] = len(chain)
		chain = append(chain, cur)

		rec := &records[cur]
		if rec.IsRoot() {
			break
		}
		p, ok := firstByName[rec.ParentName]
		if !ok {
			break
		}
		cur = p
	}
	// The chain reached a root; report the path walked.
	names := make([]string, len(chain))
	for i, idx := range chain {
		names[i] = records[idx].Name
	}
	return &CycleError{Names: names}
}
