// Package visible keeps a table of rows in step with the nodes a tree
// widget currently renders.
//
// The tree widget owns expand/collapse state. The Tracker never mirrors it;
// on every notification it asks the widget which node identifiers are
// rendered, replaces its stored list wholesale and re-derives the rows.
package visible

import (
	"sync"

	"github.com/vanderheijden86/catview/pkg/debug"
	"github.com/vanderheijden86/catview/pkg/model"
)

// Structure is the capability a rendered tree exposes to the Tracker.
type Structure interface {
	// RenderedNodeIDs returns the rendered node identifiers in document
	// order. mounted is false when nothing has been rendered yet.
	RenderedNodeIDs() (ids []string, mounted bool)

	// Subscribe registers fn for structure-changed notifications, which
	// fire after the widget has committed a change.
	Subscribe(fn func()) (cancel func())

	// OnToggle registers fn for direct expand/collapse interactions.
	OnToggle(fn func(ids []string)) (cancel func())
}

// RowSink receives the full row set after each recomputation.
type RowSink interface {
	SetRows(rows []Row)
}

// RowSinkFunc adapts a function to RowSink.
type RowSinkFunc func(rows []Row)

// SetRows calls f(rows).
func (f RowSinkFunc) SetRows(rows []Row) { f(rows) }

// Option configures a Tracker.
type Option func(*Tracker)

// WithSink sets the table that receives projected rows.
func WithSink(s RowSink) Option {
	return func(t *Tracker) {
		t.sink = s
	}
}

// WithColumnFields maps column IDs to record fields. Columns without a
// mapping keep showing the display name.
func WithColumnFields(fields map[string]string) Option {
	return func(t *Tracker) {
		t.fields = fields
	}
}

// Tracker derives table rows from the rendered tree. Its methods are meant
// to be called from the UI loop; the stored lists are guarded so other
// goroutines may read them.
type Tracker struct {
	mu sync.RWMutex

	structure  Structure
	generation int
	cancels    []func()

	visible []string
	records []model.CatalogRecord
	columns []model.Column
	rows    []Row
	fields  map[string]string

	sink       RowSink
	recomputes int
}

// New creates a detached Tracker.
func New(opts ...Option) *Tracker {
	t := &Tracker{}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Attach starts observing s and recomputes once so the rows reflect the
// initial mount even if the widget never fires a notification for it.
// Attaching while already attached releases the previous subscriptions.
func (t *Tracker) Attach(s Structure) {
	t.Detach()
	if s == nil {
		return
	}

	t.mu.Lock()
	t.generation++
	gen := t.generation
	t.structure = s
	t.mu.Unlock()

	cancelSub := s.Subscribe(func() {
		if t.current(gen) {
			t.OnStructuralChange()
		}
	})
	cancelToggle := s.OnToggle(func(ids []string) {
		if t.current(gen) {
			t.OnExpandCollapse(ids)
		}
	})

	t.mu.Lock()
	t.cancels = []func(){cancelSub, cancelToggle}
	t.mu.Unlock()

	t.RecomputeVisible()
}

// Detach releases all subscriptions. Notifications that arrive afterwards
// are ignored.
func (t *Tracker) Detach() {
	t.mu.Lock()
	cancels := t.cancels
	t.cancels = nil
	t.structure = nil
	t.generation++
	t.mu.Unlock()

	for _, cancel := range cancels {
		if cancel != nil {
			cancel()
		}
	}
}

// Attached reports whether the tracker currently observes a structure.
func (t *Tracker) Attached() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.structure != nil
}

func (t *Tracker) current(gen int) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.generation == gen && t.structure != nil
}

// RecomputeVisible re-reads the rendered node identifiers, replaces the
// stored list and pushes freshly projected rows to the sink. A detached or
// unmounted structure yields an empty list.
func (t *Tracker) RecomputeVisible() {
	t.mu.RLock()
	s := t.structure
	t.mu.RUnlock()

	var ids []string
	if s != nil {
		rendered, mounted := s.RenderedNodeIDs()
		if mounted {
			ids = make([]string, len(rendered))
			copy(ids, rendered)
		}
	}

	t.mu.Lock()
	t.visible = ids
	t.recomputes++
	rows, sink := t.deriveLocked()
	t.mu.Unlock()

	debug.Log("visible: recomputed %d ids -> %d rows", len(ids), len(rows))
	if sink != nil {
		sink.SetRows(rows)
	}
}

// OnStructuralChange handles the widget's structure-changed notification.
func (t *Tracker) OnStructuralChange() {
	t.RecomputeVisible()
}

// OnExpandCollapse handles a direct expand/collapse interaction. The ids
// are informational; the rendered structure is re-read in full.
func (t *Tracker) OnExpandCollapse(ids []string) {
	debug.Log("visible: toggle %v", ids)
	t.RecomputeVisible()
}

// SetRecords replaces the record collection rows are matched against and
// re-derives rows from the stored visible list.
func (t *Tracker) SetRecords(records []model.CatalogRecord) {
	t.mu.Lock()
	t.records = records
	rows, sink := t.deriveLocked()
	t.mu.Unlock()

	if sink != nil {
		sink.SetRows(rows)
	}
}

// SetColumns replaces the columns and re-derives rows.
func (t *Tracker) SetColumns(columns []model.Column) {
	t.mu.Lock()
	t.columns = columns
	rows, sink := t.deriveLocked()
	t.mu.Unlock()

	if sink != nil {
		sink.SetRows(rows)
	}
}

func (t *Tracker) deriveLocked() ([]Row, RowSink) {
	t.rows = ProjectRowsWithFields(t.visible, t.records, t.columns, t.fields)
	return t.rows, t.sink
}

// Visible returns a copy of the stored visible identifiers.
func (t *Tracker) Visible() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]string, len(t.visible))
	copy(out, t.visible)
	return out
}

// Rows returns the most recently projected rows.
func (t *Tracker) Rows() []Row {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Row, len(t.rows))
	copy(out, t.rows)
	return out
}

// Recomputes returns how many times the visible list has been rebuilt.
func (t *Tracker) Recomputes() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.recomputes
}
