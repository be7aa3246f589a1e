package bbtree

import (
	"fmt"
	"math"
	"testing"
)

// --- LP --------------------------------------------------------------------

type fakeCol struct{ name string }

func (c *fakeCol) Name() string { return c.name }

type fakeRow struct {
	name string
	refs int
}

func (r *fakeRow) Name() string { return r.name }
func (r *fakeRow) Capture()     { r.refs++ }
func (r *fakeRow) Release()     { r.refs-- }

type fakeState struct{ id int }

// fakeLP keeps columns and rows in plain slices. Solving always succeeds with
// status solveStatus.
type fakeLP struct {
	cols               []Column
	rows               []Row
	markcols, markrows int
	flushed, solved    bool
	relax              bool
	status             LPStatus
	solveStatus        LPStatus
	solves             int64
	nstates            int
	loaded             LPState
	freed              []LPState
	cleared            int
}

func newFakeLP() *fakeLP {
	return &fakeLP{relax: true, solveStatus: LPOptimal}
}

func (lp *fakeLP) NCols() int        { return len(lp.cols) }
func (lp *fakeLP) NRows() int        { return len(lp.rows) }
func (lp *fakeLP) Cols() []Column    { return lp.cols }
func (lp *fakeLP) Rows() []Row       { return lp.rows }
func (lp *fakeLP) NewCols() []Column { return lp.cols[lp.markcols:] }
func (lp *fakeLP) NewRows() []Row    { return lp.rows[lp.markrows:] }
func (lp *fakeLP) Flushed() bool     { return lp.flushed }
func (lp *fakeLP) Solved() bool      { return lp.solved }
func (lp *fakeLP) MarkUnflushed()    { lp.flushed, lp.solved = false, false }
func (lp *fakeLP) MarkUnsolved()     { lp.solved = false }
func (lp *fakeLP) Status() LPStatus  { return lp.status }
func (lp *fakeLP) IsRelax() bool     { return lp.relax }
func (lp *fakeLP) SetIsRelax(r bool) { lp.relax = r }
func (lp *fakeLP) SolveCount() int64 { return lp.solves }

func (lp *fakeLP) CleanupNew(bool) error { return nil }

func (lp *fakeLP) Flush() error {
	lp.flushed = true
	return nil
}

func (lp *fakeLP) AddCol(col Column, depth int) error {
	lp.cols = append(lp.cols, col)
	lp.MarkUnflushed()
	return nil
}

func (lp *fakeLP) AddRow(row Row, depth int) error {
	lp.rows = append(lp.rows, row)
	lp.MarkUnflushed()
	return nil
}

func (lp *fakeLP) ShrinkCols(n int) error {
	if n > len(lp.cols) {
		return fmt.Errorf("cannot shrink %d columns to %d", len(lp.cols), n)
	}
	if n < len(lp.cols) {
		lp.cols = lp.cols[:n]
		lp.MarkUnflushed()
	}
	if lp.markcols > n {
		lp.markcols = n
	}
	return nil
}

func (lp *fakeLP) ShrinkRows(n int) error {
	if n > len(lp.rows) {
		return fmt.Errorf("cannot shrink %d rows to %d", len(lp.rows), n)
	}
	if n < len(lp.rows) {
		lp.rows = lp.rows[:n]
		lp.MarkUnflushed()
	}
	if lp.markrows > n {
		lp.markrows = n
	}
	return nil
}

func (lp *fakeLP) Clear() error {
	lp.cols, lp.rows = nil, nil
	lp.markcols, lp.markrows = 0, 0
	lp.cleared++
	lp.MarkUnflushed()
	return nil
}

func (lp *fakeLP) MarkSize() {
	lp.markcols, lp.markrows = len(lp.cols), len(lp.rows)
}

func (lp *fakeLP) SetSizeMark(ncols, nrows int) {
	lp.markcols, lp.markrows = ncols, nrows
}

func (lp *fakeLP) Solve() (LPStatus, error) {
	lp.solves++
	lp.flushed, lp.solved = true, true
	lp.status = lp.solveStatus
	return lp.status, nil
}

func (lp *fakeLP) State() (LPState, error) {
	lp.nstates++
	return &fakeState{id: lp.nstates}, nil
}

func (lp *fakeLP) SetState(state LPState) error {
	lp.loaded = state
	return nil
}

func (lp *fakeLP) FreeState(state LPState) {
	lp.freed = append(lp.freed, state)
}

func (lp *fakeLP) ClearState() error {
	lp.loaded = nil
	return nil
}

// --- Variables and domains -------------------------------------------------

type fakeVar struct {
	name     string
	integral bool
	lb, ub   float64
	glb, gub float64
	val      float64
}

func newVar(name string, integral bool, lb, ub float64) *fakeVar {
	return &fakeVar{name: name, integral: integral, lb: lb, ub: ub, glb: lb, gub: ub, val: math.NaN()}
}

func (v *fakeVar) Name() string        { return v.name }
func (v *fakeVar) Integral() bool      { return v.integral }
func (v *fakeVar) LB() float64         { return v.lb }
func (v *fakeVar) UB() float64         { return v.ub }
func (v *fakeVar) RelaxValue() float64 { return v.val }

type fakeBoundChg struct {
	v     *fakeVar
	bt    BoundType
	bound float64
	depth int
}

// fakeDomains keeps a history of applied bound changes, in order of the
// active path.
type fakeDomains struct {
	history []fakeBoundChg
	global  int
	undoErr error
}

func (d *fakeDomains) Apply(v Var, bt BoundType, bound float64, depth int, inf Inference) (bool, error) {
	fv := v.(*fakeVar)
	if bt == Lower {
		fv.lb = bound
	} else {
		fv.ub = bound
	}
	d.history = append(d.history, fakeBoundChg{v: fv, bt: bt, bound: bound, depth: depth})
	return fv.lb > fv.ub, nil
}

func (d *fakeDomains) Undo(v Var, bt BoundType, old float64, depth int) error {
	if d.undoErr != nil {
		return d.undoErr
	}
	fv := v.(*fakeVar)
	for i := len(d.history) - 1; i >= 0; i-- {
		h := d.history[i]
		if h.v == fv && h.bt == bt && h.depth == depth {
			d.history = append(d.history[:i], d.history[i+1:]...)
			break
		}
	}
	if bt == Lower {
		fv.lb = math.Max(old, fv.glb)
	} else {
		fv.ub = math.Min(old, fv.gub)
	}
	return nil
}

func (d *fakeDomains) ConflictingDepth(v Var, bt BoundType, bound float64) int {
	fv := v.(*fakeVar)
	if (bt == Lower && bound > fv.gub) || (bt == Upper && bound < fv.glb) {
		return 0
	}
	for _, h := range d.history {
		if h.v != fv {
			continue
		}
		if (bt == Lower && h.bt == Upper && h.bound < bound) || (bt == Upper && h.bt == Lower && h.bound > bound) {
			return h.depth
		}
	}
	return -1
}

func (d *fakeDomains) ChangeGlobal(v Var, bt BoundType, bound float64) error {
	fv := v.(*fakeVar)
	d.global++
	if bt == Lower {
		fv.glb = math.Max(fv.glb, bound)
		fv.lb = math.Max(fv.lb, bound)
	} else {
		fv.gub = math.Min(fv.gub, bound)
		fv.ub = math.Min(fv.ub, bound)
	}
	return nil
}

// --- Propagation and events ------------------------------------------------

type fakePropagator struct {
	calls    []*Node
	cutoffAt *Node
	infer    func(t *Tree, node *Node) error // optional bound changes per call
}

func (p *fakePropagator) Propagate(t *Tree, node *Node) (bool, error) {
	p.calls = append(p.calls, node)
	if p.infer != nil {
		if err := p.infer(t, node); err != nil {
			return false, err
		}
	}
	return node == p.cutoffAt, nil
}

type fakeEvents struct {
	delayed   bool
	buffer    []Event
	processed []Event
}

func (q *fakeEvents) Delay() { q.delayed = true }

func (q *fakeEvents) Process() error {
	q.processed = append(q.processed, q.buffer...)
	q.buffer = q.buffer[:0]
	q.delayed = false
	return nil
}

func (q *fakeEvents) Add(ev Event) error {
	if q.delayed {
		q.buffer = append(q.buffer, ev)
		return nil
	}
	q.processed = append(q.processed, ev)
	return nil
}

func (q *fakeEvents) count(et EventType) int {
	n := 0
	for _, ev := range q.processed {
		if ev.Type == et {
			n++
		}
	}
	return n
}

// --- Test setup ------------------------------------------------------------

type testEnv struct {
	tree   *Tree
	lp     *fakeLP
	dom    *fakeDomains
	prop   *fakePropagator
	events *fakeEvents
}

func newTestEnv(t *testing.T, cfg Config) *testEnv {
	t.Helper()
	env := &testEnv{
		lp:     newFakeLP(),
		dom:    &fakeDomains{},
		prop:   &fakePropagator{},
		events: &fakeEvents{},
	}
	tree, err := New(cfg, Services{
		LP:         env.lp,
		Domains:    env.dom,
		Propagator: env.prop,
		Events:     env.events,
	})
	if err != nil {
		t.Fatalf("cannot create tree: %v", err)
	}
	env.tree = tree
	return env
}

// focusRoot creates the root node and focuses it.
func (env *testEnv) focusRoot(t *testing.T) *Node {
	t.Helper()
	root, err := env.tree.CreateRoot()
	if err != nil {
		t.Fatalf("cannot create root: %v", err)
	}
	env.focus(t, root)
	return root
}

func (env *testEnv) focus(t *testing.T, node *Node) {
	t.Helper()
	cutoff, err := env.tree.Focus(node)
	if err != nil {
		t.Fatalf("cannot focus %s: %v", node, err)
	}
	if cutoff {
		t.Fatalf("unexpected cutoff while focusing %s", node)
	}
	env.check(t)
}

// children creates n children of the focus node with increasing priorities.
func (env *testEnv) children(t *testing.T, n int) []*Node {
	t.Helper()
	nodes := make([]*Node, n)
	for i := range nodes {
		node, err := env.tree.CreateChild(float64(i), 0)
		if err != nil {
			t.Fatalf("cannot create child: %v", err)
		}
		nodes[i] = node
	}
	return nodes
}

func (env *testEnv) check(t *testing.T) {
	t.Helper()
	if err := env.tree.Check(); err != nil {
		t.Fatalf("tree invariants violated: %v", err)
	}
}
