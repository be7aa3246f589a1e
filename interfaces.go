package bbtree

// LPStatus is the solution status of an LP relaxation.
type LPStatus int8

// LP solution states.
const (
	LPNotSolved LPStatus = iota
	LPOptimal
	LPInfeasible
	LPUnbounded
	LPObjLimit
	LPIterLimit
	LPError
)

func (s LPStatus) String() string {
	switch s {
	case LPNotSolved:
		return "not solved"
	case LPOptimal:
		return "optimal"
	case LPInfeasible:
		return "infeasible"
	case LPUnbounded:
		return "unbounded"
	case LPObjLimit:
		return "objective limit"
	case LPIterLimit:
		return "iteration limit"
	case LPError:
		return "error"
	}
	return "<unknown LP status>"
}

// LPState is an opaque LP basis, as produced by an LP service.
type LPState any

// Column is a column of the LP relaxation.
type Column interface {
	Name() string
}

// Row is a row of the LP relaxation. Rows stored at fork nodes are captured
// by the tree and released when the fork is freed.
type Row interface {
	Name() string
	Capture()
	Release()
}

// LP is the service managing the LP relaxation. The tree only grows, shrinks
// and (re-)solves the LP; it never inspects columns or rows.
type LP interface {
	NCols() int
	NRows() int
	Cols() []Column
	Rows() []Row
	// NewCols returns the columns added since the last size mark.
	NewCols() []Column
	// NewRows returns the rows added since the last size mark.
	NewRows() []Row
	AddCol(col Column, depth int) error
	AddRow(row Row, depth int) error
	ShrinkCols(n int) error
	ShrinkRows(n int) error
	Clear() error
	// MarkSize remembers the current size. Columns and rows added
	// afterwards are new.
	MarkSize()
	SetSizeMark(ncols, nrows int)
	// CleanupNew removes unused new columns and rows.
	CleanupNew(root bool) error
	Flushed() bool
	Solved() bool
	MarkUnflushed()
	MarkUnsolved()
	Flush() error
	Solve() (LPStatus, error)
	Status() LPStatus
	IsRelax() bool
	SetIsRelax(relax bool)
	// SolveCount returns the number of solves performed so far.
	SolveCount() int64
	State() (LPState, error)
	SetState(state LPState) error
	FreeState(state LPState)
	ClearState() error
}

// Var is a problem variable.
type Var interface {
	Name() string
	Integral() bool
	// LB and UB return the current local bounds.
	LB() float64
	UB() float64
	// RelaxValue is the value of the variable in the current relaxation
	// solution, or NaN if there is none.
	RelaxValue() float64
}

// BoundType selects the lower or upper bound of a variable.
type BoundType int8

// Bound types.
const (
	Lower BoundType = iota
	Upper
)

func (bt BoundType) String() string {
	if bt == Lower {
		return "lb"
	}
	return "ub"
}

// Inference describes the origin of a bound change. A zero value denotes a
// branching decision.
type Inference struct {
	Cons Constraint
	Prop string
	Info int
}

// Domains is the variable/bound service.
type Domains interface {
	// Apply sets the local bound of v at the given depth. It reports cutoff
	// if the domain of v becomes empty.
	Apply(v Var, bt BoundType, bound float64, depth int, inf Inference) (cutoff bool, err error)
	// Undo restores a local bound which has been set by Apply at the given
	// depth. Global bound changes made in the meantime must survive the undo.
	Undo(v Var, bt BoundType, old float64, depth int) error
	// ConflictingDepth returns the depth of the first bound change on the
	// active path which makes the requested bound infeasible, 0 if the global
	// domain conflicts, or -1 if there is no conflict.
	ConflictingDepth(v Var, bt BoundType, bound float64) int
	// ChangeGlobal changes a global bound.
	ChangeGlobal(v Var, bt BoundType, bound float64) error
}

// Constraint is a problem constraint.
type Constraint interface {
	Name() string
}

// Constraints is the constraint registry. The tree activates locally added
// constraints and disables locally deleted ones.
type Constraints interface {
	Activate(c Constraint, depth int, focus bool) error
	Deactivate(c Constraint) error
	Enable(c Constraint) error
	Disable(c Constraint) error
}

// Propagator re-derives bound tightenings at a node. Bound changes are
// reported back with Tree.AddBoundChange.
type Propagator interface {
	Propagate(t *Tree, node *Node) (cutoff bool, err error)
}

// EventQueue is the event channel of the solver. Events raised while the
// queue is delayed are batched until Process is called.
type EventQueue interface {
	Delay()
	Process() error
	Add(ev Event) error
}

// NodeSelector is a total order over open nodes. Compare returns a negative
// number if a should be processed before b.
type NodeSelector interface {
	Compare(a, b *Node) int
}

// BranchDir is the direction of a branching.
type BranchDir int8

// Branching directions.
const (
	Downwards BranchDir = iota
	Fixed
	Upwards
)

// ChildScorer calculates node selection priorities and objective estimates
// for the children created by branching.
type ChildScorer interface {
	Priority(t *Tree, v Var, dir BranchDir, target float64) float64
	Estimate(t *Tree, v Var, target float64) float64
}

// Services bundles the collaborators of a tree. LP and Domains are
// mandatory, everything else may be left nil.
type Services struct {
	LP          LP
	Domains     Domains
	Constraints Constraints
	Propagator  Propagator
	Events      EventQueue
	Selector    NodeSelector
	Scorer      ChildScorer
}
