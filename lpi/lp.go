package lpi

import (
	"errors"
	"fmt"
	"math"

	"github.com/npillmayer/bbtree"
	"gonum.org/v1/gonum/optimize/convex/lp"
)

var (
	// ErrForeignObject signals a column or row not created by this package.
	ErrForeignObject = errors.New("lpi: foreign column or row")
	// ErrShrink signals an attempt to shrink the LP beyond its size.
	ErrShrink = errors.New("lpi: cannot shrink LP")
	// ErrNotSolved signals a query for a solution of an unsolved LP.
	ErrNotSolved = errors.New("lpi: LP not solved")
	// ErrNumerics signals numerical trouble of the simplex method.
	ErrNumerics = errors.New("lpi: numerical troubles")
)

// Basis is the LP state handed out by an LP. It is a set of standard form
// variables which has been optimal for the dimensions it was created with.
type Basis struct {
	m, n int
	idx  []int
}

// LP is an LP relaxation. It implements bbtree.LP.
type LP struct {
	cols               []*Col
	rows               []*Row
	markcols, markrows int
	flushed, solved    bool
	relax              bool
	status             bbtree.LPStatus
	nsolves            int64
	std                *stdForm
	current            *Basis // basis used to warm-start the next solve
	values             map[*Col]float64
	obj                float64
	tol                float64
	nstates, nfreed    int
}

// New creates an empty LP.
func New() *LP {
	return &LP{relax: true, tol: 1e-9}
}

var _ bbtree.LP = (*LP)(nil)

func (l *LP) NCols() int { return len(l.cols) }
func (l *LP) NRows() int { return len(l.rows) }

func (l *LP) Cols() []bbtree.Column { return columns(l.cols) }
func (l *LP) Rows() []bbtree.Row    { return rows(l.rows) }

// NewCols returns the columns added since the last size mark.
func (l *LP) NewCols() []bbtree.Column {
	return columns(l.cols[min(l.markcols, len(l.cols)):])
}

// NewRows returns the rows added since the last size mark.
func (l *LP) NewRows() []bbtree.Row {
	return rows(l.rows[min(l.markrows, len(l.rows)):])
}

func columns(cols []*Col) []bbtree.Column {
	cs := make([]bbtree.Column, len(cols))
	for i, c := range cols {
		cs[i] = c
	}
	return cs
}

func rows(rows []*Row) []bbtree.Row {
	rs := make([]bbtree.Row, len(rows))
	for i, r := range rows {
		rs[i] = r
	}
	return rs
}

// AddCol appends a column created by NewCol.
func (l *LP) AddCol(col bbtree.Column, depth int) error {
	c, ok := col.(*Col)
	if !ok {
		return fmt.Errorf("%w: column %s", ErrForeignObject, col.Name())
	}
	l.cols = append(l.cols, c)
	tracer().Debugf("LP: added column %s at depth %d", c, depth)
	l.MarkUnflushed()
	return nil
}

// AddRow appends a row created by NewRow.
func (l *LP) AddRow(row bbtree.Row, depth int) error {
	r, ok := row.(*Row)
	if !ok {
		return fmt.Errorf("%w: row %s", ErrForeignObject, row.Name())
	}
	l.rows = append(l.rows, r)
	tracer().Debugf("LP: added row %s at depth %d", r, depth)
	l.MarkUnflushed()
	return nil
}

// ShrinkCols removes all columns beyond the first n.
func (l *LP) ShrinkCols(n int) error {
	if n < 0 || n > len(l.cols) {
		return fmt.Errorf("%w: %d columns to %d", ErrShrink, len(l.cols), n)
	}
	if n == len(l.cols) {
		return nil
	}
	clear(l.cols[n:])
	l.cols = l.cols[:n]
	l.markcols = min(l.markcols, n)
	l.MarkUnflushed()
	return nil
}

// ShrinkRows removes all rows beyond the first n.
func (l *LP) ShrinkRows(n int) error {
	if n < 0 || n > len(l.rows) {
		return fmt.Errorf("%w: %d rows to %d", ErrShrink, len(l.rows), n)
	}
	if n == len(l.rows) {
		return nil
	}
	clear(l.rows[n:])
	l.rows = l.rows[:n]
	l.markrows = min(l.markrows, n)
	l.MarkUnflushed()
	return nil
}

// Clear removes all columns and rows.
func (l *LP) Clear() error {
	l.cols, l.rows = nil, nil
	l.markcols, l.markrows = 0, 0
	l.MarkUnflushed()
	return nil
}

// MarkSize remembers the current size of the LP.
func (l *LP) MarkSize() {
	l.markcols, l.markrows = len(l.cols), len(l.rows)
}

// SetSizeMark sets the size mark explicitly.
func (l *LP) SetSizeMark(ncols, nrows int) {
	l.markcols, l.markrows = ncols, nrows
}

// CleanupNew removes new rows without non-zero coefficients.
func (l *LP) CleanupNew(root bool) error {
	mark := min(l.markrows, len(l.rows))
	kept := l.rows[:mark]
	for _, r := range l.rows[mark:] {
		if r.isEmpty() && r.refs == 0 {
			tracer().Debugf("LP: removing empty row %s", r.name)
			continue
		}
		kept = append(kept, r)
	}
	if len(kept) < len(l.rows) {
		clear(l.rows[len(kept):])
		l.rows = kept
		l.MarkUnflushed()
	}
	return nil
}

func (l *LP) Flushed() bool { return l.flushed }
func (l *LP) Solved() bool  { return l.solved }

// MarkUnflushed marks the LP as modified since it was last solved.
func (l *LP) MarkUnflushed() {
	l.flushed, l.solved = false, false
	l.std = nil
}

func (l *LP) MarkUnsolved() { l.solved = false }

// Flush builds the standard form of the LP.
func (l *LP) Flush() error {
	if !l.flushed {
		l.std = buildStdForm(l.cols, l.rows, 1e-6)
		l.flushed = true
	}
	return nil
}

// Solve solves the LP, warm-starting from the current basis if it fits.
func (l *LP) Solve() (bbtree.LPStatus, error) {
	if err := l.Flush(); err != nil {
		return bbtree.LPError, err
	}
	l.nsolves++
	var warm []int
	m, n := l.std.dims()
	if l.current != nil && l.current.m == m && l.current.n == n {
		warm = l.current.idx
	}
	obj, x, basis, err := l.std.solve(warm, l.tol)
	l.solved = true
	l.values = nil
	switch {
	case err == nil:
		l.status = bbtree.LPOptimal
		l.obj = obj
		l.values = make(map[*Col]float64, len(l.cols))
		for j, c := range l.cols {
			l.values[c] = x[j]
		}
		if basis != nil {
			l.current = &Basis{m: m, n: n, idx: basis}
		}
	case errors.Is(err, lp.ErrInfeasible):
		l.status = bbtree.LPInfeasible
		l.obj = math.Inf(1)
	case errors.Is(err, lp.ErrUnbounded):
		l.status = bbtree.LPUnbounded
		l.obj = math.Inf(-1)
	default:
		l.status = bbtree.LPError
		l.solved = false
		tracer().Errorf("LP: simplex failed: %v", err)
		return l.status, fmt.Errorf("%w: %v", ErrNumerics, err)
	}
	tracer().Debugf("LP: solved %d columns, %d rows: %s, obj=%g", len(l.cols), len(l.rows), l.status, l.obj)
	return l.status, nil
}

func (l *LP) Status() bbtree.LPStatus { return l.status }
func (l *LP) IsRelax() bool           { return l.relax }
func (l *LP) SetIsRelax(relax bool)   { l.relax = relax }
func (l *LP) SolveCount() int64       { return l.nsolves }

// State returns a copy of the current basis, or nil if there is none.
func (l *LP) State() (bbtree.LPState, error) {
	if l.current == nil {
		return nil, nil
	}
	l.nstates++
	return &Basis{m: l.current.m, n: l.current.n, idx: append([]int(nil), l.current.idx...)}, nil
}

// SetState makes a basis the start basis of the next solve.
func (l *LP) SetState(state bbtree.LPState) error {
	b, ok := state.(*Basis)
	if !ok {
		return fmt.Errorf("%w: LP state %T", ErrForeignObject, state)
	}
	l.current = b
	return nil
}

// FreeState releases a basis handed out by State.
func (l *LP) FreeState(state bbtree.LPState) {
	if state != nil {
		l.nfreed++
	}
}

// ClearState drops the current basis.
func (l *LP) ClearState() error {
	l.current = nil
	return nil
}

// LiveStates returns the number of bases handed out and not yet freed.
func (l *LP) LiveStates() int {
	return l.nstates - l.nfreed
}

// ChgBounds changes the bounds of a column.
func (l *LP) ChgBounds(col *Col, lb, ub float64) {
	if col.lb == lb && col.ub == ub {
		return
	}
	col.lb, col.ub = lb, ub
	l.MarkUnflushed()
}

// ObjVal returns the objective value of the last solve.
func (l *LP) ObjVal() (float64, error) {
	if !l.solved {
		return 0, ErrNotSolved
	}
	return l.obj, nil
}

// Value returns the value of a column in the last optimal solution, or NaN.
func (l *LP) Value(col *Col) float64 {
	if v, ok := l.values[col]; ok && l.solved {
		return v
	}
	return math.NaN()
}
