package lpi

import (
	"fmt"
	"math"
)

// Col is an LP column: a variable with objective coefficient and bounds.
// The bounds are the current local bounds and change during the search.
type Col struct {
	name string
	obj  float64
	lb   float64
	ub   float64
}

// NewCol creates a column. Infinite bounds are given as ±Inf.
func NewCol(name string, obj, lb, ub float64) *Col {
	return &Col{name: name, obj: obj, lb: lb, ub: ub}
}

// Name returns the column name.
func (c *Col) Name() string { return c.name }

// Obj returns the objective coefficient of the column.
func (c *Col) Obj() float64 { return c.obj }

// Bounds returns the current bounds of the column.
func (c *Col) Bounds() (lb, ub float64) { return c.lb, c.ub }

func (c *Col) String() string {
	return fmt.Sprintf("%s[%g,%g]", c.name, c.lb, c.ub)
}

// Term is a single coefficient of a row.
type Term struct {
	Col  *Col
	Coef float64
}

// Row is a linear constraint lhs <= Σ coef·col <= rhs. Rows are reference
// counted: the tree captures rows stored at fork nodes.
type Row struct {
	name  string
	terms []Term
	lhs   float64
	rhs   float64
	refs  int
}

// NewRow creates a row. Use -Inf or +Inf for a missing side.
func NewRow(name string, lhs, rhs float64, terms ...Term) *Row {
	return &Row{name: name, lhs: lhs, rhs: rhs, terms: terms}
}

// Name returns the row name.
func (r *Row) Name() string { return r.name }

// Capture adds a reference to the row.
func (r *Row) Capture() { r.refs++ }

// Release removes a reference from the row.
func (r *Row) Release() {
	if r.refs <= 0 {
		panic(fmt.Sprintf("row %s released more often than captured", r.name))
	}
	r.refs--
}

// Refs returns the number of references held on the row.
func (r *Row) Refs() int { return r.refs }

// Sides returns the left and right hand side of the row.
func (r *Row) Sides() (lhs, rhs float64) { return r.lhs, r.rhs }

// Terms returns the coefficients of the row.
func (r *Row) Terms() []Term { return r.terms }

// Activity returns the value of the row's linear form for the given column
// values.
func (r *Row) Activity(value func(*Col) float64) float64 {
	a := 0.0
	for _, t := range r.terms {
		a += t.Coef * value(t.Col)
	}
	return a
}

func (r *Row) isEmpty() bool {
	for _, t := range r.terms {
		if t.Coef != 0 {
			return false
		}
	}
	return true
}

func (r *Row) String() string {
	return fmt.Sprintf("%s: %g <= %d terms <= %g", r.name, r.lhs, len(r.terms), r.rhs)
}

func isInf(x float64) bool {
	return math.IsInf(x, 0)
}
