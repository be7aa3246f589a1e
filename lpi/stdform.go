package lpi

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"
)

// colRepr expresses a structural column x as offset + Σ sign·y over
// non-negative standard form variables y.
type colRepr struct {
	offset float64
	idx    [2]int
	sign   [2]float64
	nparts int
}

// stdForm is an LP in the standard form min c·y, A·y = b, y >= 0 as
// consumed by lp.Simplex. Columns of the structural problem which appear in
// no row are not part of the matrix and are solved by inspection.
type stdForm struct {
	c      []float64
	a      *mat.Dense
	b      []float64
	cols   []colRepr
	objoff float64
	nvars  int   // number of standard form variables, including dropped ones
	keep   []int // standard form variables present in the matrix
	cost   []float64
	// set if the problem was decided while being built
	infeasible bool
	unbounded  bool
}

type stdRow struct {
	coefs map[int]float64
	rhs   float64
}

// buildStdForm converts columns with arbitrary bounds and ranged rows to
// standard form, following the slack variable conversion of GoMILP.
func buildStdForm(cols []*Col, rows []*Row, feastol float64) *stdForm {
	sf := &stdForm{cols: make([]colRepr, len(cols))}
	colindex := make(map[*Col]int, len(cols))
	var cost []float64
	var srows []stdRow
	newvar := func(c float64) int {
		cost = append(cost, c)
		return len(cost) - 1
	}
	for j, col := range cols {
		colindex[col] = j
		l, u := col.lb, col.ub
		r := &sf.cols[j]
		switch {
		case l > u+feastol:
			sf.infeasible = true
			return sf
		case !isInf(l):
			r.offset, r.nparts = l, 1
			r.idx[0], r.sign[0] = newvar(col.obj), 1
			if !isInf(u) {
				srows = append(srows, stdRow{coefs: map[int]float64{r.idx[0]: 1}, rhs: math.Max(u-l, 0)})
			}
		case !isInf(u):
			r.offset, r.nparts = u, 1
			r.idx[0], r.sign[0] = newvar(-col.obj), -1
		default:
			r.nparts = 2
			r.idx[0], r.sign[0] = newvar(col.obj), 1
			r.idx[1], r.sign[1] = newvar(-col.obj), -1
		}
		sf.objoff += col.obj * r.offset
	}
	for _, row := range rows {
		coefs := make(map[int]float64)
		constant := 0.0
		for _, t := range row.terms {
			j, ok := colindex[t.Col]
			if !ok || t.Coef == 0 {
				continue
			}
			r := sf.cols[j]
			constant += t.Coef * r.offset
			for p := 0; p < r.nparts; p++ {
				coefs[r.idx[p]] += t.Coef * r.sign[p]
			}
		}
		if !isInf(row.rhs) {
			srows = append(srows, stdRow{coefs: coefs, rhs: row.rhs - constant})
		}
		if !isInf(row.lhs) {
			// lhs <= a·y  <=>  -a·y + s = -lhs
			neg := make(map[int]float64, len(coefs))
			for k, v := range coefs {
				neg[k] = -v
			}
			srows = append(srows, stdRow{coefs: neg, rhs: -(row.lhs - constant)})
		}
	}
	sf.nvars = len(cost)
	sf.cost = cost
	used := make([]bool, len(cost))
	for _, sr := range srows {
		for k, v := range sr.coefs {
			if v != 0 {
				used[k] = true
			}
		}
	}
	for k, u := range used {
		if u {
			sf.keep = append(sf.keep, k)
		} else if cost[k] < 0 {
			sf.unbounded = true
		}
	}
	m := len(srows)
	n := len(sf.keep) + m
	if m == 0 {
		return sf
	}
	position := make(map[int]int, len(sf.keep))
	sf.c = make([]float64, n)
	for p, k := range sf.keep {
		position[k] = p
		sf.c[p] = cost[k]
	}
	sf.a = mat.NewDense(m, n, nil)
	sf.b = make([]float64, m)
	for i, sr := range srows {
		for k, v := range sr.coefs {
			if p, ok := position[k]; ok {
				sf.a.Set(i, p, v)
			}
		}
		sf.a.Set(i, len(sf.keep)+i, 1) // slack
		sf.b[i] = sr.rhs
	}
	return sf
}

// dims returns the size of the simplex matrix.
func (sf *stdForm) dims() (m, n int) {
	if sf.a == nil {
		return 0, len(sf.keep)
	}
	return sf.a.Dims()
}

// solve solves the standard form problem, optionally warm-started from a
// basis. It returns the objective value and the structural column values.
func (sf *stdForm) solve(warm []int, tol float64) (obj float64, x []float64, basis []int, err error) {
	if sf.infeasible {
		return 0, nil, nil, lp.ErrInfeasible
	}
	if sf.unbounded {
		return 0, nil, nil, lp.ErrUnbounded
	}
	y := make([]float64, sf.nvars)
	m, _ := sf.dims()
	if m > 0 {
		var opt []float64
		if warm != nil {
			_, opt, err = simplex(sf.c, sf.a, sf.b, tol, warm)
			if err != nil {
				tracer().Debugf("warm start failed (%v), solving from scratch", err)
			}
		}
		if warm == nil || err != nil {
			_, opt, err = simplex(sf.c, sf.a, sf.b, tol, nil)
		}
		if err != nil {
			return 0, nil, nil, err
		}
		for p, k := range sf.keep {
			y[k] = opt[p]
		}
		basis = basisOf(opt, m, len(sf.keep), tol)
	}
	x = make([]float64, len(sf.cols))
	obj = sf.objoff
	for j, r := range sf.cols {
		x[j] = r.offset
		for p := 0; p < r.nparts; p++ {
			x[j] += r.sign[p] * y[r.idx[p]]
			obj += sf.cost[r.idx[p]] * y[r.idx[p]]
		}
	}
	return obj, x, basis, nil
}

// basisOf guesses a basis from a basic solution: its non-zero variables,
// completed with slack variables.
func basisOf(x []float64, m, nstruct int, tol float64) []int {
	basis := make([]int, 0, m)
	inbasis := make(map[int]bool, m)
	for i, v := range x {
		if len(basis) == m {
			break
		}
		if v > tol {
			basis = append(basis, i)
			inbasis[i] = true
		}
	}
	for i := 0; len(basis) < m && i < m; i++ {
		if s := nstruct + i; !inbasis[s] {
			basis = append(basis, s)
			inbasis[s] = true
		}
	}
	return basis
}

// errSimplexPanic is returned if the simplex code panics on a degenerate
// problem shape.
var errSimplexPanic = errors.New("simplex panicked")

func simplex(c []float64, a mat.Matrix, b []float64, tol float64, basis []int) (z float64, x []float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", errSimplexPanic, r)
		}
	}()
	return lp.Simplex(c, a, b, tol, basis)
}
