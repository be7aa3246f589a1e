package vardom

import (
	"math"

	"github.com/npillmayer/bbtree"
)

// DefaultMaxRounds is the number of propagation rounds per node if not
// configured otherwise.
const DefaultMaxRounds = 10

// Propagator tightens variable bounds from the activity bounds of the active
// linear constraints of a registry. It implements bbtree.Propagator.
type Propagator struct {
	Store     *Store
	Registry  *Registry
	MaxRounds int
	// MinImprovement is the relative amount a bound has to improve to be
	// reported.
	MinImprovement float64
}

var _ bbtree.Propagator = (*Propagator)(nil)

// NewPropagator creates a propagator for the constraints of reg over the
// variables of store.
func NewPropagator(store *Store, reg *Registry) *Propagator {
	return &Propagator{
		Store:          store,
		Registry:       reg,
		MaxRounds:      DefaultMaxRounds,
		MinImprovement: 1e-3,
	}
}

// activityBounds holds the finite part of an activity bound and the number
// of infinite contributions.
type activityBounds struct {
	min, max         float64
	ninfmin, ninfmax int
}

func (p *Propagator) activity(c *LinearCons, inf float64) activityBounds {
	var a activityBounds
	for _, t := range c.terms {
		lo, hi := contribution(t, inf)
		if math.IsInf(lo, -1) {
			a.ninfmin++
		} else {
			a.min += lo
		}
		if math.IsInf(hi, 1) {
			a.ninfmax++
		} else {
			a.max += hi
		}
	}
	return a
}

// contribution returns the minimal and maximal value of a term over the local
// domain of its variable.
func contribution(t Term, inf float64) (lo, hi float64) {
	lb, ub := t.Var.lb, t.Var.ub
	if lb <= -inf {
		lb = math.Inf(-1)
	}
	if ub >= inf {
		ub = math.Inf(1)
	}
	if t.Coef >= 0 {
		lo, hi = t.Coef*lb, t.Coef*ub
	} else {
		lo, hi = t.Coef*ub, t.Coef*lb
	}
	if t.Coef == 0 {
		lo, hi = 0, 0
	}
	return
}

// residual returns the activity bound without the contribution of a term, or
// an infinite value if it is not bounded.
func residual(sum float64, ninf int, contrib float64) float64 {
	switch {
	case ninf == 0:
		return sum - contrib
	case ninf == 1 && math.IsInf(contrib, 0):
		return sum
	}
	return math.Inf(int(math.Copysign(1, contrib)))
}

// Propagate runs bound tightening on the active constraints until no bound
// changes or the round limit is hit. Bound changes are added to node with
// the tree, which has to hold node as its current node.
func (p *Propagator) Propagate(t *bbtree.Tree, node *bbtree.Node) (cutoff bool, err error) {
	cfg := t.Config()
	rounds := p.MaxRounds
	if rounds <= 0 {
		rounds = DefaultMaxRounds
	}
	for r := 0; r < rounds; r++ {
		changed := false
		for _, c := range p.Registry.Active() {
			var ch bool
			if ch, cutoff, err = p.propagateCons(t, node, c, cfg); err != nil || cutoff {
				return
			}
			if node.IsCutoff() {
				return true, nil
			}
			changed = changed || ch
		}
		if !changed {
			break
		}
	}
	return false, nil
}

func (p *Propagator) propagateCons(t *bbtree.Tree, node *bbtree.Node, c *LinearCons,
	cfg bbtree.Config) (changed, cutoff bool, err error) {
	//
	inf, tol := cfg.Infinity, cfg.FeasTol
	a := p.activity(c, inf)
	hasLhs, hasRhs := c.lhs > -inf, c.rhs < inf
	if hasRhs && a.ninfmin == 0 && a.min > c.rhs+tol || hasLhs && a.ninfmax == 0 && a.max < c.lhs-tol {
		tracer().Debugf("%s infeasible at %s: activity [%g,%g]", c.name, node, a.min, a.max)
		return false, true, nil
	}
	for _, term := range c.terms {
		if term.Coef == 0 {
			continue
		}
		lo, hi := contribution(term, inf)
		if hasRhs { // coef*x <= rhs - minresidual
			if rest := residual(a.min, a.ninfmin, lo); !math.IsInf(rest, 0) {
				bound := (c.rhs - rest) / term.Coef
				var ch bool
				if term.Coef > 0 {
					ch, cutoff, err = p.tighten(t, node, c, term.Var, bbtree.Upper, bound, cfg)
				} else {
					ch, cutoff, err = p.tighten(t, node, c, term.Var, bbtree.Lower, bound, cfg)
				}
				if err != nil || cutoff {
					return
				}
				changed = changed || ch
			}
		}
		if hasLhs { // coef*x >= lhs - maxresidual
			if rest := residual(a.max, a.ninfmax, hi); !math.IsInf(rest, 0) {
				bound := (c.lhs - rest) / term.Coef
				var ch bool
				if term.Coef > 0 {
					ch, cutoff, err = p.tighten(t, node, c, term.Var, bbtree.Lower, bound, cfg)
				} else {
					ch, cutoff, err = p.tighten(t, node, c, term.Var, bbtree.Upper, bound, cfg)
				}
				if err != nil || cutoff {
					return
				}
				changed = changed || ch
			}
		}
		if changed {
			// activities are stale after a bound change
			a = p.activity(c, inf)
		}
	}
	return
}

func (p *Propagator) tighten(t *bbtree.Tree, node *bbtree.Node, c *LinearCons, v *Variable,
	bt bbtree.BoundType, bound float64, cfg bbtree.Config) (changed, cutoff bool, err error) {
	//
	if v.integral {
		if bt == bbtree.Lower {
			bound = math.Ceil(bound - cfg.FeasTol)
		} else {
			bound = math.Floor(bound + cfg.FeasTol)
		}
	}
	old := v.ub
	if bt == bbtree.Lower {
		old = v.lb
	}
	if !p.improves(bt, old, bound, cfg) {
		return false, false, nil
	}
	if bt == bbtree.Upper && bound < v.lb-cfg.FeasTol || bt == bbtree.Lower && bound > v.ub+cfg.FeasTol {
		tracer().Debugf("%s empties domain of %s at %s", c.name, v, node)
		return false, true, nil
	}
	tracer().Debugf("%s tightens %s %s to %g", c.name, v.name, bt, bound)
	err = t.AddBoundChange(node, v, bound, bt, bbtree.Inference{Cons: c, Prop: "linear"})
	return err == nil, false, err
}

func (p *Propagator) improves(bt bbtree.BoundType, old, bound float64, cfg bbtree.Config) bool {
	if math.IsInf(old, 0) || math.Abs(old) >= cfg.Infinity {
		return math.Abs(bound) < cfg.Infinity
	}
	eps := p.MinImprovement * math.Max(1, math.Abs(old))
	eps = math.Max(eps, cfg.FeasTol)
	if bt == bbtree.Lower {
		return bound > old+eps
	}
	return bound < old-eps
}
