package bbtree

import (
	"fmt"
	"math"
)

// Branching holds the children created by Branch. Children which have not
// been created are nil.
type Branching struct {
	Down  *Node // child with tightened upper bound
	Fixed *Node // child with variable fixed to the branching value
	Up    *Node // child with tightened lower bound
}

// Branch splits the focus node on variable v at value val. Passing NaN for
// val branches on the relaxation value of v, which is mandatory for
// continuous variables.
//
// For a fractional value x two children x <= floor(x) and x >= ceil(x) are
// created. For an integral value strictly inside the domain three children
// x <= x-1, x = x and x >= x+1 are created, omitting empty ones. If the value
// equals one of the bounds of a bounded domain, the domain is split at its
// center instead.
func (t *Tree) Branch(v Var, val float64) (Branching, error) {
	var br Branching
	if t.focusnode == nil {
		return br, ErrNoFocus
	}
	if t.IsProbing() {
		return br, fmt.Errorf("%w: cannot branch during probing", ErrInvalidState)
	}
	cfg := t.config
	lb, ub := v.LB(), v.UB()
	if cfg.isEQ(lb, ub) {
		return br, fmt.Errorf("%w: variable %s is fixed", ErrInvalidBranching, v.Name())
	}
	validval := !math.IsNaN(val)
	if !validval {
		val = v.RelaxValue()
	}
	downub, fixval, uplb := math.NaN(), math.NaN(), math.NaN()
	if !v.Integral() {
		if math.IsNaN(val) {
			return br, fmt.Errorf("%w: continuous variable %s needs a branching point", ErrInvalidBranching, v.Name())
		}
		if !(lb < val && val < ub) {
			return br, fmt.Errorf("%w: branching point %g not inside domain [%g,%g] of %s",
				ErrInvalidBranching, val, lb, ub, v.Name())
		}
		downub, uplb = val, val
	} else {
		if math.IsNaN(val) {
			return br, fmt.Errorf("%w: no relaxation value for %s", ErrInvalidBranching, v.Name())
		}
		if cfg.isLT(val, lb) || cfg.isLT(ub, val) {
			return br, fmt.Errorf("%w: branching value %g outside domain [%g,%g] of %s",
				ErrInvalidBranching, val, lb, ub, v.Name())
		}
		switch {
		case !cfg.isInfinity(-lb) && !cfg.isInfinity(ub) &&
			(cfg.isFeasEQ(val, lb) || cfg.isFeasEQ(val, ub)):
			// x <= c and x >= c+1 with c the center of the domain;
			// the value stays in the smaller interval
			center := (lb + ub) / 2
			if val <= center {
				downub = cfg.feasFloor(center)
				uplb = downub + 1
			} else {
				uplb = cfg.feasCeil(center)
				downub = uplb - 1
			}
		case cfg.isFeasIntegral(val):
			fixval = cfg.feasCeil(val)
			if cfg.isGE(fixval-1, lb) {
				downub = fixval - 1
			}
			if cfg.isLE(fixval+1, ub) {
				uplb = fixval + 1
			}
		default:
			downub = cfg.feasFloor(val)
			uplb = downub + 1
		}
	}
	T().Debugf("branching on %s at %g: down <= %g, fix = %g, up >= %g", v.Name(), val, downub, fixval, uplb)
	var err error
	if !math.IsNaN(downub) {
		if br.Down, err = t.createBranchChild(v, Downwards, downub); err != nil {
			return br, err
		}
		if err = t.AddBoundChange(br.Down, v, downub, Upper, Inference{}); err != nil {
			return br, err
		}
	}
	if !math.IsNaN(fixval) {
		if br.Fixed, err = t.createBranchChild(v, Fixed, fixval); err != nil {
			return br, err
		}
		if !cfg.isFeasEQ(lb, fixval) {
			if err = t.AddBoundChange(br.Fixed, v, fixval, Lower, Inference{}); err != nil {
				return br, err
			}
		}
		if !cfg.isFeasEQ(ub, fixval) {
			if err = t.AddBoundChange(br.Fixed, v, fixval, Upper, Inference{}); err != nil {
				return br, err
			}
		}
	}
	if !math.IsNaN(uplb) {
		if br.Up, err = t.createBranchChild(v, Upwards, uplb); err != nil {
			return br, err
		}
		if err = t.AddBoundChange(br.Up, v, uplb, Lower, Inference{}); err != nil {
			return br, err
		}
	}
	t.stats.Branchings++
	err = t.emit(NodeBranched, t.focusnode)
	return br, err
}

func (t *Tree) createBranchChild(v Var, dir BranchDir, target float64) (*Node, error) {
	prio := t.scorer.Priority(t, v, dir, target)
	estimate := t.scorer.Estimate(t, v, target)
	return t.CreateChild(prio, estimate)
}

// parentScorer is the default child scorer: children are equally
// prioritized, except fixing children which come first, and inherit the
// estimate of the focus node.
type parentScorer struct{}

func (parentScorer) Priority(t *Tree, v Var, dir BranchDir, target float64) float64 {
	if dir == Fixed {
		return math.Inf(1)
	}
	return 0
}

func (parentScorer) Estimate(t *Tree, v Var, target float64) float64 {
	if t.focusnode == nil {
		return math.Inf(-1)
	}
	return t.focusnode.estimate
}

// --- Node queries ----------------------------------------------------------

// PrioChild returns the child of the focus node with the highest node
// selection priority.
func (t *Tree) PrioChild() *Node {
	return prioNode(t.children, t.childrenprio)
}

// PrioSibling returns the sibling of the focus node with the highest node
// selection priority.
func (t *Tree) PrioSibling() *Node {
	return prioNode(t.siblings, t.siblingsprio)
}

func prioNode(nodes []*Node, prio []float64) *Node {
	var best *Node
	bestprio := math.Inf(-1)
	for i, node := range nodes {
		if best == nil || prio[i] > bestprio {
			best, bestprio = node, prio[i]
		}
	}
	return best
}

// ChildPriority returns the node selection priority of a child or sibling.
func (t *Tree) ChildPriority(node *Node) float64 {
	switch node.kind {
	case Child:
		return t.childrenprio[node.arraypos()]
	case Sibling:
		return t.siblingsprio[node.arraypos()]
	}
	return 0
}

// BestChild returns the best child of the focus node with respect to the
// node selector.
func (t *Tree) BestChild() *Node {
	return t.bestOf(t.children...)
}

// BestSibling returns the best sibling of the focus node with respect to the
// node selector.
func (t *Tree) BestSibling() *Node {
	return t.bestOf(t.siblings...)
}

// BestLeaf returns the best leaf with respect to the node selector.
func (t *Tree) BestLeaf() *Node {
	return t.leaves.first()
}

// BestNode returns the best open node with respect to the node selector.
func (t *Tree) BestNode() *Node {
	return t.bestOf(t.BestChild(), t.BestSibling(), t.BestLeaf())
}

func (t *Tree) bestOf(nodes ...*Node) *Node {
	var best *Node
	for _, node := range nodes {
		if node == nil {
			continue
		}
		if best == nil || t.selector.Compare(node, best) < 0 {
			best = node
		}
	}
	return best
}

// LowerboundNode returns the open node with minimal lower bound, including
// the focus node.
func (t *Tree) LowerboundNode() *Node {
	var best *Node
	consider := func(node *Node) {
		if node != nil && (best == nil || node.lowerbound < best.lowerbound) {
			best = node
		}
	}
	consider(t.leaves.lowerboundNode())
	for _, node := range t.children {
		consider(node)
	}
	for _, node := range t.siblings {
		consider(node)
	}
	consider(t.focusnode)
	return best
}

// LowerBound returns the minimal lower bound of all open nodes, or +Inf if
// there are none.
func (t *Tree) LowerBound() float64 {
	if node := t.LowerboundNode(); node != nil {
		return node.lowerbound
	}
	return math.Inf(1)
}
