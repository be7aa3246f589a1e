package nodesel

import (
	"fmt"
	"math"

	"github.com/npillmayer/bbtree"
)

// ChildSel selects the formula for child priorities.
type ChildSel byte

// Child selection rules.
const (
	PreferDown       ChildSel = 'd' // down children first
	PreferUp         ChildSel = 'u' // up children first
	PseudoCost       ChildSel = 'p' // smaller pseudocost increase first
	Inference        ChildSel = 'i' // more inferences first
	LowerBoundGap    ChildSel = 'l' // smaller distance to the relaxation value first
	RootDeviation    ChildSel = 'r' // follow the drift from the root LP solution
	HybridInfRootDev ChildSel = 'h' // inferences, then root deviation
)

func (cs ChildSel) valid() bool {
	switch cs {
	case PreferDown, PreferUp, PseudoCost, Inference, LowerBoundGap, RootDeviation, HybridInfRootDev:
		return true
	}
	return false
}

// history holds the observed outcome of branchings on a variable in one
// direction.
type history struct {
	count  int
	delta  float64 // sum of distances between relaxation value and target
	gain   float64 // sum of lower bound increases
	infers int
}

func (h history) pseudocost() (float64, bool) {
	if h.count == 0 || h.delta <= 0 {
		return 0, false
	}
	return h.gain / h.delta, true
}

func (h history) avgInferences() float64 {
	if h.count == 0 {
		return 0
	}
	return float64(h.infers) / float64(h.count)
}

// Scorer calculates the priorities and estimates of children created by
// branching. It implements bbtree.ChildScorer.
//
// Fixing children always get the highest priority.
type Scorer struct {
	Mode    ChildSel
	hist    map[string]*[2]history // per variable, down and up
	total   [2]history
	rootsol map[string]float64
}

var _ bbtree.ChildScorer = (*Scorer)(nil)

// NewScorer creates a scorer using the given child selection rule.
func NewScorer(mode ChildSel) (*Scorer, error) {
	if !mode.valid() {
		return nil, fmt.Errorf("nodesel: unknown child selection rule %q", rune(mode))
	}
	return &Scorer{
		Mode:    mode,
		hist:    make(map[string]*[2]history),
		rootsol: make(map[string]float64),
	}, nil
}

// SetRootSolution remembers the value of a variable in the root relaxation.
func (s *Scorer) SetRootSolution(v bbtree.Var, x float64) {
	s.rootsol[v.Name()] = x
}

func side(dir bbtree.BranchDir) int {
	if dir == bbtree.Upwards {
		return 1
	}
	return 0
}

// Observe records the outcome of a branching on v in direction dir. delta
// is the distance between the relaxation value and the branching target,
// gain the increase of the lower bound of the child, ninfer the number of
// bound changes derived by propagation in the child.
func (s *Scorer) Observe(v bbtree.Var, dir bbtree.BranchDir, delta, gain float64, ninfer int) {
	if dir == bbtree.Fixed {
		return
	}
	h := s.hist[v.Name()]
	if h == nil {
		h = &[2]history{}
		s.hist[v.Name()] = h
	}
	i := side(dir)
	delta = math.Abs(delta)
	if math.IsInf(gain, 0) || math.IsNaN(gain) || gain < 0 {
		gain = 0
	}
	for _, rec := range []*history{&h[i], &s.total[i]} {
		rec.count++
		rec.delta += delta
		rec.gain += gain
		rec.infers += ninfer
	}
	tracer().Debugf("branching history of %s/%d: %d obs, pseudocost %g", v.Name(), i, h[i].count, s.Pseudocost(v, dir))
}

// Pseudocost returns the average lower bound gain per unit change of v in
// direction dir. Variables without history get the average over all
// variables, or 1 if there is no history at all.
func (s *Scorer) Pseudocost(v bbtree.Var, dir bbtree.BranchDir) float64 {
	i := side(dir)
	if h := s.hist[v.Name()]; h != nil {
		if pc, ok := h[i].pseudocost(); ok {
			return pc
		}
	}
	if pc, ok := s.total[i].pseudocost(); ok {
		return pc
	}
	return 1
}

// Inferences returns the average number of inferences after branching on v
// in direction dir.
func (s *Scorer) Inferences(v bbtree.Var, dir bbtree.BranchDir) float64 {
	if h := s.hist[v.Name()]; h != nil {
		return h[side(dir)].avgInferences()
	}
	return 0
}

func relaxOr(v bbtree.Var, target float64) float64 {
	if x := v.RelaxValue(); !math.IsNaN(x) {
		return x
	}
	return target
}

// Priority returns the node selection priority of a child of the focus node
// created by branching on v in direction dir at target.
func (s *Scorer) Priority(t *bbtree.Tree, v bbtree.Var, dir bbtree.BranchDir, target float64) float64 {
	if dir == bbtree.Fixed {
		return math.Inf(1)
	}
	x := relaxOr(v, target)
	sign := 1.0 // orients a preference for going down
	other := bbtree.Upwards
	if dir == bbtree.Upwards {
		sign, other = -1, bbtree.Downwards
	}
	switch s.Mode {
	case PreferDown:
		return sign
	case PreferUp:
		return -sign
	case PseudoCost:
		return -s.Pseudocost(v, dir) * math.Abs(x-target)
	case Inference:
		return s.Inferences(v, dir) - s.Inferences(v, other)
	case LowerBoundGap:
		return -math.Abs(x - target)
	case RootDeviation:
		return s.rootDeviation(v, x, sign)
	case HybridInfRootDev:
		inf := s.Inferences(v, dir) - s.Inferences(v, other)
		if inf != 0 {
			return inf
		}
		return s.rootDeviation(v, x, sign)
	}
	return 0
}

// rootDeviation prefers the direction in which the relaxation value has
// drifted away from its root value.
func (s *Scorer) rootDeviation(v bbtree.Var, x, sign float64) float64 {
	r, ok := s.rootsol[v.Name()]
	if !ok {
		return 0
	}
	return sign * (r - x)
}

// Estimate returns the objective estimate of a child: the lower bound of the
// focus node plus the pseudocost of moving v from its relaxation value to
// target.
func (s *Scorer) Estimate(t *bbtree.Tree, v bbtree.Var, target float64) float64 {
	focus := t.FocusNode()
	if focus == nil {
		return math.Inf(-1)
	}
	x := v.RelaxValue()
	if math.IsNaN(x) {
		return focus.Estimate()
	}
	dir := bbtree.Downwards
	if target > x {
		dir = bbtree.Upwards
	}
	return focus.LowerBound() + s.Pseudocost(v, dir)*math.Abs(x-target)
}
