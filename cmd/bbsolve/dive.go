package main

import (
	"math"

	"github.com/npillmayer/bbtree"
	"github.com/npillmayer/bbtree/vardom"
)

// dive is a rounding heuristic: below the focus node it fixes the most
// fractional variable to its rounded value and resolves the LP, up to a
// depth limit. If a fixing turns out infeasible, the dive backtracks one
// level and tries the opposite rounding once. Solutions found on the way
// become incumbents.
func (s *solver) dive() (err error) {
	saved := make([]float64, len(s.vars))
	for i, v := range s.vars {
		saved[i] = v.RelaxValue()
	}
	if err = s.tree.StartProbing(); err != nil {
		return err
	}
	s.dives++
	before := s.incumbent
	defer func() {
		if e := s.tree.EndProbing(); e != nil && err == nil {
			err = e
		}
		for i, v := range s.vars {
			v.SetRelaxValue(saved[i])
		}
		if s.incumbent < before {
			s.prune()
		}
	}()
	retried := false
	var feasible bool
	for d := 0; d < s.opts.DiveDepth; d++ {
		cand, ok := s.cands.Select()
		if !ok {
			obj, _ := s.lp.ObjVal()
			s.newIncumbent(obj)
			return nil
		}
		if d > 0 {
			if err = s.tree.CreateProbingNode(); err != nil {
				return err
			}
		}
		v := cand.Var.(*vardom.Variable)
		value := math.Round(cand.Value)
		feasible, err = s.probeFix(v, value)
		if err != nil {
			return err
		}
		if feasible {
			continue
		}
		if d == 0 || retried {
			return nil
		}
		// undo the failed fixing and try the other side
		retried = true
		if err = s.tree.BacktrackProbing(d - 1); err != nil {
			return err
		}
		if err = s.tree.CreateProbingNode(); err != nil {
			return err
		}
		if err = s.tree.LoadProbingLPState(); err != nil {
			return err
		}
		alt := math.Floor(cand.Value)
		if alt == value {
			alt = math.Ceil(cand.Value)
		}
		if feasible, err = s.probeFix(v, alt); err != nil || !feasible {
			return err
		}
	}
	if _, ok := s.cands.Select(); !ok {
		obj, _ := s.lp.ObjVal()
		s.newIncumbent(obj)
	}
	return nil
}

// probeFix fixes v to value at the current probing node, propagates and
// solves the LP. It reports whether the probing node may still contain an
// improving solution.
func (s *solver) probeFix(v *vardom.Variable, value float64) (bool, error) {
	node := s.tree.CurrentNode()
	tracer().Debugf("dive: fixing %s to %g at probing depth %d", v.Name(), value, s.tree.ProbingDepth())
	if value < v.LB() || value > v.UB() {
		return false, nil
	}
	if v.LB() < value {
		if err := s.tree.AddBoundChange(node, v, value, bbtree.Lower, bbtree.Inference{}); err != nil {
			return false, err
		}
	}
	if v.UB() > value {
		if err := s.tree.AddBoundChange(node, v, value, bbtree.Upper, bbtree.Inference{}); err != nil {
			return false, err
		}
	}
	cutoff, err := s.prop.Propagate(s.tree, node)
	if err != nil || cutoff {
		return false, err
	}
	status, obj, err := s.solveLP()
	if err != nil {
		return false, err
	}
	if err = s.tree.MarkProbingNodeHasLP(); err != nil {
		return false, err
	}
	if status != bbtree.LPOptimal || obj >= s.incumbent-bbtree.DefaultFeasTol {
		return false, nil
	}
	s.setRelaxValues()
	return true, nil
}
