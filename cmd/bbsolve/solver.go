package main

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/npillmayer/bbtree"
	"github.com/npillmayer/bbtree/branchrule"
	"github.com/npillmayer/bbtree/events"
	"github.com/npillmayer/bbtree/lpi"
	"github.com/npillmayer/bbtree/metrics"
	"github.com/npillmayer/bbtree/nodesel"
	"github.com/npillmayer/bbtree/vardom"
)

// Status is the outcome of a run.
type Status string

// Run states.
const (
	Optimal    Status = "optimal"
	Infeasible Status = "infeasible"
	Unbounded  Status = "unbounded"
	NodeLimit  Status = "node limit"
)

// Result is the outcome of a branch-and-bound run.
type Result struct {
	Status    Status
	Objective float64 // in the sense of the problem
	Bound     float64 // dual bound in the sense of the problem
	Values    []float64
	Nodes     int
	LPs       int64
	Dives     int
	Elapsed   time.Duration
	Stats     bbtree.Statistics
}

// branchInfo remembers how a node has been created, for learning
// pseudocosts once the node's LP is solved.
type branchInfo struct {
	v        *vardom.Variable
	dir      bbtree.BranchDir
	delta    float64
	parentlb float64
}

// solver runs branch-and-bound for a problem over a search tree.
type solver struct {
	prob      *Problem
	opts      Options
	sign      float64 // -1 for maximization
	tree      *bbtree.Tree
	lp        *lpi.LP
	store     *vardom.Store
	registry  *vardom.Registry
	prop      *vardom.Propagator
	queue     *events.Queue
	scorer    *nodesel.Scorer
	cands     *branchrule.Candidates
	rec       *metrics.Recorder
	vars      []*vardom.Variable
	cols      []*lpi.Col
	rows      []*lpi.Row
	branched  map[int64]branchInfo
	incumbent float64
	best      []float64
	nodes     int
	dives     int
}

// newSolver sets up the tree and its services for a problem. rec may be nil.
func newSolver(prob *Problem, queue *events.Queue, rec *metrics.Recorder) (*solver, error) {
	s := &solver{
		prob:      prob,
		opts:      prob.Options,
		sign:      1,
		lp:        lpi.New(),
		queue:     queue,
		rec:       rec,
		branched:  make(map[int64]branchInfo),
		incumbent: math.Inf(1),
	}
	if prob.Maximize() {
		s.sign = -1
	}
	s.store = vardom.NewStore(queue)
	s.registry = vardom.NewRegistry()
	byname := make(map[string]int, len(prob.Variables))
	for i, spec := range prob.Variables {
		lb, ub := spec.Bounds()
		v, err := s.store.NewVariable(spec.Name, spec.Integral(), s.sign*spec.Obj, lb, ub)
		if err != nil {
			return nil, err
		}
		s.vars = append(s.vars, v)
		s.cols = append(s.cols, lpi.NewCol(spec.Name, v.Obj(), v.LB(), v.UB()))
		byname[spec.Name] = i
	}
	for _, spec := range prob.Constraints {
		lhs, rhs := spec.Sides()
		terms := make([]vardom.Term, len(spec.Terms))
		lpterms := make([]lpi.Term, len(spec.Terms))
		for j, t := range spec.Terms {
			i := byname[t.Var]
			terms[j] = vardom.Term{Var: s.vars[i], Coef: t.Coef}
			lpterms[j] = lpi.Term{Col: s.cols[i], Coef: t.Coef}
		}
		s.registry.Add(vardom.NewLinearCons(spec.Name, lhs, rhs, terms...))
		s.rows = append(s.rows, lpi.NewRow(spec.Name, lhs, rhs, lpterms...))
	}
	s.prop = vardom.NewPropagator(s.store, s.registry)
	queue.Register(bbtree.BoundEvents, s.syncBounds)

	sel, err := nodesel.ByName(s.opts.NodeSel)
	if err != nil {
		return nil, err
	}
	if len(s.opts.ChildSel) != 1 {
		return nil, fmt.Errorf("%w: child selection rule %q", errProblem, s.opts.ChildSel)
	}
	if s.scorer, err = nodesel.NewScorer(nodesel.ChildSel(s.opts.ChildSel[0])); err != nil {
		return nil, err
	}
	rule, err := branchrule.ParseRule(s.opts.Branching)
	if err != nil {
		return nil, err
	}
	vars := make([]bbtree.Var, len(s.vars))
	for i, v := range s.vars {
		vars[i] = v
	}
	if s.cands, err = branchrule.NewCandidates(vars, rule, s.scorer); err != nil {
		return nil, err
	}
	s.tree, err = bbtree.New(bbtree.Config{SubrootInterval: s.opts.SubrootInterval}, bbtree.Services{
		LP:          s.lp,
		Domains:     s.store,
		Constraints: s.registry,
		Propagator:  s.prop,
		Events:      queue,
		Selector:    sel,
		Scorer:      s.scorer,
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// syncBounds keeps the column bounds of the LP in line with the local
// bounds of the variables.
func (s *solver) syncBounds(ev bbtree.Event) error {
	v, ok := ev.Var.(*vardom.Variable)
	if !ok {
		return fmt.Errorf("%w: bound event for foreign variable %s", vardom.ErrUnknownVariable, ev.Var.Name())
	}
	s.lp.ChgBounds(s.cols[v.Index()], v.LB(), v.UB())
	return nil
}

// run processes nodes until the tree is exhausted or the node limit is hit.
func (s *solver) run() (*Result, error) {
	start := time.Now()
	root, err := s.tree.CreateRoot()
	if err != nil {
		return nil, err
	}
	res := &Result{Status: Optimal}
	for node := root; node != nil; node = s.tree.BestNode() {
		if s.nodes >= s.opts.MaxNodes {
			res.Status = NodeLimit
			break
		}
		cutoff, err := s.tree.Focus(node)
		if err != nil {
			return nil, err
		}
		if cutoff {
			continue
		}
		s.nodes++
		unbounded, err := s.processFocus()
		if err != nil {
			return nil, err
		}
		if unbounded {
			res.Status = Unbounded
			break
		}
		if s.opts.Check {
			if err := s.tree.Check(); err != nil {
				return nil, err
			}
		}
	}
	if res.Status == Optimal && math.IsInf(s.incumbent, 1) {
		res.Status = Infeasible
	}
	res.Objective = s.sign * s.incumbent
	res.Bound = res.Objective
	if res.Status == NodeLimit {
		res.Bound = s.sign * math.Min(s.tree.LowerBound(), s.incumbent)
	}
	res.Values = s.best
	res.Nodes = s.nodes
	res.LPs = s.lp.SolveCount()
	res.Dives = s.dives
	res.Elapsed = time.Since(start)
	res.Stats = s.tree.Statistics()
	tracer().Infof("%s after %d nodes, %d LPs: objective %g", res.Status, res.Nodes, res.LPs, res.Objective)
	return res, nil
}

// processFocus propagates the focus node, solves its LP, and either prunes
// it, records a solution or branches on it.
func (s *solver) processFocus() (unbounded bool, err error) {
	if s.rec != nil {
		timer := s.rec.NodeTimer()
		defer timer.ObserveDuration()
	}
	focus := s.tree.FocusNode()
	info, branched := s.branched[focus.Number()]
	delete(s.branched, focus.Number())

	ninfer := s.store.NInferences()
	cutoff, err := s.tree.PropagateFocus()
	if err != nil || cutoff {
		return false, err
	}
	ninfer = s.store.NInferences() - ninfer

	initroot, err := s.tree.LoadLP()
	if err != nil {
		return false, err
	}
	if initroot {
		for _, col := range s.cols {
			if err = s.lp.AddCol(col, 0); err != nil {
				return false, err
			}
		}
		for _, row := range s.rows {
			if err = s.lp.AddRow(row, 0); err != nil {
				return false, err
			}
		}
	}
	if err = s.tree.LoadLPState(); err != nil {
		return false, err
	}
	status, obj, err := s.solveLP()
	if err != nil {
		return false, err
	}
	s.tree.SetFocusNodeLP(true)
	switch status {
	case bbtree.LPInfeasible:
		s.tree.Cutoff(focus)
		return false, nil
	case bbtree.LPUnbounded:
		return focus.Depth() == 0, nil
	}
	s.tree.UpdateLowerbound(focus, obj)
	if branched && !math.IsInf(info.parentlb, 0) {
		s.scorer.Observe(info.v, info.dir, info.delta, obj-info.parentlb, int(ninfer))
	}
	if obj >= s.incumbent-bbtree.DefaultFeasTol {
		s.tree.Cutoff(focus)
		return false, nil
	}
	s.setRelaxValues()
	if focus.Depth() == 0 {
		for _, v := range s.vars {
			s.scorer.SetRootSolution(v, v.RelaxValue())
		}
	}
	if s.opts.DiveDepth > 0 && (s.nodes-1)%s.opts.DiveFreq == 0 {
		if err = s.dive(); err != nil {
			return false, err
		}
		if obj >= s.incumbent-bbtree.DefaultFeasTol {
			s.tree.Cutoff(focus)
			return false, nil
		}
	}
	cand, ok := s.cands.Select()
	if !ok {
		s.newIncumbent(obj)
		return false, nil
	}
	br, err := s.tree.Branch(cand.Var, math.NaN())
	if err != nil {
		return false, err
	}
	v := cand.Var.(*vardom.Variable)
	if br.Down != nil {
		s.branched[br.Down.Number()] = branchInfo{v, bbtree.Downwards, cand.Frac, obj}
	}
	if br.Up != nil {
		s.branched[br.Up.Number()] = branchInfo{v, bbtree.Upwards, 1 - cand.Frac, obj}
	}
	return false, nil
}

func (s *solver) solveLP() (bbtree.LPStatus, float64, error) {
	start := time.Now()
	status, err := s.lp.Solve()
	if s.rec != nil {
		s.rec.LPSolved(status, time.Since(start))
	}
	if err != nil {
		if errors.Is(err, lpi.ErrNumerics) {
			tracer().Errorf("LP at node %s: %v", s.tree.CurrentNode(), err)
		}
		return status, math.NaN(), err
	}
	obj, err := s.lp.ObjVal()
	return status, obj, err
}

func (s *solver) setRelaxValues() {
	for i, v := range s.vars {
		v.SetRelaxValue(s.lp.Value(s.cols[i]))
	}
}

// newIncumbent records the current relaxation solution as the best known
// solution and prunes all open nodes which cannot improve on it.
func (s *solver) newIncumbent(obj float64) {
	if obj >= s.incumbent {
		return
	}
	s.incumbent = obj
	s.best = make([]float64, len(s.vars))
	for i, v := range s.vars {
		s.best[i] = v.RelaxValue()
		if v.Integral() {
			s.best[i] = math.Round(s.best[i])
		}
	}
	tracer().Infof("new incumbent %g at node %s", s.sign*obj, s.tree.CurrentNode())
	if s.rec != nil {
		s.rec.Solution(s.sign * obj)
	}
	if !s.tree.IsProbing() {
		s.prune()
	}
}

func (s *solver) prune() {
	s.tree.SetCutoffBound(s.incumbent)
	s.tree.CutoffNodes(s.incumbent)
}
