package branchrule

import (
	"fmt"
	"math"

	"github.com/npillmayer/bbtree"
	"github.com/rhartert/yagh"
)

// Rule selects the score of branching candidates.
type Rule int8

// Branching rules.
const (
	MostFractional Rule = iota
	PseudocostProduct
)

func (r Rule) String() string {
	switch r {
	case MostFractional:
		return "mostfractional"
	case PseudocostProduct:
		return "pseudocost"
	}
	return fmt.Sprintf("rule(%d)", int8(r))
}

// ParseRule returns the rule of a given name.
func ParseRule(name string) (Rule, error) {
	switch name {
	case "mostfractional", "":
		return MostFractional, nil
	case "pseudocost":
		return PseudocostProduct, nil
	}
	return MostFractional, fmt.Errorf("branchrule: unknown rule %q", name)
}

// Pseudocoster provides pseudocosts for the pseudocost rule.
type Pseudocoster interface {
	Pseudocost(v bbtree.Var, dir bbtree.BranchDir) float64
}

// minGain keeps products of pseudocost gains from vanishing.
const minGain = 1e-6

// Candidate is a branching candidate.
type Candidate struct {
	Var   bbtree.Var
	Value float64 // relaxation value
	Frac  float64 // fractional part of Value
	Score float64
}

// Candidates orders the fractional variables of a problem by score.
type Candidates struct {
	Rule    Rule
	FeasTol float64
	pc      Pseudocoster
	vars    []bbtree.Var
	order   *yagh.IntMap[float64]
	cands   []Candidate // indexed like vars
	n       int         // number of queued candidates
}

// NewCandidates creates a candidate list over a fixed set of variables.
// pc may be nil for the most fractional rule.
func NewCandidates(vars []bbtree.Var, rule Rule, pc Pseudocoster) (*Candidates, error) {
	if rule == PseudocostProduct && pc == nil {
		return nil, fmt.Errorf("branchrule: rule %s needs pseudocosts", rule)
	}
	return &Candidates{
		Rule:    rule,
		FeasTol: bbtree.DefaultFeasTol,
		pc:      pc,
		vars:    vars,
		cands:   make([]Candidate, len(vars)),
	}, nil
}

// Collect rebuilds the candidate heap from the current relaxation values.
// It returns the number of candidates.
func (c *Candidates) Collect() int {
	c.order = yagh.New[float64](0)
	c.order.GrowBy(len(c.vars))
	c.n = 0
	for i, v := range c.vars {
		if !v.Integral() {
			continue
		}
		x := v.RelaxValue()
		if math.IsNaN(x) || v.UB()-v.LB() < c.FeasTol {
			continue
		}
		f := x - math.Floor(x)
		if f <= c.FeasTol || f >= 1-c.FeasTol {
			continue
		}
		score := c.score(v, f)
		c.cands[i] = Candidate{Var: v, Value: x, Frac: f, Score: score}
		c.order.Put(i, -score)
		c.n++
	}
	tracer().Debugf("%d branching candidates (%s)", c.n, c.Rule)
	return c.n
}

func (c *Candidates) score(v bbtree.Var, f float64) float64 {
	if c.Rule == PseudocostProduct {
		down := math.Max(c.pc.Pseudocost(v, bbtree.Downwards)*f, minGain)
		up := math.Max(c.pc.Pseudocost(v, bbtree.Upwards)*(1-f), minGain)
		return down * up
	}
	return math.Min(f, 1-f)
}

// Len returns the number of candidates not yet taken.
func (c *Candidates) Len() int {
	return c.n
}

// Next removes and returns the candidate with the highest score.
func (c *Candidates) Next() (Candidate, bool) {
	if c.order == nil {
		return Candidate{}, false
	}
	e, ok := c.order.Pop()
	if !ok {
		return Candidate{}, false
	}
	c.n--
	return c.cands[e.Elem], true
}

// Select collects the candidates and returns the best one. It reports false
// if all integral variables take integral values.
func (c *Candidates) Select() (Candidate, bool) {
	if c.Collect() == 0 {
		return Candidate{}, false
	}
	return c.Next()
}
