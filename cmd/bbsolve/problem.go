package main

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// errProblem signals an invalid problem file.
var errProblem = errors.New("bbsolve: invalid problem")

// Problem is a mixed integer linear program as read from a YAML file:
//
//	name: knapsack
//	sense: max
//	variables:
//	  - { name: a, type: binary, obj: 8 }
//	constraints:
//	  - name: weight
//	    rhs: 14
//	    terms: [ { var: a, coef: 5 } ]
type Problem struct {
	Name        string     `yaml:"name"`
	Sense       string     `yaml:"sense"`
	Variables   []VarSpec  `yaml:"variables"`
	Constraints []ConsSpec `yaml:"constraints"`
	Options     Options    `yaml:"options"`
}

// VarSpec describes a variable. Bounds default to [0,+inf), binary
// variables to [0,1].
type VarSpec struct {
	Name string   `yaml:"name"`
	Type string   `yaml:"type"` // continuous, integer or binary
	Obj  float64  `yaml:"obj"`
	LB   *float64 `yaml:"lb"`
	UB   *float64 `yaml:"ub"`
}

// ConsSpec describes a linear constraint lhs <= terms <= rhs. Missing sides
// are infinite.
type ConsSpec struct {
	Name  string     `yaml:"name"`
	Terms []TermSpec `yaml:"terms"`
	LHS   *float64   `yaml:"lhs"`
	RHS   *float64   `yaml:"rhs"`
}

// TermSpec is a coefficient of a constraint.
type TermSpec struct {
	Var  string  `yaml:"var"`
	Coef float64 `yaml:"coef"`
}

// Options control the search. Command line flags take precedence.
type Options struct {
	NodeSel         string `yaml:"nodesel"`
	ChildSel        string `yaml:"childsel"`
	Branching       string `yaml:"branching"`
	MaxNodes        int    `yaml:"maxnodes"`
	DiveDepth       int    `yaml:"divedepth"`
	DiveFreq        int    `yaml:"divefreq"`
	SubrootInterval int    `yaml:"subrootinterval"`
	Check           bool   `yaml:"check"`
}

func (o *Options) defaults() {
	if o.NodeSel == "" {
		o.NodeSel = "bestbound"
	}
	if o.ChildSel == "" {
		o.ChildSel = "p"
	}
	if o.Branching == "" {
		o.Branching = "mostfractional"
	}
	if o.MaxNodes <= 0 {
		o.MaxNodes = 10000
	}
	if o.DiveFreq <= 0 {
		o.DiveFreq = 10
	}
}

// LoadProblem reads a problem from a YAML file.
func LoadProblem(path string) (*Problem, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseProblem(f)
}

// ParseProblem reads a problem in YAML format and checks it for consistency.
func ParseProblem(r io.Reader) (*Problem, error) {
	prob := &Problem{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(prob); err != nil {
		return nil, fmt.Errorf("%w: %v", errProblem, err)
	}
	if err := prob.check(); err != nil {
		return nil, err
	}
	prob.Options.defaults()
	return prob, nil
}

func (p *Problem) check() error {
	switch p.Sense {
	case "", "min", "max":
	default:
		return fmt.Errorf("%w: unknown sense %q", errProblem, p.Sense)
	}
	if len(p.Variables) == 0 {
		return fmt.Errorf("%w: no variables", errProblem)
	}
	names := make(map[string]bool, len(p.Variables))
	for _, v := range p.Variables {
		if v.Name == "" || names[v.Name] {
			return fmt.Errorf("%w: missing or duplicate variable name %q", errProblem, v.Name)
		}
		names[v.Name] = true
		switch v.Type {
		case "", "continuous", "integer", "binary":
		default:
			return fmt.Errorf("%w: variable %s has unknown type %q", errProblem, v.Name, v.Type)
		}
		if lb, ub := v.Bounds(); lb > ub {
			return fmt.Errorf("%w: variable %s has empty domain [%g,%g]", errProblem, v.Name, lb, ub)
		}
	}
	for _, c := range p.Constraints {
		for _, t := range c.Terms {
			if !names[t.Var] {
				return fmt.Errorf("%w: constraint %s uses unknown variable %q", errProblem, c.Name, t.Var)
			}
		}
		if lhs, rhs := c.Sides(); lhs > rhs {
			return fmt.Errorf("%w: constraint %s has sides %g > %g", errProblem, c.Name, lhs, rhs)
		}
	}
	return nil
}

// Maximize reports whether the objective is to be maximized.
func (p *Problem) Maximize() bool {
	return p.Sense == "max"
}

// Integral reports whether a variable has to take integral values.
func (v VarSpec) Integral() bool {
	return v.Type == "integer" || v.Type == "binary"
}

// Bounds returns the bounds of a variable with defaults applied.
func (v VarSpec) Bounds() (lb, ub float64) {
	lb, ub = 0, math.Inf(1)
	if v.Type == "binary" {
		ub = 1
	}
	if v.LB != nil {
		lb = *v.LB
	}
	if v.UB != nil {
		ub = *v.UB
	}
	return
}

// Sides returns the sides of a constraint with defaults applied.
func (c ConsSpec) Sides() (lhs, rhs float64) {
	lhs, rhs = math.Inf(-1), math.Inf(1)
	if c.LHS != nil {
		lhs = *c.LHS
	}
	if c.RHS != nil {
		rhs = *c.RHS
	}
	return
}
