package vardom

import (
	"errors"
	"fmt"
	"strings"

	"github.com/npillmayer/bbtree"
)

// ErrUnknownConstraint signals a constraint which is not a *LinearCons.
var ErrUnknownConstraint = errors.New("vardom: unknown constraint")

// Term is a coefficient of a linear constraint.
type Term struct {
	Var  *Variable
	Coef float64
}

// LinearCons is a linear constraint lhs <= sum(coef*var) <= rhs.
// Infinite sides are omitted.
type LinearCons struct {
	name     string
	terms    []Term
	lhs, rhs float64
	global   bool
	active   bool
	enabled  bool
	depth    int // depth of activation for local constraints
}

var _ bbtree.Constraint = (*LinearCons)(nil)

// NewLinearCons creates an unregistered linear constraint.
func NewLinearCons(name string, lhs, rhs float64, terms ...Term) *LinearCons {
	return &LinearCons{
		name:    name,
		terms:   terms,
		lhs:     lhs,
		rhs:     rhs,
		enabled: true,
	}
}

func (c *LinearCons) Name() string                 { return c.name }
func (c *LinearCons) Terms() []Term                { return c.terms }
func (c *LinearCons) Sides() (lhs, rhs float64)    { return c.lhs, c.rhs }
func (c *LinearCons) IsGlobal() bool               { return c.global }
func (c *LinearCons) IsActive() bool               { return c.active && c.enabled }
func (c *LinearCons) ActivationDepth() (int, bool) { return c.depth, c.active && !c.global }

// Activity returns the activity of the constraint for a value assignment.
func (c *LinearCons) Activity(value func(*Variable) float64) float64 {
	a := 0.0
	for _, t := range c.terms {
		a += t.Coef * value(t.Var)
	}
	return a
}

func (c *LinearCons) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %g <=", c.name, c.lhs)
	for _, t := range c.terms {
		fmt.Fprintf(&b, " %+g %s", t.Coef, t.Var.name)
	}
	fmt.Fprintf(&b, " <= %g", c.rhs)
	return b.String()
}

// Registry keeps track of the linear constraints of a problem and of their
// activation state. It implements bbtree.Constraints.
type Registry struct {
	conss []*LinearCons
	local []*LinearCons // local constraints in order of activation
}

var _ bbtree.Constraints = (*Registry)(nil)

// NewRegistry creates an empty constraint registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Add adds a global constraint, which is active at every node.
func (r *Registry) Add(c *LinearCons) {
	c.global, c.active = true, true
	r.conss = append(r.conss, c)
}

// Global returns the global constraints.
func (r *Registry) Global() []*LinearCons {
	return r.conss
}

// Active returns all constraints which are active and enabled.
func (r *Registry) Active() []*LinearCons {
	active := make([]*LinearCons, 0, len(r.conss)+len(r.local))
	for _, c := range r.conss {
		if c.IsActive() {
			active = append(active, c)
		}
	}
	for _, c := range r.local {
		if c.IsActive() {
			active = append(active, c)
		}
	}
	return active
}

func (r *Registry) linear(c bbtree.Constraint) (*LinearCons, error) {
	lc, ok := c.(*LinearCons)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownConstraint, c.Name())
	}
	return lc, nil
}

// Activate activates a local constraint at the given depth of the active path.
func (r *Registry) Activate(c bbtree.Constraint, depth int, focus bool) error {
	lc, err := r.linear(c)
	if err != nil {
		return err
	}
	if lc.active {
		return fmt.Errorf("%w: constraint %s is already active", bbtree.ErrInvalidState, lc.name)
	}
	lc.active, lc.depth = true, depth
	r.local = append(r.local, lc)
	tracer().Debugf("activated %s at depth %d (focus=%v)", lc.name, depth, focus)
	return nil
}

// Deactivate deactivates a local constraint.
func (r *Registry) Deactivate(c bbtree.Constraint) error {
	lc, err := r.linear(c)
	if err != nil {
		return err
	}
	for i := len(r.local) - 1; i >= 0; i-- {
		if r.local[i] == lc {
			r.local = append(r.local[:i], r.local[i+1:]...)
			lc.active = false
			return nil
		}
	}
	return fmt.Errorf("%w: constraint %s is not active", bbtree.ErrInvalidState, lc.name)
}

// Enable re-enables a disabled constraint.
func (r *Registry) Enable(c bbtree.Constraint) error {
	lc, err := r.linear(c)
	if err != nil {
		return err
	}
	lc.enabled = true
	return nil
}

// Disable disables a constraint for the subtree of the current node.
func (r *Registry) Disable(c bbtree.Constraint) error {
	lc, err := r.linear(c)
	if err != nil {
		return err
	}
	lc.enabled = false
	return nil
}
