package vardom

import (
	"errors"
	"fmt"
	"math"

	"github.com/npillmayer/bbtree"
)

var (
	// ErrUnknownVariable signals a variable which does not belong to a store.
	ErrUnknownVariable = errors.New("vardom: unknown variable")
	// ErrDuplicateVariable signals a variable name used twice.
	ErrDuplicateVariable = errors.New("vardom: duplicate variable")
	// ErrEmptyDomain signals a global bound change leaving no feasible value.
	ErrEmptyDomain = errors.New("vardom: empty global domain")
	// ErrUndo signals an undo without a matching bound change.
	ErrUndo = errors.New("vardom: no bound change to undo")
)

// Variable is a problem variable. It implements bbtree.Var.
type Variable struct {
	name     string
	index    int
	integral bool
	obj      float64
	lb, ub   float64 // local bounds
	glb, gub float64 // global bounds
	relax    float64
	store    *Store
}

var _ bbtree.Var = (*Variable)(nil)

func (v *Variable) Name() string        { return v.name }
func (v *Variable) Index() int          { return v.index }
func (v *Variable) Integral() bool      { return v.integral }
func (v *Variable) Obj() float64        { return v.obj }
func (v *Variable) LB() float64         { return v.lb }
func (v *Variable) UB() float64         { return v.ub }
func (v *Variable) GlobalLB() float64   { return v.glb }
func (v *Variable) GlobalUB() float64   { return v.gub }
func (v *Variable) RelaxValue() float64 { return v.relax }

// SetRelaxValue sets the value of the variable in the current relaxation
// solution. NaN clears it.
func (v *Variable) SetRelaxValue(x float64) {
	v.relax = x
}

// IsFixed reports whether the local bounds of the variable coincide.
func (v *Variable) IsFixed() bool {
	return math.Abs(v.ub-v.lb) <= v.store.feastol
}

func (v *Variable) String() string {
	return fmt.Sprintf("%s[%g,%g]", v.name, v.lb, v.ub)
}

// boundChange is an entry of the bound change history.
type boundChange struct {
	v     *Variable
	bt    bbtree.BoundType
	old   float64
	bound float64
	depth int
	inf   bbtree.Inference
}

// Store holds the variables of a problem. It implements bbtree.Domains.
type Store struct {
	vars    []*Variable
	names   map[string]*Variable
	history []boundChange
	events  bbtree.EventQueue
	feastol float64
	ninfer  map[*Variable]*[2]int // inferred bound changes per direction
	ntotal  int64
}

var _ bbtree.Domains = (*Store)(nil)

// NewStore creates an empty store. Bound changes are announced to events,
// which may be nil.
func NewStore(events bbtree.EventQueue) *Store {
	return &Store{
		names:   make(map[string]*Variable),
		events:  events,
		feastol: bbtree.DefaultFeasTol,
		ninfer:  make(map[*Variable]*[2]int),
	}
}

// NewVariable adds a variable with objective coefficient obj and global
// bounds [lb,ub].
func (s *Store) NewVariable(name string, integral bool, obj, lb, ub float64) (*Variable, error) {
	if _, exists := s.names[name]; exists {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateVariable, name)
	}
	if lb > ub {
		return nil, fmt.Errorf("%w: %s in [%g,%g]", ErrEmptyDomain, name, lb, ub)
	}
	if integral {
		lb, ub = math.Ceil(lb-s.feastol), math.Floor(ub+s.feastol)
	}
	v := &Variable{
		name:     name,
		index:    len(s.vars),
		integral: integral,
		obj:      obj,
		lb:       lb,
		ub:       ub,
		glb:      lb,
		gub:      ub,
		relax:    math.NaN(),
		store:    s,
	}
	s.vars = append(s.vars, v)
	s.names[name] = v
	return v, nil
}

// Var returns the variable with the given name, or nil.
func (s *Store) Var(name string) *Variable {
	return s.names[name]
}

// Variables returns all variables in order of creation.
func (s *Store) Variables() []*Variable {
	return s.vars
}

// HistoryLen returns the number of local bound changes currently applied.
func (s *Store) HistoryLen() int {
	return len(s.history)
}

// NInferences returns the total number of bound changes derived by
// propagation.
func (s *Store) NInferences() int64 {
	return s.ntotal
}

// Inferences returns the number of bound changes derived by propagation for
// a variable, for its lower and its upper bound.
func (s *Store) Inferences(v bbtree.Var) (lower, upper int) {
	if vv, ok := v.(*Variable); ok {
		if n := s.ninfer[vv]; n != nil {
			return n[0], n[1]
		}
	}
	return 0, 0
}

func (s *Store) variable(v bbtree.Var) (*Variable, error) {
	vv, ok := v.(*Variable)
	if !ok || vv.store != s {
		return nil, fmt.Errorf("%w: %s", ErrUnknownVariable, v.Name())
	}
	return vv, nil
}

// Apply sets a local bound at the given depth of the active path.
func (s *Store) Apply(v bbtree.Var, bt bbtree.BoundType, bound float64, depth int, inf bbtree.Inference) (bool, error) {
	vv, err := s.variable(v)
	if err != nil {
		return false, err
	}
	if vv.integral {
		if bt == bbtree.Lower {
			bound = math.Ceil(bound - s.feastol)
		} else {
			bound = math.Floor(bound + s.feastol)
		}
	}
	bc := boundChange{v: vv, bt: bt, bound: bound, depth: depth, inf: inf}
	if bt == bbtree.Lower {
		bc.old, vv.lb = vv.lb, bound
	} else {
		bc.old, vv.ub = vv.ub, bound
	}
	s.history = append(s.history, bc)
	if inf != (bbtree.Inference{}) {
		n := s.ninfer[vv]
		if n == nil {
			n = &[2]int{}
			s.ninfer[vv] = n
		}
		n[bt]++
		s.ntotal++
	}
	if err := s.announce(bbtree.BoundTightened, vv, bc.old, bound); err != nil {
		return false, err
	}
	return vv.lb > vv.ub+s.feastol, nil
}

// Undo restores a local bound. Bound changes have to be undone in reverse
// order of application per depth. The restored bound never lies outside the
// global domain.
func (s *Store) Undo(v bbtree.Var, bt bbtree.BoundType, old float64, depth int) error {
	vv, err := s.variable(v)
	if err != nil {
		return err
	}
	i := len(s.history) - 1
	for ; i >= 0; i-- {
		if h := s.history[i]; h.v == vv && h.bt == bt && h.depth == depth {
			break
		}
	}
	if i < 0 {
		return fmt.Errorf("%w: %s %s at depth %d", ErrUndo, vv.name, bt, depth)
	}
	bound := s.history[i].bound
	s.history = append(s.history[:i], s.history[i+1:]...)
	// global changes made after the local one stay in force
	if bt == bbtree.Lower {
		vv.lb = math.Max(old, vv.glb)
		old = vv.lb
	} else {
		vv.ub = math.Min(old, vv.gub)
		old = vv.ub
	}
	return s.announce(bbtree.BoundRelaxed, vv, bound, old)
}

// ConflictingDepth returns the depth of the first local bound change which
// makes the requested bound infeasible, 0 for a conflict with the global
// domain, and -1 if there is no conflict.
func (s *Store) ConflictingDepth(v bbtree.Var, bt bbtree.BoundType, bound float64) int {
	vv, err := s.variable(v)
	if err != nil {
		return -1
	}
	if bt == bbtree.Lower && bound > vv.gub+s.feastol || bt == bbtree.Upper && bound < vv.glb-s.feastol {
		return 0
	}
	for _, h := range s.history {
		if h.v != vv || h.bt == bt {
			continue
		}
		if bt == bbtree.Lower && bound > h.bound+s.feastol || bt == bbtree.Upper && bound < h.bound-s.feastol {
			return h.depth
		}
	}
	return -1
}

// ChangeGlobal tightens a global bound. The local bound follows if it is
// weaker.
func (s *Store) ChangeGlobal(v bbtree.Var, bt bbtree.BoundType, bound float64) error {
	vv, err := s.variable(v)
	if err != nil {
		return err
	}
	if bt == bbtree.Lower {
		if bound <= vv.glb {
			return nil
		}
		vv.glb = bound
		if vv.lb < bound {
			old := vv.lb
			vv.lb = bound
			if err := s.announce(bbtree.BoundTightened, vv, old, bound); err != nil {
				return err
			}
		}
	} else {
		if bound >= vv.gub {
			return nil
		}
		vv.gub = bound
		if vv.ub > bound {
			old := vv.ub
			vv.ub = bound
			if err := s.announce(bbtree.BoundTightened, vv, old, bound); err != nil {
				return err
			}
		}
	}
	tracer().Debugf("global bound change %s %s %g", vv.name, bt, bound)
	if vv.glb > vv.gub+s.feastol {
		return fmt.Errorf("%w: %s", ErrEmptyDomain, vv)
	}
	return nil
}

func (s *Store) announce(et bbtree.EventType, v *Variable, old, bound float64) error {
	if s.events == nil {
		return nil
	}
	return s.events.Add(bbtree.Event{Type: et, Var: v, OldBound: old, NewBound: bound})
}
