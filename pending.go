package bbtree

import "fmt"

// pendingBoundChange is a bound change which could not be applied to an
// active node without breaking the order of bound changes on the active path.
type pendingBoundChange struct {
	node      *Node
	v         Var
	bound     float64
	bt        BoundType
	inference Inference
	probing   bool
}

// AddBoundChange adds a bound change to a node.
//
// Changes at or above the effective root become global bound changes and
// mark the root for repropagation. A change at the current node, or at a
// child or sibling hanging off the active path, which contradicts a bound
// applied further up the active path is deferred to the pending queue, and
// the node holding the contradicting bound is cut off. A change contradicting
// the global domain cuts off the requesting node only. Any other change is
// stored at the node and applied immediately if the node is active.
//
// Whether a change is a probing change is not a parameter: it is taken from
// the probing state of the tree, so a caller cannot mark a change at a
// probing node as permanent or the other way round.
func (t *Tree) AddBoundChange(node *Node, v Var, bound float64, bt BoundType, inf Inference) error {
	if node == nil || v == nil {
		return fmt.Errorf("%w: missing node or variable", ErrInvalidState)
	}
	if node.freed {
		return fmt.Errorf("%w: bound change at freed node %s", ErrInvalidState, node)
	}
	probing := t.IsProbing()
	if node.depth <= t.effectiverootdepth {
		T().Debugf("global bound change at %s: %s %s %g", node, v.Name(), bt, bound)
		if err := t.domains.ChangeGlobal(v, bt, bound); err != nil {
			return err
		}
		t.stats.GlobalBoundChanges++
		if t.root != nil {
			t.PropagateAgain(t.root)
		}
		return nil
	}
	if node.active || (node.parent != nil && node.parent.active) {
		if node.active && node != t.path[t.pathlen-1] {
			return fmt.Errorf("%w: bound change at active node %s which is not the current node",
				ErrInvalidState, node)
		}
		maxdepth := node.depth
		if !node.active {
			maxdepth = node.parent.depth
		}
		d := t.domains.ConflictingDepth(v, bt, bound)
		if d == 0 {
			T().Debugf("bound change %s %s %g at %s conflicts with global domain", v.Name(), bt, bound, node)
			t.Cutoff(node)
			return nil
		}
		if d > 0 && d <= maxdepth {
			assert(d < t.pathlen, "conflicting bound change below the active path")
			T().Debugf("bound change %s %s %g at %s conflicts with depth %d, deferred",
				v.Name(), bt, bound, node, d)
			t.pending = append(t.pending, pendingBoundChange{
				node:      node,
				v:         v,
				bound:     bound,
				bt:        bt,
				inference: inf,
				probing:   probing,
			})
			t.stats.PendingBoundChanges++
			t.Cutoff(t.path[d])
			return nil
		}
	}
	t.stats.BoundChanges++
	if probing {
		t.stats.ProbingBoundChanges++
	}
	node.domchg.boundchgs = append(node.domchg.boundchgs, BoundChange{
		Var:       v,
		Bound:     bound,
		Type:      bt,
		Inference: inf,
		Probing:   probing,
	})
	if node.active {
		bc := &node.domchg.boundchgs[len(node.domchg.boundchgs)-1]
		cutoff, err := t.applyBoundChange(bc, node.depth)
		if err != nil {
			return err
		}
		assert(!cutoff, "conflict-free bound change produced a cutoff")
	}
	return nil
}

// NPendingBoundChanges returns the number of deferred bound changes.
func (t *Tree) NPendingBoundChanges() int {
	return len(t.pending)
}

// applyPendingBoundChanges re-adds all deferred bound changes which are
// still improvements. Changes conflicting with the global domain cut off
// their node instead.
func (t *Tree) applyPendingBoundChanges() error {
	n := len(t.pending)
	for i := 0; i < n; i++ {
		p := t.pending[i]
		if p.node.freed {
			continue
		}
		d := t.domains.ConflictingDepth(p.v, p.bt, p.bound)
		if d == 0 {
			t.Cutoff(p.node)
			if p.node.depth <= t.effectiverootdepth {
				break
			}
			continue
		}
		if p.bt == Lower && t.config.isLE(p.bound, p.v.LB()) {
			continue
		}
		if p.bt == Upper && t.config.isGE(p.bound, p.v.UB()) {
			continue
		}
		T().Debugf("applying pending bound change %s %s %g at %s", p.v.Name(), p.bt, p.bound, p.node)
		if err := t.AddBoundChange(p.node, p.v, p.bound, p.bt, p.inference); err != nil {
			return err
		}
		assert(len(t.pending) == n, "pending bound change deferred again")
	}
	t.pending = t.pending[:0]
	return nil
}
