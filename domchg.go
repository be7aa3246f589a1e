package bbtree

import "fmt"

// BoundChange is a single local bound change of a node.
type BoundChange struct {
	Var       Var
	Bound     float64
	Type      BoundType
	Inference Inference
	Probing   bool // change made during probing
	old       float64
	applied   bool
}

func (bc BoundChange) String() string {
	op := ">="
	if bc.Type == Upper {
		op = "<="
	}
	return fmt.Sprintf("%s %s %g", bc.Var.Name(), op, bc.Bound)
}

// IsBranching reports whether a bound change stems from a branching decision.
func (bc BoundChange) IsBranching() bool {
	return bc.Inference == Inference{}
}

// domainChange holds the bound changes of a node in order of creation.
type domainChange struct {
	boundchgs []BoundChange
}

// consSetChange holds the constraint changes of a node.
type consSetChange struct {
	added    []Constraint
	disabled []Constraint
}

// applyBoundChange applies a single bound change. Bound changes which do not
// tighten the current bound are skipped and not undone later.
func (t *Tree) applyBoundChange(bc *BoundChange, depth int) (cutoff bool, err error) {
	var old float64
	if bc.Type == Lower {
		old = bc.Var.LB()
		bc.applied = t.config.isLT(old, bc.Bound)
	} else {
		old = bc.Var.UB()
		bc.applied = t.config.isLT(bc.Bound, old)
	}
	if !bc.applied {
		return false, nil
	}
	bc.old = old
	return t.domains.Apply(bc.Var, bc.Type, bc.Bound, depth, bc.Inference)
}

func (t *Tree) undoBoundChange(bc *BoundChange, depth int) error {
	if !bc.applied {
		return nil
	}
	bc.applied = false
	return t.domains.Undo(bc.Var, bc.Type, bc.old, depth)
}

// applyDomainChange applies all bound changes of a node. A cutoff does not
// stop the application, as the changes have to be undone as a whole.
func (t *Tree) applyDomainChange(node *Node) (cutoff bool, err error) {
	for i := range node.domchg.boundchgs {
		c, err := t.applyBoundChange(&node.domchg.boundchgs[i], node.depth)
		if err != nil {
			return cutoff, err
		}
		cutoff = cutoff || c
	}
	return cutoff, nil
}

// undoDomainChange undoes the bound changes of a node in reverse order.
func (t *Tree) undoDomainChange(node *Node) error {
	for i := len(node.domchg.boundchgs) - 1; i >= 0; i-- {
		if err := t.undoBoundChange(&node.domchg.boundchgs[i], node.depth); err != nil {
			return err
		}
	}
	return nil
}

func (t *Tree) applyConsSetChange(node *Node) error {
	if t.conss == nil {
		return nil
	}
	focus := node.kind == FocusNode
	for _, c := range node.conssetchg.added {
		if err := t.conss.Activate(c, node.depth, focus); err != nil {
			return err
		}
	}
	for _, c := range node.conssetchg.disabled {
		if err := t.conss.Disable(c); err != nil {
			return err
		}
	}
	return nil
}

func (t *Tree) undoConsSetChange(node *Node) error {
	if t.conss == nil {
		return nil
	}
	for i := len(node.conssetchg.disabled) - 1; i >= 0; i-- {
		if err := t.conss.Enable(node.conssetchg.disabled[i]); err != nil {
			return err
		}
	}
	for i := len(node.conssetchg.added) - 1; i >= 0; i-- {
		if err := t.conss.Deactivate(node.conssetchg.added[i]); err != nil {
			return err
		}
	}
	return nil
}

// AddConstraint adds a constraint locally to a node. If the node is active,
// the constraint is activated immediately.
func (t *Tree) AddConstraint(node *Node, c Constraint) error {
	if node == nil || c == nil {
		return fmt.Errorf("%w: missing node or constraint", ErrInvalidState)
	}
	node.conssetchg.added = append(node.conssetchg.added, c)
	if node.active && t.conss != nil {
		return t.conss.Activate(c, node.depth, node.kind == FocusNode)
	}
	return nil
}

// DelConstraint removes a constraint locally from a node. A constraint which
// has been added at the node itself is dropped from the node, any other
// constraint is disabled for the node's subtree.
func (t *Tree) DelConstraint(node *Node, c Constraint) error {
	if node == nil || c == nil {
		return fmt.Errorf("%w: missing node or constraint", ErrInvalidState)
	}
	added := node.conssetchg.added
	for i := range added {
		if added[i] != c {
			continue
		}
		node.conssetchg.added = append(added[:i], added[i+1:]...)
		if node.active && t.conss != nil {
			return t.conss.Deactivate(c)
		}
		return nil
	}
	node.conssetchg.disabled = append(node.conssetchg.disabled, c)
	if node.active && t.conss != nil {
		return t.conss.Disable(c)
	}
	return nil
}
