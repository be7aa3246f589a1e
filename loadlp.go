package bbtree

import "fmt"

// LoadLP brings the LP in line with the focus node: the LP is shrunk to the
// part which is still valid for the new active path, or rebuilt from the
// focus subroot, and the columns and rows of all (pseudo-)forks down to the
// focus LP fork are added. It reports whether the LP is empty and the
// initial root LP has to be set up by the caller.
func (t *Tree) LoadLP() (initroot bool, err error) {
	if t.focusnode == nil {
		return false, ErrNoFocus
	}
	if t.IsProbing() {
		return false, fmt.Errorf("%w: cannot load the focus LP during probing", ErrInvalidState)
	}
	if !t.focusnode.active {
		return false, fmt.Errorf("%w: focus node %s is not active", ErrInvalidState, t.focusnode)
	}
	lpforkdepth := -1
	if t.focuslpfork != nil {
		lpforkdepth = t.focuslpfork.depth
	}
	assert(lpforkdepth < t.pathlen-1, "LP fork must be above the focus node")
	if t.correctlpdepth > lpforkdepth {
		t.correctlpdepth = lpforkdepth
	}
	if t.correctlpdepth >= 0 {
		if err = t.lp.ShrinkCols(t.pathnlpcols[t.correctlpdepth]); err != nil {
			return false, fmt.Errorf("%w: %v", ErrLP, err)
		}
		if err = t.lp.ShrinkRows(t.pathnlprows[t.correctlpdepth]); err != nil {
			return false, fmt.Errorf("%w: %v", ErrLP, err)
		}
	} else {
		if err = t.lp.Clear(); err != nil {
			return false, fmt.Errorf("%w: %v", ErrLP, err)
		}
		if t.focussubroot != nil {
			if err = t.addForkLP(t.focussubroot); err != nil {
				return false, err
			}
			t.correctlpdepth = t.focussubroot.depth
		}
	}
	for d := t.correctlpdepth + 1; d <= lpforkdepth; d++ {
		node := t.path[d]
		assert(node.kind == Junction || node.kind == PseudoFork || node.kind == Fork,
			"unexpected node type between subroot and LP fork")
		if err = t.addForkLP(node); err != nil {
			return false, err
		}
	}
	if lpforkdepth > t.correctlpdepth {
		t.correctlpdepth = lpforkdepth
	}
	t.lp.MarkSize()
	t.focuslpconstructed = true
	initroot = t.correctlpdepth == -1
	T().Debugf("loaded LP of %s: correct LP depth %d, %d cols, %d rows",
		t.focusnode, t.correctlpdepth, t.lp.NCols(), t.lp.NRows())
	return initroot, nil
}

// addForkLP adds the columns and rows stored at a node to the LP.
func (t *Tree) addForkLP(node *Node) error {
	for _, col := range node.AddedCols() {
		if err := t.lp.AddCol(col, node.depth); err != nil {
			return fmt.Errorf("%w: %v", ErrLP, err)
		}
	}
	for _, row := range node.AddedRows() {
		if err := t.lp.AddRow(row, node.depth); err != nil {
			return fmt.Errorf("%w: %v", ErrLP, err)
		}
	}
	return nil
}

// LoadLPState loads the LP state of the focus LP state fork, unless it is
// already loaded and the LP has not been solved since.
func (t *Tree) LoadLPState() error {
	if t.focusnode == nil {
		return ErrNoFocus
	}
	fork := t.focuslpstatefork
	if fork == nil {
		return nil
	}
	if t.focuslpstateforklpcount == t.lp.SolveCount() {
		return nil
	}
	if state := fork.LPState(); state != nil {
		if err := t.lp.SetState(state); err != nil {
			return fmt.Errorf("%w: %v", ErrLP, err)
		}
		T().Debugf("loaded LP state of %s", fork)
	}
	t.focuslpstateforklpcount = t.lp.SolveCount()
	return nil
}

// PropagateFocus propagates the focus node with the tree's propagator.
func (t *Tree) PropagateFocus() (cutoff bool, err error) {
	if t.focusnode == nil {
		return false, ErrNoFocus
	}
	t.MarkPropagated(t.focusnode)
	if t.prop == nil {
		return false, nil
	}
	if cutoff, err = t.prop.Propagate(t, t.focusnode); err != nil {
		return
	}
	if cutoff {
		t.Cutoff(t.focusnode)
	}
	return
}
