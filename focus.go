package bbtree

import (
	"fmt"
	"math"
)

// SetCutoffBound sets the bound above which open nodes are discarded when
// they are moved to the leaf queue. Usually this is the objective value of
// the incumbent solution.
func (t *Tree) SetCutoffBound(bound float64) {
	t.cutoffbound = bound
}

// CutoffBound returns the current cutoff bound.
func (t *Tree) CutoffBound() float64 {
	return t.cutoffbound
}

// Focus makes node the new focus node. node must be a child, sibling or
// leaf, or nil to move all open children and siblings to the leaf queue.
//
// The former focus node is converted into a Junction, PseudoFork, Fork or
// Subroot if it has children, and into a DeadEnd otherwise. Then the active
// path is switched to the new focus node. If the new node turns out to be
// infeasible, it is freed, cutoff is reported and the focus stays unchanged.
func (t *Tree) Focus(node *Node) (cutoff bool, err error) {
	if t.IsProbing() {
		return false, fmt.Errorf("%w: cannot change focus during probing", ErrInvalidState)
	}
	if node != nil && node == t.focusnode {
		return false, nil
	}
	if node != nil && node.kind != Child && node.kind != Sibling && node.kind != Leaf {
		return false, fmt.Errorf("%w: cannot focus %s", ErrInvalidState, node)
	}
	T().Debugf("focusing node %s", node)

	oldcutoffdepth := t.cutoffdepth
	sf := t.findSwitchForks(node)
	if sf.cutoff {
		T().Debugf("new focus node %s is cut off", node)
		if node.kind == Leaf {
			t.leaves.remove(node)
		}
		t.freeNode(node)
		return true, nil
	}

	if sf.lpstatefork != t.focuslpstatefork {
		t.focuslpstateforklpcount = -1
	}
	if sf.subroot == t.focussubroot && sf.common != nil && sf.lpfork != nil {
		if sf.common.depth < t.correctlpdepth {
			t.correctlpdepth = sf.common.depth
		}
	} else {
		t.correctlpdepth = -1
	}

	childrenlpstatefork := t.focuslpstatefork
	if t.focusnode != nil {
		if oldcutoffdepth <= t.focusnode.depth {
			// the old focus node has been cut off, its children are obsolete
			T().Debugf("path to old focus node %s was cut off at depth %d", t.focusnode, oldcutoffdepth)
			t.nodesToQueue(&t.children, nil, math.Inf(-1))
			if oldcutoffdepth < t.focusnode.depth {
				t.nodesToQueue(&t.siblings, t.focuslpstatefork, math.Inf(-1))
			}
		}
		selectedchild := node != nil && node.kind == Child
		if len(t.children) > 0 {
			if t.focusnodehaslp && t.lp.IsRelax() {
				converted := false
				d := t.focusnode.depth
				if t.config.SubrootInterval > 0 && d > 0 && d%t.config.SubrootInterval == 0 {
					if converted, err = t.focusnodeToSubroot(); err != nil {
						return
					}
					if converted && selectedchild {
						sf.subroot = t.focusnode
					}
				} else if converted, err = t.focusnodeToFork(); err != nil {
					return
				}
				if converted {
					childrenlpstatefork = t.focusnode
					if selectedchild {
						sf.lpfork, sf.lpstatefork = t.focusnode, t.focusnode
						t.focuslpstateforklpcount = t.lp.SolveCount()
						t.correctlpdepth = t.focusnode.depth
					}
				}
			} else if t.focuslpconstructed && (len(t.lp.NewCols()) > 0 || len(t.lp.NewRows()) > 0) {
				t.focusnodeToPseudoFork()
				if selectedchild {
					sf.lpfork = t.focusnode
					t.correctlpdepth = t.focusnode.depth
				}
			} else {
				t.lp.MarkSize()
				t.focusnodeToJunction()
			}
		} else {
			t.focusnodeToDeadEnd()
		}
		t.updatePathLPSize(t.focusnode.depth)
	}

	oldfocus := t.focusnode
	if node == nil {
		t.nodesToQueue(&t.siblings, t.focuslpstatefork, t.cutoffbound)
		t.nodesToQueue(&t.children, childrenlpstatefork, t.cutoffbound)
	} else {
		switch node.kind {
		case Sibling:
			t.nodesToQueue(&t.children, childrenlpstatefork, t.cutoffbound)
			t.removeSibling(node)
		case Child:
			t.nodesToQueue(&t.siblings, t.focuslpstatefork, t.cutoffbound)
			t.removeChild(node)
			t.childrenToSiblings()
		case Leaf:
			t.nodesToQueue(&t.siblings, t.focuslpstatefork, t.cutoffbound)
			t.nodesToQueue(&t.children, childrenlpstatefork, t.cutoffbound)
			t.leaves.remove(node)
		}
		node.setType(FocusNode, nil)
	}

	assert(sf.subroot == nil || (sf.lpstatefork != nil && sf.subroot.depth <= sf.lpstatefork.depth),
		"subroot below LP state fork")
	assert(sf.lpstatefork == nil || (sf.lpfork != nil && sf.lpstatefork.depth <= sf.lpfork.depth),
		"LP state fork below LP fork")
	t.focusnode = node
	t.focuslpfork = sf.lpfork
	t.focuslpstatefork = sf.lpstatefork
	t.focussubroot = sf.subroot
	t.focuslpconstructed = false
	t.focusnodehaslp = false
	t.resolvelperror = false

	if cutoff, err = t.switchPath(sf.common, node); err != nil {
		return
	}
	if oldfocus != nil && oldfocus.kind == DeadEnd {
		t.freeNode(oldfocus)
	}
	if node != nil {
		t.updateEffectiveRootDepth()
		t.stats.Focused++
		if err = t.emit(NodeFocused, node); err != nil {
			return
		}
	}
	return
}

// nodesToQueue converts nodes to leaves referring to lpstatefork and puts
// them into the leaf queue. Nodes with a lower bound reaching cutoffbound are
// freed instead.
func (t *Tree) nodesToQueue(nodes *[]*Node, lpstatefork *Node, cutoffbound float64) {
	list := *nodes
	*nodes = list[:0]
	if nodes == &t.children {
		t.childrenprio = t.childrenprio[:0]
	} else if nodes == &t.siblings {
		t.siblingsprio = t.siblingsprio[:0]
	}
	for i, node := range list {
		list[i] = nil
		node.setType(Leaf, &leafData{lpstatefork: lpstatefork, index: -1})
		if !t.config.isInfinity(node.lowerbound) && node.lowerbound < cutoffbound {
			t.leaves.insert(node)
		} else {
			T().Debugf("discarding node %s with lower bound %g", node, node.lowerbound)
			t.freeNode(node)
		}
	}
}

// focusnodeToDeadEnd converts a childless focus node into a dead end.
func (t *Tree) focusnodeToDeadEnd() {
	T().Debugf("converting focus node %s to dead end", t.focusnode)
	if t.focuslpstatefork != nil {
		t.releaseLPState(t.focuslpstatefork)
	}
	t.focusnode.setType(DeadEnd, nil)
	t.stats.DeadEnds++
}

// focusnodeToJunction converts the focus node into a junction. The children
// inherit the focus node's LP state fork.
func (t *Tree) focusnodeToJunction() {
	T().Debugf("converting focus node %s to junction", t.focusnode)
	n := len(t.children)
	if t.focuslpstatefork != nil {
		t.captureLPState(t.focuslpstatefork, n)
		t.releaseLPState(t.focuslpstatefork)
	}
	t.focusnode.setType(Junction, &junctionData{nchildren: n})
	t.stats.Junctions++
}

// focusnodeToPseudoFork converts the focus node into a pseudo fork storing
// the LP columns and rows added at the node.
func (t *Tree) focusnodeToPseudoFork() {
	T().Debugf("converting focus node %s to pseudo fork", t.focusnode)
	n := len(t.children)
	d := &pseudoforkData{
		addedcols: append([]Column(nil), t.lp.NewCols()...),
		addedrows: append([]Row(nil), t.lp.NewRows()...),
		nchildren: n,
	}
	captureRows(d.addedrows)
	if t.focuslpstatefork != nil {
		t.captureLPState(t.focuslpstatefork, n)
		t.releaseLPState(t.focuslpstatefork)
	}
	t.focusnode.setType(PseudoFork, d)
	t.stats.PseudoForks++
}

// resolveForFork cleans up the new part of the LP and resolves it. It reports
// false if the LP could not be solved to optimality; in this case the new
// columns and rows have been removed from the LP.
func (t *Tree) resolveForFork() (bool, error) {
	if err := t.lp.CleanupNew(t.focusnode.depth == 0); err != nil {
		return false, fmt.Errorf("%w: %v", ErrLP, err)
	}
	if t.lp.Flushed() && t.lp.Solved() {
		return true, nil
	}
	status, err := t.lp.Solve()
	if err == nil && status == LPOptimal {
		return true, nil
	}
	T().Errorf("numerical troubles in LP at node %s (status %s, err=%v): converting to junction instead of fork",
		t.focusnode, status, err)
	t.stats.NumericalForkFallbacks++
	if err := t.lp.ShrinkCols(t.lp.NCols() - len(t.lp.NewCols())); err != nil {
		return false, fmt.Errorf("%w: %v", ErrLP, err)
	}
	if err := t.lp.ShrinkRows(t.lp.NRows() - len(t.lp.NewRows())); err != nil {
		return false, fmt.Errorf("%w: %v", ErrLP, err)
	}
	return false, nil
}

// focusnodeToFork converts the focus node into a fork storing the added LP
// columns and rows and the LP state. If the LP cannot be resolved to
// optimality, the focus node becomes a junction and false is returned.
func (t *Tree) focusnodeToFork() (bool, error) {
	ok, err := t.resolveForFork()
	if err != nil {
		return false, err
	}
	if !ok {
		t.focusnodeToJunction()
		return false, nil
	}
	T().Debugf("converting focus node %s to fork", t.focusnode)
	state, err := t.lp.State()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrLP, err)
	}
	d := &forkData{
		addedcols: append([]Column(nil), t.lp.NewCols()...),
		addedrows: append([]Row(nil), t.lp.NewRows()...),
		lpistate:  state,
		nchildren: len(t.children),
	}
	captureRows(d.addedrows)
	if t.focuslpstatefork != nil {
		t.releaseLPState(t.focuslpstatefork)
	}
	t.focusnode.setType(Fork, d)
	t.captureLPState(t.focusnode, len(t.children))
	t.stats.Forks++
	return true, nil
}

// focusnodeToSubroot converts the focus node into a subroot storing the
// complete LP and the LP state.
func (t *Tree) focusnodeToSubroot() (bool, error) {
	ok, err := t.resolveForFork()
	if err != nil {
		return false, err
	}
	if !ok {
		t.focusnodeToJunction()
		return false, nil
	}
	T().Debugf("converting focus node %s to subroot", t.focusnode)
	state, err := t.lp.State()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrLP, err)
	}
	d := &subrootData{
		cols:      append([]Column(nil), t.lp.Cols()...),
		rows:      append([]Row(nil), t.lp.Rows()...),
		lpistate:  state,
		nchildren: len(t.children),
	}
	captureRows(d.rows)
	if t.focuslpstatefork != nil {
		t.releaseLPState(t.focuslpstatefork)
	}
	t.focusnode.setType(Subroot, d)
	t.captureLPState(t.focusnode, len(t.children))
	t.stats.Subroots++
	return true, nil
}

// updateEffectiveRootDepth moves the effective root down the active path as
// long as the nodes have a single open child.
func (t *Tree) updateEffectiveRootDepth() {
	focusdepth := t.FocusDepth()
	for t.effectiverootdepth < focusdepth && t.effectiverootdepth < t.pathlen {
		node := t.path[t.effectiverootdepth]
		if node.NChildren() > 1 {
			break
		}
		t.effectiverootdepth++
	}
	T().Debugf("effective root depth is %d", t.effectiverootdepth)
}
