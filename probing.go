package bbtree

import "fmt"

// IsProbing reports whether the tree is in probing mode.
func (t *Tree) IsProbing() bool {
	return t.probingroot != nil
}

// ProbingRoot returns the first probing node, or nil if not probing.
func (t *Tree) ProbingRoot() *Node {
	return t.probingroot
}

// ProbingDepth returns the depth of the current probing node relative to the
// probing root, or -1 if not probing.
func (t *Tree) ProbingDepth() int {
	if !t.IsProbing() {
		return -1
	}
	return t.CurrentDepth() - t.probingroot.depth
}

// HasProbingNodeLP reports whether the LP of the current probing node has
// been solved.
func (t *Tree) HasProbingNodeLP() bool {
	return t.probingnodehaslp
}

// StartProbing enters probing mode. The state of the LP is remembered and
// restored by EndProbing, and the probing root is created as a child of the
// current node.
func (t *Tree) StartProbing() error {
	if t.IsProbing() {
		return fmt.Errorf("%w: already probing", ErrInvalidState)
	}
	if t.focusnode == nil {
		return ErrNoFocus
	}
	T().Debugf("start probing at %s", t.CurrentNode())
	t.probinglpwasflushed = t.lp.Flushed()
	t.probinglpwassolved = t.lp.Solved()
	t.probingloadlpistate = false
	t.probinglpwasrelax = t.lp.IsRelax()
	t.probingsolvedlp = false
	if t.probinglpwasflushed && t.probinglpwassolved {
		state, err := t.lp.State()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrLP, err)
		}
		t.probinglpistate = state
	}
	t.lp.SetIsRelax(true)
	if err := t.createProbingNode(); err != nil {
		if t.probinglpistate != nil {
			t.lp.FreeState(t.probinglpistate)
			t.probinglpistate = nil
		}
		t.lp.SetIsRelax(t.probinglpwasrelax)
		return err
	}
	t.stats.ProbingRounds++
	return nil
}

// CreateProbingNode creates a new probing node below the current probing node.
func (t *Tree) CreateProbingNode() error {
	if !t.IsProbing() {
		return fmt.Errorf("%w: not probing", ErrInvalidState)
	}
	return t.createProbingNode()
}

func (t *Tree) createProbingNode() error {
	current := t.CurrentNode()
	if current == nil {
		return ErrNoFocus
	}
	if current.kind != FocusNode && current.kind != RefocusNode && current.kind != ProbingNode {
		return fmt.Errorf("%w: cannot probe below %s", ErrInvalidState, current)
	}
	if t.pathlen != current.depth+1 || !current.active {
		return fmt.Errorf("%w: current node %s is not the end of the active path", ErrInvalidState, current)
	}
	ncols, nrows := t.lp.NCols(), t.lp.NRows()
	node := t.newNode()
	if err := t.assignParent(node, current); err != nil {
		t.nnodes--
		return err
	}
	node.setType(ProbingNode, &probingData{
		ninitialcols: ncols,
		ninitialrows: nrows,
		ncols:        ncols,
		nrows:        nrows,
	})
	if t.probingroot == nil {
		t.probingroot = node
	}
	node.active = true
	t.setPathLen(t.pathlen + 1)
	t.path[t.pathlen-1] = node
	t.updatePathLPSize(t.pathlen - 2)
	t.lp.MarkSize()
	t.probingnodehaslp = false
	t.stats.ProbingNodes++
	T().Debugf("created probing node %s with LP size %d/%d", node, ncols, nrows)
	return nil
}

// MarkProbingNodeHasLP records that the LP of the current probing node has
// been solved. The LP size and, if available, the LP state are stored at
// the probing node.
func (t *Tree) MarkProbingNodeHasLP() error {
	if !t.IsProbing() {
		return fmt.Errorf("%w: not probing", ErrInvalidState)
	}
	d := t.CurrentNode().probing()
	if d.lpistate != nil {
		t.lp.FreeState(d.lpistate)
		d.lpistate = nil
	}
	if t.lp.Flushed() && t.lp.Solved() {
		state, err := t.lp.State()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrLP, err)
		}
		d.lpistate = state
	}
	d.ncols, d.nrows = t.lp.NCols(), t.lp.NRows()
	t.probingnodehaslp = true
	t.probingsolvedlp = true
	return nil
}

// SetProbingLPState hands an LP state over to the current probing node.
// The tree takes ownership of the state.
func (t *Tree) SetProbingLPState(state LPState) error {
	if !t.IsProbing() {
		return fmt.Errorf("%w: not probing", ErrInvalidState)
	}
	d := t.CurrentNode().probing()
	if d.lpistate != nil {
		t.lp.FreeState(d.lpistate)
	}
	d.lpistate = state
	return nil
}

// LoadProbingLPState loads the LP state of the nearest probing node which
// has one, or the LP state from before probing started, if the LP has been
// shrunk by a backtrack.
func (t *Tree) LoadProbingLPState() error {
	if !t.IsProbing() {
		return fmt.Errorf("%w: not probing", ErrInvalidState)
	}
	if !t.probingloadlpistate {
		return nil
	}
	var state LPState
	for node := t.CurrentNode(); node != nil && node.kind == ProbingNode; node = node.parent {
		if d := node.probing(); d.lpistate != nil {
			state = d.lpistate
			break
		}
	}
	if state == nil {
		state = t.probinglpistate
	}
	if state != nil {
		if err := t.lp.SetState(state); err != nil {
			return fmt.Errorf("%w: %v", ErrLP, err)
		}
	}
	t.probingloadlpistate = false
	return nil
}

// BacktrackProbing frees all probing nodes deeper than probingdepth and
// shrinks the LP to the size it had at that depth.
func (t *Tree) BacktrackProbing(probingdepth int) error {
	if !t.IsProbing() {
		return fmt.Errorf("%w: not probing", ErrInvalidState)
	}
	if probingdepth < 0 || probingdepth > t.ProbingDepth() {
		return fmt.Errorf("%w: probing depth %d out of range [0,%d]", ErrInvalidState, probingdepth, t.ProbingDepth())
	}
	return t.backtrackProbing(probingdepth)
}

func (t *Tree) backtrackProbing(probingdepth int) error {
	newpathlen := t.probingroot.depth + probingdepth + 1
	assert(newpathlen >= 1, "backtracking would leave an empty path")
	if newpathlen < t.pathlen {
		d := t.path[newpathlen].probing()
		ncols, nrows := d.ninitialcols, d.ninitialrows
		nfreed := 0
		for t.pathlen > newpathlen {
			node := t.path[t.pathlen-1]
			assert(node.kind == ProbingNode, "non-probing node in probing path")
			if err := t.deactivateNode(node); err != nil {
				return err
			}
			t.freeNode(node)
			nfreed++
		}
		last := t.path[t.pathlen-1]
		if last.kind == ProbingNode {
			d := last.probing()
			t.pathnlpcols[t.pathlen-1], t.pathnlprows[t.pathlen-1] = d.ninitialcols, d.ninitialrows
		} else {
			assert(last.kind == FocusNode, "probing path does not start at the focus node")
		}
		if err := t.lp.ShrinkCols(ncols); err != nil {
			return fmt.Errorf("%w: %v", ErrLP, err)
		}
		if err := t.lp.ShrinkRows(nrows); err != nil {
			return fmt.Errorf("%w: %v", ErrLP, err)
		}
		t.probingloadlpistate = true
		t.lp.SetSizeMark(t.pathnlpcols[t.pathlen-1], t.pathnlprows[t.pathlen-1])
		if t.cutoffdepth >= t.pathlen {
			if err := t.applyPendingBoundChanges(); err != nil {
				return err
			}
			if t.cutoffdepth >= t.pathlen {
				t.cutoffdepth = noDepth
			}
		}
		if t.repropdepth >= t.pathlen {
			t.repropdepth = noDepth
		}
		t.stats.ProbingBacktracks++
		T().Debugf("probing backtracked to depth %d, %d nodes freed, LP size %d/%d",
			t.pathlen-1, nfreed, ncols, nrows)
	}
	return nil
}

// EndProbing leaves probing mode. All probing nodes are freed and the LP is
// restored to its state from before probing.
func (t *Tree) EndProbing() error {
	if !t.IsProbing() {
		return fmt.Errorf("%w: not probing", ErrInvalidState)
	}
	if err := t.backtrackProbing(-1); err != nil {
		return err
	}
	assert(!t.IsProbing(), "probing root survived end of probing")
	var err error
	if t.probinglpwasflushed {
		if err = t.lp.Flush(); err != nil {
			err = fmt.Errorf("%w: %v", ErrLP, err)
		} else if t.probinglpwassolved {
			err = t.restorePreProbingLP()
		}
	} else {
		t.lp.MarkUnflushed()
	}
	if t.probinglpistate != nil {
		t.lp.FreeState(t.probinglpistate)
		t.probinglpistate = nil
	}
	if !t.probinglpwassolved {
		t.lp.MarkUnsolved()
	}
	if !t.config.KeepProbingLPState && t.probingsolvedlp && !t.probinglpwassolved {
		T().Debugf("clearing LP state at end of probing, LP was unsolved before")
		if cerr := t.lp.ClearState(); cerr != nil && err == nil {
			err = fmt.Errorf("%w: %v", ErrLP, cerr)
		}
	}
	t.lp.SetIsRelax(t.probinglpwasrelax)
	t.probinglpwasflushed = false
	t.probinglpwassolved = false
	t.probingloadlpistate = false
	t.probinglpwasrelax = false
	t.probingsolvedlp = false
	t.probingnodehaslp = false
	T().Debugf("probing ended at depth %d", t.CurrentDepth())
	return err
}

// restorePreProbingLP reloads the LP state from before probing and resolves
// the LP. A failure to resolve is recorded, not returned.
func (t *Tree) restorePreProbingLP() error {
	if t.probinglpistate == nil {
		if err := t.lp.ClearState(); err != nil {
			return fmt.Errorf("%w: %v", ErrLP, err)
		}
	} else if err := t.lp.SetState(t.probinglpistate); err != nil {
		return fmt.Errorf("%w: %v", ErrLP, err)
	}
	t.lp.SetIsRelax(t.probinglpwasrelax)
	status, err := t.lp.Solve()
	switch {
	case err != nil:
		T().Errorf("unresolved numerical troubles while resolving LP after probing: %v", err)
		t.resolvelperror = true
		t.focusnodehaslp = false
	case status != LPOptimal && status != LPInfeasible && status != LPUnbounded && status != LPObjLimit:
		T().Errorf("LP was not resolved to a sufficient status after probing: %s", status)
		t.resolvelperror = true
		t.focusnodehaslp = false
	}
	return nil
}
