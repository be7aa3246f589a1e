package bbtree

// switchForks is the result of locating a new focus node relative to the
// active path.
type switchForks struct {
	common      *Node // deepest active ancestor of the new focus node
	lpfork      *Node
	lpstatefork *Node
	subroot     *Node
	cutoff      bool
}

// findSwitchForks locates the common fork of the active path and the path to
// node, together with the nearest LP defining ancestors of node.
func (t *Tree) findSwitchForks(node *Node) (sf switchForks) {
	if node == nil {
		return
	}
	if node.cutoff {
		sf.cutoff = true
		return
	}
	if t.focusnode == nil {
		// no active path: search the new node's ancestors only
		lpfork := node
		for !lpfork.isForkType() {
			if lpfork = lpfork.parent; lpfork == nil {
				return
			}
			if lpfork.cutoff {
				sf.cutoff = true
				return
			}
		}
		sf.lpfork = lpfork
		lpstatefork := lpfork
		for !lpstatefork.isLPStateFork() {
			if lpstatefork = lpstatefork.parent; lpstatefork == nil {
				return
			}
			if lpstatefork.cutoff {
				sf.cutoff = true
				return
			}
		}
		sf.lpstatefork = lpstatefork
		subroot := lpstatefork
		for subroot.kind != Subroot {
			if subroot = subroot.parent; subroot == nil {
				return
			}
			if subroot.cutoff {
				sf.cutoff = true
				return
			}
		}
		sf.subroot = subroot
		return
	}
	fork := node
	var lpfork, lpstatefork, subroot *Node
	for !fork.active {
		fork = fork.parent
		assert(fork != nil, "new focus node is not connected to the active path")
		if fork.cutoff {
			sf.cutoff = true
			return
		}
		if lpfork == nil && fork.isForkType() {
			lpfork = fork
		}
		if lpstatefork == nil && fork.isLPStateFork() {
			lpstatefork = fork
		}
		if subroot == nil && fork.kind == Subroot {
			subroot = fork
		}
	}
	if t.cutoffdepth <= fork.depth {
		sf.cutoff = true
		return
	}
	// the remaining forks are active nodes; reuse the focus node's forks if
	// they lie above the common fork
	if lpfork == nil {
		if t.focuslpfork != nil && t.focuslpfork.depth > fork.depth {
			lpfork = fork
			for lpfork != nil && !lpfork.isForkType() {
				lpfork = lpfork.parent
			}
		} else {
			lpfork = t.focuslpfork
		}
	}
	if lpstatefork == nil {
		if t.focuslpstatefork != nil && t.focuslpstatefork.depth > fork.depth {
			lpstatefork = lpfork
			for lpstatefork != nil && !lpstatefork.isLPStateFork() {
				lpstatefork = lpstatefork.parent
			}
		} else {
			lpstatefork = t.focuslpstatefork
		}
	}
	if subroot == nil {
		if t.focussubroot != nil && t.focussubroot.depth > fork.depth {
			subroot = lpstatefork
			for subroot != nil && subroot.kind != Subroot {
				subroot = subroot.parent
			}
		} else {
			subroot = t.focussubroot
		}
	}
	// a pending repropagation above the common fork has to be redone from there
	if t.repropdepth < fork.depth {
		fork = t.path[t.repropdepth]
	}
	sf.common, sf.lpfork, sf.lpstatefork, sf.subroot = fork, lpfork, lpstatefork, subroot
	return
}

// switchPath makes the path from the root to focusnode the active path.
// The nodes below fork are deactivated bottom-up, then the nodes of the new
// path are activated top-down.
func (t *Tree) switchPath(fork, focusnode *Node) (cutoff bool, err error) {
	forkdepth := -1
	if fork != nil {
		forkdepth = fork.depth
	}
	focusdepth := -1
	if focusnode != nil {
		focusdepth = focusnode.depth
	}
	T().Debugf("switching path: fork depth %d, new focus %s", forkdepth, focusnode)
	t.stats.PathSwitches++
	if t.cutoffdepth > forkdepth {
		t.cutoffdepth = noDepth
	}
	if t.repropdepth > forkdepth {
		t.repropdepth = noDepth
	}

	t.delayEvents()
	defer func() {
		if err != nil {
			if perr := t.processEvents(); perr != nil {
				T().Errorf("events of failed path switch: %v", perr)
			}
		}
	}()

	for i := t.pathlen - 1; i > forkdepth; i-- {
		if err = t.deactivateNode(t.path[i]); err != nil {
			return
		}
	}
	t.pathlen = forkdepth + 1

	if err = t.applyPendingBoundChanges(); err != nil {
		return
	}

	t.ensurePathMem(focusdepth + 1)
	if len(t.path) < focusdepth+1 {
		t.path = t.path[:focusdepth+1]
		t.pathnlpcols = t.pathnlpcols[:focusdepth+1]
		t.pathnlprows = t.pathnlprows[:focusdepth+1]
	}
	for node := focusnode; node != fork; node = node.parent {
		assert(!node.active, "node on new path is already active")
		t.path[node.depth] = node
	}

	if fork != nil && fork.cutoff {
		cutoff = true
	} else if fork != nil && fork.reprop {
		if cutoff, err = t.repropagate(fork); err != nil {
			return
		}
	}

	for i := forkdepth + 1; i <= focusdepth && !cutoff; i++ {
		if cutoff, err = t.activateNode(t.path[i]); err != nil {
			return
		}
	}
	if cutoff && t.pathlen > 0 {
		t.Cutoff(t.path[t.pathlen-1])
	}
	t.updatePathLPSize(forkdepth + 1)

	err = t.processEvents()
	return
}

// activateNode applies the domain and constraint changes of a node and
// appends it to the active path.
func (t *Tree) activateNode(node *Node) (cutoff bool, err error) {
	assert(!node.active, "node is already active")
	assert(node.depth == t.pathlen, "node activated out of path order")
	if err = t.applyConsSetChange(node); err != nil {
		return
	}
	if cutoff, err = t.applyDomainChange(node); err != nil {
		return
	}
	node.active = true
	t.path[node.depth] = node
	t.pathlen = node.depth + 1
	t.stats.Activations++
	if err = t.emit(NodeActivated, node); err != nil {
		return
	}
	if cutoff {
		node.reprop = t.config.ReproOnCutoff
		t.Cutoff(node)
	}
	if node.kind != FocusNode &&
		(node.reprop || (node.parent != nil && node.repropsubtreemark != node.parent.repropsubtreemark)) {
		var propcutoff bool
		if propcutoff, err = t.repropagate(node); err != nil {
			return
		}
		cutoff = cutoff || propcutoff
	}
	return
}

// deactivateNode undoes the changes of a node. Nodes must be deactivated in
// reverse order of activation.
func (t *Tree) deactivateNode(node *Node) error {
	assert(node.active, "node is not active")
	assert(node.depth == t.pathlen-1, "node deactivated out of path order")
	if err := t.undoDomainChange(node); err != nil {
		return err
	}
	if err := t.undoConsSetChange(node); err != nil {
		return err
	}
	node.active = false
	t.pathlen = node.depth
	if !t.IsProbing() {
		t.stats.Deactivations++
	}
	return t.emit(NodeDeactivated, node)
}

// repropagate propagates an active node once more, temporarily making it the
// focus node of the tree. Bound changes found during propagation mark the
// node's whole subtree for repropagation.
//
// The events buffered so far are dispatched before propagating: propagators
// and LP bound synchronization have to see the domains of the path activated
// down to node. Observers therefore may see a path switch in two batches,
// split at a repropagated node. Buffering resumes afterwards.
func (t *Tree) repropagate(node *Node) (cutoff bool, err error) {
	assert(node.active, "cannot repropagate an inactive node")
	if err = t.processEvents(); err != nil {
		return
	}
	T().Debugf("repropagating node %s", node)
	t.stats.Repropagations++
	nboundchgs := t.stats.BoundChanges
	initialreprop := node.reprop

	oldkind, olddata := node.kind, node.data
	oldfocus := t.focusnode
	oldlpfork, oldlpstatefork, oldsubroot := t.focuslpfork, t.focuslpstatefork, t.focussubroot
	oldlpcount := t.focuslpstateforklpcount
	oldchildren, oldchildrenprio := t.children, t.childrenprio
	oldsiblings, oldsiblingsprio := t.siblings, t.siblingsprio
	oldhaslp := t.focusnodehaslp

	node.kind = RefocusNode // payload stays in place
	t.focusnode = node
	t.focuslpfork, t.focuslpstatefork, t.focussubroot = nil, nil, nil
	t.focuslpstateforklpcount = -1
	t.children, t.childrenprio = nil, nil
	t.siblings, t.siblingsprio = nil, nil
	t.focusnodehaslp = false

	t.MarkPropagated(node)
	if t.prop != nil {
		cutoff, err = t.prop.Propagate(t, node)
	}

	node.kind, node.data = oldkind, olddata
	t.focusnode = oldfocus
	t.focuslpfork, t.focuslpstatefork, t.focussubroot = oldlpfork, oldlpstatefork, oldsubroot
	t.focuslpstateforklpcount = oldlpcount
	t.children, t.childrenprio = oldchildren, oldchildrenprio
	t.siblings, t.siblingsprio = oldsiblings, oldsiblingsprio
	t.focusnodehaslp = oldhaslp
	if err != nil {
		return
	}
	if initialreprop && !cutoff && t.stats.BoundChanges > nboundchgs {
		t.repropsubtreecount = (t.repropsubtreecount + 1) % (maxReproPMark + 1)
		node.repropsubtreemark = t.repropsubtreecount
		t.stats.ReproPBoundChanges += t.stats.BoundChanges - nboundchgs
		T().Debugf("repropagation of %s found %d bound changes, marking subtree %d",
			node, t.stats.BoundChanges-nboundchgs, t.repropsubtreecount)
	}
	t.delayEvents()
	if cutoff {
		t.Cutoff(node)
	}
	return
}

// updatePathLPSize recalculates the LP sizes of the active path, starting at
// depth startdepth.
func (t *Tree) updatePathLPSize(startdepth int) {
	if startdepth < 0 {
		startdepth = 0
	}
	ncols, nrows := 0, 0
	if startdepth > 0 {
		ncols, nrows = t.pathnlpcols[startdepth-1], t.pathnlprows[startdepth-1]
	}
	for i := startdepth; i < t.pathlen; i++ {
		node := t.path[i]
		switch d := node.data.(type) {
		case *probingData:
			if i < t.pathlen-1 {
				next := t.path[i+1].probing()
				ncols, nrows = next.ninitialcols, next.ninitialrows
			} else {
				ncols, nrows = d.ninitialcols, d.ninitialrows
			}
		case *pseudoforkData:
			ncols += len(d.addedcols)
			nrows += len(d.addedrows)
		case *forkData:
			ncols += len(d.addedcols)
			nrows += len(d.addedrows)
		case *subrootData:
			ncols, nrows = len(d.cols), len(d.rows)
		default:
			// a dead end is the former focus node, waiting to be freed
			assert(node.kind == FocusNode || node.kind == Junction || node.kind == RefocusNode ||
				node.kind == DeadEnd, "unexpected node type on active path")
		}
		t.pathnlpcols[i], t.pathnlprows[i] = ncols, nrows
	}
}
