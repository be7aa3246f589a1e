package bbtree

import "fmt"

// Check validates the structural invariants of a tree.
//
// It is expensive and intended for tests and debugging.
func (t *Tree) Check() error {
	if t == nil {
		return fmt.Errorf("%w: nil tree", ErrInvalidState)
	}
	if err := t.checkPath(); err != nil {
		return err
	}
	if err := t.checkArrays(); err != nil {
		return err
	}
	if err := t.checkForks(); err != nil {
		return err
	}
	return t.checkLPStateRefs()
}

func (t *Tree) checkPath() error {
	for i := 0; i < t.pathlen; i++ {
		node := t.path[i]
		if node == nil {
			return fmt.Errorf("%w: path gap at depth %d", ErrInvalidState, i)
		}
		if node.depth != i {
			return fmt.Errorf("%w: node %s at path position %d", ErrInvalidState, node, i)
		}
		if !node.active {
			return fmt.Errorf("%w: inactive node %s on active path", ErrInvalidState, node)
		}
		if i > 0 && node.parent != t.path[i-1] {
			return fmt.Errorf("%w: node %s is not a child of %s", ErrInvalidState, node, t.path[i-1])
		}
		if i == 0 && node.parent != nil {
			return fmt.Errorf("%w: path does not start at the root", ErrInvalidState)
		}
		if i > 0 && (t.pathnlpcols[i] < 0 || t.pathnlprows[i] < 0) {
			return fmt.Errorf("%w: negative LP size at depth %d", ErrInvalidState, i)
		}
	}
	if t.pathlen > 0 {
		if cur := t.CurrentNode(); cur != nil && cur.active && t.path[t.pathlen-1] != cur {
			return fmt.Errorf("%w: active path does not end at current node %s", ErrInvalidState, cur)
		}
	}
	if t.cutoffdepth != noDepth && (t.cutoffdepth >= t.pathlen || !t.path[t.cutoffdepth].cutoff) {
		return fmt.Errorf("%w: cutoff depth %d does not denote a cut off path node", ErrInvalidState, t.cutoffdepth)
	}
	return nil
}

func (t *Tree) checkArrays() error {
	if len(t.children) != len(t.childrenprio) || len(t.siblings) != len(t.siblingsprio) {
		return fmt.Errorf("%w: priority arrays out of sync", ErrInvalidState)
	}
	for i, node := range t.children {
		if node.kind != Child || node.arraypos() != i {
			return fmt.Errorf("%w: child %s at position %d", ErrInvalidState, node, i)
		}
		if node.parent != t.focusnode && t.focusnode != nil {
			return fmt.Errorf("%w: child %s is not a child of the focus node", ErrInvalidState, node)
		}
	}
	for i, node := range t.siblings {
		if node.kind != Sibling || node.arraypos() != i {
			return fmt.Errorf("%w: sibling %s at position %d", ErrInvalidState, node, i)
		}
		if t.focusnode == nil || node.parent != t.focusnode.parent {
			return fmt.Errorf("%w: sibling %s is not a sibling of the focus node", ErrInvalidState, node)
		}
	}
	for i, node := range t.leaves.nodes {
		if node.kind != Leaf || node.data.(*leafData).index != i {
			return fmt.Errorf("%w: leaf %s at queue position %d", ErrInvalidState, node, i)
		}
		if node.active {
			return fmt.Errorf("%w: active leaf %s", ErrInvalidState, node)
		}
	}
	return nil
}

func (t *Tree) checkForks() error {
	if t.focusnode == nil {
		return nil
	}
	fd := t.focusnode.depth
	sd, sfd, lfd := -1, -1, -1
	if t.focussubroot != nil {
		sd = t.focussubroot.depth
	}
	if t.focuslpstatefork != nil {
		sfd = t.focuslpstatefork.depth
		if !t.focuslpstatefork.isLPStateFork() {
			return fmt.Errorf("%w: LP state fork %s", ErrInvalidState, t.focuslpstatefork)
		}
	}
	if t.focuslpfork != nil {
		lfd = t.focuslpfork.depth
		if !t.focuslpfork.isForkType() {
			return fmt.Errorf("%w: LP fork %s", ErrInvalidState, t.focuslpfork)
		}
	}
	if sd > sfd || sfd > lfd || lfd >= fd {
		return fmt.Errorf("%w: fork depths out of order: subroot %d, LP state fork %d, LP fork %d, focus %d",
			ErrInvalidState, sd, sfd, lfd, fd)
	}
	return nil
}

// checkLPStateRefs verifies that the LP state reference count of every fork
// equals the number of open nodes designating it as their LP state fork.
func (t *Tree) checkLPStateRefs() error {
	expected := make(map[*Node]int)
	forks := make(map[*Node]bool)
	collect := func(node *Node) {
		for n := node; n != nil; n = n.parent {
			if n.isLPStateFork() {
				forks[n] = true
			}
		}
	}
	if t.focusnode != nil {
		collect(t.focusnode)
		if t.focuslpstatefork != nil {
			expected[t.focuslpstatefork] += 1 + len(t.siblings)
		}
	}
	for _, node := range t.leaves.nodes {
		collect(node)
		if f := node.data.(*leafData).lpstatefork; f != nil {
			expected[f]++
		}
	}
	for _, node := range t.children {
		collect(node)
	}
	for f := range expected {
		forks[f] = true
	}
	for f := range forks {
		if f.LPStateRefs() != expected[f] {
			return fmt.Errorf("%w: LP state of %s has %d references, expected %d",
				ErrInvalidState, f, f.LPStateRefs(), expected[f])
		}
		if f.LPStateRefs() > 0 && f.LPState() == nil {
			return fmt.Errorf("%w: referenced LP state of %s is missing", ErrInvalidState, f)
		}
	}
	return nil
}
