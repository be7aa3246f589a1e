package bbtree

import "fmt"

// captureLPState adds n users to the LP state of a Fork or Subroot.
func (t *Tree) captureLPState(fork *Node, n int) {
	assert(n >= 0, "negative LP state capture count")
	switch d := fork.data.(type) {
	case *forkData:
		d.nlpistateref += n
	case *subrootData:
		d.nlpistateref += n
	default:
		panic(fmt.Sprintf("cannot capture LP state of %s", fork))
	}
	T().Debugf("captured LP state of %s %d times, refs=%d", fork, n, fork.LPStateRefs())
}

// releaseLPState removes one user of the LP state of a Fork or Subroot. The
// LP state is freed as soon as the last user is gone.
func (t *Tree) releaseLPState(fork *Node) {
	var state *LPState
	var refs *int
	switch d := fork.data.(type) {
	case *forkData:
		state, refs = &d.lpistate, &d.nlpistateref
	case *subrootData:
		state, refs = &d.lpistate, &d.nlpistateref
	default:
		panic(fmt.Sprintf("cannot release LP state of %s", fork))
	}
	assert(*refs > 0, "LP state released more often than captured")
	*refs--
	if *refs == 0 && *state != nil {
		T().Debugf("freeing LP state of %s", fork)
		t.lp.FreeState(*state)
		*state = nil
	}
}
