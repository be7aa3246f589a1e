package bbtree

// Statistics counts the operations performed on a tree.
type Statistics struct {
	NodesCreated           int64
	NodesFreed             int64
	Focused                int64
	PathSwitches           int64
	Activations            int64
	Deactivations          int64
	Cutoffs                int64
	Repropagations         int64
	ReproPBoundChanges     int64
	BoundChanges           int64
	GlobalBoundChanges     int64
	PendingBoundChanges    int64
	Branchings             int64
	ProbingRounds          int64
	ProbingNodes           int64
	ProbingBacktracks      int64
	ProbingBoundChanges    int64
	DeadEnds               int64
	Junctions              int64
	PseudoForks            int64
	Forks                  int64
	Subroots               int64
	NumericalForkFallbacks int64
}

// Statistics returns a snapshot of the tree's statistics.
func (t *Tree) Statistics() Statistics {
	return t.stats
}
