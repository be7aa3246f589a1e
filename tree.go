package bbtree

import (
	"fmt"
	"math"
)

// noDepth marks an unset cutoff or repropagation depth.
const noDepth = math.MaxInt

// Tree is the branch-and-bound search tree.
//
// A tree is not safe for concurrent use. All collaborators are called
// synchronously from the goroutine operating on the tree.
type Tree struct {
	config   Config
	lp       LP
	domains  Domains
	conss    Constraints
	prop     Propagator
	events   EventQueue
	selector NodeSelector
	scorer   ChildScorer

	root             *Node
	focusnode        *Node
	focuslpfork      *Node // nearest PseudoFork, Fork or Subroot above the focus node
	focuslpstatefork *Node // nearest Fork or Subroot above the focus node
	focussubroot     *Node // nearest Subroot above the focus node
	probingroot      *Node

	children     []*Node
	childrenprio []float64
	siblings     []*Node
	siblingsprio []float64
	leaves       *leafQueue

	path        []*Node
	pathnlpcols []int // LP column count at the end of each path node
	pathnlprows []int // LP row count at the end of each path node
	pathlen     int

	pending []pendingBoundChange

	cutoffdepth        int
	repropdepth        int
	correctlpdepth     int
	effectiverootdepth int
	repropsubtreecount int

	focuslpstateforklpcount int64
	cutoffbound             float64

	probinglpistate     LPState
	probinglpwasflushed bool
	probinglpwassolved  bool
	probinglpwasrelax   bool
	probingloadlpistate bool
	probingsolvedlp     bool
	probingnodehaslp    bool

	focusnodehaslp     bool
	focuslpconstructed bool
	resolvelperror     bool

	nodecount int64
	nnodes    int
	stats     Statistics
}

// New creates an empty search tree.
func New(cfg Config, services Services) (*Tree, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if services.LP == nil {
		return nil, fmt.Errorf("%w: LP service is required", ErrInvalidConfig)
	}
	if services.Domains == nil {
		return nil, fmt.Errorf("%w: domain service is required", ErrInvalidConfig)
	}
	cfg = cfg.normalized()
	t := &Tree{
		config:         cfg,
		lp:             services.LP,
		domains:        services.Domains,
		conss:          services.Constraints,
		prop:           services.Propagator,
		events:         services.Events,
		selector:       services.Selector,
		scorer:         services.Scorer,
		cutoffdepth:    noDepth,
		repropdepth:    noDepth,
		correctlpdepth: -1,
	}
	if t.selector == nil {
		t.selector = lowerboundSelector{}
	}
	if t.scorer == nil {
		t.scorer = parentScorer{}
	}
	t.leaves = newLeafQueue(t.selector)
	t.ensurePathMem(cfg.PathInitSize)
	t.focuslpstateforklpcount = -1
	t.cutoffbound = math.Inf(1)
	return t, nil
}

// Config returns the normalized configuration of a tree.
func (t *Tree) Config() Config {
	return t.config
}

// SetSelector changes the node selector used for ordering leaves.
func (t *Tree) SetSelector(sel NodeSelector) {
	if sel == nil {
		sel = lowerboundSelector{}
	}
	t.selector = sel
	t.leaves.setSelector(sel)
}

func (t *Tree) ensurePathMem(num int) {
	if num <= cap(t.path) {
		return
	}
	size := t.config.growSize(cap(t.path), num)
	path := make([]*Node, len(t.path), size)
	copy(path, t.path)
	t.path = path
	cols := make([]int, len(t.pathnlpcols), size)
	copy(cols, t.pathnlpcols)
	t.pathnlpcols = cols
	rows := make([]int, len(t.pathnlprows), size)
	copy(rows, t.pathnlprows)
	t.pathnlprows = rows
}

// setPathLen sets the length of the active path. The path arrays keep their
// contents beyond the new length.
func (t *Tree) setPathLen(n int) {
	t.ensurePathMem(n)
	if len(t.path) < n {
		t.path = t.path[:n]
		t.pathnlpcols = t.pathnlpcols[:n]
		t.pathnlprows = t.pathnlprows[:n]
	}
	t.pathlen = n
}

// --- Node creation ---------------------------------------------------------

func (t *Tree) newNode() *Node {
	t.nodecount++
	t.nnodes++
	t.stats.NodesCreated++
	return &Node{
		number:     t.nodecount,
		lowerbound: math.Inf(-1),
		estimate:   math.Inf(-1),
	}
}

// assignParent links a new node to its parent.
func (t *Tree) assignParent(node, parent *Node) error {
	if parent == nil {
		return nil
	}
	if parent.depth+1 > t.config.MaxDepth {
		return fmt.Errorf("%w: depth %d", ErrDepthLimit, parent.depth+1)
	}
	node.parent = parent
	node.depth = parent.depth + 1
	node.lowerbound = parent.lowerbound
	node.estimate = parent.estimate
	node.repropsubtreemark = parent.repropsubtreemark
	return nil
}

// CreateRoot creates the root node of a tree. The root starts out as the
// only child of a not yet existing focus node and has to be focused
// before it can be branched on.
func (t *Tree) CreateRoot() (*Node, error) {
	if t.root != nil {
		return nil, fmt.Errorf("%w: root node already exists", ErrInvalidState)
	}
	root := t.newNode()
	root.setType(Child, &childData{})
	t.root = root
	t.addChild(root, 0)
	T().Debugf("created root node %s", root)
	return root, nil
}

// CreateChild creates a new child of the focus node with the given node
// selection priority and estimate.
func (t *Tree) CreateChild(priority, estimate float64) (*Node, error) {
	if t.focusnode == nil {
		return nil, ErrNoFocus
	}
	if t.IsProbing() {
		return nil, fmt.Errorf("%w: cannot create children during probing", ErrInvalidState)
	}
	node := t.newNode()
	if err := t.assignParent(node, t.focusnode); err != nil {
		t.nnodes--
		return nil, err
	}
	node.SetEstimate(estimate)
	node.setType(Child, &childData{})
	t.addChild(node, priority)
	T().Debugf("created child %s of %s, prio=%g, estimate=%g", node, t.focusnode, priority, node.estimate)
	return node, nil
}

// --- Children and siblings arrays ------------------------------------------

func (t *Tree) addChild(node *Node, priority float64) {
	if len(t.children) == cap(t.children) {
		size := t.config.growSize(cap(t.children), len(t.children)+1)
		children := make([]*Node, len(t.children), size)
		copy(children, t.children)
		t.children = children
		prio := make([]float64, len(t.childrenprio), size)
		copy(prio, t.childrenprio)
		t.childrenprio = prio
	}
	node.setArraypos(len(t.children))
	t.children = append(t.children, node)
	t.childrenprio = append(t.childrenprio, priority)
}

func (t *Tree) removeChild(node *Node) {
	pos := node.arraypos()
	assert(t.children[pos] == node, "child array position out of sync")
	last := len(t.children) - 1
	t.children[pos], t.childrenprio[pos] = t.children[last], t.childrenprio[last]
	t.children[pos].setArraypos(pos)
	t.children[last] = nil
	t.children, t.childrenprio = t.children[:last], t.childrenprio[:last]
}

func (t *Tree) removeSibling(node *Node) {
	pos := node.arraypos()
	assert(t.siblings[pos] == node, "sibling array position out of sync")
	last := len(t.siblings) - 1
	t.siblings[pos], t.siblingsprio[pos] = t.siblings[last], t.siblingsprio[last]
	t.siblings[pos].setArraypos(pos)
	t.siblings[last] = nil
	t.siblings, t.siblingsprio = t.siblings[:last], t.siblingsprio[:last]
}

// childrenToSiblings turns the remaining children of the old focus node into
// siblings of the new one.
func (t *Tree) childrenToSiblings() {
	assert(len(t.siblings) == 0, "siblings must be empty before children become siblings")
	for i, node := range t.children {
		assert(node.kind == Child, "children array holds a non-child")
		node.setType(Sibling, &siblingData{arraypos: i})
	}
	t.children, t.siblings = t.siblings, t.children
	t.childrenprio, t.siblingsprio = t.siblingsprio, t.childrenprio
}

// --- Freeing nodes ---------------------------------------------------------

// freeNode frees an inactive node and releases everything it holds. Parents
// which lose their last child are freed as well, unless they are active.
func (t *Tree) freeNode(node *Node) {
	assert(!node.active, "cannot free an active node")
	T().Debugf("freeing node %s", node)
	switch node.kind {
	case ProbingNode:
		if d := node.probing(); d.lpistate != nil {
			t.lp.FreeState(d.lpistate)
			d.lpistate = nil
		}
	case Sibling:
		t.removeSibling(node)
		if t.focuslpstatefork != nil {
			t.releaseLPState(t.focuslpstatefork)
		}
	case Child:
		t.removeChild(node)
	case Leaf:
		if d := node.data.(*leafData); d.lpstatefork != nil {
			t.releaseLPState(d.lpstatefork)
		}
	case PseudoFork:
		releaseRows(node.data.(*pseudoforkData).addedrows)
	case Fork:
		d := node.data.(*forkData)
		releaseRows(d.addedrows)
		if d.lpistate != nil {
			t.lp.FreeState(d.lpistate)
		}
	case Subroot:
		d := node.data.(*subrootData)
		releaseRows(d.rows)
		if d.lpistate != nil {
			t.lp.FreeState(d.lpistate)
		}
	case FocusNode, RefocusNode:
		panic(fmt.Sprintf("cannot free %s", node))
	}
	if node == t.root {
		t.root = nil
	}
	if node == t.probingroot {
		t.probingroot = nil
	}
	t.nnodes--
	t.stats.NodesFreed++
	parent := node.parent
	node.freed = true
	node.parent = nil
	node.data = nil
	node.domchg = domainChange{}
	node.conssetchg = consSetChange{}
	if parent != nil {
		t.releaseParent(parent, node)
	}
}

func (t *Tree) releaseParent(parent, node *Node) {
	switch parent.kind {
	case FocusNode, ProbingNode:
		assert(parent.active, "inactive focus or probing parent")
		return
	case Junction, PseudoFork, Fork, Subroot:
		n := parent.childCount()
		assert(*n > 0, "child counter underflow")
		*n--
		if *n == 0 && !parent.active {
			t.freeNode(parent)
		}
	default:
		panic(fmt.Sprintf("%s cannot be the parent of %s", parent, node))
	}
}

// --- Accessors -------------------------------------------------------------

// Root returns the root node.
func (t *Tree) Root() *Node {
	return t.root
}

// FocusNode returns the focus node, or nil.
func (t *Tree) FocusNode() *Node {
	return t.focusnode
}

// FocusDepth returns the depth of the focus node, or -1.
func (t *Tree) FocusDepth() int {
	if t.focusnode == nil {
		return -1
	}
	return t.focusnode.depth
}

// CurrentNode returns the node whose subproblem is currently represented by
// the domains and the LP: the deepest probing node while probing, the focus
// node otherwise.
func (t *Tree) CurrentNode() *Node {
	if t.IsProbing() {
		return t.path[t.pathlen-1]
	}
	return t.focusnode
}

// CurrentDepth returns the depth of the current node, or -1.
func (t *Tree) CurrentDepth() int {
	if n := t.CurrentNode(); n != nil {
		return n.depth
	}
	return -1
}

// Path returns a copy of the active path.
func (t *Tree) Path() []*Node {
	return append([]*Node(nil), t.path[:t.pathlen]...)
}

// PathLen returns the length of the active path.
func (t *Tree) PathLen() int {
	return t.pathlen
}

// PathLPSize returns the LP size recorded for the active path node at depth d.
func (t *Tree) PathLPSize(d int) (ncols, nrows int) {
	if d < 0 || d >= t.pathlen {
		return 0, 0
	}
	return t.pathnlpcols[d], t.pathnlprows[d]
}

// Children returns a copy of the children array.
func (t *Tree) Children() []*Node {
	return append([]*Node(nil), t.children...)
}

// Siblings returns a copy of the siblings array.
func (t *Tree) Siblings() []*Node {
	return append([]*Node(nil), t.siblings...)
}

// Leaves returns the queued leaves in queue order.
func (t *Tree) Leaves() []*Node {
	return append([]*Node(nil), t.leaves.nodes...)
}

// NChildren returns the number of children of the focus node.
func (t *Tree) NChildren() int { return len(t.children) }

// NSiblings returns the number of siblings of the focus node.
func (t *Tree) NSiblings() int { return len(t.siblings) }

// NLeaves returns the number of queued leaves.
func (t *Tree) NLeaves() int { return t.leaves.Len() }

// NNodes returns the number of open nodes: children, siblings and leaves.
func (t *Tree) NNodes() int {
	return len(t.children) + len(t.siblings) + t.leaves.Len()
}

// NAllocated returns the number of nodes currently allocated.
func (t *Tree) NAllocated() int {
	return t.nnodes
}

// CutoffDepth returns the smallest depth of a cut off node on the active
// path, or -1 if there is none.
func (t *Tree) CutoffDepth() int {
	if t.cutoffdepth == noDepth {
		return -1
	}
	return t.cutoffdepth
}

// ReproPDepth returns the smallest depth of an active node marked for
// repropagation, or -1 if there is none.
func (t *Tree) ReproPDepth() int {
	if t.repropdepth == noDepth {
		return -1
	}
	return t.repropdepth
}

// CorrectLPDepth returns the depth up to which the LP matches the active path.
func (t *Tree) CorrectLPDepth() int {
	return t.correctlpdepth
}

// EffectiveRootDepth returns the depth of the effective root. Every node
// above it has exactly one open child, so bound changes up there are global.
func (t *Tree) EffectiveRootDepth() int {
	return t.effectiverootdepth
}

// FocusLPFork returns the nearest PseudoFork, Fork or Subroot above the focus node.
func (t *Tree) FocusLPFork() *Node { return t.focuslpfork }

// FocusLPStateFork returns the nearest Fork or Subroot above the focus node.
func (t *Tree) FocusLPStateFork() *Node { return t.focuslpstatefork }

// FocusSubroot returns the nearest Subroot above the focus node.
func (t *Tree) FocusSubroot() *Node { return t.focussubroot }

// HasFocusNodeLP reports whether the LP of the focus node has been solved.
func (t *Tree) HasFocusNodeLP() bool {
	return t.focusnodehaslp
}

// SetFocusNodeLP tells the tree whether the focus node's LP has been solved.
func (t *Tree) SetFocusNodeLP(haslp bool) {
	t.focusnodehaslp = haslp
}

// IsFocusLPConstructed reports whether the LP of the focus node has been loaded.
func (t *Tree) IsFocusLPConstructed() bool {
	return t.focuslpconstructed
}

// ResolveLPError reports whether the LP could not be resolved after probing.
func (t *Tree) ResolveLPError() bool {
	return t.resolvelperror
}

// --- Bounds ----------------------------------------------------------------

// UpdateLowerbound raises the lower bound of a node. Lower bounds never decrease.
func (t *Tree) UpdateLowerbound(node *Node, lb float64) {
	if lb <= node.lowerbound {
		return
	}
	node.lowerbound = lb
	if node.estimate < lb {
		node.estimate = lb
	}
	if node.kind == Leaf {
		t.leaves.update(node)
	}
}

// Cutoff marks a node as infeasible. Its lower bound becomes infinite and,
// for active nodes, the tree's cutoff depth is lowered to the node's depth.
func (t *Tree) Cutoff(node *Node) {
	if !node.markCutoff() {
		return
	}
	t.stats.Cutoffs++
	if node.active && node.depth < t.cutoffdepth {
		t.cutoffdepth = node.depth
	}
	if node.kind == Leaf {
		t.leaves.update(node)
	}
	T().Debugf("cut off node %s", node)
	if err := t.emit(NodeInfeasible, node); err != nil {
		T().Errorf("event for cut off node %s: %v", node, err)
	}
}

// PropagateAgain marks a node for repropagation.
func (t *Tree) PropagateAgain(node *Node) {
	if node.reprop {
		return
	}
	node.reprop = true
	if node.active && node.depth < t.repropdepth {
		t.repropdepth = node.depth
	}
	T().Debugf("marked node %s for repropagation", node)
}

// MarkPropagated clears the repropagation mark of a node after it has been
// propagated.
func (t *Tree) MarkPropagated(node *Node) {
	node.reprop = false
	if node.parent != nil {
		node.repropsubtreemark = node.parent.repropsubtreemark
	}
	if node.active && node.depth == t.repropdepth {
		for {
			t.repropdepth++
			if t.repropdepth >= t.pathlen || t.path[t.repropdepth].reprop {
				break
			}
		}
		if t.repropdepth >= t.pathlen {
			t.repropdepth = noDepth
		}
	}
}

// CutoffNodes frees all children, siblings and leaves whose lower bound
// reaches the given cutoff bound.
func (t *Tree) CutoffNodes(cutoffbound float64) {
	var doomed []*Node
	for _, node := range t.leaves.nodes {
		if t.isPrunable(node, cutoffbound) {
			doomed = append(doomed, node)
		}
	}
	for _, node := range doomed {
		t.leaves.remove(node)
		t.freeNode(node)
	}
	for i := len(t.siblings) - 1; i >= 0; i-- {
		if node := t.siblings[i]; t.isPrunable(node, cutoffbound) {
			t.freeNode(node)
		}
	}
	for i := len(t.children) - 1; i >= 0; i-- {
		if node := t.children[i]; t.isPrunable(node, cutoffbound) {
			t.freeNode(node)
		}
	}
	T().Debugf("cutoff bound %g: %d open nodes remain", cutoffbound, t.NNodes())
}

func (t *Tree) isPrunable(node *Node, cutoffbound float64) bool {
	return t.config.isInfinity(node.lowerbound) || t.config.isGE(node.lowerbound, cutoffbound)
}

// Clear frees all nodes of a tree. It must not be called during probing.
func (t *Tree) Clear() error {
	if t.IsProbing() {
		return fmt.Errorf("%w: cannot clear a tree during probing", ErrInvalidState)
	}
	if t.focusnode != nil || len(t.children) > 0 {
		if _, err := t.Focus(nil); err != nil {
			return err
		}
	}
	for t.leaves.Len() > 0 {
		node := t.leaves.first()
		t.leaves.remove(node)
		t.freeNode(node)
	}
	t.pending = t.pending[:0]
	t.cutoffdepth, t.repropdepth = noDepth, noDepth
	t.correctlpdepth = -1
	t.effectiverootdepth = 0
	assert(t.nnodes == 0, "nodes left over after clearing the tree")
	return nil
}
