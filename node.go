package bbtree

import (
	"fmt"
	"math"
)

// NodeType is the type tag of a node. The type decides which payload a node
// carries.
type NodeType int8

// Node types.
const (
	FocusNode   NodeType = iota // node currently under expansion
	ProbingNode                 // temporary node of the probing path
	Sibling                     // unsolved sibling of the focus node
	Child                       // unsolved child of the focus node
	Leaf                        // unsolved node in the leaf queue
	DeadEnd                     // former focus node without children
	Junction                    // former focus node without LP information
	PseudoFork                  // former focus node storing added LP columns and rows
	Fork                        // former focus node storing added LP columns and rows plus LP state
	Subroot                     // former focus node storing the complete LP plus LP state
	RefocusNode                 // active node temporarily focused for repropagation
)

func (nt NodeType) String() string {
	switch nt {
	case FocusNode:
		return "focus"
	case ProbingNode:
		return "probing"
	case Sibling:
		return "sibling"
	case Child:
		return "child"
	case Leaf:
		return "leaf"
	case DeadEnd:
		return "deadend"
	case Junction:
		return "junction"
	case PseudoFork:
		return "pseudofork"
	case Fork:
		return "fork"
	case Subroot:
		return "subroot"
	case RefocusNode:
		return "refocus"
	}
	return fmt.Sprintf("nodetype(%d)", int8(nt))
}

// Node is a subproblem of the search tree.
//
// Nodes are owned by the tree that created them. Clients receive pointers to
// nodes, but must not hold on to them after a node has been freed, i.e. after
// it has been cut off or processed.
type Node struct {
	number            int64
	parent            *Node
	lowerbound        float64
	estimate          float64
	depth             int
	kind              NodeType
	data              nodeData
	domchg            domainChange
	conssetchg        consSetChange
	repropsubtreemark int
	active            bool
	cutoff            bool
	reprop            bool
	freed             bool
}

func (node *Node) String() string {
	if node == nil {
		return "<nil node>"
	}
	return fmt.Sprintf("#%d[%s@%d]", node.number, node.kind, node.depth)
}

// Number is the unique number of a node, counting from 1 in order of creation.
func (node *Node) Number() int64 {
	return node.number
}

// Type returns the type of a node.
func (node *Node) Type() NodeType {
	return node.kind
}

// Depth returns the depth of a node, with the root at depth 0.
func (node *Node) Depth() int {
	return node.depth
}

// Parent returns the parent of a node, or nil for the root.
func (node *Node) Parent() *Node {
	return node.parent
}

// LowerBound returns the dual bound of the node's subproblem.
func (node *Node) LowerBound() float64 {
	return node.lowerbound
}

// Estimate returns the estimated objective value of the best solution in the
// node's subtree.
func (node *Node) Estimate() float64 {
	return node.estimate
}

// SetEstimate sets the estimate of a node. Estimates must not be smaller than
// the lower bound.
func (node *Node) SetEstimate(estimate float64) {
	if estimate < node.lowerbound {
		estimate = node.lowerbound
	}
	node.estimate = estimate
}

// IsActive reports whether a node is on the active path.
func (node *Node) IsActive() bool {
	return node.active
}

// IsCutoff reports whether a node has been cut off.
func (node *Node) IsCutoff() bool {
	return node.cutoff
}

// ReproPending reports whether a node is marked for repropagation.
func (node *Node) ReproPending() bool {
	return node.reprop
}

// BoundChanges returns a copy of the local bound changes of a node.
func (node *Node) BoundChanges() []BoundChange {
	bcs := make([]BoundChange, len(node.domchg.boundchgs))
	copy(bcs, node.domchg.boundchgs)
	return bcs
}

// AddedConstraints returns the constraints added locally at a node.
func (node *Node) AddedConstraints() []Constraint {
	return append([]Constraint(nil), node.conssetchg.added...)
}

// DisabledConstraints returns the constraints disabled locally at a node.
func (node *Node) DisabledConstraints() []Constraint {
	return append([]Constraint(nil), node.conssetchg.disabled...)
}

// NChildren returns the number of unprocessed children in the subtree of a
// former focus node. For other node types it returns 0.
func (node *Node) NChildren() int {
	switch d := node.data.(type) {
	case *junctionData:
		return d.nchildren
	case *pseudoforkData:
		return d.nchildren
	case *forkData:
		return d.nchildren
	case *subrootData:
		return d.nchildren
	}
	return 0
}

// LPStateRefs returns the reference count of the LP state of a Fork or
// Subroot node. For other node types it returns 0.
func (node *Node) LPStateRefs() int {
	switch d := node.data.(type) {
	case *forkData:
		return d.nlpistateref
	case *subrootData:
		return d.nlpistateref
	}
	return 0
}

// AddedCols returns the LP columns stored at a (pseudo-)fork, or the
// complete LP columns of a subroot.
func (node *Node) AddedCols() []Column {
	switch d := node.data.(type) {
	case *pseudoforkData:
		return d.addedcols
	case *forkData:
		return d.addedcols
	case *subrootData:
		return d.cols
	}
	return nil
}

// AddedRows returns the LP rows stored at a (pseudo-)fork, or the complete
// LP rows of a subroot.
func (node *Node) AddedRows() []Row {
	switch d := node.data.(type) {
	case *pseudoforkData:
		return d.addedrows
	case *forkData:
		return d.addedrows
	case *subrootData:
		return d.rows
	}
	return nil
}

// LPState returns the LP state stored at a Fork, Subroot or probing node.
func (node *Node) LPState() LPState {
	switch d := node.data.(type) {
	case *forkData:
		return d.lpistate
	case *subrootData:
		return d.lpistate
	case *probingData:
		return d.lpistate
	}
	return nil
}

func (node *Node) isForkType() bool {
	return node.kind == PseudoFork || node.kind == Fork || node.kind == Subroot
}

func (node *Node) isLPStateFork() bool {
	return node.kind == Fork || node.kind == Subroot
}

// markCutoff sets the cutoff flag. It reports whether the flag has been newly set.
func (node *Node) markCutoff() bool {
	if node.cutoff {
		return false
	}
	node.cutoff = true
	node.lowerbound = math.Inf(1)
	node.estimate = math.Inf(1)
	return true
}
