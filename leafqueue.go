package bbtree

import (
	"container/heap"
	"math"
)

// leafQueue is the priority queue of leaves, ordered by a node selector.
// It additionally keeps track of the leaf with minimal lower bound.
type leafQueue struct {
	nodes    []*Node
	selector NodeSelector
	lbnode   *Node // cached leaf with minimal lower bound, nil if unknown
}

func newLeafQueue(sel NodeSelector) *leafQueue {
	return &leafQueue{selector: sel}
}

// heap.Interface

func (q *leafQueue) Len() int { return len(q.nodes) }

func (q *leafQueue) Less(i, j int) bool {
	return q.selector.Compare(q.nodes[i], q.nodes[j]) < 0
}

func (q *leafQueue) Swap(i, j int) {
	q.nodes[i], q.nodes[j] = q.nodes[j], q.nodes[i]
	q.nodes[i].data.(*leafData).index = i
	q.nodes[j].data.(*leafData).index = j
}

func (q *leafQueue) Push(x any) {
	node := x.(*Node)
	node.data.(*leafData).index = len(q.nodes)
	q.nodes = append(q.nodes, node)
}

func (q *leafQueue) Pop() any {
	n := len(q.nodes)
	node := q.nodes[n-1]
	q.nodes[n-1] = nil
	q.nodes = q.nodes[:n-1]
	node.data.(*leafData).index = -1
	return node
}

// ---------------------------------------------------------------------------

func (q *leafQueue) insert(node *Node) {
	assert(node.kind == Leaf, "only leaves may be queued")
	heap.Push(q, node)
	if q.lbnode != nil && node.lowerbound < q.lbnode.lowerbound {
		q.lbnode = node
	}
}

func (q *leafQueue) remove(node *Node) {
	d := node.data.(*leafData)
	assert(d.index >= 0 && d.index < len(q.nodes) && q.nodes[d.index] == node, "leaf is not in queue")
	heap.Remove(q, d.index)
	if q.lbnode == node {
		q.lbnode = nil
	}
}

// update restores the heap order after the lower bound or estimate of a
// queued leaf changed.
func (q *leafQueue) update(node *Node) {
	d := node.data.(*leafData)
	if d.index < 0 {
		return
	}
	heap.Fix(q, d.index)
	if q.lbnode == node {
		q.lbnode = nil
	} else if q.lbnode != nil && node.lowerbound < q.lbnode.lowerbound {
		q.lbnode = node
	}
}

func (q *leafQueue) first() *Node {
	if len(q.nodes) == 0 {
		return nil
	}
	return q.nodes[0]
}

func (q *leafQueue) lowerboundNode() *Node {
	if q.lbnode == nil {
		lb := math.Inf(1)
		for _, node := range q.nodes {
			if q.lbnode == nil || node.lowerbound < lb {
				q.lbnode, lb = node, node.lowerbound
			}
		}
	}
	return q.lbnode
}

// setSelector changes the queue order.
func (q *leafQueue) setSelector(sel NodeSelector) {
	q.selector = sel
	heap.Init(q)
}

// ---------------------------------------------------------------------------

// lowerboundSelector is the default node selector: best bound first, ties
// broken by estimate and then by creation order.
type lowerboundSelector struct{}

func (lowerboundSelector) Compare(a, b *Node) int {
	switch {
	case a.lowerbound < b.lowerbound:
		return -1
	case a.lowerbound > b.lowerbound:
		return 1
	case a.estimate < b.estimate:
		return -1
	case a.estimate > b.estimate:
		return 1
	case a.number < b.number:
		return -1
	case a.number > b.number:
		return 1
	}
	return 0
}
