package nodesel

import (
	"fmt"

	"github.com/npillmayer/bbtree"
)

// BestBound orders nodes by lower bound, then by estimate.
type BestBound struct{}

// BestEstimate orders nodes by estimate, then by lower bound.
type BestEstimate struct{}

// DepthFirst prefers deeper nodes, ties broken by lower bound.
type DepthFirst struct{}

var (
	_ bbtree.NodeSelector = BestBound{}
	_ bbtree.NodeSelector = BestEstimate{}
	_ bbtree.NodeSelector = DepthFirst{}
)

func (BestBound) Compare(a, b *bbtree.Node) int {
	if c := cmpFloat(a.LowerBound(), b.LowerBound()); c != 0 {
		return c
	}
	if c := cmpFloat(a.Estimate(), b.Estimate()); c != 0 {
		return c
	}
	return cmpNumber(a, b)
}

func (BestEstimate) Compare(a, b *bbtree.Node) int {
	if c := cmpFloat(a.Estimate(), b.Estimate()); c != 0 {
		return c
	}
	if c := cmpFloat(a.LowerBound(), b.LowerBound()); c != 0 {
		return c
	}
	return cmpNumber(a, b)
}

func (DepthFirst) Compare(a, b *bbtree.Node) int {
	if a.Depth() != b.Depth() {
		return b.Depth() - a.Depth()
	}
	if c := cmpFloat(a.LowerBound(), b.LowerBound()); c != 0 {
		return c
	}
	return cmpNumber(a, b)
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// cmpNumber prefers older nodes.
func cmpNumber(a, b *bbtree.Node) int {
	switch {
	case a.Number() < b.Number():
		return -1
	case a.Number() > b.Number():
		return 1
	}
	return 0
}

// ByName returns the selector for one of the names "bestbound",
// "bestestimate" and "depthfirst".
func ByName(name string) (bbtree.NodeSelector, error) {
	switch name {
	case "bestbound", "":
		return BestBound{}, nil
	case "bestestimate":
		return BestEstimate{}, nil
	case "depthfirst", "dfs":
		return DepthFirst{}, nil
	}
	return nil, fmt.Errorf("nodesel: unknown node selector %q", name)
}
