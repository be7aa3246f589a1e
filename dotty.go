package bbtree

import (
	"fmt"
	"io"
	"sort"
)

// Tree2Dot outputs the currently allocated nodes of a search tree in Graphviz
// DOT format (for debugging purposes). Only nodes reachable from the active
// path or from an open node are written.
func Tree2Dot(t *Tree, w io.Writer) error {
	nodes := t.allocatedNodes()
	if _, err := io.WriteString(w, "strict digraph {\n"); err != nil {
		return err
	}
	io.WriteString(w, "\tnode [fontname=Arial,fontsize=12];\n")
	nodelist, edgelist := "", ""
	for _, node := range nodes {
		label := fmt.Sprintf("#%d %s\\nd=%d lb=%s", node.number, node.kind, node.depth, dotBound(node.lowerbound))
		if refs := node.LPStateRefs(); refs > 0 {
			label += fmt.Sprintf("\\nrefs=%d", refs)
		}
		nodelist += fmt.Sprintf("\t\"%d\" [label=\"%s\"%s];\n", node.number, label, nodeDotStyles(t, node))
		if node.parent != nil {
			edgelist += fmt.Sprintf("\t\"%d\" -> \"%d\";\n", node.parent.number, node.number)
		}
	}
	io.WriteString(w, nodelist)
	io.WriteString(w, edgelist)
	_, err := io.WriteString(w, "}\n")
	return err
}

// allocatedNodes collects the open nodes, the active path and all their
// ancestors, ordered by node number.
func (t *Tree) allocatedNodes() []*Node {
	seen := make(map[*Node]bool)
	var nodes []*Node
	add := func(node *Node) {
		for n := node; n != nil && !seen[n]; n = n.parent {
			seen[n] = true
			nodes = append(nodes, n)
		}
	}
	for i := 0; i < t.pathlen; i++ {
		add(t.path[i])
	}
	add(t.focusnode)
	for _, node := range t.children {
		add(node)
	}
	for _, node := range t.siblings {
		add(node)
	}
	for _, node := range t.leaves.nodes {
		add(node)
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].number < nodes[j].number })
	return nodes
}

func dotBound(b float64) string {
	return fmt.Sprintf("%.4g", b)
}

func nodeDotStyles(t *Tree, node *Node) string {
	s := ",style=filled"
	switch node.kind {
	case Child, Sibling, Leaf:
		s += ",shape=box"
	case ProbingNode:
		s += ",shape=diamond"
	default:
		s += ",shape=ellipse"
	}
	switch {
	case node.cutoff:
		s += ",fillcolor=\"#ff9944\""
	case node == t.focusnode:
		s += ",fillcolor=\"#ffcc00\""
	case node.active:
		s += ",fillcolor=\"#a3d7e4\""
	default:
		s += ",fillcolor=white"
	}
	return s
}
