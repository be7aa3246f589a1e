package bbtree

import "fmt"

// EventType classifies events raised by the tree and its services.
type EventType uint16

// Event types.
const (
	NodeFocused EventType = 1 << iota
	NodeActivated
	NodeDeactivated
	NodeBranched
	NodeInfeasible
	BoundTightened
	BoundRelaxed
)

// NodeEvents matches all node related events.
const NodeEvents = NodeFocused | NodeActivated | NodeDeactivated | NodeBranched | NodeInfeasible

// BoundEvents matches all bound change events.
const BoundEvents = BoundTightened | BoundRelaxed

func (et EventType) String() string {
	switch et {
	case NodeFocused:
		return "focused"
	case NodeActivated:
		return "activated"
	case NodeDeactivated:
		return "deactivated"
	case NodeBranched:
		return "branched"
	case NodeInfeasible:
		return "infeasible"
	case BoundTightened:
		return "tightened"
	case BoundRelaxed:
		return "relaxed"
	}
	return fmt.Sprintf("event(%d)", uint16(et))
}

// Event is a notification raised by the tree or one of its services.
type Event struct {
	Type     EventType
	Node     *Node
	Var      Var
	OldBound float64
	NewBound float64
}

func (ev Event) String() string {
	if ev.Var != nil {
		return fmt.Sprintf("<%s %s: %g -> %g>", ev.Type, ev.Var.Name(), ev.OldBound, ev.NewBound)
	}
	return fmt.Sprintf("<%s %s>", ev.Type, ev.Node)
}

func (t *Tree) emit(et EventType, node *Node) error {
	if t.events == nil {
		return nil
	}
	return t.events.Add(Event{Type: et, Node: node})
}

func (t *Tree) delayEvents() {
	if t.events != nil {
		t.events.Delay()
	}
}

func (t *Tree) processEvents() error {
	if t.events == nil {
		return nil
	}
	return t.events.Process()
}
