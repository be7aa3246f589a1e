package bbtree

// nodeData is the type-specific payload of a node. Focus, dead-end and
// refocus nodes carry no payload.
type nodeData interface {
	nodeType() NodeType
}

type childData struct {
	arraypos int
}

type siblingData struct {
	arraypos int
}

type leafData struct {
	lpstatefork *Node // nearest Fork or Subroot ancestor, captured by this leaf
	index       int   // position in the leaf queue
}

type junctionData struct {
	nchildren int
}

type pseudoforkData struct {
	addedcols []Column
	addedrows []Row
	nchildren int
}

type forkData struct {
	addedcols    []Column
	addedrows    []Row
	lpistate     LPState
	nchildren    int
	nlpistateref int
}

type subrootData struct {
	cols         []Column
	rows         []Row
	lpistate     LPState
	nchildren    int
	nlpistateref int
}

type probingData struct {
	lpistate     LPState
	ninitialcols int
	ninitialrows int
	ncols        int
	nrows        int
}

func (*childData) nodeType() NodeType      { return Child }
func (*siblingData) nodeType() NodeType    { return Sibling }
func (*leafData) nodeType() NodeType       { return Leaf }
func (*junctionData) nodeType() NodeType   { return Junction }
func (*pseudoforkData) nodeType() NodeType { return PseudoFork }
func (*forkData) nodeType() NodeType       { return Fork }
func (*subrootData) nodeType() NodeType    { return Subroot }
func (*probingData) nodeType() NodeType    { return ProbingNode }

// setType switches a node to a new type together with its payload.
func (node *Node) setType(nt NodeType, data nodeData) {
	assert(data == nil || data.nodeType() == nt, "node payload does not match node type")
	node.kind = nt
	node.data = data
}

// childCount returns a pointer to the child counter of a former focus node.
func (node *Node) childCount() *int {
	switch d := node.data.(type) {
	case *junctionData:
		return &d.nchildren
	case *pseudoforkData:
		return &d.nchildren
	case *forkData:
		return &d.nchildren
	case *subrootData:
		return &d.nchildren
	}
	return nil
}

func (node *Node) arraypos() int {
	switch d := node.data.(type) {
	case *childData:
		return d.arraypos
	case *siblingData:
		return d.arraypos
	}
	panic("node is neither child nor sibling")
}

func (node *Node) setArraypos(pos int) {
	switch d := node.data.(type) {
	case *childData:
		d.arraypos = pos
	case *siblingData:
		d.arraypos = pos
	default:
		panic("node is neither child nor sibling")
	}
}

func (node *Node) probing() *probingData {
	d, ok := node.data.(*probingData)
	assert(ok, "node is not a probing node")
	return d
}

// releaseRows releases the rows captured by a fork type node.
func releaseRows(rows []Row) {
	for _, r := range rows {
		r.Release()
	}
}

func captureRows(rows []Row) {
	for _, r := range rows {
		r.Capture()
	}
}
