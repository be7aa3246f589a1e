package bbtree

import "errors"

var (
	// ErrInvalidState signals an operation on a node of the wrong type or an
	// operation called out of sequence.
	ErrInvalidState = errors.New("bbtree: invalid state")
	// ErrDepthLimit signals that a node would exceed the maximum tree depth.
	ErrDepthLimit = errors.New("bbtree: maximum tree depth exceeded")
	// ErrLP wraps failures reported by the LP service.
	ErrLP = errors.New("bbtree: LP error")
	// ErrInvalidBranching signals a branching request which cannot be served,
	// e.g. a continuous variable without a branching point.
	ErrInvalidBranching = errors.New("bbtree: invalid branching")
	// ErrInvalidConfig signals an invalid tree configuration.
	ErrInvalidConfig = errors.New("bbtree: invalid configuration")
	// ErrNoFocus signals that an operation requires a focus node.
	ErrNoFocus = errors.New("bbtree: no focus node")
)
