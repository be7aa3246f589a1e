/*
Package vardom implements the variable and bound service of the search tree.

A Store holds the problem variables with their global and local bounds and a
history of the local bound changes along the active path. The history
answers the question which depth of the active path a new bound contradicts.
A Registry holds linear constraints and tracks which of them are active at
the current node, and Propagator tightens bounds from the activities of the
active linear constraints.

_________________________________________________________________________

# BSD 3-Clause License

# Copyright (c) 2021–26, Norbert Pillmayer

Please refer to the LICENSE file for details.
*/
package vardom

import (
	"github.com/npillmayer/schuko/tracing"
)

// tracer writes to trace with key 'bbtree'
func tracer() tracing.Trace {
	return tracing.Select("bbtree")
}
