/*
Package nodesel contains node selection policies for the search tree.

Selectors order the open leaves of a tree (best bound, best estimate, depth
first). A Scorer calculates the node selection priority and the objective
estimate of children created by branching. Scorers learn from the outcome
of branchings through pseudocosts and inference counts.

_________________________________________________________________________

# BSD 3-Clause License

# Copyright (c) 2021–26, Norbert Pillmayer

Please refer to the LICENSE file for details.
*/
package nodesel

import (
	"github.com/npillmayer/schuko/tracing"
)

// tracer writes to trace with key 'bbtree'
func tracer() tracing.Trace {
	return tracing.Select("bbtree")
}
