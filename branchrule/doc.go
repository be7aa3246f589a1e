/*
Package branchrule selects branching variables for drivers of the search
tree.

Candidates collects the integral variables with fractional relaxation values
and orders them by a score in an indexed heap. The most fractional rule
prefers values close to one half, the pseudocost rule prefers variables with
a large estimated gain in both directions.

_________________________________________________________________________

# BSD 3-Clause License

# Copyright (c) 2021–26, Norbert Pillmayer

Please refer to the LICENSE file for details.
*/
package branchrule

import (
	"github.com/npillmayer/schuko/tracing"
)

// tracer writes to trace with key 'bbtree'
func tracer() tracing.Trace {
	return tracing.Select("bbtree")
}
