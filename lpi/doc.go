/*
Package lpi implements a small LP service for the search tree.

The LP keeps columns and rows in creation order, supports the size mark and
shrink operations the tree uses to replay LP deltas along the active path,
and solves the relaxation with the simplex method of gonum.org/v1/gonum.
Bases are handed out as opaque *Basis values which may be used to warm-start
later solves.

_________________________________________________________________________

# BSD 3-Clause License

# Copyright (c) 2021–26, Norbert Pillmayer

Please refer to the LICENSE file for details.
*/
package lpi

import (
	"github.com/npillmayer/schuko/tracing"
)

// tracer writes to trace with key 'bbtree'
func tracer() tracing.Trace {
	return tracing.Select("bbtree")
}
