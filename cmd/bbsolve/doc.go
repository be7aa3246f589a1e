/*
Command bbsolve solves small mixed integer linear programs by
branch-and-bound over a bbtree search tree.

Usage:

	bbsolve [flags] problem.yaml

The problem file lists variables, linear constraints and search options
(see type Problem). bbsolve prints a summary of the run; it can additionally
write the final search tree in DOT format and dump the run's metrics.

_________________________________________________________________________

# BSD 3-Clause License

# Copyright (c) 2021–26, Norbert Pillmayer

Please refer to the LICENSE file for details.
*/
package main

import (
	"github.com/npillmayer/schuko/tracing"
)

// tracer writes to trace with key 'bbtree'
func tracer() tracing.Trace {
	return tracing.Select("bbtree")
}
