/*
Package metrics exports the statistics of a search tree to Prometheus.

A Collector reads the statistics and the current size of a tree each time
it is scraped. A Recorder observes the durations of node processing and LP
solves, which a driver reports while running the search.

_________________________________________________________________________

# BSD 3-Clause License

# Copyright (c) 2021–26, Norbert Pillmayer

Please refer to the LICENSE file for details.
*/
package metrics

import (
	"github.com/npillmayer/schuko/tracing"
)

// tracer writes to trace with key 'bbtree'
func tracer() tracing.Trace {
	return tracing.Select("bbtree")
}
