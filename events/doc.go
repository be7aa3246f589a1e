/*
Package events implements the event queue of the search tree.

A Queue dispatches node and bound events to handlers registered for a mask
of event types. While the tree switches the active path the queue is
delayed: events are buffered and dispatched in order when the tree calls
Process. Handlers run synchronously on the goroutine of the solver.

In addition, a queue broadcasts snapshots of all dispatched events to
asynchronous subscribers, e.g. progress monitors. Subscribers receive a
Notice, which does not reference tree nodes and is safe to use from other
goroutines.

_________________________________________________________________________

# BSD 3-Clause License

# Copyright (c) 2021–26, Norbert Pillmayer

Please refer to the LICENSE file for details.
*/
package events

import (
	"github.com/npillmayer/schuko/tracing"
)

// tracer writes to trace with key 'bbtree'
func tracer() tracing.Trace {
	return tracing.Select("bbtree")
}
