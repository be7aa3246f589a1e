/*
Package bbtree implements the search tree of a branch-and-bound solver for
constraint integer programs.

Nodes

Every subproblem of the search is represented by a Node. A node carries its
local domain changes (bound changes on variables) and constraint set changes
(locally added or disabled constraints). The role of a node changes over its
lifetime: it is created as a child of the focus node, may become a sibling of
the next focus node, may be moved to the leaf queue, and is eventually focused
itself. When the search moves on, a former focus node is converted into one of
the "fork" types, depending on what happened to the LP relaxation while it was
focused:

   Junction     no LP information is kept
   PseudoFork   columns and rows added to the LP are kept
   Fork         added columns and rows are kept, plus the final LP basis
   Subroot      the complete LP is kept, plus the final LP basis

Fork and Subroot nodes share their LP basis with all of their open
descendants by reference counting. The basis is released the moment no
child, sibling or leaf refers to it any more.

Active path

The nodes holding applied domain changes form the active path, reaching from
the root to the focus node (or to the deepest probing node). Focusing a
different node switches the path: the obsolete part is undone in reverse
order, then the new part is applied from top to bottom. Bound changes that
would break the ordering of the path are deferred to a pending queue and
re-applied on the next switch.

Probing

Probing is a temporary, strictly backtrackable extension of the active path
below the focus node. It is used for look-ahead and never touches children,
siblings or leaves of the tree.

Collaborators

The tree does not solve LPs, propagate constraints or choose nodes on its
own. These services are handed in by the client (see Services) and are
called synchronously.

_________________________________________________________________________

BSD 3-Clause License

Copyright (c) 2021–26, Norbert Pillmayer

All rights reserved.

Redistribution and use in source and binary forms, with or without
modification, are permitted provided that the following conditions are met:

1. Redistributions of source code must retain the above copyright notice, this
list of conditions and the following disclaimer.

2. Redistributions in binary form must reproduce the above copyright notice,
this list of conditions and the following disclaimer in the documentation
and/or other materials provided with the distribution.

3. Neither the name of the copyright holder nor the names of its
contributors may be used to endorse or promote products derived from
this software without specific prior written permission.

THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND CONTRIBUTORS "AS IS"
AND ANY EXPRESS OR IMPLIED WARRANTIES, INCLUDING, BUT NOT LIMITED TO, THE
IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS FOR A PARTICULAR PURPOSE ARE
DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT HOLDER OR CONTRIBUTORS BE LIABLE
FOR ANY DIRECT, INDIRECT, INCIDENTAL, SPECIAL, EXEMPLARY, OR CONSEQUENTIAL
DAMAGES (INCLUDING, BUT NOT LIMITED TO, PROCUREMENT OF SUBSTITUTE GOODS OR
SERVICES; LOSS OF USE, DATA, OR PROFITS; OR BUSINESS INTERRUPTION) HOWEVER
CAUSED AND ON ANY THEORY OF LIABILITY, WHETHER IN CONTRACT, STRICT LIABILITY,
OR TORT (INCLUDING NEGLIGENCE OR OTHERWISE) ARISING IN ANY WAY OUT OF THE USE
OF THIS SOFTWARE, EVEN IF ADVISED OF THE POSSIBILITY OF SUCH DAMAGE.

*/
package bbtree

import (
	"github.com/npillmayer/schuko/tracing"
)

// T traces to the tracer with key 'bbtree'.
func T() tracing.Trace {
	return tracing.Select("bbtree")
}

func assert(condition bool, msg string) {
	if !condition {
		panic(msg)
	}
}
