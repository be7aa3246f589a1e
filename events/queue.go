package events

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/guiguan/caster"
	"github.com/npillmayer/bbtree"
)

// ErrClosed signals an operation on a closed queue.
var ErrClosed = errors.New("events: queue closed")

// Handler is called for each dispatched event matching its mask.
type Handler func(ev bbtree.Event) error

type registration struct {
	mask    bbtree.EventType
	handler Handler
}

// Notice is a snapshot of an event for asynchronous subscribers.
type Notice struct {
	Type       bbtree.EventType
	Node       int64 // node number, 0 for bound events
	Depth      int
	LowerBound float64
	Var        string
	OldBound   float64
	NewBound   float64
}

func (n Notice) String() string {
	if n.Var != "" {
		return fmt.Sprintf("<%s %s: %g -> %g>", n.Type, n.Var, n.OldBound, n.NewBound)
	}
	return fmt.Sprintf("<%s #%d@%d>", n.Type, n.Node, n.Depth)
}

func noticeOf(ev bbtree.Event) Notice {
	n := Notice{Type: ev.Type, OldBound: ev.OldBound, NewBound: ev.NewBound}
	if ev.Node != nil {
		n.Node = ev.Node.Number()
		n.Depth = ev.Node.Depth()
		n.LowerBound = ev.Node.LowerBound()
	}
	if ev.Var != nil {
		n.Var = ev.Var.Name()
	}
	return n
}

// Queue is an event queue. It implements bbtree.EventQueue.
//
// Delay, Process, Add and Register must be called from the goroutine
// driving the tree. Subscribe and Close may be called from any goroutine.
type Queue struct {
	delayed  bool
	buffer   []bbtree.Event
	handlers []registration
	counts   map[bbtree.EventType]int64
	cast     *caster.Caster // broadcaster for subscribers
	mu       sync.Mutex     // guards nsubs and closed
	nsubs    int
	closed   bool
}

var _ bbtree.EventQueue = (*Queue)(nil)

// NewQueue creates an event queue without handlers.
func NewQueue() *Queue {
	return &Queue{
		counts: make(map[bbtree.EventType]int64),
		cast:   caster.New(nil),
	}
}

// Register adds a handler for all events matching mask.
func (q *Queue) Register(mask bbtree.EventType, h Handler) {
	q.handlers = append(q.handlers, registration{mask: mask, handler: h})
}

// Delay buffers events until the next call to Process.
func (q *Queue) Delay() {
	q.delayed = true
}

// IsDelayed reports whether events are currently buffered.
func (q *Queue) IsDelayed() bool {
	return q.delayed
}

// Pending returns the number of buffered events.
func (q *Queue) Pending() int {
	return len(q.buffer)
}

// Process ends buffering and dispatches all buffered events in order.
// Dispatching continues after handler errors; all errors are returned.
func (q *Queue) Process() error {
	q.delayed = false
	var errs []error
	for len(q.buffer) > 0 {
		batch := q.buffer
		q.buffer = nil
		for _, ev := range batch {
			if err := q.dispatch(ev); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// Add dispatches an event, or buffers it if the queue is delayed.
func (q *Queue) Add(ev bbtree.Event) error {
	if q.delayed {
		q.buffer = append(q.buffer, ev)
		return nil
	}
	return q.dispatch(ev)
}

// Count returns the number of dispatched events of a type.
func (q *Queue) Count(et bbtree.EventType) int64 {
	return q.counts[et]
}

func (q *Queue) dispatch(ev bbtree.Event) error {
	q.counts[ev.Type]++
	var errs []error
	for _, r := range q.handlers {
		if r.mask&ev.Type == 0 {
			continue
		}
		if err := r.handler(ev); err != nil {
			tracer().Errorf("handler for event %s: %v", ev, err)
			errs = append(errs, err)
		}
	}
	q.mu.Lock()
	publish := q.nsubs > 0 && !q.closed
	q.mu.Unlock()
	if publish {
		q.cast.Pub(noticeOf(ev))
	}
	return errors.Join(errs...)
}

// Subscribe returns a channel receiving a Notice for every dispatched
// event. The channel is closed when ctx is done or the queue is closed.
// A subscriber which does not keep up slows down the solver once capacity
// notices are queued.
func (q *Queue) Subscribe(ctx context.Context, capacity uint) (<-chan Notice, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil, ErrClosed
	}
	sub, ok := q.cast.Sub(ctx, capacity)
	if !ok {
		return nil, ErrClosed
	}
	q.nsubs++
	notices := make(chan Notice, capacity)
	go func() {
		defer func() {
			close(notices)
			q.mu.Lock()
			q.nsubs--
			q.mu.Unlock()
		}()
		for msg := range sub {
			n, ok := msg.(Notice)
			if !ok {
				continue
			}
			select {
			case notices <- n:
			case <-ctx.Done():
				q.cast.Unsub(sub)
				return
			}
		}
	}()
	return notices, nil
}

// Close closes the queue for subscribers. Handlers keep working.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	q.cast.Close()
}
