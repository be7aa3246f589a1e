package vardom

import (
	"errors"
	"math"
	"testing"

	"github.com/npillmayer/bbtree"
	"github.com/npillmayer/schuko/tracing/gotestingadapter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder is an event queue which records bound events.
type recorder struct {
	events []bbtree.Event
}

func (r *recorder) Delay()         {}
func (r *recorder) Process() error { return nil }
func (r *recorder) Add(ev bbtree.Event) error {
	r.events = append(r.events, ev)
	return nil
}

func TestNewVariable(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "bbtree")
	defer teardown()

	s := NewStore(nil)
	x, err := s.NewVariable("x", true, 1, -0.5, 3.7)
	require.NoError(t, err)
	assert.Equal(t, 0.0, x.LB())
	assert.Equal(t, 3.0, x.UB())
	assert.True(t, math.IsNaN(x.RelaxValue()))
	_, err = s.NewVariable("x", false, 0, 0, 1)
	assert.ErrorIs(t, err, ErrDuplicateVariable)
	_, err = s.NewVariable("y", false, 0, 2, 1)
	assert.ErrorIs(t, err, ErrEmptyDomain)
	assert.Same(t, x, s.Var("x"))
	assert.Len(t, s.Variables(), 1)
}

func TestApplyAndUndo(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "bbtree")
	defer teardown()

	rec := &recorder{}
	s := NewStore(rec)
	x, _ := s.NewVariable("x", true, 0, 0, 10)
	cutoff, err := s.Apply(x, bbtree.Upper, 6.2, 1, bbtree.Inference{})
	require.NoError(t, err)
	assert.False(t, cutoff)
	assert.Equal(t, 6.0, x.UB())
	cutoff, err = s.Apply(x, bbtree.Lower, 2, 2, bbtree.Inference{Prop: "linear"})
	require.NoError(t, err)
	assert.False(t, cutoff)
	assert.Equal(t, 2, s.HistoryLen())
	lower, upper := s.Inferences(x)
	assert.Equal(t, 1, lower)
	assert.Equal(t, 0, upper)
	assert.Equal(t, int64(1), s.NInferences())

	require.NoError(t, s.Undo(x, bbtree.Lower, 0, 2))
	require.NoError(t, s.Undo(x, bbtree.Upper, 10, 1))
	assert.Equal(t, 0.0, x.LB())
	assert.Equal(t, 10.0, x.UB())
	assert.Equal(t, 0, s.HistoryLen())
	assert.ErrorIs(t, s.Undo(x, bbtree.Upper, 10, 1), ErrUndo)

	require.Len(t, rec.events, 4)
	assert.Equal(t, bbtree.BoundTightened, rec.events[0].Type)
	assert.Equal(t, 6.0, rec.events[0].NewBound)
	assert.Equal(t, bbtree.BoundRelaxed, rec.events[3].Type)
	assert.Equal(t, 10.0, rec.events[3].NewBound)
}

func TestApplyEmptyDomainReportsCutoff(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "bbtree")
	defer teardown()

	s := NewStore(nil)
	x, _ := s.NewVariable("x", false, 0, 0, 10)
	_, err := s.Apply(x, bbtree.Upper, 3, 1, bbtree.Inference{})
	require.NoError(t, err)
	cutoff, err := s.Apply(x, bbtree.Lower, 5, 2, bbtree.Inference{})
	require.NoError(t, err)
	assert.True(t, cutoff)
}

func TestConflictingDepth(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "bbtree")
	defer teardown()

	s := NewStore(nil)
	x, _ := s.NewVariable("x", true, 0, 0, 10)
	y, _ := s.NewVariable("y", true, 0, 0, 10)
	_, _ = s.Apply(x, bbtree.Upper, 7, 1, bbtree.Inference{})
	_, _ = s.Apply(x, bbtree.Upper, 4, 3, bbtree.Inference{})
	assert.Equal(t, -1, s.ConflictingDepth(x, bbtree.Lower, 4))
	assert.Equal(t, 3, s.ConflictingDepth(x, bbtree.Lower, 5))
	assert.Equal(t, 1, s.ConflictingDepth(x, bbtree.Lower, 8))
	assert.Equal(t, 0, s.ConflictingDepth(x, bbtree.Lower, 11))
	assert.Equal(t, -1, s.ConflictingDepth(y, bbtree.Lower, 8))
	assert.Equal(t, -1, s.ConflictingDepth(x, bbtree.Upper, 1))
}

func TestChangeGlobal(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "bbtree")
	defer teardown()

	s := NewStore(nil)
	x, _ := s.NewVariable("x", false, 0, 0, 10)
	require.NoError(t, s.ChangeGlobal(x, bbtree.Lower, 3))
	assert.Equal(t, 3.0, x.GlobalLB())
	assert.Equal(t, 3.0, x.LB())
	require.NoError(t, s.ChangeGlobal(x, bbtree.Lower, 1))
	assert.Equal(t, 3.0, x.GlobalLB())
	assert.ErrorIs(t, s.ChangeGlobal(x, bbtree.Upper, 2), ErrEmptyDomain)

	other := NewStore(nil)
	assert.ErrorIs(t, other.ChangeGlobal(x, bbtree.Lower, 4), ErrUnknownVariable)
}

func TestUndoKeepsGlobalBounds(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "bbtree")
	defer teardown()

	q := &recorder{}
	s := NewStore(q)
	x, _ := s.NewVariable("x", true, 0, 0, 10)
	cutoff, err := s.Apply(x, bbtree.Upper, 8, 1, bbtree.Inference{})
	require.NoError(t, err)
	require.False(t, cutoff)
	require.NoError(t, s.ChangeGlobal(x, bbtree.Upper, 5))
	assert.Equal(t, 5.0, x.UB())
	require.Len(t, q.events, 2)
	assert.Equal(t, bbtree.BoundTightened, q.events[1].Type)

	require.NoError(t, s.Undo(x, bbtree.Upper, 10, 1))
	assert.Equal(t, 5.0, x.UB())
	require.Len(t, q.events, 3)
	assert.Equal(t, bbtree.BoundRelaxed, q.events[2].Type)
	assert.Equal(t, 5.0, q.events[2].NewBound)

	cutoff, err = s.Apply(x, bbtree.Lower, 9, 1, bbtree.Inference{})
	require.NoError(t, err)
	assert.True(t, cutoff)
}

// failing is an event queue rejecting every event.
type failing struct{}

func (failing) Delay()                 {}
func (failing) Process() error         { return nil }
func (failing) Add(bbtree.Event) error { return errFailing }

var errFailing = errors.New("queue full")

func TestChangeGlobalReportsEventErrors(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "bbtree")
	defer teardown()

	s := NewStore(failing{})
	x, err := s.NewVariable("x", false, 0, 0, 10)
	require.NoError(t, err)
	assert.ErrorIs(t, s.ChangeGlobal(x, bbtree.Upper, 4), errFailing)
	assert.Equal(t, 4.0, x.GlobalUB())
}
