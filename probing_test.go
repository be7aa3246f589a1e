package bbtree

import (
	"errors"
	"testing"

	"github.com/npillmayer/schuko/tracing/gotestingadapter"
)

func TestProbingBacktrack(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "bbtree")
	defer teardown()

	env := newTestEnv(t, Config{})
	root := env.focusRoot(t)
	env.lp.AddCol(&fakeCol{name: "x0"}, 0)
	env.lp.AddCol(&fakeCol{name: "x1"}, 0)

	if err := env.tree.StartProbing(); err != nil {
		t.Fatal(err)
	}
	if !env.tree.IsProbing() || env.tree.ProbingDepth() != 0 {
		t.Fatalf("expected probing at probing depth 0")
	}
	env.lp.AddCol(&fakeCol{name: "p0"}, 1)
	for i := 1; i <= 3; i++ {
		if err := env.tree.CreateProbingNode(); err != nil {
			t.Fatal(err)
		}
		env.lp.AddCol(&fakeCol{name: "p"}, i+1)
	}
	if env.tree.ProbingDepth() != 3 || env.lp.NCols() != 6 {
		t.Fatalf("expected probing depth 3 with 6 columns, is %d with %d", env.tree.ProbingDepth(), env.lp.NCols())
	}
	env.check(t)

	allocated := env.tree.NAllocated()
	if err := env.tree.BacktrackProbing(1); err != nil {
		t.Fatal(err)
	}
	if env.tree.NAllocated() != allocated-2 {
		t.Fatalf("expected 2 probing nodes to be freed, allocated %d -> %d", allocated, env.tree.NAllocated())
	}
	if env.tree.ProbingDepth() != 1 || env.lp.NCols() != 4 {
		t.Fatalf("expected probing depth 1 with 4 columns, is %d with %d", env.tree.ProbingDepth(), env.lp.NCols())
	}
	env.check(t)

	// backtracking to the current depth changes nothing
	if err := env.tree.BacktrackProbing(1); err != nil {
		t.Fatal(err)
	}
	if env.tree.NAllocated() != allocated-2 || env.lp.NCols() != 4 {
		t.Fatalf("repeated backtrack changed the tree")
	}
	if err := env.tree.BacktrackProbing(2); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected backtrack below current probing depth to fail, got %v", err)
	}

	if err := env.tree.EndProbing(); err != nil {
		t.Fatal(err)
	}
	if env.tree.IsProbing() || env.tree.CurrentNode() != root || env.lp.NCols() != 2 {
		t.Fatalf("expected probing to end at root with 2 columns, have %d", env.lp.NCols())
	}
	if env.tree.NAllocated() != 1 {
		t.Fatalf("expected only the root to remain, %d nodes allocated", env.tree.NAllocated())
	}
	env.check(t)
}

func TestProbingUndoesBoundChanges(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "bbtree")
	defer teardown()

	env := newTestEnv(t, Config{})
	env.focusRoot(t)
	c := env.children(t, 2)
	env.focus(t, c[0])
	x := newVar("x", true, 0, 10)
	if err := env.tree.StartProbing(); err != nil {
		t.Fatal(err)
	}
	probe := env.tree.CurrentNode()
	if probe.Type() != ProbingNode || probe.Parent() != c[0] {
		t.Fatalf("expected probing node below the focus, got %s", probe)
	}
	if err := env.tree.AddBoundChange(probe, x, 7, Lower, Inference{Prop: "probe"}); err != nil {
		t.Fatal(err)
	}
	if x.LB() != 7 || !probe.BoundChanges()[0].Probing {
		t.Fatalf("expected probing bound change to be applied, lb=%g", x.LB())
	}
	if _, err := env.tree.Focus(c[1]); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected focus change during probing to fail, got %v", err)
	}
	if err := env.tree.EndProbing(); err != nil {
		t.Fatal(err)
	}
	if x.LB() != 0 {
		t.Fatalf("expected probing bound change to be undone, lb=%g", x.LB())
	}
	if env.tree.Statistics().ProbingBoundChanges != 1 {
		t.Fatalf("expected 1 probing bound change in statistics")
	}
}

func TestProbingRestoresSolvedLP(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "bbtree")
	defer teardown()

	env := newTestEnv(t, Config{})
	env.focusRoot(t)
	env.lp.AddCol(&fakeCol{name: "x0"}, 0)
	env.lp.Solve()
	env.lp.relax = false
	if err := env.tree.StartProbing(); err != nil {
		t.Fatal(err)
	}
	if !env.lp.IsRelax() {
		t.Fatalf("expected LP to be a relaxation during probing")
	}
	env.lp.AddCol(&fakeCol{name: "p0"}, 1)
	env.lp.Solve()
	if err := env.tree.MarkProbingNodeHasLP(); err != nil {
		t.Fatal(err)
	}
	if !env.tree.HasProbingNodeLP() || env.tree.CurrentNode().LPState() == nil {
		t.Fatalf("expected probing node to keep its LP state")
	}
	if err := env.tree.CreateProbingNode(); err != nil {
		t.Fatal(err)
	}
	if err := env.tree.BacktrackProbing(0); err != nil {
		t.Fatal(err)
	}
	if err := env.tree.LoadProbingLPState(); err != nil {
		t.Fatal(err)
	}
	if env.lp.loaded != env.tree.CurrentNode().LPState() {
		t.Fatalf("expected LP state of the probing node to be loaded")
	}

	if err := env.tree.EndProbing(); err != nil {
		t.Fatal(err)
	}
	if env.lp.NCols() != 1 || env.lp.IsRelax() {
		t.Fatalf("expected LP to be restored, %d columns, relax=%v", env.lp.NCols(), env.lp.IsRelax())
	}
	if env.lp.loaded == nil || env.tree.ResolveLPError() {
		t.Fatalf("expected pre-probing LP state to be restored and resolved")
	}
	// pre-probing state and the probing node's state
	if len(env.lp.freed) != 2 {
		t.Fatalf("expected 2 LP states to be freed, have %d", len(env.lp.freed))
	}
}

func TestProbingRequiresFocus(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "bbtree")
	defer teardown()

	env := newTestEnv(t, Config{})
	if err := env.tree.StartProbing(); !errors.Is(err, ErrNoFocus) {
		t.Fatalf("expected ErrNoFocus, got %v", err)
	}
	if err := env.tree.EndProbing(); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
}
