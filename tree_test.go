package bbtree

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/npillmayer/schuko/tracing/gotestingadapter"
)

func TestNewRejectsInvalidConfig(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "bbtree")
	defer teardown()

	services := Services{LP: newFakeLP(), Domains: &fakeDomains{}}
	for _, cfg := range []Config{
		{MaxDepth: -1},
		{MaxDepth: DefaultMaxDepth + 1},
		{SubrootInterval: -3},
		{ArrayGrowth: 0.5},
		{Infinity: math.Inf(1)},
	} {
		if _, err := New(cfg, services); !errors.Is(err, ErrInvalidConfig) {
			t.Fatalf("expected ErrInvalidConfig for %+v, got %v", cfg, err)
		}
	}
	if _, err := New(Config{}, Services{Domains: &fakeDomains{}}); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig for missing LP, got %v", err)
	}
}

func TestNewStoresNormalizedConfig(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "bbtree")
	defer teardown()

	env := newTestEnv(t, Config{SubrootInterval: 4})
	cfg := env.tree.Config()
	if cfg.MaxDepth != DefaultMaxDepth || cfg.Infinity != DefaultInfinity || cfg.SubrootInterval != 4 {
		t.Fatalf("unexpected normalized config %+v", cfg)
	}
	if env.tree.CutoffBound() != math.Inf(1) {
		t.Fatalf("expected initial cutoff bound +Inf, got %g", env.tree.CutoffBound())
	}
	env.check(t)
}

func TestCreateAndFocusRoot(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "bbtree")
	defer teardown()

	env := newTestEnv(t, Config{})
	root := env.focusRoot(t)
	if env.tree.Root() != root || env.tree.FocusNode() != root {
		t.Fatalf("expected root to be the focus node")
	}
	if root.Type() != FocusNode || root.Depth() != 0 || !root.IsActive() {
		t.Fatalf("unexpected root state %s, active=%v", root, root.IsActive())
	}
	if env.tree.PathLen() != 1 || env.tree.NNodes() != 0 {
		t.Fatalf("expected path of length 1 and no open nodes, got %d/%d", env.tree.PathLen(), env.tree.NNodes())
	}
	if _, err := env.tree.CreateRoot(); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected second root to be rejected, got %v", err)
	}
	if env.events.count(NodeFocused) != 1 || env.events.count(NodeActivated) != 1 {
		t.Fatalf("expected one focus and one activation event, got %v", env.events.processed)
	}
}

func TestBestChildByPriority(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "bbtree")
	defer teardown()

	env := newTestEnv(t, Config{})
	env.focusRoot(t)
	c1, err := env.tree.CreateChild(1.0, 0)
	if err != nil {
		t.Fatal(err)
	}
	c2, err := env.tree.CreateChild(2.0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if best := env.tree.PrioChild(); best != c2 {
		t.Fatalf("expected child %s with priority 2.0, got %s", c2, best)
	}
	if env.tree.ChildPriority(c1) != 1.0 {
		t.Fatalf("expected priority 1.0 for %s, got %g", c1, env.tree.ChildPriority(c1))
	}
	if c1.Parent() != env.tree.Root() || c2.Depth() != 1 {
		t.Fatalf("children not linked to the root")
	}
	env.check(t)
}

func TestSameFocusIsNoop(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "bbtree")
	defer teardown()

	env := newTestEnv(t, Config{})
	root := env.focusRoot(t)
	switches := env.tree.Statistics().PathSwitches
	cutoff, err := env.tree.Focus(root)
	if err != nil || cutoff {
		t.Fatalf("refocusing the focus node failed: cutoff=%v, err=%v", cutoff, err)
	}
	if env.tree.Statistics().PathSwitches != switches {
		t.Fatalf("refocusing the focus node switched the path")
	}
}

func TestFocusRejectsFormerFocusNodes(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "bbtree")
	defer teardown()

	env := newTestEnv(t, Config{})
	root := env.focusRoot(t)
	c := env.children(t, 2)
	env.focus(t, c[0])
	if root.Type() != Junction {
		t.Fatalf("expected root to become a junction, is %s", root.Type())
	}
	if _, err := env.tree.Focus(root); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected focusing a junction to fail, got %v", err)
	}
}

func TestDepthLimit(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "bbtree")
	defer teardown()

	env := newTestEnv(t, Config{MaxDepth: 1})
	env.focusRoot(t)
	c := env.children(t, 1)
	env.focus(t, c[0])
	if _, err := env.tree.CreateChild(0, 0); !errors.Is(err, ErrDepthLimit) {
		t.Fatalf("expected ErrDepthLimit, got %v", err)
	}
	env.check(t)
}

func TestLeafQueueOrder(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "bbtree")
	defer teardown()

	env := newTestEnv(t, Config{})
	env.focusRoot(t)
	c := env.children(t, 3)
	for i, lb := range []float64{3, 1, 2} {
		env.tree.UpdateLowerbound(c[i], lb)
	}
	env.focus(t, nil)
	if env.tree.NLeaves() != 3 {
		t.Fatalf("expected 3 leaves, got %d", env.tree.NLeaves())
	}
	if best := env.tree.BestLeaf(); best != c[1] {
		t.Fatalf("expected leaf %s with lower bound 1 first, got %s", c[1], best)
	}
	env.tree.UpdateLowerbound(c[1], 4)
	if best := env.tree.BestLeaf(); best != c[2] {
		t.Fatalf("expected leaf %s with lower bound 2 first, got %s", c[2], best)
	}
	if env.tree.LowerBound() != 2 {
		t.Fatalf("expected global lower bound 2, got %g", env.tree.LowerBound())
	}
	env.tree.UpdateLowerbound(c[2], 1) // lower bounds never decrease
	if c[2].LowerBound() != 2 {
		t.Fatalf("lower bound of %s decreased to %g", c[2], c[2].LowerBound())
	}
	env.check(t)
}

func TestCutoffNodes(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "bbtree")
	defer teardown()

	env := newTestEnv(t, Config{})
	env.focusRoot(t)
	c := env.children(t, 3)
	for i, lb := range []float64{1, 5, 9} {
		env.tree.UpdateLowerbound(c[i], lb)
	}
	env.focus(t, nil)
	allocated := env.tree.NAllocated()
	env.tree.CutoffNodes(5)
	if env.tree.NLeaves() != 1 || env.tree.BestLeaf() != c[0] {
		t.Fatalf("expected only %s to survive, have %v", c[0], env.tree.Leaves())
	}
	if env.tree.NAllocated() != allocated-2 {
		t.Fatalf("expected 2 nodes to be freed, allocated %d -> %d", allocated, env.tree.NAllocated())
	}
	env.check(t)
}

func TestCutoffBoundDiscardsLeaves(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "bbtree")
	defer teardown()

	env := newTestEnv(t, Config{})
	env.focusRoot(t)
	c := env.children(t, 3)
	for i, lb := range []float64{1, 5, 9} {
		env.tree.UpdateLowerbound(c[i], lb)
	}
	env.tree.SetCutoffBound(4)
	env.focus(t, nil)
	if env.tree.NLeaves() != 1 {
		t.Fatalf("expected 1 leaf below the cutoff bound, got %d", env.tree.NLeaves())
	}
}

func TestClear(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "bbtree")
	defer teardown()

	env := newTestEnv(t, Config{})
	env.focusRoot(t)
	c := env.children(t, 2)
	env.focus(t, c[0])
	env.children(t, 3)
	if err := env.tree.Clear(); err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	if env.tree.NAllocated() != 0 || env.tree.Root() != nil || env.tree.FocusNode() != nil {
		t.Fatalf("expected empty tree, %d nodes allocated", env.tree.NAllocated())
	}
	if env.tree.PathLen() != 0 || env.tree.NNodes() != 0 {
		t.Fatalf("expected empty path and no open nodes")
	}
	env.check(t)
	env.focusRoot(t)
}

func TestGlobalBoundChangeAtRoot(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "bbtree")
	defer teardown()

	env := newTestEnv(t, Config{})
	root := env.focusRoot(t)
	x := newVar("x", true, 0, 10)
	if err := env.tree.AddBoundChange(root, x, 2, Lower, Inference{Prop: "test"}); err != nil {
		t.Fatal(err)
	}
	if env.dom.global != 1 || x.LB() != 2 {
		t.Fatalf("expected a global bound change, have %d global changes, lb=%g", env.dom.global, x.LB())
	}
	if !root.ReproPending() || len(root.BoundChanges()) != 0 {
		t.Fatalf("expected root to be marked for repropagation without local bound changes")
	}
}

func TestTree2Dot(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "bbtree")
	defer teardown()

	env := newTestEnv(t, Config{})
	env.focusRoot(t)
	c := env.children(t, 2)
	env.focus(t, c[1])
	env.children(t, 2)
	var buf bytes.Buffer
	if err := Tree2Dot(env.tree, &buf); err != nil {
		t.Fatal(err)
	}
	dot := buf.String()
	if !strings.HasPrefix(dot, "strict digraph {") || strings.Count(dot, "->") != 4 {
		t.Fatalf("unexpected DOT output:\n%s", dot)
	}
}
