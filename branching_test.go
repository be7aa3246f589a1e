package bbtree

import (
	"errors"
	"math"
	"testing"

	"github.com/npillmayer/schuko/tracing/gotestingadapter"
)

func boundOf(t *testing.T, node *Node, bt BoundType) float64 {
	t.Helper()
	for _, bc := range node.BoundChanges() {
		if bc.Type == bt {
			return bc.Bound
		}
	}
	t.Fatalf("node %s has no %s change", node, bt)
	return math.NaN()
}

func TestBranchFractionalValue(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "bbtree")
	defer teardown()

	env := newTestEnv(t, Config{})
	env.focusRoot(t)
	x := newVar("x", true, 0, 10)
	x.val = 3.5
	br, err := env.tree.Branch(x, math.NaN())
	if err != nil {
		t.Fatal(err)
	}
	if br.Down == nil || br.Up == nil || br.Fixed != nil {
		t.Fatalf("expected down and up child only, got %+v", br)
	}
	if ub := boundOf(t, br.Down, Upper); ub != 3 {
		t.Fatalf("expected x <= 3 at down child, is %g", ub)
	}
	if lb := boundOf(t, br.Up, Lower); lb != 4 {
		t.Fatalf("expected x >= 4 at up child, is %g", lb)
	}
	if !br.Down.BoundChanges()[0].IsBranching() {
		t.Fatalf("expected a branching bound change")
	}
	if env.tree.NChildren() != 2 || env.events.count(NodeBranched) != 1 {
		t.Fatalf("expected 2 children and a branching event")
	}
	env.check(t)
}

func TestBranchIntegralValueInsideDomain(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "bbtree")
	defer teardown()

	env := newTestEnv(t, Config{})
	env.focusRoot(t)
	x := newVar("x", true, 0, 10)
	br, err := env.tree.Branch(x, 5)
	if err != nil {
		t.Fatal(err)
	}
	if br.Down == nil || br.Fixed == nil || br.Up == nil {
		t.Fatalf("expected three children, got %+v", br)
	}
	if boundOf(t, br.Down, Upper) != 4 || boundOf(t, br.Up, Lower) != 6 {
		t.Fatalf("unexpected down/up bounds")
	}
	if boundOf(t, br.Fixed, Lower) != 5 || boundOf(t, br.Fixed, Upper) != 5 {
		t.Fatalf("expected x fixed to 5")
	}
	if env.tree.PrioChild() != br.Fixed {
		t.Fatalf("expected fixing child to have the highest priority")
	}
}

func TestBranchAtDomainBoundSplitsCenter(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "bbtree")
	defer teardown()

	env := newTestEnv(t, Config{})
	env.focusRoot(t)
	x := newVar("x", true, 0, 10)
	br, err := env.tree.Branch(x, 0)
	if err != nil {
		t.Fatal(err)
	}
	if br.Fixed != nil || boundOf(t, br.Down, Upper) != 5 || boundOf(t, br.Up, Lower) != 6 {
		t.Fatalf("expected split x <= 5 | x >= 6, got %+v", br)
	}
}

func TestBranchIntegralValueAtBoundOmitsEmptyChild(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "bbtree")
	defer teardown()

	env := newTestEnv(t, Config{})
	env.focusRoot(t)
	x := newVar("x", true, 0, math.Inf(1))
	br, err := env.tree.Branch(x, 0)
	if err != nil {
		t.Fatal(err)
	}
	if br.Down != nil || br.Fixed == nil || br.Up == nil {
		t.Fatalf("expected fixing and up child only, got %+v", br)
	}
	if len(br.Fixed.BoundChanges()) != 1 {
		t.Fatalf("expected only the upper bound to change for the fixing child")
	}
}

func TestBranchContinuous(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "bbtree")
	defer teardown()

	env := newTestEnv(t, Config{})
	env.focusRoot(t)
	y := newVar("y", false, 0, 1)
	if _, err := env.tree.Branch(y, math.NaN()); !errors.Is(err, ErrInvalidBranching) {
		t.Fatalf("expected ErrInvalidBranching without branching point, got %v", err)
	}
	if _, err := env.tree.Branch(y, 1); !errors.Is(err, ErrInvalidBranching) {
		t.Fatalf("expected ErrInvalidBranching for point on bound, got %v", err)
	}
	br, err := env.tree.Branch(y, 0.25)
	if err != nil {
		t.Fatal(err)
	}
	if boundOf(t, br.Down, Upper) != 0.25 || boundOf(t, br.Up, Lower) != 0.25 {
		t.Fatalf("expected domain split at 0.25")
	}
}

func TestBranchFixedVariable(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "bbtree")
	defer teardown()

	env := newTestEnv(t, Config{})
	env.focusRoot(t)
	z := newVar("z", true, 2, 2)
	if _, err := env.tree.Branch(z, 2); !errors.Is(err, ErrInvalidBranching) {
		t.Fatalf("expected ErrInvalidBranching for fixed variable, got %v", err)
	}
	if env.tree.NChildren() != 0 {
		t.Fatalf("failed branching created children")
	}
}

func TestBestNodeOrder(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "bbtree")
	defer teardown()

	env := newTestEnv(t, Config{})
	env.focusRoot(t)
	c := env.children(t, 3)
	env.tree.UpdateLowerbound(c[0], 5)
	env.tree.UpdateLowerbound(c[1], 2)
	env.tree.UpdateLowerbound(c[2], 7)
	env.focus(t, c[2])
	d := env.children(t, 1)
	env.tree.UpdateLowerbound(d[0], 8)
	if best := env.tree.BestNode(); best != c[1] {
		t.Fatalf("expected sibling %s as best node, got %s", c[1], best)
	}
	if lbnode := env.tree.LowerboundNode(); lbnode != c[1] {
		t.Fatalf("expected %s as lower bound node, got %s", c[1], lbnode)
	}
}
