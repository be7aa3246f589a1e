package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/npillmayer/bbtree"
	"github.com/npillmayer/bbtree/events"
	"github.com/npillmayer/schuko/testconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solveFile(t *testing.T, path string, adjust func(*Options)) *Result {
	t.Helper()
	prob, err := LoadProblem(path)
	require.NoError(t, err)
	if adjust != nil {
		adjust(&prob.Options)
	}
	queue := events.NewQueue()
	defer queue.Close()
	s, err := newSolver(prob, queue, nil)
	require.NoError(t, err)
	res, err := s.run()
	require.NoError(t, err)
	require.NoError(t, s.tree.Check())
	return res
}

func TestKnapsack(t *testing.T) {
	teardown := testconfig.QuickConfig(t)
	defer teardown()

	res := solveFile(t, "testdata/knapsack.yaml", nil)
	assert.Equal(t, Optimal, res.Status)
	assert.InDelta(t, 21, res.Objective, 1e-6)
	assert.Equal(t, []float64{0, 1, 1, 1}, res.Values)
	assert.Greater(t, res.Nodes, 1)
	assert.Greater(t, res.Stats.Branchings, int64(0))
}

func TestKnapsackWithOtherPolicies(t *testing.T) {
	teardown := testconfig.QuickConfig(t)
	defer teardown()

	for _, o := range []Options{
		{NodeSel: "depthfirst", ChildSel: "d", Branching: "mostfractional", DiveDepth: 2, DiveFreq: 1},
		{NodeSel: "bestestimate", ChildSel: "u", Branching: "pseudocost"},
		{NodeSel: "bestbound", ChildSel: "r", Branching: "mostfractional", SubrootInterval: 1},
		{NodeSel: "bestbound", ChildSel: "i", Branching: "pseudocost", DiveDepth: 4, DiveFreq: 2},
	} {
		o := o
		res := solveFile(t, "testdata/knapsack.yaml", func(opts *Options) {
			opts.NodeSel, opts.ChildSel, opts.Branching = o.NodeSel, o.ChildSel, o.Branching
			opts.DiveDepth, opts.SubrootInterval = o.DiveDepth, o.SubrootInterval
			if o.DiveFreq > 0 {
				opts.DiveFreq = o.DiveFreq
			}
		})
		assert.Equal(t, Optimal, res.Status, "options %+v", o)
		assert.InDelta(t, 21, res.Objective, 1e-6, "options %+v", o)
	}
}

func TestIntegerProgram(t *testing.T) {
	teardown := testconfig.QuickConfig(t)
	defer teardown()

	res := solveFile(t, "testdata/integer.yaml", nil)
	assert.Equal(t, Optimal, res.Status)
	assert.InDelta(t, 2, res.Objective, 1e-6)
	require.Len(t, res.Values, 2)
	assert.Equal(t, 2.0, res.Values[1])
}

func TestMixedProgramWithDive(t *testing.T) {
	teardown := testconfig.QuickConfig(t)
	defer teardown()

	res := solveFile(t, "testdata/mixed.yaml", nil)
	assert.Equal(t, Optimal, res.Status)
	assert.InDelta(t, 11.2, res.Objective, 1e-6)
	require.Len(t, res.Values, 3)
	assert.Equal(t, 2.0, res.Values[0])
	assert.Equal(t, 2.0, res.Values[1])
	assert.InDelta(t, 1.2, res.Values[2], 1e-6)
	assert.Equal(t, 1, res.Dives)
}

func TestInfeasibleAndUnbounded(t *testing.T) {
	teardown := testconfig.QuickConfig(t)
	defer teardown()

	res := solveFile(t, "testdata/infeasible.yaml", nil)
	assert.Equal(t, Infeasible, res.Status)
	assert.Nil(t, res.Values)
	res = solveFile(t, "testdata/unbounded.yaml", nil)
	assert.Equal(t, Unbounded, res.Status)
}

func TestNodeLimit(t *testing.T) {
	teardown := testconfig.QuickConfig(t)
	defer teardown()

	res := solveFile(t, "testdata/knapsack.yaml", func(o *Options) { o.MaxNodes = 1 })
	assert.Equal(t, NodeLimit, res.Status)
	assert.Equal(t, 1, res.Nodes)
	assert.InDelta(t, 22, res.Bound, 1e-6)
}

func TestParseProblemErrors(t *testing.T) {
	teardown := testconfig.QuickConfig(t)
	defer teardown()

	for _, src := range []string{
		"name: x\n",
		"variables: [ { name: a, type: real } ]\n",
		"variables: [ { name: a }, { name: a } ]\n",
		"variables: [ { name: a, lb: 2, ub: 1 } ]\n",
		"variables: [ { name: a } ]\nconstraints: [ { name: c, terms: [ { var: b, coef: 1 } ] } ]\n",
		"sense: up\nvariables: [ { name: a } ]\n",
		"variables: [ { name: a } ]\ncolor: red\n",
	} {
		_, err := ParseProblem(strings.NewReader(src))
		assert.ErrorIs(t, err, errProblem, "problem %q", src)
	}
}

func TestSummary(t *testing.T) {
	teardown := testconfig.QuickConfig(t)
	defer teardown()

	prob, err := LoadProblem("testdata/knapsack.yaml")
	require.NoError(t, err)
	res := solveFile(t, "testdata/knapsack.yaml", nil)
	var buf bytes.Buffer
	out := newConsole(&buf)
	out.summary([16]byte{}, prob, res, map[bbtree.EventType]int{bbtree.NodeFocused: 3})
	s := buf.String()
	assert.Contains(t, s, "knapsack")
	assert.Contains(t, s, "optimal")
	assert.Contains(t, s, "focused=3")
	assert.Contains(t, s, "objective")
}
