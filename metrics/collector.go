package metrics

import (
	"math"

	"github.com/npillmayer/bbtree"
	"github.com/prometheus/client_golang/prometheus"
)

// Namespace prefixes all metric names.
const Namespace = "bbtree"

type counter struct {
	name, help string
	value      func(s *bbtree.Statistics) int64
}

var counters = []counter{
	{"nodes_created_total", "Nodes created.", func(s *bbtree.Statistics) int64 { return s.NodesCreated }},
	{"nodes_freed_total", "Nodes freed.", func(s *bbtree.Statistics) int64 { return s.NodesFreed }},
	{"focused_total", "Nodes which became the focus node.", func(s *bbtree.Statistics) int64 { return s.Focused }},
	{"path_switches_total", "Switches of the active path.", func(s *bbtree.Statistics) int64 { return s.PathSwitches }},
	{"activations_total", "Node activations.", func(s *bbtree.Statistics) int64 { return s.Activations }},
	{"deactivations_total", "Node deactivations.", func(s *bbtree.Statistics) int64 { return s.Deactivations }},
	{"cutoffs_total", "Nodes cut off.", func(s *bbtree.Statistics) int64 { return s.Cutoffs }},
	{"repropagations_total", "Repropagations of active nodes.", func(s *bbtree.Statistics) int64 { return s.Repropagations }},
	{"repropagation_bound_changes_total", "Bound changes found by repropagation.", func(s *bbtree.Statistics) int64 { return s.ReproPBoundChanges }},
	{"bound_changes_total", "Local bound changes.", func(s *bbtree.Statistics) int64 { return s.BoundChanges }},
	{"global_bound_changes_total", "Global bound changes.", func(s *bbtree.Statistics) int64 { return s.GlobalBoundChanges }},
	{"pending_bound_changes_total", "Bound changes deferred to the pending queue.", func(s *bbtree.Statistics) int64 { return s.PendingBoundChanges }},
	{"branchings_total", "Branchings on variables.", func(s *bbtree.Statistics) int64 { return s.Branchings }},
	{"probing_rounds_total", "Probing rounds started.", func(s *bbtree.Statistics) int64 { return s.ProbingRounds }},
	{"probing_nodes_total", "Probing nodes created.", func(s *bbtree.Statistics) int64 { return s.ProbingNodes }},
	{"probing_backtracks_total", "Probing backtracks.", func(s *bbtree.Statistics) int64 { return s.ProbingBacktracks }},
	{"probing_bound_changes_total", "Bound changes during probing.", func(s *bbtree.Statistics) int64 { return s.ProbingBoundChanges }},
	{"dead_ends_total", "Focus nodes converted to dead ends.", func(s *bbtree.Statistics) int64 { return s.DeadEnds }},
	{"junctions_total", "Focus nodes converted to junctions.", func(s *bbtree.Statistics) int64 { return s.Junctions }},
	{"pseudoforks_total", "Focus nodes converted to pseudo forks.", func(s *bbtree.Statistics) int64 { return s.PseudoForks }},
	{"forks_total", "Focus nodes converted to forks.", func(s *bbtree.Statistics) int64 { return s.Forks }},
	{"subroots_total", "Focus nodes converted to subroots.", func(s *bbtree.Statistics) int64 { return s.Subroots }},
	{"numerical_fork_fallbacks_total", "Fork conversions degraded to junctions.", func(s *bbtree.Statistics) int64 { return s.NumericalForkFallbacks }},
}

type gauge struct {
	name, help string
	value      func(t *bbtree.Tree) float64
}

var gauges = []gauge{
	{"open_nodes", "Open children, siblings and leaves.", func(t *bbtree.Tree) float64 { return float64(t.NNodes()) }},
	{"leaves", "Nodes in the leaf queue.", func(t *bbtree.Tree) float64 { return float64(t.NLeaves()) }},
	{"allocated_nodes", "Nodes allocated and not yet freed.", func(t *bbtree.Tree) float64 { return float64(t.NAllocated()) }},
	{"focus_depth", "Depth of the focus node.", func(t *bbtree.Tree) float64 { return float64(t.FocusDepth()) }},
	{"effective_root_depth", "Depth of the effective root.", func(t *bbtree.Tree) float64 { return float64(t.EffectiveRootDepth()) }},
	{"lower_bound", "Minimal lower bound of all open nodes.", func(t *bbtree.Tree) float64 { return t.LowerBound() }},
	{"cutoff_bound", "Cutoff bound of the search.", func(t *bbtree.Tree) float64 { return t.CutoffBound() }},
}

// Collector is a prometheus.Collector for a tree. It must not be scraped
// concurrently with operations on the tree.
type Collector struct {
	tree       *bbtree.Tree
	counterDsc []*prometheus.Desc
	gaugeDsc   []*prometheus.Desc
}

var _ prometheus.Collector = (*Collector)(nil)

// NewCollector creates a collector for tree. constLabels are attached to
// every metric, e.g. a run identifier.
func NewCollector(tree *bbtree.Tree, constLabels prometheus.Labels) *Collector {
	c := &Collector{tree: tree}
	for _, ctr := range counters {
		name := prometheus.BuildFQName(Namespace, "", ctr.name)
		c.counterDsc = append(c.counterDsc, prometheus.NewDesc(name, ctr.help, nil, constLabels))
	}
	for _, g := range gauges {
		name := prometheus.BuildFQName(Namespace, "", g.name)
		c.gaugeDsc = append(c.gaugeDsc, prometheus.NewDesc(name, g.help, nil, constLabels))
	}
	return c
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range c.counterDsc {
		ch <- d
	}
	for _, d := range c.gaugeDsc {
		ch <- d
	}
}

// Collect implements prometheus.Collector. Infinite bounds are reported as
// +Inf or -Inf.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	stats := c.tree.Statistics()
	for i, ctr := range counters {
		ch <- prometheus.MustNewConstMetric(c.counterDsc[i], prometheus.CounterValue, float64(ctr.value(&stats)))
	}
	inf := c.tree.Config().Infinity
	for i, g := range gauges {
		v := g.value(c.tree)
		if v >= inf {
			v = math.Inf(1)
		} else if v <= -inf {
			v = math.Inf(-1)
		}
		ch <- prometheus.MustNewConstMetric(c.gaugeDsc[i], prometheus.GaugeValue, v)
	}
}
