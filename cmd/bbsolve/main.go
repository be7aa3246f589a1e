package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/npillmayer/bbtree"
	"github.com/npillmayer/bbtree/events"
	"github.com/npillmayer/bbtree/metrics"
	"github.com/npillmayer/schuko/gtrace"
	"github.com/npillmayer/schuko/tracing"
	"github.com/npillmayer/schuko/tracing/gologadapter"
	"github.com/prometheus/client_golang/prometheus"
)

type flags struct {
	trace     string
	dot       string
	metrics   bool
	nodesel   string
	childsel  string
	branching string
	maxnodes  int
	dive      int
	check     bool
}

func parseFlags(args []string) (flags, []string, error) {
	var f flags
	fs := flag.NewFlagSet("bbsolve", flag.ContinueOnError)
	fs.StringVar(&f.trace, "trace", "error", "trace level: error, info or debug")
	fs.StringVar(&f.dot, "dot", "", "write the final search tree in DOT format to `file`")
	fs.BoolVar(&f.metrics, "metrics", false, "print the metrics of the run")
	fs.StringVar(&f.nodesel, "nodesel", "", "node selector: bestbound, bestestimate or depthfirst")
	fs.StringVar(&f.childsel, "childsel", "", "child selection rule: d, u, p, i, l, r or h")
	fs.StringVar(&f.branching, "branching", "", "branching rule: mostfractional or pseudocost")
	fs.IntVar(&f.maxnodes, "nodes", 0, "node limit")
	fs.IntVar(&f.dive, "dive", -1, "depth of diving heuristic, 0 to disable")
	fs.BoolVar(&f.check, "check", false, "check tree invariants after every node")
	if err := fs.Parse(args); err != nil {
		return f, nil, err
	}
	return f, fs.Args(), nil
}

// apply overrides the options of a problem file with flags given on the
// command line.
func (f flags) apply(o *Options) {
	if f.nodesel != "" {
		o.NodeSel = f.nodesel
	}
	if f.childsel != "" {
		o.ChildSel = f.childsel
	}
	if f.branching != "" {
		o.Branching = f.branching
	}
	if f.maxnodes > 0 {
		o.MaxNodes = f.maxnodes
	}
	if f.dive >= 0 {
		o.DiveDepth = f.dive
	}
	o.Check = o.Check || f.check
}

func traceLevel(name string) tracing.TraceLevel {
	switch name {
	case "debug":
		return tracing.LevelDebug
	case "info":
		return tracing.LevelInfo
	}
	return tracing.LevelError
}

func main() {
	f, args, err := parseFlags(os.Args[1:])
	if err != nil {
		os.Exit(2)
	}
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "usage: bbsolve [flags] problem.yaml")
		os.Exit(2)
	}
	gtrace.CoreTracer = gologadapter.New()
	gtrace.CoreTracer.SetTraceLevel(traceLevel(f.trace))
	tracer().SetTraceLevel(traceLevel(f.trace))

	if err := run(f, args[0]); err != nil {
		fmt.Fprintf(os.Stderr, "bbsolve: %v\n", err)
		os.Exit(1)
	}
}

func run(f flags, path string) error {
	prob, err := LoadProblem(path)
	if err != nil {
		return err
	}
	f.apply(&prob.Options)
	runID := uuid.New()
	labels := prometheus.Labels{"run": runID.String()}
	reg := prometheus.NewRegistry()
	rec := metrics.NewRecorder(reg, labels)

	queue := events.NewQueue()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	counts, err := countEvents(ctx, queue)
	if err != nil {
		return err
	}
	s, err := newSolver(prob, queue, rec)
	if err != nil {
		return err
	}
	reg.MustRegister(metrics.NewCollector(s.tree, labels))
	tracer().Infof("run %s: solving %s", runID, prob.Name)
	res, err := s.run()
	queue.Close()
	cancel()
	if err != nil {
		return err
	}
	out := newConsole(os.Stdout)
	var evcounts map[bbtree.EventType]int
	select {
	case evcounts = <-counts:
	case <-time.After(time.Second):
		tracer().Errorf("event counter did not finish")
	}
	out.summary(runID, prob, res, evcounts)
	if f.dot != "" {
		if err := writeDot(s.tree, f.dot); err != nil {
			return err
		}
	}
	if f.metrics {
		return out.metrics(reg)
	}
	return nil
}

// countEvents subscribes to the event queue and counts the notices by type.
// The counts are delivered when the queue is closed.
func countEvents(ctx context.Context, queue *events.Queue) (<-chan map[bbtree.EventType]int, error) {
	notices, err := queue.Subscribe(ctx, 256)
	if err != nil {
		return nil, err
	}
	result := make(chan map[bbtree.EventType]int, 1)
	go func() {
		counts := make(map[bbtree.EventType]int)
		for n := range notices {
			counts[n.Type]++
		}
		result <- counts
	}()
	return result, nil
}

func writeDot(tree *bbtree.Tree, path string) error {
	w, err := os.Create(path)
	if err != nil {
		return err
	}
	if err = bbtree.Tree2Dot(tree, w); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}
