package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/npillmayer/bbtree"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/term"
)

// console prints run summaries, colored if the output is a terminal.
type console struct {
	w       io.Writer
	width   int
	heading *color.Color
	label   *color.Color
	status  map[Status]*color.Color
}

func newConsole(w io.Writer) *console {
	c := &console{
		w:       w,
		width:   lineWidth(w),
		heading: color.New(color.Bold),
		label:   color.New(color.FgBlue),
		status: map[Status]*color.Color{
			Optimal:    color.New(color.FgGreen, color.Bold),
			NodeLimit:  color.New(color.FgYellow, color.Bold),
			Infeasible: color.New(color.FgRed, color.Bold),
			Unbounded:  color.New(color.FgRed, color.Bold),
		},
	}
	return c
}

// lineWidth returns the width of the terminal w is connected to, or 65.
func lineWidth(w io.Writer) int {
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		if width, _, err := term.GetSize(int(f.Fd())); err == nil && width > 30 {
			if width > 100 {
				return 100
			}
			return width
		}
	}
	return 65
}

func (c *console) rule() {
	fmt.Fprintln(c.w, strings.Repeat("─", c.width))
}

func (c *console) field(name string, format string, args ...interface{}) {
	c.label.Fprintf(c.w, "%-16s", name)
	fmt.Fprintf(c.w, format+"\n", args...)
}

func (c *console) summary(runID uuid.UUID, prob *Problem, res *Result, evcounts map[bbtree.EventType]int) {
	c.rule()
	c.heading.Fprintf(c.w, "%s", prob.Name)
	fmt.Fprintf(c.w, "  (run %s)\n", runID)
	c.rule()
	c.label.Fprintf(c.w, "%-16s", "status")
	c.status[res.Status].Fprintln(c.w, string(res.Status))
	if res.Values != nil {
		c.field("objective", "%g", res.Objective)
	}
	if res.Status == NodeLimit {
		c.field("bound", "%g", res.Bound)
	}
	c.field("nodes", "%d (%d LPs, %d dives)", res.Nodes, res.LPs, res.Dives)
	c.field("time", "%v", res.Elapsed)
	st := res.Stats
	c.field("tree", "%d created, %d forks, %d junctions, %d cutoffs",
		st.NodesCreated, st.Forks, st.Junctions, st.Cutoffs)
	c.field("bound changes", "%d local, %d global, %d pending",
		st.BoundChanges, st.GlobalBoundChanges, st.PendingBoundChanges)
	if len(evcounts) > 0 {
		c.field("events", "%s", formatCounts(evcounts))
	}
	if res.Values != nil {
		c.rule()
		for i, v := range prob.Variables {
			x := res.Values[i]
			if x == 0 {
				continue
			}
			c.field(v.Name, "%g", x)
		}
	}
	c.rule()
}

func formatCounts(counts map[bbtree.EventType]int) string {
	types := make([]bbtree.EventType, 0, len(counts))
	for et := range counts {
		types = append(types, et)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	parts := make([]string, len(types))
	for i, et := range types {
		parts[i] = fmt.Sprintf("%s=%d", et, counts[et])
	}
	return strings.Join(parts, " ")
}

// metrics prints the gathered metrics of a registry, one sample per line.
func (c *console) metrics(reg *prometheus.Registry) error {
	mfs, err := reg.Gather()
	if err != nil {
		return err
	}
	c.heading.Fprintln(c.w, "metrics")
	for _, mf := range mfs {
		for _, m := range mf.GetMetric() {
			var v float64
			switch {
			case m.GetCounter() != nil:
				v = m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				v = m.GetGauge().GetValue()
			case m.GetHistogram() != nil:
				h := m.GetHistogram()
				v = h.GetSampleSum()
				if n := h.GetSampleCount(); n > 0 {
					v /= float64(n)
				}
			default:
				continue
			}
			fmt.Fprintf(c.w, "  %-44s %g\n", mf.GetName(), v)
		}
	}
	return nil
}
