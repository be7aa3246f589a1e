package metrics

import (
	"time"

	"github.com/npillmayer/bbtree"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder observes the work of a driver running the search.
type Recorder struct {
	nodeDuration prometheus.Histogram
	lpDuration   *prometheus.HistogramVec
	solutions    prometheus.Counter
	incumbent    prometheus.Gauge
}

// NewRecorder creates a recorder registering its metrics with reg.
func NewRecorder(reg prometheus.Registerer, constLabels prometheus.Labels) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		nodeDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   Namespace,
			Name:        "node_duration_seconds",
			Help:        "Time spent processing a focus node.",
			Buckets:     prometheus.ExponentialBuckets(0.00001, 4, 10), // 10µs to ~2.6s
			ConstLabels: constLabels,
		}),
		lpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   Namespace,
			Name:        "lp_solve_duration_seconds",
			Help:        "Time spent solving LP relaxations, by LP status.",
			Buckets:     prometheus.ExponentialBuckets(0.00001, 4, 10),
			ConstLabels: constLabels,
		}, []string{"status"}),
		solutions: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   Namespace,
			Name:        "solutions_total",
			Help:        "Improving solutions found.",
			ConstLabels: constLabels,
		}),
		incumbent: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   Namespace,
			Name:        "incumbent_objective",
			Help:        "Objective value of the best known solution.",
			ConstLabels: constLabels,
		}),
	}
}

// NodeTimer starts timing the processing of a focus node. Call
// ObserveDuration on the timer when done with the node.
func (r *Recorder) NodeTimer() *prometheus.Timer {
	return prometheus.NewTimer(r.nodeDuration)
}

// LPSolved records the duration of an LP solve.
func (r *Recorder) LPSolved(status bbtree.LPStatus, d time.Duration) {
	r.lpDuration.WithLabelValues(status.String()).Observe(d.Seconds())
}

// Solution records an improving solution.
func (r *Recorder) Solution(obj float64) {
	tracer().Debugf("recording solution %g", obj)
	r.solutions.Inc()
	r.incumbent.Set(obj)
}
