// Package metrics counts what a report run did and writes the counts as a
// Prometheus textfile for the node exporter to pick up.
package metrics

import (
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"

	"analysis_report_go/store"
)

const namespace = "analysis_report"

// Plot outcomes
const (
	PlotRendered = "rendered"
	PlotEmpty    = "empty"
	PlotFailed   = "failed"
)

// Recorder holds the counters of one run. A nil *Recorder records nothing.
type Recorder struct {
	reg      *prometheus.Registry
	lookups  *prometheus.CounterVec
	noData   *prometheus.CounterVec
	plots    *prometheus.CounterVec
	duration prometheus.Gauge
}

func New() *Recorder {
	r := &Recorder{
		reg: prometheus.NewRegistry(),
		lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lookups_total",
			Help:      "Store lookups by source table and outcome.",
		}, []string{"table", "status"}),
		noData: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "nd_rows_total",
			Help:      "Rows rendered as nd by source table.",
		}, []string{"table"}),
		plots: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "plots_total",
			Help:      "Plots by outcome.",
		}, []string{"outcome"}),
		duration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "generation_seconds",
			Help:      "Wall time of the last report generation.",
		}),
	}
	r.reg.MustRegister(r.lookups, r.noData, r.plots, r.duration)
	return r
}

func (r *Recorder) Lookup(table string, status store.Status) {
	if r == nil {
		return
	}
	r.lookups.WithLabelValues(table, status.String()).Inc()
}

func (r *Recorder) NoData(table string) {
	if r == nil {
		return
	}
	r.noData.WithLabelValues(table).Inc()
}

func (r *Recorder) Plot(outcome string) {
	if r == nil {
		return
	}
	r.plots.WithLabelValues(outcome).Inc()
}

func (r *Recorder) Duration(d time.Duration) {
	if r == nil {
		return
	}
	r.duration.Set(d.Seconds())
}

// Registry exposes the underlying registry, mostly for tests.
func (r *Recorder) Registry() *prometheus.Registry { return r.reg }

// WriteTextfile writes every metric to path in the text exposition format.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, r.reg); err != nil {
		return errors.Wrapf(err, "write metrics %s", path)
	}
	return nil
}
