package metrics

import (
	"fmt"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	reg            *prom.Registry
	outcomes       *prom.CounterVec
	importDuration *prom.HistogramVec
	runDuration    prom.Histogram
	libraryCopies  *prom.CounterVec
	lastRun        prom.Gauge
}

// NewPrometheusRecorder constructs the metrics and registers them with reg
// (a fresh registry when nil).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		reg: reg,
		outcomes: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "assetcook",
			Name:      "file_outcomes_total",
			Help:      "Files seen by the walk, by outcome and handler",
		}, []string{"outcome", "handler"}),
		importDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "assetcook",
			Name:      "import_duration_seconds",
			Help:      "Duration of individual handler imports",
			Buckets:   prom.DefBuckets,
		}, []string{"handler"}),
		runDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: "assetcook",
			Name:      "run_duration_seconds",
			Help:      "Total pipeline run duration",
			Buckets:   prom.DefBuckets,
		}),
		libraryCopies: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "assetcook",
			Name:      "library_copies_total",
			Help:      "Library copy results",
		}, []string{"result"}),
		lastRun: prom.NewGauge(prom.GaugeOpts{
			Namespace: "assetcook",
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished",
		}),
	}
	reg.MustRegister(pr.outcomes, pr.importDuration, pr.runDuration, pr.libraryCopies, pr.lastRun)
	return pr
}

func (p *PrometheusRecorder) IncOutcome(outcome, handler string) {
	p.outcomes.WithLabelValues(outcome, handler).Inc()
}

func (p *PrometheusRecorder) ObserveImportDuration(handler string, d time.Duration) {
	p.importDuration.WithLabelValues(handler).Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObserveRunDuration(d time.Duration) {
	p.runDuration.Observe(d.Seconds())
	p.lastRun.SetToCurrentTime()
}

func (p *PrometheusRecorder) IncLibraryCopy(result string) {
	p.libraryCopies.WithLabelValues(result).Inc()
}

// Registry returns the underlying registry.
func (p *PrometheusRecorder) Registry() *prom.Registry {
	return p.reg
}

// WriteTextfile writes the current metrics in the text exposition format,
// for the node-exporter textfile collector.
func (p *PrometheusRecorder) WriteTextfile(path string) error {
	if err := prom.WriteToTextfile(path, p.reg); err != nil {
		return fmt.Errorf("metrics: write %s: %w", path, err)
	}
	return nil
}
