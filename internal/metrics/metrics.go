// Package metrics collects Prometheus metrics for codemod runs.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder owns a private registry so runs in one process (and tests) do
// not share counters.
type Recorder struct {
	registry *prometheus.Registry

	runs          *prometheus.CounterVec
	files         *prometheus.CounterVec
	fileDuration  *prometheus.HistogramVec
	runDuration   *prometheus.HistogramVec
	commandsTotal *prometheus.CounterVec
}

// NewRecorder registers the codemod metrics on a fresh registry.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "codemod_runs_total",
			Help: "Number of codemod runs",
		}, []string{"codemod"}),
		files: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "codemod_files_total",
			Help: "Files processed, by outcome",
		}, []string{"codemod", "status"}),
		fileDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "codemod_file_duration_seconds",
			Help:    "Time spent parsing and transforming one file",
			Buckets: prometheus.DefBuckets,
		}, []string{"codemod"}),
		runDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "codemod_run_duration_seconds",
			Help:    "Wall time of a whole run",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}, []string{"codemod"}),
		commandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "codemod_commands_total",
			Help: "File commands emitted, by kind",
		}, []string{"codemod", "kind"}),
	}
	r.registry.MustRegister(r.runs, r.files, r.fileDuration, r.runDuration, r.commandsTotal)
	return r
}

// Registry exposes the underlying registry, e.g. for an HTTP handler.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

func (r *Recorder) ObserveRun(codemod string, d time.Duration) {
	r.runs.WithLabelValues(codemod).Inc()
	r.runDuration.WithLabelValues(codemod).Observe(d.Seconds())
}

func (r *Recorder) ObserveFile(codemod, status string, d time.Duration) {
	r.files.WithLabelValues(codemod, status).Inc()
	r.fileDuration.WithLabelValues(codemod).Observe(d.Seconds())
}

func (r *Recorder) ObserveCommand(codemod, kind string) {
	r.commandsTotal.WithLabelValues(codemod, kind).Inc()
}

// WriteTextfile writes the current values in the node_exporter textfile
// format.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("metrics: write %s: %w", path, err)
	}
	return nil
}
