// Package metrics records per-run cooking statistics.
package metrics

import "time"

// Recorder defines observability hooks for the pipeline. Implementations may
// forward to Prometheus; NoopRecorder is used when metrics are disabled.
type Recorder interface {
	// IncOutcome counts one file outcome. handler is empty when no handler ran.
	IncOutcome(outcome, handler string)
	ObserveImportDuration(handler string, d time.Duration)
	ObserveRunDuration(d time.Duration)
	// IncLibraryCopy counts one library copy result: copied|skipped|failed.
	IncLibraryCopy(result string)
}

// NoopRecorder is a Recorder that does nothing.
type NoopRecorder struct{}

func (NoopRecorder) IncOutcome(string, string)                   {}
func (NoopRecorder) ObserveImportDuration(string, time.Duration) {}
func (NoopRecorder) ObserveRunDuration(time.Duration)            {}
func (NoopRecorder) IncLibraryCopy(string)                       {}
