package metrics

import "time"

// ResultLabel enumerates hook and build result categories for counters.
type ResultLabel string

const (
	ResultSuccess  ResultLabel = "success"
	ResultWarning  ResultLabel = "warning"
	ResultFailed   ResultLabel = "failed"
	ResultCanceled ResultLabel = "canceled"
)

// Recorder defines observability hooks for the build pipeline. Implementations
// may forward to Prometheus or similar. NoopRecorder is the default.
type Recorder interface {
	ObserveHookDuration(hook, plugin string, d time.Duration)
	IncHookResult(hook string, result ResultLabel)
	ObserveBuildDuration(environment string, d time.Duration)
	IncBuildOutcome(outcome ResultLabel)
	ObserveSyntaxCheck(environment string, units int, d time.Duration)
	AddSyntaxErrors(environment string, n int)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveHookDuration(string, string, time.Duration) {}
func (NoopRecorder) IncHookResult(string, ResultLabel) {}
func (NoopRecorder) ObserveBuildDuration(string, time.Duration) {}
func (NoopRecorder) IncBuildOutcome(ResultLabel) {}
func (NoopRecorder) ObserveSyntaxCheck(string, int, time.Duration) {}
func (NoopRecorder) AddSyntaxErrors(string, int) {}

// OrNoop returns r, or NoopRecorder when r is nil.
func OrNoop(r Recorder) Recorder {
	if r == nil {
		return NoopRecorder{}
	}
	return r
}
