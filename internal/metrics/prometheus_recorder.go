package metrics

import (
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once          sync.Once
	registry      *prom.Registry
	hookDuration  *prom.HistogramVec
	hookResults   *prom.CounterVec
	buildDuration *prom.HistogramVec
	buildOutcome  *prom.CounterVec
	syntaxUnits   *prom.CounterVec
	syntaxSeconds *prom.HistogramVec
	syntaxErrors  *prom.CounterVec
}

// NewPrometheusRecorder constructs and registers Prometheus metrics (idempotent).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{registry: reg}
	pr.once.Do(func() {
		pr.hookDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "rsbuild",
			Name:      "hook_duration_seconds",
			Help:      "Duration of individual plugin hook handlers",
			Buckets:   prom.DefBuckets,
		}, []string{"hook", "plugin"})
		pr.hookResults = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "rsbuild",
			Name:      "hook_results_total",
			Help:      "Hook bus invocations by outcome",
		}, []string{"hook", "result"})
		pr.buildDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "rsbuild",
			Name:      "build_duration_seconds",
			Help:      "Duration of one environment compilation",
			Buckets:   prom.DefBuckets,
		}, []string{"environment"})
		pr.buildOutcome = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "rsbuild",
			Name:      "build_outcomes_total",
			Help:      "Build outcomes by final status",
		}, []string{"outcome"})
		pr.syntaxUnits = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "rsbuild",
			Name:      "syntax_check_units_total",
			Help:      "Code units parsed by the syntax checker",
		}, []string{"environment"})
		pr.syntaxSeconds = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "rsbuild",
			Name:      "syntax_check_duration_seconds",
			Help:      "Duration of one syntax check pass",
			Buckets:   prom.DefBuckets,
		}, []string{"environment"})
		pr.syntaxErrors = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "rsbuild",
			Name:      "syntax_errors_total",
			Help:      "Syntax errors reported in emitted code",
		}, []string{"environment"})
		reg.MustRegister(pr.hookDuration, pr.hookResults, pr.buildDuration, pr.buildOutcome,
			pr.syntaxUnits, pr.syntaxSeconds, pr.syntaxErrors)
	})
	return pr
}

// Registry returns the registry the metrics are registered with.
func (p *PrometheusRecorder) Registry() *prom.Registry { return p.registry }

func (p *PrometheusRecorder) ObserveHookDuration(hook, plugin string, d time.Duration) {
	if p == nil || p.hookDuration == nil {
		return
	}
	p.hookDuration.WithLabelValues(hook, plugin).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncHookResult(hook string, result ResultLabel) {
	if p == nil || p.hookResults == nil {
		return
	}
	p.hookResults.WithLabelValues(hook, string(result)).Inc()
}

func (p *PrometheusRecorder) ObserveBuildDuration(environment string, d time.Duration) {
	if p == nil || p.buildDuration == nil {
		return
	}
	p.buildDuration.WithLabelValues(environment).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncBuildOutcome(outcome ResultLabel) {
	if p == nil || p.buildOutcome == nil {
		return
	}
	p.buildOutcome.WithLabelValues(string(outcome)).Inc()
}

func (p *PrometheusRecorder) ObserveSyntaxCheck(environment string, units int, d time.Duration) {
	if p == nil || p.syntaxUnits == nil {
		return
	}
	p.syntaxUnits.WithLabelValues(environment).Add(float64(units))
	p.syntaxSeconds.WithLabelValues(environment).Observe(d.Seconds())
}

func (p *PrometheusRecorder) AddSyntaxErrors(environment string, n int) {
	if p == nil || p.syntaxErrors == nil {
		return
	}
	p.syntaxErrors.WithLabelValues(environment).Add(float64(n))
}

// WriteTextfile writes the gathered metrics to path in the textfile
// collector format.
func (p *PrometheusRecorder) WriteTextfile(path string) error {
	return prom.WriteToTextfile(path, p.registry)
}
