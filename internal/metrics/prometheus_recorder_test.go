package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)
	pr.ObserveHookDuration("modifyBundlerChain", "rsbuild:define", 15*time.Millisecond)
	pr.IncHookResult("modifyBundlerChain", ResultSuccess)
	pr.ObserveBuildDuration("web", 500*time.Millisecond)
	pr.IncBuildOutcome(ResultSuccess)
	pr.ObserveSyntaxCheck("web", 3, 2*time.Millisecond)
	pr.AddSyntaxErrors("web", 2)
	// Basic scrape to ensure metrics encode without panic
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if len(mfs) == 0 {
		t.Fatalf("expected metrics, got none")
	}
	for _, mf := range mfs {
		if mf.GetName() != "rsbuild_syntax_errors_total" {
			continue
		}
		if got := mf.GetMetric()[0].GetCounter().GetValue(); got != 2 {
			t.Fatalf("syntax errors = %v, want 2", got)
		}
		return
	}
	t.Fatalf("rsbuild_syntax_errors_total not gathered")
}

func TestWriteTextfile(t *testing.T) {
	pr := NewPrometheusRecorder(nil)
	pr.IncBuildOutcome(ResultFailed)
	path := filepath.Join(t.TempDir(), "rsbuild.prom")
	if err := pr.WriteTextfile(path); err != nil {
		t.Fatalf("write: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(data), `rsbuild_build_outcomes_total{outcome="failed"} 1`) {
		t.Fatalf("unexpected textfile content:\n%s", data)
	}
}

func TestNoopRecorderSatisfiesInterface(t *testing.T) {
	var r Recorder = OrNoop(nil)
	r.ObserveHookDuration("onExit", "p", time.Second)
	r.AddSyntaxErrors("web", 1)
}
