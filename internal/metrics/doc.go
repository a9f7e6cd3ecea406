// Package metrics provides build pipeline metrics.
//
// Components receive a Recorder through dependency injection and default to
// NoopRecorder, so metrics collection needs no nil checks at call sites:
//
//	hooks := plugin.NewHooks(logger, metrics.NoopRecorder{})
//
// The CLI swaps in a PrometheusRecorder when --metrics-file is given and
// writes the gathered registry in the node_exporter textfile format once the
// command finishes.
package metrics
