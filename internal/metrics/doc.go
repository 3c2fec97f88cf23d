// Package metrics provides build observability for the packager.
//
// Components receive a Recorder and default to NoopRecorder, so metrics
// collection never needs nil checks at the call site:
//
//	runner := pipeline.NewRunner().WithRecorder(metrics.NewPrometheusRecorder(reg))
//
// PrometheusRecorder is activated by the CLI in monitor mode when a metrics
// listen address is configured; HTTPHandler serves the registry.
package metrics
