// Package metrics provides build metrics for deploybuilder.
//
// Components receive a Recorder; NoopRecorder is the default so call sites
// never nil-check. PrometheusRecorder registers its collectors on a private
// registry and can dump them as a node_exporter textfile after each run, which
// is how one-shot CLI processes usually hand metrics to Prometheus.
package metrics
