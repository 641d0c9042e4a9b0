// Package metrics defines the recorder interfaces for decision metrics.
// Sinks like PromSink and InfluxSink live in infra/metrics and register
// themselves by name; NewMetricsSink returns a MultiSink automatically when
// multiple sinks are configured.
package metrics
