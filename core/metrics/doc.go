// Package metrics defines the sink interface used to record bridge activity.
// Sinks like PromSink and InfluxSink live in infra/metrics and can be combined
// with NewMultiSink. Events reach the sinks through the internal event bus.
package metrics
