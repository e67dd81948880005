package metrics

import (
	"github.com/kilianp07/computer2mqtt/core/events"
	coremetrics "github.com/kilianp07/computer2mqtt/core/metrics"
)

// MultiSink fans records out to multiple sinks.
type MultiSink struct {
	Sinks []coremetrics.MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...coremetrics.MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// each calls fn on every sink, returning the first error after all sinks ran.
func (m *MultiSink) each(fn func(coremetrics.MetricsSink) error) error {
	var first error
	for _, s := range m.Sinks {
		if err := fn(s); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (m *MultiSink) RecordState(ev events.StateChanged) error {
	return m.each(func(s coremetrics.MetricsSink) error { return s.RecordState(ev) })
}

func (m *MultiSink) RecordMessage(ev events.MessageReceived) error {
	return m.each(func(s coremetrics.MetricsSink) error { return s.RecordMessage(ev) })
}

func (m *MultiSink) RecordReconnect(ev events.ReconnectScheduled) error {
	return m.each(func(s coremetrics.MetricsSink) error { return s.RecordReconnect(ev) })
}

func (m *MultiSink) RecordCommand(ev events.CommandFinished) error {
	return m.each(func(s coremetrics.MetricsSink) error { return s.RecordCommand(ev) })
}

func (m *MultiSink) RecordRejected(ev events.CommandRejected) error {
	return m.each(func(s coremetrics.MetricsSink) error { return s.RecordRejected(ev) })
}

// Close closes every sink that holds resources.
func (m *MultiSink) Close() {
	for _, s := range m.Sinks {
		if c, ok := s.(interface{ Close() }); ok {
			c.Close()
		}
	}
}
