package metrics

import "github.com/kilianp07/computer2mqtt/core/events"

// MetricsSink records bridge events for observability purposes.
type MetricsSink interface {
	RecordState(ev events.StateChanged) error
	RecordMessage(ev events.MessageReceived) error
	RecordReconnect(ev events.ReconnectScheduled) error
	RecordCommand(ev events.CommandFinished) error
	RecordRejected(ev events.CommandRejected) error
}

// NopSink discards every record.
type NopSink struct{}

func (NopSink) RecordState(events.StateChanged) error           { return nil }
func (NopSink) RecordMessage(events.MessageReceived) error      { return nil }
func (NopSink) RecordReconnect(events.ReconnectScheduled) error { return nil }
func (NopSink) RecordCommand(events.CommandFinished) error      { return nil }
func (NopSink) RecordRejected(events.CommandRejected) error     { return nil }

// Record routes ev to the matching sink method. Unknown events are ignored.
func Record(s MetricsSink, ev events.Event) error {
	switch e := ev.(type) {
	case events.StateChanged:
		return s.RecordState(e)
	case events.MessageReceived:
		return s.RecordMessage(e)
	case events.ReconnectScheduled:
		return s.RecordReconnect(e)
	case events.CommandFinished:
		return s.RecordCommand(e)
	case events.CommandRejected:
		return s.RecordRejected(e)
	}
	return nil
}
