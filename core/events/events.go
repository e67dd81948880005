package events

import "time"

// Event is any value published on the bridge event bus.
type Event interface {
	EventTime() time.Time
}

// Message outcomes reported by MessageReceived.
const (
	OutcomeDispatched      = "dispatched"
	OutcomePayloadMismatch = "payload_mismatch"
	OutcomeInvalidTopic    = "invalid_topic"
)

// StateChanged is published on every subscription loop transition.
type StateChanged struct {
	From    string
	To      string
	Attempt int
	Time    time.Time
}

// MessageReceived is published for every inbound message.
type MessageReceived struct {
	Topic   string
	Outcome string
	Time    time.Time
}

// ReconnectScheduled is published before the loop sleeps after a transport error.
type ReconnectScheduled struct {
	Kind    string
	Attempt int
	Delay   time.Duration
	Err     error
	Time    time.Time
}

// CommandRejected is published when a trigger names an unknown command key.
type CommandRejected struct {
	Key  string
	Time time.Time
}

// CommandFinished is published when an invocation exits or fails to start.
// ExitCode is -1 when the process never ran.
type CommandFinished struct {
	InvocationID string
	Key          string
	ExitCode     int
	Err          error
	Duration     time.Duration
	Time         time.Time
}

// Success reports whether the command started and exited with status 0.
func (e CommandFinished) Success() bool { return e.Err == nil && e.ExitCode == 0 }

func (e StateChanged) EventTime() time.Time       { return e.Time }
func (e MessageReceived) EventTime() time.Time    { return e.Time }
func (e ReconnectScheduled) EventTime() time.Time { return e.Time }
func (e CommandRejected) EventTime() time.Time    { return e.Time }
func (e CommandFinished) EventTime() time.Time    { return e.Time }

// Publisher accepts events. The event bus satisfies it.
type Publisher interface {
	Publish(Event)
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(Event) {}
