// Package events defines the bridge events emitted on the event bus.
//
// Available event types:
//   - StateChanged: subscription loop state transition
//   - MessageReceived: inbound MQTT message and how it was handled
//   - ReconnectScheduled: transport failure followed by a backoff sleep
//   - CommandRejected: trigger for a key missing from the command table
//   - CommandFinished: external command completion or launch failure
package events
