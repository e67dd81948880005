// Package subscription runs the resilient MQTT consumer of the bridge.
//
// The loop moves through Disconnected → Connecting → Subscribed → Consuming.
// Any transport error (authentication, refusal, timeout, dropped connection)
// sends it back to Disconnected, sleeps a fixed RetryDelay and reconnects,
// forever. Any other error is treated as a bug and terminates the loop.
// Cancelling the context terminates it cleanly from any state.
//
// A message triggers a command only when its topic has exactly four segments
// (mac2mqtt/<host>/command/<key>) and its payload equals <key>.
package subscription
