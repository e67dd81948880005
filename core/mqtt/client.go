package mqtt

import "context"

// Message is an inbound MQTT publish. It is owned by the receiver.
type Message struct {
	Topic   string
	Payload []byte
}

// Connector opens one broker connection per call.
type Connector interface {
	// Connect dials the broker with the given client identifier. Failures are
	// returned as *TransportError; ctx cancellation returns ctx.Err().
	Connect(ctx context.Context, clientID string) (Session, error)
}

// Session is a single live broker connection. Close releases the socket and
// must be safe to call more than once.
type Session interface {
	// Subscribe registers the topic filter and waits for the broker's ack.
	Subscribe(ctx context.Context, filter string) error

	// Receive blocks until the next message, a connection error, or ctx
	// cancellation.
	Receive(ctx context.Context) (Message, error)

	Close() error
}
