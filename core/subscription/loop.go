package subscription

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/kilianp07/computer2mqtt/core/events"
	"github.com/kilianp07/computer2mqtt/core/identity"
	"github.com/kilianp07/computer2mqtt/core/logger"
	"github.com/kilianp07/computer2mqtt/core/mqtt"
)

// DefaultRetryDelay is the fixed pause between reconnect attempts.
const DefaultRetryDelay = 10 * time.Second

// ErrUnexpected wraps any non-transport failure that stopped the loop.
var ErrUnexpected = errors.New("unexpected error in subscription loop")

// State of the connection lifecycle.
type State int32

const (
	Disconnected State = iota
	Connecting
	Subscribed
	Consuming
	Terminated
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Subscribed:
		return "subscribed"
	case Consuming:
		return "consuming"
	case Terminated:
		return "terminated"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Dispatcher receives command keys of valid triggers. It must not block.
type Dispatcher interface {
	Dispatch(key string)
}

// HostResolver returns the host segment of the subscription topic.
type HostResolver func() (string, error)

// Config wires a Loop.
type Config struct {
	Connector  mqtt.Connector
	Dispatcher Dispatcher
	Resolve    HostResolver
	// User feeds the client identifier hash.
	User string
	// RetryDelay defaults to DefaultRetryDelay.
	RetryDelay time.Duration
	Logger     logger.Logger
	Events     events.Publisher
}

// Loop is the subscription state machine. Run it once.
type Loop struct {
	connector  mqtt.Connector
	dispatcher Dispatcher
	resolve    HostResolver
	user       string
	retryDelay time.Duration
	log        logger.Logger
	events     events.Publisher

	state   atomic.Int32
	attempt int
}

// New validates cfg and returns an idle loop.
func New(cfg Config) (*Loop, error) {
	if cfg.Connector == nil {
		return nil, fmt.Errorf("subscription loop requires a connector")
	}
	if cfg.Dispatcher == nil {
		return nil, fmt.Errorf("subscription loop requires a dispatcher")
	}
	if cfg.Resolve == nil {
		return nil, fmt.Errorf("subscription loop requires a host resolver")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("subscription loop requires a logger")
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}
	if cfg.Events == nil {
		cfg.Events = events.NopPublisher{}
	}
	return &Loop{
		connector:  cfg.Connector,
		dispatcher: cfg.Dispatcher,
		resolve:    cfg.Resolve,
		user:       cfg.User,
		retryDelay: cfg.RetryDelay,
		log:        cfg.Logger,
		events:     cfg.Events,
	}, nil
}

// State returns the current lifecycle state.
func (l *Loop) State() State { return State(l.state.Load()) }

// Run blocks until ctx is cancelled (returning nil) or an unexpected error
// stops the loop (returning an error wrapping ErrUnexpected). Transport errors
// never escape.
func (l *Loop) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return l.terminate(nil)
		}
		l.attempt++
		err := l.runSession(ctx)
		switch {
		case ctx.Err() != nil:
			return l.terminate(nil)
		case mqtt.IsTransport(err):
			l.setState(Disconnected)
			l.logTransportError(err)
			l.events.Publish(events.ReconnectScheduled{
				Kind:    mqtt.Classify(err).String(),
				Attempt: l.attempt,
				Delay:   l.retryDelay,
				Err:     err,
				Time:    time.Now(),
			})
			l.log.Infof("Attempting to reconnect in %s... (attempt #%d)", l.retryDelay, l.attempt)
			if !sleep(ctx, l.retryDelay) {
				return l.terminate(nil)
			}
		default:
			l.log.Errorf("An unexpected error occurred: %v", err)
			return l.terminate(fmt.Errorf("%w: %w", ErrUnexpected, err))
		}
	}
}

// runSession performs one connect-subscribe-consume cycle. The session is
// closed on every return path.
func (l *Loop) runSession(ctx context.Context) error {
	host, err := l.resolve()
	if err != nil {
		return fmt.Errorf("resolve hostname: %w", err)
	}
	topic := identity.SubscribePattern(host)
	clientID := identity.ClientID(host, l.user)

	l.setState(Connecting)
	l.log.Infof("MQTT connection attempt #%d as %s", l.attempt, clientID)
	sess, err := l.connector.Connect(ctx, clientID)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sess.Close(); cerr != nil {
			l.log.Warnf("close session: %v", cerr)
		}
	}()
	l.log.Infof("Successfully connected to MQTT broker")

	l.log.Infof("Subscribing to topic: %s", topic)
	if err := sess.Subscribe(ctx, topic); err != nil {
		return err
	}
	l.setState(Subscribed)
	l.log.Infof("Successfully subscribed, listening for messages")
	l.attempt = 0

	l.setState(Consuming)
	for {
		msg, err := sess.Receive(ctx)
		if err != nil {
			return err
		}
		if err := l.handle(msg); err != nil {
			return err
		}
	}
}

// handle applies the trigger rule to one message. A panic while handling is
// returned as an error so the loop stops instead of crashing the process.
func (l *Loop) handle(msg mqtt.Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handle message on %s: panic: %v", msg.Topic, r)
		}
	}()
	payload := string(msg.Payload)
	l.log.Debugw("Received MQTT message", map[string]any{"topic": msg.Topic, "payload": payload})

	outcome := events.OutcomeDispatched
	key, ok := identity.ParseCommandTopic(msg.Topic)
	switch {
	case !ok:
		outcome = events.OutcomeInvalidTopic
		l.log.Warnf("Invalid topic structure %q, expected mac2mqtt/<host>/command/<key>", msg.Topic)
	case payload != key:
		outcome = events.OutcomePayloadMismatch
		l.log.Warnf("Payload '%s' does not match command key '%s'", payload, key)
	default:
		l.log.Infof("Payload matches command key '%s', executing command", key)
		l.dispatcher.Dispatch(key)
	}
	l.events.Publish(events.MessageReceived{Topic: msg.Topic, Outcome: outcome, Time: time.Now()})
	return nil
}

func (l *Loop) logTransportError(err error) {
	switch mqtt.Classify(err) {
	case mqtt.KindAuth:
		l.log.Errorf("Authentication error: %v", err)
		l.log.Errorf("Check the MQTT username and password in the config file")
		l.log.Infof("Using username: '%s'", l.user)
	case mqtt.KindRefused:
		l.log.Errorf("Connection refused: %v", err)
		l.log.Errorf("The MQTT broker rejected the connection")
	case mqtt.KindTimeout:
		l.log.Errorf("Connection timeout: %v", err)
		l.log.Infof("This might be due to network issues or broker authentication delays")
	default:
		l.log.Errorf("MQTT error: %v", err)
	}
}

func (l *Loop) setState(s State) {
	prev := State(l.state.Swap(int32(s)))
	if prev == s {
		return
	}
	l.log.Debugf("state %s -> %s", prev, s)
	l.events.Publish(events.StateChanged{From: prev.String(), To: s.String(), Attempt: l.attempt, Time: time.Now()})
}

func (l *Loop) terminate(err error) error {
	l.setState(Terminated)
	return err
}

// sleep waits d or until ctx is done. It reports whether the full delay elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
