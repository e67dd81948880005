package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kilianp07/computer2mqtt/core/events"
	coremetrics "github.com/kilianp07/computer2mqtt/core/metrics"
)

// connection states exported by the computer2mqtt_connection_state gauge.
var connectionStates = []string{"disconnected", "connecting", "subscribed", "consuming", "terminated"}

// PromSink records bridge events in Prometheus metrics.
type PromSink struct {
	messages   *prometheus.CounterVec
	commands   *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	reconnects *prometheus.CounterVec
	rejected   *prometheus.CounterVec
	state      *prometheus.GaugeVec
}

// NewPromSinkWithRegistry registers bridge metrics on the provided registerer.
// The HTTP endpoint is started separately with StartPromServer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (coremetrics.MetricsSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	messages := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "computer2mqtt_messages_received_total",
		Help: "Inbound MQTT messages by trigger outcome",
	}, []string{"outcome"})
	commands := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "computer2mqtt_commands_total",
		Help: "Finished command invocations",
	}, []string{"command", "success"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "computer2mqtt_command_duration_seconds",
		Help:    "Wall time of command invocations",
		Buckets: prometheus.DefBuckets,
	}, []string{"command"})
	reconnects := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "computer2mqtt_reconnects_total",
		Help: "Scheduled reconnects by transport error kind",
	}, []string{"kind"})
	rejected := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "computer2mqtt_commands_rejected_total",
		Help: "Triggers naming a command key missing from the table",
	}, []string{"command"})
	state := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "computer2mqtt_connection_state",
		Help: "1 for the current subscription loop state, 0 otherwise",
	}, []string{"state"})

	var err error
	if messages, err = register(reg, messages); err != nil {
		return nil, err
	}
	if commands, err = register(reg, commands); err != nil {
		return nil, err
	}
	if duration, err = register(reg, duration); err != nil {
		return nil, err
	}
	if reconnects, err = register(reg, reconnects); err != nil {
		return nil, err
	}
	if rejected, err = register(reg, rejected); err != nil {
		return nil, err
	}
	if state, err = register(reg, state); err != nil {
		return nil, err
	}

	return &PromSink{
		messages:   messages,
		commands:   commands,
		duration:   duration,
		reconnects: reconnects,
		rejected:   rejected,
		state:      state,
	}, nil
}

// register adds c to reg, reusing the existing collector when an identical
// one was registered before.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordState moves the state gauge to ev.To.
func (s *PromSink) RecordState(ev events.StateChanged) error {
	for _, st := range connectionStates {
		v := 0.0
		if st == ev.To {
			v = 1
		}
		s.state.WithLabelValues(st).Set(v)
	}
	return nil
}

// RecordMessage counts an inbound message.
func (s *PromSink) RecordMessage(ev events.MessageReceived) error {
	s.messages.WithLabelValues(ev.Outcome).Inc()
	return nil
}

// RecordReconnect counts a scheduled reconnect.
func (s *PromSink) RecordReconnect(ev events.ReconnectScheduled) error {
	s.reconnects.WithLabelValues(ev.Kind).Inc()
	return nil
}

// RecordCommand counts a finished invocation and observes its duration.
func (s *PromSink) RecordCommand(ev events.CommandFinished) error {
	s.commands.WithLabelValues(ev.Key, strconv.FormatBool(ev.Success())).Inc()
	s.duration.WithLabelValues(ev.Key).Observe(ev.Duration.Seconds())
	return nil
}

// RecordRejected counts a trigger for an unknown key.
func (s *PromSink) RecordRejected(ev events.CommandRejected) error {
	s.rejected.WithLabelValues(ev.Key).Inc()
	return nil
}
