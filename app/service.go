package app

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kilianp07/computer2mqtt/config"
	"github.com/kilianp07/computer2mqtt/core/command"
	"github.com/kilianp07/computer2mqtt/core/events"
	"github.com/kilianp07/computer2mqtt/core/identity"
	coremetrics "github.com/kilianp07/computer2mqtt/core/metrics"
	coremqtt "github.com/kilianp07/computer2mqtt/core/mqtt"
	"github.com/kilianp07/computer2mqtt/core/subscription"
	"github.com/kilianp07/computer2mqtt/infra/executor"
	"github.com/kilianp07/computer2mqtt/infra/logger"
	"github.com/kilianp07/computer2mqtt/infra/metrics"
	"github.com/kilianp07/computer2mqtt/infra/mqtt"
	"github.com/kilianp07/computer2mqtt/internal/eventbus"
)

// Deps overrides the collaborators New would otherwise build from config.
// Zero fields keep the defaults.
type Deps struct {
	Connector  coremqtt.Connector
	Runner     command.Runner
	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer
}

// Service supervises the subscription loop together with the command
// dispatcher and the metrics pipeline.
type Service struct {
	Loop       *subscription.Loop
	Dispatcher *command.Dispatcher

	bus         *eventbus.TypedBus[events.Event]
	sink        coremetrics.MetricsSink
	log         logger.Logger
	promEnabled bool
	promAddr    string
	gatherer    prometheus.Gatherer
}

// New creates a Service from the configuration.
func New(cfg *config.Config, log logger.Logger) (*Service, error) {
	return NewWithDeps(cfg, log, Deps{})
}

// NewWithDeps creates a Service, using the non-zero fields of deps in place
// of the production MQTT connector, process runner and Prometheus registry.
func NewWithDeps(cfg *config.Config, log logger.Logger, deps Deps) (*Service, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	if log == nil {
		log = logger.New("service")
	}

	connector := deps.Connector
	if connector == nil {
		pc, err := mqtt.NewPahoConnector(cfg.MQTT, log.With("mqtt"))
		if err != nil {
			return nil, fmt.Errorf("mqtt connector: %w", err)
		}
		connector = pc
	}
	runner := deps.Runner
	if runner == nil {
		runner = executor.NewProcessRunner()
	}
	reg, gatherer := deps.Registerer, deps.Gatherer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if gatherer == nil {
		if g, ok := reg.(prometheus.Gatherer); ok {
			gatherer = g
		} else {
			gatherer = prometheus.DefaultGatherer
		}
	}

	sink, err := metrics.NewSinks(cfg.Metrics, reg, metricsHost(cfg.MQTT.Hostname), log.With("metrics"))
	if err != nil {
		return nil, fmt.Errorf("metrics sinks: %w", err)
	}

	bus := eventbus.NewTyped[events.Event](eventbus.DefaultBuffer)
	dispatcher := command.NewDispatcher(cfg.Commands, runner, log.With("dispatcher"), bus)

	loopLog := log.With("subscription")
	loop, err := subscription.New(subscription.Config{
		Connector:  connector,
		Dispatcher: dispatcher,
		Resolve: func() (string, error) {
			return identity.ResolveHostname(cfg.MQTT.Hostname, loopLog)
		},
		User:   cfg.MQTT.User,
		Logger: loopLog,
		Events: bus,
	})
	if err != nil {
		return nil, fmt.Errorf("subscription loop: %w", err)
	}

	return &Service{
		Loop:        loop,
		Dispatcher:  dispatcher,
		bus:         bus,
		sink:        sink,
		log:         log,
		promEnabled: cfg.Metrics.PrometheusEnabled,
		promAddr:    cfg.Metrics.PrometheusAddr,
		gatherer:    gatherer,
	}, nil
}

// metricsHost is the host tag of InfluxDB points. It does not fail: a
// missing OS host name only degrades the tag.
func metricsHost(override string) string {
	host, err := identity.ResolveHostname(override, logger.NopLogger{})
	if err != nil {
		return "unknown"
	}
	return host
}

// Run starts the subscription loop and blocks until it terminates. A
// cancelled context stops the loop and yields nil; an unexpected loop error
// is returned. Running commands are not waited for.
func (s *Service) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	collected := metrics.StartEventCollector(ctx, s.bus, s.sink, s.log.With("metrics"))
	if s.promEnabled {
		go func() {
			if err := metrics.StartPromServer(ctx, s.promAddr, s.gatherer, s.log.With("metrics")); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}

	done := make(chan error, 1)
	go func() { done <- s.Loop.Run(ctx) }()

	err := <-done
	cancel()
	<-collected
	if err != nil {
		s.log.Errorf("subscription loop stopped: %v", err)
		return err
	}
	s.log.Infof("Shutting down...")
	return nil
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	s.bus.Close()
	if c, ok := s.sink.(interface{ Close() }); ok {
		c.Close()
	}
	return nil
}
