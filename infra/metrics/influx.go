package metrics

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/kilianp07/computer2mqtt/core/events"
	coremetrics "github.com/kilianp07/computer2mqtt/core/metrics"
	"github.com/kilianp07/computer2mqtt/infra/logger"
)

const writeTimeout = 5 * time.Second

// InfluxSink writes command executions and connection events to InfluxDB.
// Inbound messages and state changes are left to Prometheus.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	host     string
	log      logger.Logger
}

// NewInfluxSink creates a sink for the given InfluxDB endpoint. host tags
// every point. A nil log discards the sink's own diagnostics.
func NewInfluxSink(cfg coremetrics.InfluxConfig, host string, log logger.Logger) *InfluxSink {
	if log == nil {
		log = logger.NopLogger{}
	}
	base := strings.TrimSuffix(cfg.URL, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, cfg.Token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: writeTimeout}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		host:     host,
		log:      log,
	}
}

// NewInfluxSinkWithFallback pings the InfluxDB instance and returns a NopSink
// if the health check fails.
func NewInfluxSinkWithFallback(cfg coremetrics.InfluxConfig, host string, log logger.Logger) coremetrics.MetricsSink {
	sink := NewInfluxSink(cfg, host, log)
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// Close releases the underlying client.
func (s *InfluxSink) Close() {
	s.client.Close()
}

func (s *InfluxSink) RecordState(events.StateChanged) error       { return nil }
func (s *InfluxSink) RecordMessage(events.MessageReceived) error  { return nil }
func (s *InfluxSink) RecordRejected(events.CommandRejected) error { return nil }

// RecordReconnect writes a reconnect_scheduled point.
func (s *InfluxSink) RecordReconnect(ev events.ReconnectScheduled) error {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	p := write.NewPointWithMeasurement("reconnect_scheduled").
		AddTag("host", s.host).
		AddTag("kind", ev.Kind).
		AddField("attempt", ev.Attempt).
		AddField("delay_s", ev.Delay.Seconds()).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordCommand writes a command_execution point.
func (s *InfluxSink) RecordCommand(ev events.CommandFinished) error {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	errStr := ""
	if ev.Err != nil {
		errStr = ev.Err.Error()
	}
	p := write.NewPointWithMeasurement("command_execution").
		AddTag("host", s.host).
		AddTag("command", ev.Key).
		AddTag("success", strconv.FormatBool(ev.Success())).
		AddField("invocation_id", ev.InvocationID).
		AddField("exit_code", ev.ExitCode).
		AddField("duration_ms", ev.Duration.Milliseconds()).
		AddField("error", errStr).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}
