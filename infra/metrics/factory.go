package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/computer2mqtt/core/metrics"
	"github.com/kilianp07/computer2mqtt/infra/logger"
)

// NewSinks builds the sinks enabled in cfg. Disabled configuration yields a
// NopSink; several sinks are combined in a MultiSink. An unreachable InfluxDB
// degrades to a NopSink instead of failing; the reason is reported on log.
func NewSinks(cfg coremetrics.Config, reg prometheus.Registerer, host string, log logger.Logger) (coremetrics.MetricsSink, error) {
	var sinks []coremetrics.MetricsSink
	if cfg.PrometheusEnabled {
		prom, err := NewPromSinkWithRegistry(reg)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, prom)
	}
	if cfg.Influx.Enabled {
		sinks = append(sinks, NewInfluxSinkWithFallback(cfg.Influx, host, log))
	}
	switch len(sinks) {
	case 0:
		return coremetrics.NopSink{}, nil
	case 1:
		return sinks[0], nil
	default:
		return NewMultiSink(sinks...), nil
	}
}
