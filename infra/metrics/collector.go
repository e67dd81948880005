package metrics

import (
	"context"

	"github.com/kilianp07/computer2mqtt/core/events"
	coremetrics "github.com/kilianp07/computer2mqtt/core/metrics"
	"github.com/kilianp07/computer2mqtt/infra/logger"
	"github.com/kilianp07/computer2mqtt/internal/eventbus"
)

// StartEventCollector subscribes to the event bus and records every event in
// sink. It returns a channel closed once the collector goroutine exits, which
// happens when ctx is cancelled or the bus is closed.
func StartEventCollector(ctx context.Context, bus *eventbus.TypedBus[events.Event], sink coremetrics.MetricsSink, log logger.Logger) <-chan struct{} {
	done := make(chan struct{})
	if bus == nil || sink == nil {
		close(done)
		return done
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	sub := bus.Subscribe()
	go func() {
		defer close(done)
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				if err := coremetrics.Record(sink, ev); err != nil {
					log.Warnf("record %T: %v", ev, err)
				}
			}
		}
	}()
	return done
}
