//go:build !no_containers

package test

import (
	"context"
	"fmt"
	"testing"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/computer2mqtt/core/events"
	coremetrics "github.com/kilianp07/computer2mqtt/core/metrics"
	"github.com/kilianp07/computer2mqtt/infra/metrics"
	"github.com/kilianp07/computer2mqtt/test/util"
)

func TestInfluxSinkWithContainer(t *testing.T) {
	requireDocker(t)
	setup := util.InfluxSetup{Org: "c2m", Bucket: "bridge", Token: "test-token"}
	ctx := context.Background()
	url, cleanup, err := util.StartInflux(ctx, setup)
	if err != nil {
		t.Skipf("unable to start influx container: %v", err)
	}
	defer cleanup()

	cfg := coremetrics.InfluxConfig{Enabled: true, URL: url, Token: setup.Token, Org: setup.Org, Bucket: setup.Bucket}
	sinkIf := metrics.NewInfluxSinkWithFallback(cfg, "e2ehost", nil)
	sink, ok := sinkIf.(*metrics.InfluxSink)
	require.True(t, ok, "health check should pass against a live instance")
	defer sink.Close()

	now := time.Now()
	require.NoError(t, sink.RecordCommand(events.CommandFinished{
		InvocationID: "inv-1",
		Key:          "sleep",
		ExitCode:     0,
		Duration:     42 * time.Millisecond,
		Time:         now,
	}))

	client := influxdb2.NewClient(url, setup.Token)
	defer client.Close()
	flux := fmt.Sprintf(`from(bucket: %q)
  |> range(start: -1h)
  |> filter(fn: (r) => r._measurement == "command_execution" and r._field == "exit_code")`, setup.Bucket)

	var rows int
	require.Eventually(t, func() bool {
		res, err := client.QueryAPI(setup.Org).Query(ctx, flux)
		if err != nil {
			return false
		}
		defer res.Close()
		rows = 0
		for res.Next() {
			rec := res.Record()
			assert.Equal(t, "sleep", rec.ValueByKey("command"))
			assert.Equal(t, "e2ehost", rec.ValueByKey("host"))
			rows++
		}
		return rows == 1
	}, 10*time.Second, 200*time.Millisecond)
}
