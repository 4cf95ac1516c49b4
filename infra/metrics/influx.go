package metrics

import (
	"context"
	"net/http"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/selfreport/core/metrics"
	"github.com/kilianp07/selfreport/infra/logger"
)

const (
	influxMeasurement = "selfreport_counter"
	// influxFlushMS is the batch flush interval of the non-blocking writer.
	influxFlushMS = 1000
)

// InfluxSink batches one point per increment to an InfluxDB instance using
// the official client. Writes happen on the client's goroutines; Incr never
// blocks on the network.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPI
	log      logger.Logger
	now      func() time.Time
	errsDone chan struct{}
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	return newInfluxSink(url, token, org, bucket, logger.New("influx-sink"))
}

func newInfluxSink(url, token, org, bucket string, log logger.Logger) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	opts := influxdb2.DefaultOptions().
		SetHTTPClient(&http.Client{Timeout: 5 * time.Second}).
		SetFlushInterval(influxFlushMS).
		SetMaxRetries(0)
	client := influxdb2.NewClientWithOptions(base, token, opts)
	writeAPI := client.WriteAPI(org, bucket)
	s := &InfluxSink{
		client:   client,
		writeAPI: writeAPI,
		log:      log,
		now:      time.Now,
		errsDone: make(chan struct{}),
	}
	go s.drainErrors(writeAPI.Errors())
	return s
}

// drainErrors logs failed batch writes at warn level only: error records feed
// the reporting pipeline, which increments counters itself.
func (s *InfluxSink) drainErrors(errs <-chan error) {
	defer close(s.errsDone)
	for err := range errs {
		s.log.Warnf("influx write: %v", err)
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(url, token, org, bucket string) coremetrics.MetricsSink {
	sink := NewInfluxSink(url, token, org, bucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// Incr queues a point with count=1 tagged with key.
func (s *InfluxSink) Incr(key string) {
	p := write.NewPointWithMeasurement(influxMeasurement).
		AddTag("key", key).
		AddField("count", 1).
		SetTime(s.now())
	s.writeAPI.WritePoint(p)
}

// Flush sends queued points and waits for the batch to be written.
func (s *InfluxSink) Flush() {
	s.writeAPI.Flush()
}

// Close flushes pending points and releases the underlying client.
func (s *InfluxSink) Close() {
	s.client.Close()
	<-s.errsDone
}
