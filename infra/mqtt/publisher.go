package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/kilianp07/selfreport/core/eventstore"
	"github.com/kilianp07/selfreport/core/guard"
	coremon "github.com/kilianp07/selfreport/core/monitoring"
	"github.com/kilianp07/selfreport/infra/logger"
	"github.com/kilianp07/selfreport/internal/eventbus"
)

// RecordPublisher forwards accepted records to <prefix>/<project_id>.
type RecordPublisher struct {
	cli        pahoClient
	prefix     string
	qos        byte
	retain     bool
	maxRetries int
	backoff    time.Duration
	logger     logger.Logger
}

// NewRecordPublisher connects to the MQTT broker.
func NewRecordPublisher(cfg Config) (*RecordPublisher, error) {
	cfg.SetDefaults()
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}
	log := logger.New("mqtt_publisher")
	opts.OnConnect = func(paho.Client) {
		log.Infof("MQTT connected to %s", cfg.Broker)
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Warnf("connection lost: %v", err)
	}
	opts.OnReconnecting = func(_ paho.Client, _ *paho.ClientOptions) {
		log.Warnf("reconnecting to MQTT broker")
	}
	c := newMQTTClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	return &RecordPublisher{
		cli:        c,
		prefix:     strings.TrimSuffix(cfg.TopicPrefix, "/"),
		qos:        cfg.QoS,
		retain:     cfg.Retain,
		maxRetries: cfg.MaxRetries,
		backoff:    time.Duration(cfg.BackoffMS) * time.Millisecond,
		logger:     log,
	}, nil
}

// Topic returns the topic records of projectID are published to.
func (p *RecordPublisher) Topic(projectID int64) string {
	return p.prefix + "/" + strconv.FormatInt(projectID, 10)
}

// Publish sends rec as JSON, retrying with exponential backoff. Failures
// after the last attempt are reported to the monitor with ctx.
func (p *RecordPublisher) Publish(ctx context.Context, rec eventstore.Record) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	topic := p.Topic(rec.ProjectID)
	var publishErr error
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		token := p.cli.Publish(topic, p.qos, p.retain, payload)
		token.Wait()
		publishErr = token.Error()
		if publishErr == nil {
			p.logger.Debugf("published event %s to %s", rec.Event.EventID, topic)
			return nil
		}
		p.logger.WithContext(ctx).Warnf("publish attempt %d failed: %v", attempt+1, publishErr)
		if attempt == p.maxRetries {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.backoff * time.Duration(1<<attempt)):
		}
	}
	err = fmt.Errorf("publish %s: %w", topic, publishErr)
	coremon.CaptureException(ctx, err, map[string]string{
		"module":     "mqtt",
		"project_id": strconv.FormatInt(rec.ProjectID, 10),
	})
	return err
}

// Run publishes every record received on bus until ctx is canceled or the
// bus is closed. Records are processed in a context marked unsafe for
// reporting, like the endpoint that accepted them.
func (p *RecordPublisher) Run(ctx context.Context, bus *eventbus.TypedBus[eventstore.Record]) {
	sub := bus.Subscribe()
	defer bus.Unsubscribe(sub)
	ctx = guard.MarkUnsafe(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case rec, ok := <-sub:
			if !ok {
				return
			}
			if err := p.Publish(ctx, rec); err != nil {
				p.logger.WithContext(ctx).Errorf("forward event %s: %v", rec.Event.EventID, err)
			}
		}
	}
}

// Disconnect gracefully closes the MQTT connection.
func (p *RecordPublisher) Disconnect() {
	if p.cli != nil && p.cli.IsConnected() {
		p.cli.Disconnect(250)
	}
}
