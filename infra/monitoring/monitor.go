// Package monitoring backs the core monitoring facade with the capture client.
package monitoring

import (
	"context"
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/kilianp07/selfreport/core/event"
	coremon "github.com/kilianp07/selfreport/core/monitoring"
	"github.com/kilianp07/selfreport/infra/logger"
)

// Capturer accepts events for reporting. *capture.Client implements it.
type Capturer interface {
	Capture(ctx context.Context, ev *event.Event) (string, error)
}

// NewCaptureMonitor returns a Monitor that reports through c. A nil
// capturer yields a NopMonitor.
func NewCaptureMonitor(c Capturer, log logger.Logger) coremon.Monitor {
	if c == nil {
		return coremon.NopMonitor{}
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	return &captureMonitor{capturer: c, log: log}
}

type captureMonitor struct {
	capturer Capturer
	log      logger.Logger
}

func (m *captureMonitor) CaptureException(ctx context.Context, err error, tags map[string]string) {
	if err == nil {
		return
	}
	ev := event.FromError(err)
	for k, v := range tags {
		ev.SetTag(k, v)
	}
	m.capture(ctx, ev)
}

func (m *captureMonitor) CapturePanic(ctx context.Context, value any) {
	var ev *event.Event
	if err, ok := value.(error); ok {
		ev = event.FromError(err)
	} else {
		ev = event.NewMessage(fmt.Sprint(value), sentry.LevelFatal)
	}
	ev.Level = sentry.LevelFatal
	ev.SetTag("mechanism", "panic")
	m.capture(ctx, ev)
}

// Flush is a no-op: captures are delivered synchronously.
func (m *captureMonitor) Flush(time.Duration) {}

func (m *captureMonitor) capture(ctx context.Context, ev *event.Event) {
	if ctx == nil {
		ctx = context.Background()
	}
	if _, err := m.capturer.Capture(ctx, ev); err != nil {
		// Warn, not error: error records are themselves captured.
		m.log.WithContext(ctx).Warnf("report %q: %v", ev.Title(), err)
	}
}
