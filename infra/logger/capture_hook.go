package logger

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/getsentry/sentry-go"
	"github.com/rs/zerolog"

	"github.com/kilianp07/selfreport/core/event"
)

// Capturer accepts events for reporting. *capture.Client implements it.
type Capturer interface {
	Capture(ctx context.Context, ev *event.Event) (string, error)
}

type hookActiveKey struct{}

// CaptureHook forwards log records at or above a level to a Capturer once
// the filter admits them.
type CaptureHook struct {
	level    zerolog.Level
	name     string
	filter   *RecordFilter
	capturer Capturer
	errOut   io.Writer
}

// NewCaptureHook returns a hook reporting records at level or above. name is
// used as the event's logger attribute.
func NewCaptureHook(level zerolog.Level, name string, filter *RecordFilter, c Capturer) *CaptureHook {
	if filter == nil {
		filter = NewRecordFilter(nil, nil)
	}
	return &CaptureHook{level: level, name: name, filter: filter, capturer: c, errOut: os.Stderr}
}

func (h *CaptureHook) Run(e *zerolog.Event, level zerolog.Level, msg string) {
	if h.capturer == nil || level == zerolog.NoLevel || level < h.level {
		return
	}
	ctx := e.GetCtx()
	if ctx == nil {
		ctx = context.Background()
	}
	// Records logged while a capture is in flight must not be captured again.
	if active, _ := ctx.Value(hookActiveKey{}).(bool); active {
		return
	}
	if !h.filter.Filter(ctx) {
		return
	}
	ev := event.NewMessage(msg, sentryLevel(level))
	ev.Logger = h.name
	if _, err := h.capturer.Capture(context.WithValue(ctx, hookActiveKey{}, true), ev); err != nil {
		// The regular loggers carry this hook; write directly instead.
		_, _ = fmt.Fprintf(h.errOut, "capture log record: %v\n", err)
	}
}

func sentryLevel(l zerolog.Level) sentry.Level {
	switch l {
	case zerolog.TraceLevel, zerolog.DebugLevel:
		return sentry.LevelDebug
	case zerolog.InfoLevel:
		return sentry.LevelInfo
	case zerolog.WarnLevel:
		return sentry.LevelWarning
	case zerolog.ErrorLevel:
		return sentry.LevelError
	default:
		return sentry.LevelFatal
	}
}
