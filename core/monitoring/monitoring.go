// Package monitoring is the process-wide error reporting facade. Components
// report through the package functions; the application installs the
// implementation with Init.
package monitoring

import (
	"context"
	"sync/atomic"
	"time"
)

// Monitor defines methods used for error reporting.
type Monitor interface {
	CaptureException(ctx context.Context, err error, tags map[string]string)
	// CapturePanic reports a recovered panic value.
	CapturePanic(ctx context.Context, value any)
	Flush(timeout time.Duration)
}

type NopMonitor struct{}

func (NopMonitor) CaptureException(context.Context, error, map[string]string) {}
func (NopMonitor) CapturePanic(context.Context, any)                          {}
func (NopMonitor) Flush(time.Duration)                                        {}

// holder wraps the interface so atomic.Pointer can store any implementation.
type holder struct{ m Monitor }

var current atomic.Pointer[holder]

func init() {
	current.Store(&holder{m: NopMonitor{}})
}

// Init sets the global monitor implementation. A nil m is ignored.
func Init(m Monitor) {
	if m != nil {
		current.Store(&holder{m: m})
	}
}

// Current returns the installed monitor.
func Current() Monitor { return current.Load().m }

// CaptureException records the error with optional tags.
func CaptureException(ctx context.Context, err error, tags map[string]string) {
	if err != nil {
		Current().CaptureException(ctx, err, tags)
	}
}

// Recover captures a panic then re-panics. It must be deferred directly:
//
//	defer monitoring.Recover(ctx)
func Recover(ctx context.Context) {
	if r := recover(); r != nil {
		m := Current()
		m.CapturePanic(ctx, r)
		m.Flush(2 * time.Second)
		panic(r)
	}
}

// Flush flushes buffered events.
func Flush(d time.Duration) {
	Current().Flush(d)
}
