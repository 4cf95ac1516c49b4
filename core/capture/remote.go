package capture

import (
	"context"

	"github.com/kilianp07/selfreport/core/event"
)

// Remote is an independently operated upstream reporting service.
type Remote interface {
	// IsActive reports whether events should be forwarded upstream.
	IsActive() bool
	Send(ctx context.Context, ev *event.Event) error
}

// NopRemote is an inactive Remote.
type NopRemote struct{}

func (NopRemote) IsActive() bool                           { return false }
func (NopRemote) Send(context.Context, *event.Event) error { return nil }
