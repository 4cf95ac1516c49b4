// Package event defines the error/event report carried through the capture
// pipeline and stored by the ingestion endpoint.
package event

import (
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
	"github.com/mitchellh/copystructure"
)

// maxErrorDepth bounds how many wrapped errors are unrolled into exceptions.
const maxErrorDepth = 10

// Event is one error or message report. It is created at the call site,
// consumed by the capture client and discarded after dispatch.
type Event struct {
	EventID     string             `json:"event_id,omitempty"`
	Timestamp   time.Time          `json:"timestamp"`
	Level       sentry.Level       `json:"level,omitempty"`
	Logger      string             `json:"logger,omitempty"`
	Platform    string             `json:"platform,omitempty"`
	Message     string             `json:"message,omitempty"`
	ServerName  string             `json:"server_name,omitempty"`
	Release     string             `json:"release,omitempty"`
	Environment string             `json:"environment,omitempty"`
	Tags        map[string]string  `json:"tags,omitempty"`
	Extra       map[string]any     `json:"extra,omitempty"`
	Exception   []sentry.Exception `json:"exception,omitempty"`
	Sdk         sentry.SdkInfo     `json:"sdk,omitempty"`
}

// NewMessage returns an event carrying a plain message.
func NewMessage(msg string, level sentry.Level) *Event {
	return &Event{Message: msg, Level: level}
}

// FromError returns an error-level event whose exception list unrolls err and
// its wrapped causes. The stack trace is taken from the error when it carries
// one, otherwise from the caller.
func FromError(err error) *Event {
	ev := &Event{Level: sentry.LevelError}
	if err == nil {
		return ev
	}
	se := &sentry.Event{}
	se.SetException(err, maxErrorDepth)
	ev.Exception = se.Exception
	ev.Message = err.Error()
	return ev
}

// NewID returns a fresh 32 character hex event identifier.
func NewID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// SetTag sets a tag, allocating the map when needed.
func (e *Event) SetTag(key, value string) {
	if e.Tags == nil {
		e.Tags = make(map[string]string)
	}
	e.Tags[key] = value
}

// SetExtra sets an extra field, allocating the map when needed.
func (e *Event) SetExtra(key string, value any) {
	if e.Extra == nil {
		e.Extra = make(map[string]any)
	}
	e.Extra[key] = value
}

// Clone returns a deep copy. Mutating the copy's tags, extras or exceptions
// never affects the original.
func (e *Event) Clone() (*Event, error) {
	if e == nil {
		return nil, nil
	}
	cp, err := copystructure.Copy(e)
	if err != nil {
		return nil, fmt.Errorf("copy event: %w", err)
	}
	return cp.(*Event), nil
}

// Title is a one line summary used in logs.
func (e *Event) Title() string {
	if e.Message != "" {
		return e.Message
	}
	if len(e.Exception) > 0 {
		ex := e.Exception[len(e.Exception)-1]
		return ex.Type + ": " + ex.Value
	}
	return "<untitled event>"
}

// Normalize validates the event id and fills server-side defaults. It is
// applied by the ingestion endpoint to every accepted payload.
func (e *Event) Normalize(now time.Time) error {
	if e.EventID == "" {
		e.EventID = NewID()
	} else {
		id := strings.ToLower(strings.ReplaceAll(e.EventID, "-", ""))
		if len(id) != 32 {
			return fmt.Errorf("invalid event_id %q", e.EventID)
		}
		if _, err := hex.DecodeString(id); err != nil {
			return fmt.Errorf("invalid event_id %q", e.EventID)
		}
		e.EventID = id
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = now
	}
	e.Timestamp = e.Timestamp.UTC()
	if e.Level == "" {
		e.Level = sentry.LevelError
	}
	if e.Platform == "" {
		e.Platform = "other"
	}
	if e.Message == "" && len(e.Exception) == 0 {
		return fmt.Errorf("event has neither message nor exception")
	}
	return nil
}
