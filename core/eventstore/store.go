// Package eventstore persists events accepted by the store endpoint.
package eventstore

import (
	"context"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/kilianp07/selfreport/core/event"
	"github.com/kilianp07/selfreport/core/factory"
)

// Record is one accepted event.
type Record struct {
	ReceivedAt time.Time   `json:"received_at"`
	ProjectID  int64       `json:"project_id"`
	Event      event.Event `json:"event"`
}

// Query filters stored records. Zero fields do not filter.
type Query struct {
	Start     time.Time
	End       time.Time
	ProjectID int64
	Level     sentry.Level
	// TagKey and TagValue select records carrying the tag. An empty TagValue
	// matches any value.
	TagKey   string
	TagValue string
	// Limit caps the number of returned records, oldest first.
	Limit int
}

// Match reports whether r satisfies every filter of q except Limit.
func (q Query) Match(r Record) bool {
	if !q.Start.IsZero() && r.ReceivedAt.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && r.ReceivedAt.After(q.End) {
		return false
	}
	if q.ProjectID != 0 && r.ProjectID != q.ProjectID {
		return false
	}
	if q.Level != "" && r.Event.Level != q.Level {
		return false
	}
	if q.TagKey != "" {
		v, ok := r.Event.Tags[q.TagKey]
		if !ok || (q.TagValue != "" && v != q.TagValue) {
			return false
		}
	}
	return true
}

// Store persists Records and supports querying.
type Store interface {
	Append(ctx context.Context, rec Record) error
	Query(ctx context.Context, q Query) ([]Record, error)
	Close() error
}

var registry = factory.NewRegistry[Store]()

func init() {
	_ = registry.Register("memory", func(map[string]any) (Store, error) {
		return NewMemoryStore(), nil
	})
	_ = registry.Register("jsonl", func(conf map[string]any) (Store, error) {
		var c struct {
			Path string `json:"path"`
		}
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewJSONLStore(c.Path)
	})
	_ = registry.Register("rotating_jsonl", func(conf map[string]any) (Store, error) {
		var c struct {
			Path       string `json:"path"`
			MaxSizeMB  int    `json:"max_size_mb"`
			MaxBackups int    `json:"max_backups"`
			MaxAgeDays int    `json:"max_age_days"`
		}
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewRotatingJSONLStore(c.Path, c.MaxSizeMB, c.MaxBackups, c.MaxAgeDays)
	})
	_ = registry.Register("sqlite", func(conf map[string]any) (Store, error) {
		var c struct {
			Path string `json:"path"`
		}
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewSQLiteStore(c.Path)
	})
}

// New creates the store selected by cfg.Type: memory, jsonl, rotating_jsonl
// or sqlite.
func New(cfg factory.ModuleConfig) (Store, error) {
	return registry.Create(cfg)
}

func limit(recs []Record, n int) []Record {
	if n > 0 && len(recs) > n {
		return recs[:n]
	}
	return recs
}
