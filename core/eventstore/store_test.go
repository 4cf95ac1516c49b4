package eventstore

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/selfreport/core/event"
	"github.com/kilianp07/selfreport/core/factory"
)

var base = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func record(i int, project int64, level sentry.Level, tags map[string]string) Record {
	return Record{
		ReceivedAt: base.Add(time.Duration(i) * time.Minute),
		ProjectID:  project,
		Event: event.Event{
			EventID: fmt.Sprintf("%032d", i),
			Message: fmt.Sprintf("event %d", i),
			Level:   level,
			Tags:    tags,
		},
	}
}

func seed(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.Append(ctx, record(0, 1, sentry.LevelError, map[string]string{"install-id": "a"})))
	require.NoError(t, s.Append(ctx, record(1, 1, sentry.LevelWarning, nil)))
	require.NoError(t, s.Append(ctx, record(2, 2, sentry.LevelError, map[string]string{"install-id": "b"})))
	require.NoError(t, s.Append(ctx, record(3, 1, sentry.LevelError, nil)))
}

func messages(recs []Record) []string {
	out := make([]string, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.Event.Message)
	}
	return out
}

func exerciseStore(t *testing.T, s Store) {
	seed(t, s)
	ctx := context.Background()
	cases := []struct {
		name string
		q    Query
		want []string
	}{
		{"all", Query{}, []string{"event 0", "event 1", "event 2", "event 3"}},
		{"project", Query{ProjectID: 1}, []string{"event 0", "event 1", "event 3"}},
		{"level", Query{Level: sentry.LevelWarning}, []string{"event 1"}},
		{"window", Query{Start: base.Add(time.Minute), End: base.Add(2 * time.Minute)}, []string{"event 1", "event 2"}},
		{"tag any value", Query{TagKey: "install-id"}, []string{"event 0", "event 2"}},
		{"tag value", Query{TagKey: "install-id", TagValue: "b"}, []string{"event 2"}},
		{"limit", Query{ProjectID: 1, Limit: 2}, []string{"event 0", "event 1"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := s.Query(ctx, tc.q)
			require.NoError(t, err)
			assert.Equal(t, tc.want, messages(got))
		})
	}
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestJSONLStore(t *testing.T) {
	s, err := NewJSONLStore(filepath.Join(t.TempDir(), "events.jsonl"))
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	exerciseStore(t, s)
}

func TestJSONLStoreRequiresPath(t *testing.T) {
	_, err := NewJSONLStore("")
	assert.Error(t, err)
}

func TestSQLiteStore(t *testing.T) {
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "events.db"))
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	exerciseStore(t, s)
}

func TestRotatingJSONLStore_Query(t *testing.T) {
	s, err := NewRotatingJSONLStore(filepath.Join(t.TempDir(), "nested", "events.jsonl"), 1, 2, 1)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	exerciseStore(t, s)
}

func TestRotatingJSONLStore_Rotation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	s, err := NewRotatingJSONLStore(path, 1, 3, 1)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	big := make(map[string]string)
	for i := 0; i < 64; i++ {
		big[fmt.Sprintf("k%02d", i)] = fmt.Sprintf("%0256d", i)
	}
	for i := 0; i < 80; i++ {
		require.NoError(t, s.Append(context.Background(), record(i, 1, sentry.LevelError, big)))
	}
	files, err := filepath.Glob(filepath.Join(filepath.Dir(path), "events*"))
	require.NoError(t, err)
	assert.Greater(t, len(files), 1, "expected rotated backups")

	got, err := s.Query(context.Background(), Query{Start: base.Add(79 * time.Minute)})
	require.NoError(t, err)
	assert.Equal(t, []string{"event 79"}, messages(got))
}

func TestNewFromConfig(t *testing.T) {
	dir := t.TempDir()
	for _, cfg := range []factory.ModuleConfig{
		{Type: "memory"},
		{Type: "jsonl", Conf: map[string]any{"path": filepath.Join(dir, "a.jsonl")}},
		{Type: "rotating_jsonl", Conf: map[string]any{"path": filepath.Join(dir, "b.jsonl"), "max_size_mb": 1}},
		{Type: "sqlite", Conf: map[string]any{"path": filepath.Join(dir, "c.db")}},
	} {
		s, err := New(cfg)
		require.NoError(t, err, cfg.Type)
		require.NoError(t, s.Close())
	}
	_, err := New(factory.ModuleConfig{Type: "postgres"})
	assert.Error(t, err)
}

func TestStoresConcurrentAppendQuery(t *testing.T) {
	const (
		writers   = 16
		perWriter = 20
	)
	cases := []struct {
		name string
		open func(t *testing.T) Store
	}{
		{"memory", func(t *testing.T) Store { return NewMemoryStore() }},
		{"jsonl", func(t *testing.T) Store {
			s, err := NewJSONLStore(filepath.Join(t.TempDir(), "events.jsonl"))
			require.NoError(t, err)
			return s
		}},
		{"rotating_jsonl", func(t *testing.T) Store {
			s, err := NewRotatingJSONLStore(filepath.Join(t.TempDir(), "events.jsonl"), 1, 3, 1)
			require.NoError(t, err)
			return s
		}},
		{"sqlite", func(t *testing.T) Store {
			s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "events.db"))
			require.NoError(t, err)
			return s
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := tc.open(t)
			defer func() { _ = s.Close() }()
			ctx := context.Background()

			var (
				wg   sync.WaitGroup
				mu   sync.Mutex
				errs []error
			)
			for w := 0; w < writers; w++ {
				wg.Add(1)
				go func(w int) {
					defer wg.Done()
					for i := 0; i < perWriter; i++ {
						err := s.Append(ctx, record(w*perWriter+i, int64(w%2+1), sentry.LevelError, nil))
						if err == nil && i%5 == 0 {
							_, err = s.Query(ctx, Query{ProjectID: 1, Limit: 10})
						}
						if err != nil {
							mu.Lock()
							errs = append(errs, err)
							mu.Unlock()
						}
					}
				}(w)
			}
			wg.Wait()
			require.Empty(t, errs)

			got, err := s.Query(ctx, Query{})
			require.NoError(t, err)
			assert.Len(t, got, writers*perWriter)
		})
	}
}
