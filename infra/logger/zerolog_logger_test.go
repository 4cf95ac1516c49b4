package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZerologLoggerMethods(t *testing.T) {
	assert.NoError(t, os.Setenv("APP_ENV", "dev"))
	defer assert.NoError(t, os.Unsetenv("APP_ENV"))
	l := NewZerologLogger("test")
	if l == nil {
		t.Fatalf("nil logger")
	}
	l.Debugf("debug %d", 1)
	l.Debugw("debug", map[string]any{"k": 1})
	l.Infof("info %s", "test")
	l.Warnf("warn")
	l.Errorf("error")
	l.WithContext(context.Background()).Infof("with context")
}

func TestZerologLoggerComponentField(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, "store")
	l.Warnf("rejected %d", 3)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "store", line["component"])
	assert.Equal(t, "warn", line["level"])
	assert.Equal(t, "rejected 3", line["message"])
}

type ctxKey struct{}

func TestZerologLoggerWithContextReachesHooks(t *testing.T) {
	var seen []any
	remove := AddHook(zerolog.HookFunc(func(e *zerolog.Event, _ zerolog.Level, _ string) {
		if ctx := e.GetCtx(); ctx != nil {
			seen = append(seen, ctx.Value(ctxKey{}))
		}
	}))
	defer remove()

	var buf bytes.Buffer
	l := NewWithWriter(&buf, "test")
	ctx := context.WithValue(context.Background(), ctxKey{}, "marker")
	l.WithContext(ctx).Infof("hello")

	assert.Equal(t, []any{"marker"}, seen)
}

func TestAddHookRemove(t *testing.T) {
	calls := 0
	remove := AddHook(zerolog.HookFunc(func(*zerolog.Event, zerolog.Level, string) { calls++ }))
	var buf bytes.Buffer
	l := NewWithWriter(&buf, "test")
	l.Infof("one")
	remove()
	l.Infof("two")
	assert.Equal(t, 1, calls)
}

func TestNopLogger(t *testing.T) {
	var l Logger = NopLogger{}
	l.Errorf("ignored")
	assert.Equal(t, l, l.WithContext(context.Background()))
}
