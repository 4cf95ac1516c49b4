package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kilianp07/selfreport/core/guard"
	"github.com/kilianp07/selfreport/core/metrics"
)

func TestRecordFilterCountsEveryRecord(t *testing.T) {
	sink := metrics.NewMemorySink()
	safe := true
	f := NewRecordFilter(guard.Func(func(context.Context) bool { return safe }), sink)

	assert.True(t, f.Filter(context.Background()))
	safe = false
	assert.False(t, f.Filter(context.Background()))

	assert.Equal(t, 2, sink.Count(metrics.KeyUncapturedLogs))
}

func TestRecordFilterMarkedContext(t *testing.T) {
	sink := metrics.NewMemorySink()
	f := NewRecordFilter(guard.New(guard.NewLocationSet(guard.DefaultUnsafeLocations...)), sink)

	assert.True(t, f.Filter(context.Background()))
	assert.False(t, f.Filter(guard.MarkUnsafe(context.Background())))
	assert.Equal(t, 2, sink.Count(metrics.KeyUncapturedLogs))
}

func TestRecordFilterDefaults(t *testing.T) {
	f := NewRecordFilter(nil, nil)
	assert.True(t, f.Filter(context.Background()))
}
