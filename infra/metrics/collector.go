package metrics

import (
	"context"
	"strconv"

	"github.com/kilianp07/selfreport/core/eventstore"
	coremetrics "github.com/kilianp07/selfreport/core/metrics"
	"github.com/kilianp07/selfreport/internal/eventbus"
)

// ProjectKey returns the counter key of accepted events for one project.
func ProjectKey(projectID int64) string {
	return "store.events.project." + strconv.FormatInt(projectID, 10)
}

// StartRecordCollector subscribes to the record bus and counts accepted
// records per project and level. It stops when the context is canceled or
// the bus is closed; the returned channel is closed on exit.
func StartRecordCollector(ctx context.Context, bus *eventbus.TypedBus[eventstore.Record], sink coremetrics.MetricsSink) <-chan struct{} {
	done := make(chan struct{})
	if bus == nil || sink == nil {
		close(done)
		return done
	}
	sub := bus.Subscribe()
	go func() {
		defer close(done)
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case rec, ok := <-sub:
				if !ok {
					return
				}
				sink.Incr(ProjectKey(rec.ProjectID))
				if rec.Event.Level != "" {
					sink.Incr("store.events.level." + string(rec.Event.Level))
				}
			}
		}
	}()
	return done
}
