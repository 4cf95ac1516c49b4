// Package store implements the event store endpoint, both as an in-process
// ingest.Handler and as an HTTP handler.
package store

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/kilianp07/selfreport/auth"
	"github.com/kilianp07/selfreport/core/eventstore"
	"github.com/kilianp07/selfreport/core/guard"
	"github.com/kilianp07/selfreport/core/ingest"
	"github.com/kilianp07/selfreport/core/logger"
	"github.com/kilianp07/selfreport/core/metrics"
	infralogger "github.com/kilianp07/selfreport/infra/logger"
	"github.com/kilianp07/selfreport/internal/eventbus"
	"github.com/kilianp07/selfreport/internal/wire"
)

// Endpoint validates, decodes and persists events. Everything it calls runs
// with a context marked unsafe for reporting.
type Endpoint struct {
	keys    *KeyRing
	store   eventstore.Store
	bus     *eventbus.TypedBus[eventstore.Record]
	metrics metrics.MetricsSink
	log     logger.Logger
	now     func() time.Time
}

var _ ingest.Handler = (*Endpoint)(nil)

// NewEndpoint creates an Endpoint. bus may be nil when nobody consumes
// accepted records.
func NewEndpoint(keys *KeyRing, st eventstore.Store, bus *eventbus.TypedBus[eventstore.Record], sink metrics.MetricsSink, log logger.Logger) *Endpoint {
	if keys == nil {
		keys, _ = NewKeyRing()
	}
	if sink == nil {
		sink = metrics.NopSink{}
	}
	if log == nil {
		log = infralogger.NopLogger{}
	}
	return &Endpoint{keys: keys, store: st, bus: bus, metrics: sink, log: log, now: time.Now}
}

// Store accepts one encoded event and returns its id. Rejections are
// *ingest.APIError values; persistence failures are returned as is.
func (e *Endpoint) Store(ctx context.Context, req ingest.Request) (string, error) {
	ctx = guard.MarkUnsafe(ctx)
	id, err := e.accept(ctx, req)
	if err != nil {
		e.metrics.Incr(metrics.KeyStoreRejected)
		var apiErr *ingest.APIError
		if errors.As(err, &apiErr) {
			e.log.WithContext(ctx).Warnf("event rejected for project %q: %v", req.ProjectID, err)
		} else {
			e.log.WithContext(ctx).Errorf("store event for project %q: %v", req.ProjectID, err)
		}
		return "", err
	}
	e.metrics.Incr(metrics.KeyStoreAccepted)
	e.log.WithContext(ctx).Debugf("stored event %s for project %s", id, req.ProjectID)
	return id, nil
}

func (e *Endpoint) accept(ctx context.Context, req ingest.Request) (string, error) {
	projectID, err := strconv.ParseInt(req.ProjectID, 10, 64)
	if err != nil || projectID <= 0 {
		return "", ingest.Errorf(http.StatusBadRequest, "invalid project id %q", req.ProjectID)
	}
	if !e.keys.HasProject(projectID) {
		return "", ingest.Errorf(http.StatusNotFound, "unknown project %d", projectID)
	}
	hdr, err := auth.Parse(req.Auth)
	if err != nil {
		return "", ingest.Errorf(http.StatusUnauthorized, "invalid %s header: %v", auth.HeaderName, err)
	}
	key, ok := e.keys.Lookup(hdr.PublicKey)
	if !ok {
		return "", ingest.Errorf(http.StatusUnauthorized, "unknown public key %s", hdr.PublicKey)
	}
	if key.ProjectID != projectID {
		return "", ingest.Errorf(http.StatusForbidden, "public key %s does not belong to project %d", hdr.PublicKey, projectID)
	}
	if hdr.SecretKey != "" && !secretMatches(key.SecretKey, hdr.SecretKey) {
		return "", ingest.Errorf(http.StatusUnauthorized, "invalid secret for public key %s", hdr.PublicKey)
	}

	ev, err := wire.Decode(req.Body, req.ContentEncoding)
	if err != nil {
		return "", ingest.Errorf(http.StatusBadRequest, "bad payload: %v", err)
	}
	now := e.now().UTC()
	if err := ev.Normalize(now); err != nil {
		return "", ingest.Errorf(http.StatusBadRequest, "invalid event: %v", err)
	}

	rec := eventstore.Record{ReceivedAt: now, ProjectID: projectID, Event: *ev}
	if err := e.store.Append(ctx, rec); err != nil {
		return "", fmt.Errorf("append event %s: %w", ev.EventID, err)
	}
	if e.bus != nil {
		e.bus.Publish(rec)
	}
	return ev.EventID, nil
}
