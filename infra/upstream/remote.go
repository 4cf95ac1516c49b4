// Package upstream forwards captured events to an independently operated
// reporting service over HTTP.
package upstream

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-cleanhttp"

	"github.com/kilianp07/selfreport/auth"
	"github.com/kilianp07/selfreport/core/capture"
	"github.com/kilianp07/selfreport/core/dsn"
	"github.com/kilianp07/selfreport/core/event"
	"github.com/kilianp07/selfreport/core/logger"
	"github.com/kilianp07/selfreport/core/metrics"
	infralogger "github.com/kilianp07/selfreport/infra/logger"
	"github.com/kilianp07/selfreport/internal/wire"
)

// DSNKey names the remote connection string in ConfigErrors.
const DSNKey = "remote.dsn"

const defaultTimeout = 10 * time.Second

// ErrInactive is returned by Send on a remote that is not active.
var ErrInactive = errors.New("upstream remote is not active")

// Config describes the upstream endpoint.
type Config struct {
	DSN     string
	Enabled bool
	Timeout time.Duration
}

// Remote implements capture.Remote over HTTP.
type Remote struct {
	dsn     *dsn.DSN
	client  *http.Client
	metrics metrics.MetricsSink
	log     logger.Logger
	now     func() time.Time
}

var _ capture.Remote = (*Remote)(nil)

// New returns a Remote. A disabled config yields an inactive remote; an
// enabled one must carry a DSN with a public key.
func New(cfg Config, sink metrics.MetricsSink, log logger.Logger) (*Remote, error) {
	if sink == nil {
		sink = metrics.NopSink{}
	}
	if log == nil {
		log = infralogger.NopLogger{}
	}
	r := &Remote{metrics: sink, log: log, now: time.Now}
	if !cfg.Enabled {
		return r, nil
	}
	d, err := dsn.Parse(DSNKey, cfg.DSN)
	if err != nil {
		return nil, err
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	client := cleanhttp.DefaultPooledClient()
	client.Timeout = timeout
	r.dsn = d
	r.client = client
	return r, nil
}

// IsActive reports whether the remote was configured and enabled.
func (r *Remote) IsActive() bool { return r != nil && r.dsn != nil }

// Send encodes ev and posts it to the remote store endpoint. Transport
// failures and non-2xx answers are returned; nothing is retried.
func (r *Remote) Send(ctx context.Context, ev *event.Event) error {
	if !r.IsActive() {
		return ErrInactive
	}
	if err := r.send(ctx, ev); err != nil {
		r.metrics.Incr(metrics.KeyUpstreamFailed)
		r.log.Warnf("upstream send of event %s failed: %v", ev.EventID, err)
		return err
	}
	r.metrics.Incr(metrics.KeyUpstreamSent)
	r.log.Debugf("event %s sent upstream", ev.EventID)
	return nil
}

func (r *Remote) send(ctx context.Context, ev *event.Event) error {
	body, err := wire.Encode(ev)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.dsn.StoreURL(), bytes.NewReader(body))
	if err != nil {
		return err
	}
	hdr := auth.Header{
		Version:   auth.ProtocolVersion,
		Timestamp: r.now(),
		Client:    capture.ClientName,
		PublicKey: r.dsn.PublicKey,
		SecretKey: r.dsn.SecretKey,
	}
	req.Header.Set(auth.HeaderName, hdr.String())
	req.Header.Set("Content-Type", wire.ContentType)
	req.Header.Set("Content-Encoding", wire.ContentEncoding())
	req.Header.Set("User-Agent", capture.ClientName)

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("post %s: %w", r.dsn.StoreURL(), err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode/100 != 2 {
		reason := resp.Header.Get("X-Sentry-Error")
		if reason == "" {
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			reason = strings.TrimSpace(string(b))
		}
		return fmt.Errorf("upstream responded %s: %s", resp.Status, reason)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
