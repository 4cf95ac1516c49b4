package capture

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/kilianp07/selfreport/auth"
	"github.com/kilianp07/selfreport/core/dsn"
	"github.com/kilianp07/selfreport/core/event"
	"github.com/kilianp07/selfreport/core/guard"
	"github.com/kilianp07/selfreport/core/ingest"
	"github.com/kilianp07/selfreport/core/logger"
	"github.com/kilianp07/selfreport/core/metrics"
	"github.com/kilianp07/selfreport/core/options"
	"github.com/kilianp07/selfreport/internal/wire"
)

const (
	// InstallIDTag is added to every event forwarded upstream.
	InstallIDTag = "install-id"
	// InternalDSNKey names the internal connection string in ConfigErrors.
	InternalDSNKey = "reporting.internal_dsn"

	sdkName  = "sentry.go"
	platform = "go"
)

// ClientName identifies this client in auth headers.
var ClientName = sdkName + "/" + sentry.SDKVersion

// Config holds the read-only reporting settings.
type Config struct {
	Disabled bool
	// ProjectID is the local project receiving internal events.
	ProjectID int64
	// InternalDSN is the connection string of the local store endpoint.
	InternalDSN string
	ServerName  string
	Release     string
	Environment string
	// Tags are added to every captured event unless already set.
	Tags map[string]string
}

// Client is the dual-destination capture client.
type Client struct {
	cfg     Config
	guard   guard.Guard
	remote  Remote
	ingest  ingest.Handler
	opts    options.Reader
	metrics metrics.MetricsSink
	log     logger.Logger
	now     func() time.Time
}

// New creates a Client. Nil dependencies fall back to inert defaults: an
// always-safe guard, an inactive remote, an empty option set, a no-op sink.
// A nil ingest handler disables local dispatch.
func New(cfg Config, g guard.Guard, remote Remote, h ingest.Handler, opts options.Reader, sink metrics.MetricsSink, log logger.Logger) *Client {
	if g == nil {
		g = guard.Always
	}
	if remote == nil {
		remote = NopRemote{}
	}
	if opts == nil {
		opts = options.New(nil)
	}
	if sink == nil {
		sink = metrics.NopSink{}
	}
	if log == nil {
		log = nopLogger{}
	}
	if cfg.ServerName == "" {
		cfg.ServerName, _ = os.Hostname()
	}
	return &Client{cfg: cfg, guard: g, remote: remote, ingest: h, opts: opts, metrics: sink, log: log, now: time.Now}
}

// IsEnabled reports whether local reporting is configured. It deliberately
// ignores the remote, which is checked on its own in Send.
func (c *Client) IsEnabled() bool {
	if c.cfg.Disabled {
		return false
	}
	return c.cfg.ProjectID != 0 && c.cfg.InternalDSN != ""
}

// CanRecordCurrentEvent is true when the remote is active or the current
// context is outside the ingestion path.
func (c *Client) CanRecordCurrentEvent(ctx context.Context) bool {
	return c.remote.IsActive() || c.guard.IsCurrentEventSafe(ctx)
}

// Capture fills in the event defaults and sends it. Events raised in an
// unsafe context are counted, logged and dropped; that is not an error and
// returns an empty id.
func (c *Client) Capture(ctx context.Context, ev *event.Event) (string, error) {
	if ev == nil {
		return "", errors.New("capture: nil event")
	}
	if !c.CanRecordCurrentEvent(ctx) {
		c.metrics.Incr(metrics.KeyUncapturedEvents)
		c.log.WithContext(ctx).Errorf("not capturing event due to unsafe stacktrace: %s tags=%v", ev.Title(), ev.Tags)
		return "", nil
	}
	c.prepare(ev)
	if !c.IsEnabled() {
		c.log.Debugf("reporting disabled, event %s not sent", ev.EventID)
		return ev.EventID, nil
	}
	if err := c.Send(ctx, ev); err != nil {
		return ev.EventID, err
	}
	return ev.EventID, nil
}

// CaptureException captures err with the given tags.
func (c *Client) CaptureException(ctx context.Context, err error, tags map[string]string) (string, error) {
	if err == nil {
		return "", nil
	}
	ev := event.FromError(err)
	for k, v := range tags {
		ev.SetTag(k, v)
	}
	return c.Capture(ctx, ev)
}

// CaptureMessage captures a plain message.
func (c *Client) CaptureMessage(ctx context.Context, msg string, level sentry.Level, tags map[string]string) (string, error) {
	ev := event.NewMessage(msg, level)
	for k, v := range tags {
		ev.SetTag(k, v)
	}
	return c.Capture(ctx, ev)
}

// Send dispatches an already prepared event.
//
// An active remote receives a deep copy tagged with the install id; its
// failure is returned and stops the send. The local store endpoint is then
// invoked in-process unless the context is unsafe. A malformed internal DSN
// yields a *dsn.ConfigError; handler errors are returned unchanged.
func (c *Client) Send(ctx context.Context, ev *event.Event) error {
	if c.remote.IsActive() {
		cp, err := ev.Clone()
		if err != nil {
			return err
		}
		cp.SetTag(InstallIDTag, c.opts.Get(options.InstallIDKey))
		if err := c.remote.Send(ctx, cp); err != nil {
			return fmt.Errorf("upstream send: %w", err)
		}
	}

	if !c.guard.IsCurrentEventSafe(ctx) {
		return nil
	}
	if c.ingest == nil {
		return nil
	}

	d, err := dsn.Parse(InternalDSNKey, c.cfg.InternalDSN)
	if err != nil {
		return err
	}
	body, err := wire.Encode(ev)
	if err != nil {
		return err
	}
	hdr := auth.Header{
		Version:   auth.ProtocolVersion,
		Timestamp: c.now(),
		Client:    ClientName,
		PublicKey: d.PublicKey,
		SecretKey: d.SecretKey,
	}
	projectID := d.ProjectID
	if c.cfg.ProjectID != 0 {
		projectID = strconv.FormatInt(c.cfg.ProjectID, 10)
	}
	_, err = c.ingest.Store(ctx, ingest.Request{
		ProjectID:       projectID,
		Auth:            hdr.String(),
		ContentEncoding: wire.ContentEncoding(),
		Body:            body,
	})
	return err
}

// prepare is the generic capture path: identifiers, timestamps and the
// static context every event carries.
func (c *Client) prepare(ev *event.Event) {
	if ev.EventID == "" {
		ev.EventID = event.NewID()
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = c.now().UTC()
	}
	if ev.Level == "" {
		ev.Level = sentry.LevelError
	}
	if ev.Platform == "" {
		ev.Platform = platform
	}
	if ev.ServerName == "" {
		ev.ServerName = c.cfg.ServerName
	}
	if ev.Release == "" {
		ev.Release = c.cfg.Release
	}
	if ev.Environment == "" {
		ev.Environment = c.cfg.Environment
	}
	if ev.Sdk.Name == "" {
		ev.Sdk = sentry.SdkInfo{Name: sdkName, Version: sentry.SDKVersion}
	}
	for k, v := range c.cfg.Tags {
		if _, ok := ev.Tags[k]; !ok {
			ev.SetTag(k, v)
		}
	}
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...any)                       {}
func (nopLogger) Debugw(string, map[string]any)               {}
func (nopLogger) Infof(string, ...any)                        {}
func (nopLogger) Warnf(string, ...any)                        {}
func (nopLogger) Errorf(string, ...any)                       {}
func (l nopLogger) WithContext(context.Context) logger.Logger { return l }
