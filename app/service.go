// Package app wires configuration into a running self-reporting service.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/kilianp07/selfreport/api/events"
	"github.com/kilianp07/selfreport/api/store"
	"github.com/kilianp07/selfreport/config"
	"github.com/kilianp07/selfreport/core/capture"
	"github.com/kilianp07/selfreport/core/dsn"
	"github.com/kilianp07/selfreport/core/eventstore"
	"github.com/kilianp07/selfreport/core/guard"
	coremetrics "github.com/kilianp07/selfreport/core/metrics"
	coremon "github.com/kilianp07/selfreport/core/monitoring"
	"github.com/kilianp07/selfreport/core/options"
	"github.com/kilianp07/selfreport/infra/logger"
	"github.com/kilianp07/selfreport/infra/metrics"
	"github.com/kilianp07/selfreport/infra/monitoring"
	"github.com/kilianp07/selfreport/infra/mqtt"
	"github.com/kilianp07/selfreport/infra/upstream"
	"github.com/kilianp07/selfreport/internal/eventbus"
)

// Service holds the capture client, the store endpoint and their
// supporting infrastructure.
type Service struct {
	Client   *capture.Client
	Endpoint *store.Endpoint
	Store    eventstore.Store

	cfg        *config.Config
	bus        *eventbus.TypedBus[eventstore.Record]
	sink       coremetrics.MetricsSink
	publisher  *mqtt.RecordPublisher
	removeHook func()
	log        logger.Logger
}

// New creates a Service from the configuration. It installs the capture
// hook on every package logger and the process-wide monitor; Close undoes
// both.
func New(cfg *config.Config) (*Service, error) {
	logg := logger.New("service")

	sink, err := coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
	if err != nil {
		return nil, fmt.Errorf("metrics sink: %w", err)
	}
	st, err := eventstore.New(cfg.Store.Backend)
	if err != nil {
		return nil, fmt.Errorf("event store: %w", err)
	}
	keys, err := keyRing(cfg, logg)
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	bus := eventbus.NewTyped[eventstore.Record]()
	endpoint := store.NewEndpoint(keys, st, bus, sink, logger.New("store"))

	g := guard.New(guard.NewLocationSet(cfg.Reporting.UnsafeLocations...))
	remote, err := upstream.New(upstream.Config{
		DSN:     cfg.Remote.DSN,
		Enabled: cfg.Remote.Enabled,
		Timeout: time.Duration(cfg.Remote.TimeoutSeconds) * time.Second,
	}, sink, logger.New("upstream"))
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("upstream: %w", err)
	}
	client := capture.New(capture.Config{
		Disabled:    cfg.Reporting.Disabled,
		ProjectID:   cfg.Reporting.ProjectID,
		InternalDSN: cfg.Reporting.InternalDSN,
		ServerName:  cfg.Reporting.ServerName,
		Release:     cfg.Reporting.Release,
		Environment: cfg.Reporting.Environment,
		Tags:        cfg.Reporting.Tags,
	}, g, remote, endpoint, options.New(cfg.Options), sink, logger.New("capture"))

	svc := &Service{
		Client:   client,
		Endpoint: endpoint,
		Store:    st,
		cfg:      cfg,
		bus:      bus,
		sink:     sink,
		log:      logg,
	}

	if cfg.MQTT.Enabled {
		pub, err := mqtt.NewRecordPublisher(cfg.MQTT)
		if err != nil {
			_ = st.Close()
			return nil, fmt.Errorf("mqtt publisher: %w", err)
		}
		svc.publisher = pub
	}

	level, err := cfg.Reporting.Level()
	if err != nil {
		_ = svc.Close()
		return nil, err
	}
	filter := logger.NewRecordFilter(g, sink)
	svc.removeHook = logger.AddHook(logger.NewCaptureHook(level, "selfreport", filter, client))
	coremon.Init(monitoring.NewCaptureMonitor(client, logger.New("monitoring")))
	return svc, nil
}

// keyRing merges the configured keys with the internal DSN's key. A
// malformed internal DSN is only logged here; sends report it as a
// *dsn.ConfigError.
func keyRing(cfg *config.Config, log logger.Logger) (*store.KeyRing, error) {
	keys := append([]store.ProjectKey(nil), cfg.Store.Keys...)
	if cfg.Reporting.InternalDSN != "" {
		d, err := dsn.Parse(capture.InternalDSNKey, cfg.Reporting.InternalDSN)
		if err != nil {
			log.Warnf("internal reporting unavailable: %v", err)
		} else {
			projectID := cfg.Reporting.ProjectID
			if projectID == 0 {
				if projectID, err = d.NumericProjectID(); err != nil {
					log.Warnf("internal reporting unavailable: %v", err)
				}
			}
			if projectID > 0 && !hasPublicKey(keys, d.PublicKey) {
				keys = append(keys, store.ProjectKey{ProjectID: projectID, PublicKey: d.PublicKey, SecretKey: d.SecretKey})
			}
		}
	}
	kr, err := store.NewKeyRing(keys...)
	if err != nil {
		return nil, fmt.Errorf("store keys: %w", err)
	}
	return kr, nil
}

func hasPublicKey(keys []store.ProjectKey, publicKey string) bool {
	for _, k := range keys {
		if k.PublicKey == publicKey {
			return true
		}
	}
	return false
}

// Handler returns the HTTP surface: the store endpoint, the events listing
// and a health check.
func (s *Service) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/api/events", events.NewHandler(s.Store, s.cfg.Store.EventsToken))
	mux.Handle("/api/", store.NewHandler(s.Endpoint, s.cfg.Store.MaxBodyBytes))
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

// Run serves HTTP and the background consumers until the context is
// cancelled.
func (s *Service) Run(ctx context.Context) error {
	defer coremon.Recover(ctx)

	collectorDone := metrics.StartRecordCollector(ctx, s.bus, s.sink)
	if s.publisher != nil {
		go s.publisher.Run(ctx, s.bus)
	}
	if port := s.cfg.Metrics.PrometheusPort; port != "" {
		go func() {
			if err := metrics.StartPromServer(ctx, port); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}

	srv := &http.Server{Addr: s.cfg.Server.Address, Handler: s.Handler(), ReadHeaderTimeout: 5 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		s.log.Infof("store endpoint listening on %s", s.cfg.Server.Address)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case err, ok := <-errCh:
		if ok {
			runErr = fmt.Errorf("http server: %w", err)
		}
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(s.cfg.Server.ShutdownSeconds)*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.log.Warnf("http shutdown: %v", err)
	}
	s.bus.Close()
	<-collectorDone
	return runErr
}

// CaptureMessage reports msg through the pipeline and returns the event id.
func (s *Service) CaptureMessage(ctx context.Context, msg, level string, tags map[string]string) (string, error) {
	return s.Client.CaptureMessage(ctx, msg, sentryLevel(level), tags)
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	if s.removeHook != nil {
		s.removeHook()
		s.removeHook = nil
	}
	coremon.Init(coremon.NopMonitor{})
	s.bus.Close()
	if s.publisher != nil {
		s.publisher.Disconnect()
	}
	return s.Store.Close()
}

func sentryLevel(s string) sentry.Level {
	switch strings.ToLower(s) {
	case "debug":
		return sentry.LevelDebug
	case "info":
		return sentry.LevelInfo
	case "warn", "warning":
		return sentry.LevelWarning
	case "fatal":
		return sentry.LevelFatal
	default:
		return sentry.LevelError
	}
}
