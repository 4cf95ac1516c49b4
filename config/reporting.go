package config

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/kilianp07/selfreport/core/guard"
)

// ReportingConfig configures capture of the service's own errors.
type ReportingConfig struct {
	// Disabled turns local reporting off regardless of the other fields.
	Disabled  bool  `json:"disabled"`
	ProjectID int64 `json:"project_id"`
	// InternalDSN points at this service's own store endpoint. It is parsed
	// when an event is sent, not at load time.
	InternalDSN string `json:"internal_dsn"`
	// UnsafeLocations are source path suffixes of the ingestion path.
	UnsafeLocations []string          `json:"unsafe_locations"`
	ServerName      string            `json:"server_name"`
	Release         string            `json:"release"`
	Environment     string            `json:"environment"`
	Tags            map[string]string `json:"tags"`
	// CaptureLevel is the minimum log level forwarded as an event.
	CaptureLevel string `json:"capture_level"`
}

// SetDefaults applies sane defaults.
func (c *ReportingConfig) SetDefaults() {
	if len(c.UnsafeLocations) == 0 {
		c.UnsafeLocations = append([]string(nil), guard.DefaultUnsafeLocations...)
	}
	if c.CaptureLevel == "" {
		c.CaptureLevel = zerolog.LevelErrorValue
	}
}

// Validate checks mandatory fields.
func (c ReportingConfig) Validate() error {
	if c.ProjectID < 0 {
		return fmt.Errorf("reporting.project_id must not be negative")
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level parses CaptureLevel.
func (c ReportingConfig) Level() (zerolog.Level, error) {
	l, err := zerolog.ParseLevel(c.CaptureLevel)
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("reporting.capture_level: %w", err)
	}
	if l == zerolog.NoLevel || l == zerolog.Disabled {
		return l, fmt.Errorf("reporting.capture_level: %q is not a record level", c.CaptureLevel)
	}
	return l, nil
}
