package config

import (
	"fmt"

	"github.com/kilianp07/selfreport/core/dsn"
	"github.com/kilianp07/selfreport/infra/upstream"
)

// RemoteConfig describes the optional upstream reporting service.
type RemoteConfig struct {
	DSN            string `json:"dsn"`
	Enabled        bool   `json:"enabled"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

// SetDefaults applies sane defaults.
func (c *RemoteConfig) SetDefaults() {
	if c.TimeoutSeconds == 0 {
		c.TimeoutSeconds = 10
	}
}

// Validate checks the DSN of an enabled remote.
func (c RemoteConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if _, err := dsn.Parse(upstream.DSNKey, c.DSN); err != nil {
		return err
	}
	if c.TimeoutSeconds < 0 {
		return fmt.Errorf("remote.timeout_seconds must not be negative")
	}
	return nil
}
