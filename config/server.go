package config

import "fmt"

// ServerConfig configures the HTTP listener of the store endpoint.
type ServerConfig struct {
	Address         string `json:"address"`
	ShutdownSeconds int    `json:"shutdown_seconds"`
}

// SetDefaults applies sane defaults.
func (c *ServerConfig) SetDefaults() {
	if c.Address == "" {
		c.Address = ":9000"
	}
	if c.ShutdownSeconds == 0 {
		c.ShutdownSeconds = 5
	}
}

// Validate checks mandatory fields.
func (c ServerConfig) Validate() error {
	if c.Address == "" {
		return fmt.Errorf("server.address is required")
	}
	return nil
}
