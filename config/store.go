package config

import (
	"fmt"

	"github.com/kilianp07/selfreport/api/store"
	"github.com/kilianp07/selfreport/core/factory"
)

// StoreConfig defines the store endpoint and its event storage.
type StoreConfig struct {
	// Backend selects the event store: memory, jsonl, rotating_jsonl or sqlite.
	Backend factory.ModuleConfig `json:"backend"`
	// Keys are the credentials accepted by the endpoint in addition to the
	// internal DSN's.
	Keys         []store.ProjectKey `json:"keys"`
	MaxBodyBytes int64              `json:"max_body_bytes"`
	// EventsToken protects GET /api/events when set.
	EventsToken string `json:"events_token"`
}

// SetDefaults applies sane defaults.
func (c *StoreConfig) SetDefaults() {
	if c.Backend.Type == "" {
		c.Backend.Type = "jsonl"
	}
	if c.Backend.Conf == nil {
		c.Backend.Conf = map[string]any{}
	}
	if _, ok := c.Backend.Conf["path"]; !ok && c.Backend.Type != "memory" {
		c.Backend.Conf["path"] = "events.jsonl"
	}
	if c.MaxBodyBytes == 0 {
		c.MaxBodyBytes = store.DefaultMaxBodyBytes
	}
}

// Validate checks mandatory fields.
func (c StoreConfig) Validate() error {
	switch c.Backend.Type {
	case "memory", "jsonl", "rotating_jsonl", "sqlite":
	default:
		return fmt.Errorf("unknown store backend %s", c.Backend.Type)
	}
	if c.MaxBodyBytes < 0 {
		return fmt.Errorf("store.max_body_bytes must not be negative")
	}
	if _, err := store.NewKeyRing(c.Keys...); err != nil {
		return fmt.Errorf("store.keys: %w", err)
	}
	return nil
}
