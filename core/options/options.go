// Package options holds process-wide, read-only settings such as the install
// identifier attached to upstream reports.
package options

import "github.com/google/uuid"

// InstallIDKey names the stable install identifier option.
const InstallIDKey = "sentry:install-id"

// Reader looks up option values. Missing keys return "".
type Reader interface {
	Get(key string) string
}

// Store is an immutable option set built once at startup.
type Store struct {
	values map[string]string
}

// New copies values into a Store. When InstallIDKey is missing a random
// identifier is generated so every process reports a stable id for its
// lifetime.
func New(values map[string]string) *Store {
	m := make(map[string]string, len(values)+1)
	for k, v := range values {
		m[k] = v
	}
	if m[InstallIDKey] == "" {
		m[InstallIDKey] = uuid.NewString()
	}
	return &Store{values: m}
}

func (s *Store) Get(key string) string {
	if s == nil {
		return ""
	}
	return s.values[key]
}
