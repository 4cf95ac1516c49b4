// Package infra contains technical adapters such as the zerolog capture hook,
// the upstream HTTP remote, MQTT fan-out and metrics exporters. These packages
// should depend only on the interfaces defined in the core packages.
package infra
