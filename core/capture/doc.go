// Package capture routes the service's own errors into the reporting
// pipeline.
//
// A Client sends every event to up to two destinations: an upstream Remote,
// when one is active, and the service's own store endpoint, invoked
// in-process through an ingest.Handler. Events raised inside the ingestion
// path are never re-injected locally; a guard.Guard decides whether the
// current execution context is safe.
package capture
