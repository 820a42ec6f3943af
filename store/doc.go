// Package store provides the downstream storage abstraction the
// pipeline commits extracted documents into.
//
// The pipeline guarantees at-least-once delivery: a crash between a
// commit and its checkpoint replays the whole batch on the next run.
// The Store interface therefore requires idempotent upserts keyed by
// content fingerprint, and public constructors return the interface
// type so backends stay swappable (an embedded BadgerDB backend lives
// in the badger subpackage; tests use its in-memory mode).
package store
