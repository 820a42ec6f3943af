// Package badger provides the BadgerDB-backed document store.
package badger
