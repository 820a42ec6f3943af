// Package mock provides a scripted test double for the capability
// provider interface. Tests drive the fallback router through exact
// sequences of successes, transient failures, and permanent failures
// without any external engine.
package mock
