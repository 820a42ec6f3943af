// Package provider defines the capability-provider contract used by the
// fallback router, along with the transient/permanent error taxonomy
// that drives retry and escalation decisions.
//
// Concrete providers live in subpackages: plaintext (local, fast,
// lower quality), openai (remote, slow, higher quality), and mock
// (scripted outcomes for tests).
package provider
