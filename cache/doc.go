// Package cache provides a bounded least-recently-used cache keyed by
// content fingerprints. It is a performance aid for the fallback router,
// not a correctness mechanism: entries never survive a restart.
package cache
