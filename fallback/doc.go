// Package fallback routes a work item through an ordered chain of
// capability providers until one yields a result whose confidence meets
// the configured acceptance threshold.
//
// Providers are ordered cheap/local first, expensive/remote last; the
// threshold gate bounds the cost of remote providers to only the hard
// cases. Transient failures are retried on the same provider with
// exponential, capped backoff before escalating. When no provider meets
// the threshold, the highest-confidence result seen is returned tagged
// as below-threshold: degraded output is preferred over no output.
package fallback
