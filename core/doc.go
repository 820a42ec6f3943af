// Package core defines the domain model shared across the pipeline:
// work items and their lifecycle, batches, committed documents, and
// content fingerprints.
package core
