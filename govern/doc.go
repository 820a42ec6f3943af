// Package govern bounds memory growth during sustained processing. A
// MemoryGovernor samples process and system memory between batches and
// signals the orchestrator to reclaim, shrink batches, or pause. The
// governor never aborts the pipeline on its own authority.
package govern
