package pipeline

// State tracks where in its lifecycle a run currently is. Transitions
// are linear per batch: ProcessingBatch, then Committing, then
// Checkpointing, then the next batch. Failed is reachable from any
// step on a fatal condition.
type State int

const (
	StateIdle State = iota
	StateDiscovering
	StateScheduling
	StateProcessingBatch
	StateCommitting
	StateCheckpointing
	StateCompleted
	StateFailed
)

// String returns the state name for logs.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDiscovering:
		return "discovering"
	case StateScheduling:
		return "scheduling"
	case StateProcessingBatch:
		return "processing-batch"
	case StateCommitting:
		return "committing"
	case StateCheckpointing:
		return "checkpointing"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}
