package operations

// WebSocketHub interface for sending WebSocket messages
type WebSocketHub interface {
	BroadcastUpdate(eventType, step, status string, metadata interface{})
}

// ProgressReporter interface for steps that can report progress
type ProgressReporter interface {
	ReportProgress(progress int, message string) error
}

// StepOptions contains optional dependencies for steps
type StepOptions struct {
	WebSocketHub      WebSocketHub
	StatusBroadcaster *StatusBroadcaster
	EnableProgress    bool
}
