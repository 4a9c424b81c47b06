package operations

import (
	"sync"
	"time"
)

// OperationStatusValue represents the overall operation status enum
type OperationStatusValue string

const (
	OperationStatusPending   OperationStatusValue = "pending"
	OperationStatusRunning   OperationStatusValue = "running"
	OperationStatusCompleted OperationStatusValue = "completed"
	OperationStatusFailed    OperationStatusValue = "failed"
	OperationStatusCancelled OperationStatusValue = "cancelled"
)

// OperationState represents the complete state of an operation execution
type OperationState struct {
	mu sync.RWMutex

	// Basic operation information
	ID        string               `json:"id"`
	Status    OperationStatusValue `json:"status"`
	StartTime time.Time            `json:"start_time"`
	EndTime   *time.Time           `json:"end_time,omitempty"`

	// Step states
	Steps map[string]*StepState `json:"steps"`

	// Operation context for passing data between steps
	Context map[string]interface{} `json:"context"`

	// Configuration passed from the request
	Config map[string]interface{} `json:"config"`

	// Error if the operation failed
	Error error `json:"error,omitempty"`
}

// NewOperationState creates a new operation state
func NewOperationState(id string) *OperationState {
	return &OperationState{
		ID:        id,
		Status:    OperationStatusPending,
		StartTime: time.Now(),
		Steps:     make(map[string]*StepState),
		Context:   make(map[string]interface{}),
		Config:    make(map[string]interface{}),
	}
}

// Start marks the operation as running
func (p *OperationState) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Status = OperationStatusRunning
	p.StartTime = time.Now()
}

// Complete marks the operation as completed
func (p *OperationState) Complete() {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := time.Now()
	p.EndTime = &now
	p.Status = OperationStatusCompleted
}

// Fail marks the operation as failed
func (p *OperationState) Fail(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := time.Now()
	p.EndTime = &now
	p.Status = OperationStatusFailed
	p.Error = err
}

// Cancel marks the operation as cancelled
func (p *OperationState) Cancel() {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := time.Now()
	p.EndTime = &now
	p.Status = OperationStatusCancelled
}

// GetStep returns the state of a specific step
func (p *OperationState) GetStep(stepID string) *StepState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.Steps[stepID]
}

// SetStep updates the state of a specific step
func (p *OperationState) SetStep(stepID string, state *StepState) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Steps[stepID] = state
}

// GetContext retrieves a value from the operation context
func (p *OperationState) GetContext(key string) (interface{}, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	val, ok := p.Context[key]
	return val, ok
}

// SetContext sets a value in the operation context
func (p *OperationState) SetContext(key string, value interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Context[key] = value
}

// GetConfig retrieves a configuration value
func (p *OperationState) GetConfig(key string) (interface{}, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	val, ok := p.Config[key]
	return val, ok
}

// SetConfig sets a configuration value
func (p *OperationState) SetConfig(key string, value interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Config[key] = value
}

// Duration returns the duration of the operation execution
func (p *OperationState) Duration() time.Duration {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.EndTime != nil {
		return p.EndTime.Sub(p.StartTime)
	}
	return time.Since(p.StartTime)
}

// GetActiveSteps returns all currently active steps
func (p *OperationState) GetActiveSteps() []*StepState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var active []*StepState
	for _, step := range p.Steps {
		if step.Status == StepStatusActive {
			active = append(active, step)
		}
	}
	return active
}

// GetCompletedSteps returns all completed steps
func (p *OperationState) GetCompletedSteps() []*StepState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var completed []*StepState
	for _, step := range p.Steps {
		if step.Status == StepStatusCompleted {
			completed = append(completed, step)
		}
	}
	return completed
}

// GetFailedSteps returns all failed steps
func (p *OperationState) GetFailedSteps() []*StepState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var failed []*StepState
	for _, step := range p.Steps {
		if step.Status == StepStatusFailed {
			failed = append(failed, step)
		}
	}
	return failed
}

// IsComplete returns true if all steps are completed or skipped
func (p *OperationState) IsComplete() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, step := range p.Steps {
		if step.Status == StepStatusPending || step.Status == StepStatusActive {
			return false
		}
	}
	return true
}

// HasFailures returns true if any step has failed
func (p *OperationState) HasFailures() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, step := range p.Steps {
		if step.Status == StepStatusFailed {
			return true
		}
	}
	return false
}

// Clone creates a deep copy of the operation state
func (p *OperationState) Clone() *OperationState {
	p.mu.RLock()
	defer p.mu.RUnlock()

	clone := &OperationState{
		ID:        p.ID,
		Status:    p.Status,
		StartTime: p.StartTime,
		Steps:     make(map[string]*StepState),
		Context:   make(map[string]interface{}),
		Config:    make(map[string]interface{}),
		Error:     p.Error,
	}

	if p.EndTime != nil {
		endTime := *p.EndTime
		clone.EndTime = &endTime
	}

	for k, v := range p.Steps {
		v.mu.RLock()
		stepCopy := &StepState{
			ID:        v.ID,
			Name:      v.Name,
			Status:    v.Status,
			StartTime: v.StartTime,
			EndTime:   v.EndTime,
			Progress:  v.Progress,
			Message:   v.Message,
			Error:     v.Error,
			Metadata:  make(map[string]interface{}),
		}
		for mk, mv := range v.Metadata {
			stepCopy.Metadata[mk] = mv
		}
		v.mu.RUnlock()
		clone.Steps[k] = stepCopy
	}

	for k, v := range p.Context {
		clone.Context[k] = v
	}

	for k, v := range p.Config {
		clone.Config[k] = v
	}

	return clone
}
