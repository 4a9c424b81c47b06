package operations

import (
	"fmt"
	"sync"
)

// Registry manages registered operation steps
type Registry struct {
	mu    sync.RWMutex
	steps map[string]Step
	order []string // Maintains registration order
}

// NewRegistry creates a new step registry
func NewRegistry() *Registry {
	return &Registry{
		steps: make(map[string]Step),
		order: make([]string, 0),
	}
}

// Register adds a step to the registry
func (r *Registry) Register(step Step) error {
	if step == nil {
		return fmt.Errorf("cannot register nil step")
	}

	id := step.ID()
	if id == "" {
		return fmt.Errorf("step ID cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.steps[id]; exists {
		return fmt.Errorf("step with ID %s already registered", id)
	}

	r.steps[id] = step
	r.order = append(r.order, id)
	return nil
}

// Unregister removes a step from the registry
func (r *Registry) Unregister(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.steps[id]; !exists {
		return fmt.Errorf("step with ID %s not found", id)
	}

	delete(r.steps, id)

	newOrder := make([]string, 0, len(r.order)-1)
	for _, stepID := range r.order {
		if stepID != id {
			newOrder = append(newOrder, stepID)
		}
	}
	r.order = newOrder

	return nil
}

// Get retrieves a step by ID
func (r *Registry) Get(id string) (Step, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	step, exists := r.steps[id]
	if !exists {
		return nil, fmt.Errorf("step with ID %s not found", id)
	}

	return step, nil
}

// Has checks if a step is registered
func (r *Registry) Has(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.steps[id]
	return exists
}

// List returns all registered steps in registration order
func (r *Registry) List() []Step {
	r.mu.RLock()
	defer r.mu.RUnlock()

	steps := make([]Step, 0, len(r.order))
	for _, id := range r.order {
		if step, exists := r.steps[id]; exists {
			steps = append(steps, step)
		}
	}

	return steps
}

// ListIDs returns all registered step IDs in registration order
func (r *Registry) ListIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, len(r.order))
	copy(ids, r.order)
	return ids
}

// Count returns the number of registered steps
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.steps)
}

// Clear removes all registered steps
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.steps = make(map[string]Step)
	r.order = make([]string, 0)
}

// GetDependencyOrder returns steps ordered by dependencies
func (r *Registry) GetDependencyOrder() ([]Step, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.dependencyOrderLocked()
}

// dependencyOrderLocked performs the topological sort. Callers hold the lock.
func (r *Registry) dependencyOrderLocked() ([]Step, error) {
	graph := make(map[string][]string)
	inDegree := make(map[string]int)

	for id := range r.steps {
		graph[id] = []string{}
		inDegree[id] = 0
	}

	for id, step := range r.steps {
		for _, dep := range step.GetDependencies() {
			if _, exists := r.steps[dep]; !exists {
				return nil, fmt.Errorf("step %s depends on non-existent step %s", id, dep)
			}
			graph[dep] = append(graph[dep], id)
			inDegree[id]++
		}
	}

	// Kahn's algorithm. Registration order breaks ties between steps
	// that become available at the same time.
	queue := make([]string, 0)
	for _, id := range r.order {
		if inDegree[id] == 0 {
			queue = append(queue, id)
		}
	}

	ordered := make([]Step, 0, len(r.steps))
	processed := 0

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		ordered = append(ordered, r.steps[current])
		processed++

		newAvailable := make([]string, 0)
		for _, dependent := range graph[current] {
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				newAvailable = append(newAvailable, dependent)
			}
		}

		for _, id := range r.order {
			for _, available := range newAvailable {
				if id == available {
					queue = append(queue, id)
					break
				}
			}
		}
	}

	if processed != len(r.steps) {
		return nil, fmt.Errorf("dependency cycle detected")
	}

	return ordered, nil
}

// ValidateDependencies checks if all step dependencies are satisfied
func (r *Registry) ValidateDependencies() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for id, step := range r.steps {
		for _, dep := range step.GetDependencies() {
			if _, exists := r.steps[dep]; !exists {
				return fmt.Errorf("step %s depends on non-existent step %s", id, dep)
			}
		}
	}

	// Check for cycles
	_, err := r.dependencyOrderLocked()
	return err
}

// GetDependents returns steps that depend on the given step
func (r *Registry) GetDependents(stepID string) []Step {
	r.mu.RLock()
	defer r.mu.RUnlock()

	dependents := make([]Step, 0)
	for _, step := range r.steps {
		for _, dep := range step.GetDependencies() {
			if dep == stepID {
				dependents = append(dependents, step)
				break
			}
		}
	}

	return dependents
}

// Clone creates a copy of the registry
func (r *Registry) Clone() *Registry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	clone := NewRegistry()
	for _, id := range r.order {
		if step, exists := r.steps[id]; exists {
			clone.steps[id] = step
			clone.order = append(clone.order, id)
		}
	}

	return clone
}
