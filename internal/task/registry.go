package task

import (
	"fmt"
	"sort"
	"sync"
)

// Factory builds a runnable Task from a descriptor.
type Factory func(descriptor Descriptor) (Task, error)

// Registry maps task types to the factories that build them.
// It is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a factory for taskType.
func (r *Registry) Register(taskType string, factory Factory) error {
	if taskType == "" {
		return fmt.Errorf("%w: task type cannot be empty", ErrInvalidDescriptor)
	}
	if factory == nil {
		return fmt.Errorf("factory for task type %q cannot be nil", taskType)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.factories[taskType]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateTaskType, taskType)
	}
	r.factories[taskType] = factory
	return nil
}

// Build creates the task described by descriptor.
func (r *Registry) Build(descriptor Descriptor) (Task, error) {
	r.mu.RLock()
	factory, ok := r.factories[descriptor.Type()]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTaskType, descriptor.Type())
	}
	return factory(descriptor)
}

// Types returns the registered task types in sorted order.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.factories))
	for t := range r.factories {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
