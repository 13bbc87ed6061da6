package executors

import (
	"sort"
	"sync"

	"github.com/andreibyf/aishacrm-engine/pkg/schema"
)

// Registry is a thread-safe lookup table from node type to executor.
type Registry struct {
	mu        sync.RWMutex
	executors map[schema.NodeType]Executor
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		executors: make(map[schema.NodeType]Executor),
	}
}

// Register adds an executor. Returns error on duplicate or unknown node type.
func (r *Registry) Register(e Executor) error {
	if e == nil {
		return schema.NewError(schema.ErrCodeValidation, "executor is nil")
	}
	nodeType := e.Type()
	if !schema.ValidNodeTypes[nodeType] {
		return schema.NewErrorf(schema.ErrCodeValidation, "unknown node type %q", nodeType)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.executors[nodeType]; exists {
		return schema.NewErrorf(schema.ErrCodeConflict, "executor for %q already registered", nodeType)
	}

	r.executors[nodeType] = e
	return nil
}

// Get retrieves the executor for a node type.
func (r *Registry) Get(nodeType schema.NodeType) (Executor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.executors[nodeType]
	if !ok {
		return nil, schema.NewErrorf(schema.ErrCodeExecution, "no executor registered for node type %q", nodeType)
	}
	return e, nil
}

// Has checks if a node type has an executor.
func (r *Registry) Has(nodeType schema.NodeType) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.executors[nodeType]
	return ok
}

// Count returns the number of registered executors.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.executors)
}

// Types returns the registered node types, sorted.
func (r *Registry) Types() []schema.NodeType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]schema.NodeType, 0, len(r.executors))
	for t := range r.executors {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}
