package report

import (
	"fmt"
	"sort"
	"sync"
)

// Registry maps capability names to implementations.
type Registry[T any] struct {
	kind  string
	mu    sync.RWMutex
	items map[string]T
}

// NewRegistry creates an empty registry. kind names the capability in
// panic messages ("metric", "chart").
func NewRegistry[T any](kind string) *Registry[T] {
	return &Registry[T]{kind: kind, items: make(map[string]T)}
}

// Register adds a capability.
// Panics if one with the same name is already registered.
func (r *Registry[T]) Register(name string, item T) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[name]; exists {
		panic(fmt.Sprintf("%s already registered: %s", r.kind, name))
	}
	r.items[name] = item
}

// Get returns a capability by name.
// Returns false if not found.
func (r *Registry[T]) Get(name string) (T, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[name]
	return item, ok
}

// Names returns all registered names, sorted.
func (r *Registry[T]) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.items))
	for name := range r.items {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered capabilities.
func (r *Registry[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}

var (
	// Metrics is the process-wide metric registry populated by init functions.
	Metrics = NewRegistry[Metric]("metric")

	// Charts is the process-wide chart registry populated by init functions.
	Charts = NewRegistry[Chart]("chart")
)

// RegisterMetric adds a metric to the default registry.
func RegisterMetric(name string, m Metric) { Metrics.Register(name, m) }

// RegisterChart adds a chart to the default registry.
func RegisterChart(name string, c Chart) { Charts.Register(name, c) }
