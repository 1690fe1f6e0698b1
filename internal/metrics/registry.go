// Package metrics selects where per-request metrics records are written.
package metrics

import (
	"context"
	"fmt"
	"sort"

	"WhereAmI/internal/domain"
	"WhereAmI/internal/ports"
)

// Backend is a named metrics sink (postgres, dynamodb, log).
type Backend interface {
	Name() string
	ports.MetricsRecorder
}

// Registry keeps a mapping from backend names to their implementations.
type Registry struct {
	backends map[string]Backend
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{backends: map[string]Backend{}}
}

// Register adds or replaces a backend implementation.
func (r *Registry) Register(backend Backend) {
	if r.backends == nil {
		r.backends = map[string]Backend{}
	}
	r.backends[backend.Name()] = backend
}

// Resolve returns a backend by name or an error if it is absent.
func (r *Registry) Resolve(name string) (Backend, error) {
	if backend, ok := r.backends[name]; ok {
		return backend, nil
	}
	return nil, fmt.Errorf("metrics backend %q is not registered (have %v)", name, r.Names())
}

// Names lists registered backends in order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.backends))
	for name := range r.backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Named gives any recorder a backend name.
func Named(name string, recorder ports.MetricsRecorder) Backend {
	return namedBackend{name: name, recorder: recorder}
}

type namedBackend struct {
	name     string
	recorder ports.MetricsRecorder
}

func (b namedBackend) Name() string { return b.name }

func (b namedBackend) Record(ctx context.Context, record domain.MetricsRecord) error {
	return b.recorder.Record(ctx, record)
}
