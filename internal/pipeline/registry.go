package pipeline

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/zjrosen/pflow/internal/status"
)

// Factory builds a fresh algorithm of one type.
type Factory func() Algorithm

// Registry maps algorithm type names to factories.
// It is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a factory for typ.
func (r *Registry) Register(typ string, f Factory) error {
	if typ == "" || f == nil {
		return status.New(status.InvalidParameter, "RegisterAlgorithmFactory", "type %q", typ)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.factories[typ]; ok {
		return status.New(status.AlreadyPresent, "RegisterAlgorithmFactory", "type %q", typ)
	}
	r.factories[typ] = f
	return nil
}

// New builds an algorithm of type typ.
func (r *Registry) New(typ string) (Algorithm, error) {
	r.mu.RLock()
	f, ok := r.factories[typ]
	r.mu.RUnlock()
	if !ok {
		return nil, status.New(status.NotFound, "CreateAlgorithm", "no algorithm of type %q", typ)
	}
	return f(), nil
}

// Types returns the registered type names in sorted order.
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

// Validate reports every algorithm in cfg, daughters included, whose type is
// not registered.
func (r *Registry) Validate(cfg Config) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var errs []error
	var walk func(path string, algs []AlgorithmConfig)
	walk = func(path string, algs []AlgorithmConfig) {
		for i, a := range algs {
			at := fmt.Sprintf("%s[%d]", path, i)
			if _, ok := r.factories[a.Type]; !ok {
				errs = append(errs, status.New(status.NotFound, "CreateAlgorithm", "%s: no algorithm of type %q", at, a.Type))
			}
			walk(at+".daughters", a.Daughters)
		}
	}
	walk("algorithms", cfg.Algorithms)
	return errors.Join(errs...)
}
