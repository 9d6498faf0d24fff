package sizing

import (
	"fmt"
	"sort"
	"sync"
)

// Preset names.
const (
	PresetConservative = "conservative"
	PresetModerate     = "moderate"
	PresetAggressive   = "aggressive"
)

// Registry manages a named collection of sizing strategies. It is safe for
// concurrent use.
type Registry struct {
	strategies map[string]Strategy
	mu         sync.RWMutex
}

// NewRegistry returns an empty, ready-to-use Registry.
func NewRegistry() *Registry {
	return &Registry{
		strategies: make(map[string]Strategy),
	}
}

// DefaultRegistry registers the three presets, each with overrides applied.
func DefaultRegistry(overrides Params) *Registry {
	r := NewRegistry()
	r.Register(NewProportional(PresetConservative, Conservative().Merge(overrides)))
	r.Register(NewProportional(PresetModerate, Moderate().Merge(overrides)))
	r.Register(NewProportional(PresetAggressive, Aggressive().Merge(overrides)))
	return r
}

// Register adds s under its name, replacing any previous entry.
func (r *Registry) Register(s Strategy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.strategies[s.Name()] = s
}

// Get retrieves a strategy by name.
func (r *Registry) Get(name string) (Strategy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.strategies[name]
	if !ok {
		return nil, fmt.Errorf("sizing: strategy %q: not registered", name)
	}
	return s, nil
}

// List returns the registered names in sorted order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.strategies))
	for n := range r.strategies {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
