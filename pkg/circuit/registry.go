package circuit

import (
	"sort"
	"sync"
)

// Registry is a catalogue of named breakers, so unrelated call sites that hit
// the same logical dependency share failure state. Breakers are created
// lazily on first use.
type Registry struct {
	mu       sync.Mutex
	breakers map[string]*Breaker
	defaults Config
	opts     []Option
}

// NewRegistry creates a registry. defaults apply to breakers created without
// an explicit config; opts (clock, state-change hook) apply to every breaker
// the registry creates.
func NewRegistry(defaults Config, opts ...Option) *Registry {
	return &Registry{
		breakers: make(map[string]*Breaker),
		defaults: defaults.withDefaults(),
		opts:     opts,
	}
}

// GetOrCreate returns the breaker for name, creating it if absent. Config is
// only honored on first creation: subsequent calls with a different config
// for the same name return the existing breaker unchanged. Callers wanting
// distinct config per dependency must use distinct names. Creation is atomic;
// concurrent first callers get the same instance.
func (r *Registry) GetOrCreate(name string, cfg *Config) *Breaker {
	r.mu.Lock()
	defer r.mu.Unlock()

	if b, ok := r.breakers[name]; ok {
		return b
	}

	c := r.defaults
	if cfg != nil {
		c = cfg.withDefaults()
	}
	b := NewBreaker(name, c, r.opts...)
	r.breakers[name] = b
	return b
}

// Get looks up a breaker without creating it
func (r *Registry) Get(name string) (*Breaker, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.breakers[name]
	return b, ok
}

// Names returns the registered breaker names in sorted order
func (r *Registry) Names() []string {
	r.mu.Lock()
	names := make([]string, 0, len(r.breakers))
	for name := range r.breakers {
		names = append(names, name)
	}
	r.mu.Unlock()

	sort.Strings(names)
	return names
}

// Statuses returns a snapshot of every breaker, sorted by name
func (r *Registry) Statuses() []Status {
	r.mu.Lock()
	breakers := make([]*Breaker, 0, len(r.breakers))
	for _, b := range r.breakers {
		breakers = append(breakers, b)
	}
	r.mu.Unlock()

	statuses := make([]Status, 0, len(breakers))
	for _, b := range breakers {
		statuses = append(statuses, b.Status())
	}
	sort.Slice(statuses, func(i, j int) bool { return statuses[i].Name < statuses[j].Name })
	return statuses
}

// ResetAll force-closes every breaker, for operational recovery or test
// teardown
func (r *Registry) ResetAll() {
	r.mu.Lock()
	breakers := make([]*Breaker, 0, len(r.breakers))
	for _, b := range r.breakers {
		breakers = append(breakers, b)
	}
	r.mu.Unlock()

	for _, b := range breakers {
		b.ForceClose()
	}
}
