package webhooks

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrEndpointNotFound is returned when an endpoint ID is not registered
var ErrEndpointNotFound = errors.New("webhook endpoint not found")

// Registry holds the configured delivery targets. It is safe for concurrent
// use: fan-out matching takes a read lock, mutations take the write lock.
// The registry is in-memory; see PostgresStore for the administrative
// persistence layer it can be seeded from.
type Registry struct {
	mu        sync.RWMutex
	endpoints map[string]*Endpoint
}

// NewRegistry creates an empty endpoint registry
func NewRegistry() *Registry {
	return &Registry{
		endpoints: make(map[string]*Endpoint),
	}
}

// Register upserts an endpoint. A new endpoint gets a generated ID and is
// enabled by default. On update the creation time is preserved and an empty
// secret keeps the existing one, so round-tripping a redacted endpoint does
// not destroy its key.
func (r *Registry) Register(ep *Endpoint) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()

	existing := r.endpoints[ep.ID]
	if existing != nil && ep.Secret == "" {
		ep.Secret = existing.Secret
	}

	if err := ep.validate(); err != nil {
		return fmt.Errorf("invalid webhook endpoint: %w", err)
	}

	if existing != nil {
		ep.CreatedAt = existing.CreatedAt
		ep.Enabled = existing.Enabled
	} else {
		if ep.ID == "" {
			ep.ID = uuid.New().String()
		}
		ep.CreatedAt = now
		ep.Enabled = true
	}
	ep.UpdatedAt = now

	stored := *ep
	r.endpoints[ep.ID] = &stored
	return nil
}

// restore loads a persisted endpoint as-is, keeping its ID, enabled flag and
// timestamps. Used when seeding from a PostgresStore at startup.
func (r *Registry) restore(ep *Endpoint) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *ep
	r.endpoints[ep.ID] = &stored
}

// Unregister removes an endpoint. Existing delivery history is not affected.
func (r *Registry) Unregister(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.endpoints[id]; !ok {
		return ErrEndpointNotFound
	}
	delete(r.endpoints, id)
	return nil
}

// Enable marks an endpoint eligible for deliveries
func (r *Registry) Enable(id string) error {
	return r.setEnabled(id, true)
}

// Disable stops deliveries to an endpoint without removing it
func (r *Registry) Disable(id string) error {
	return r.setEnabled(id, false)
}

func (r *Registry) setEnabled(id string, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ep, ok := r.endpoints[id]
	if !ok {
		return ErrEndpointNotFound
	}
	ep.Enabled = enabled
	ep.UpdatedAt = time.Now().UTC()
	return nil
}

// Get returns a copy of the endpoint
func (r *Registry) Get(id string) (Endpoint, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ep, ok := r.endpoints[id]
	if !ok {
		return Endpoint{}, ErrEndpointNotFound
	}
	return *ep, nil
}

// List returns copies of all endpoints
func (r *Registry) List() []Endpoint {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Endpoint, 0, len(r.endpoints))
	for _, ep := range r.endpoints {
		result = append(result, *ep)
	}
	return result
}

// Count returns the number of registered endpoints
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.endpoints)
}

// Match returns the enabled endpoints subscribed to eventType within the
// tenant scope. An empty tenantID matches endpoints of every tenant; an
// endpoint with an empty TenantID is a global subscriber and matches any
// scope.
func (r *Registry) Match(eventType, tenantID string) []Endpoint {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matches []Endpoint
	for _, ep := range r.endpoints {
		if !ep.Enabled {
			continue
		}
		if !ep.subscribedTo(eventType) {
			continue
		}
		if tenantID != "" && ep.TenantID != "" && ep.TenantID != tenantID {
			continue
		}
		matches = append(matches, *ep)
	}
	return matches
}
