package webhooks

import (
	"context"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DeliveryStatus represents the status of a webhook delivery
type DeliveryStatus string

const (
	DeliveryStatusPending  DeliveryStatus = "pending"
	DeliveryStatusRetrying DeliveryStatus = "retrying"
	DeliveryStatusSuccess  DeliveryStatus = "success"
	DeliveryStatusFailed   DeliveryStatus = "failed"
)

// Delivery is the record of one (endpoint, event) dispatch. A single record
// is created before the first attempt and updated in place across attempts,
// so readers observe a live attempt counter. EndpointID is a weak reference:
// the record outlives endpoint removal.
type Delivery struct {
	ID              string                 `json:"id"`
	EndpointID      string                 `json:"endpoint_id"`
	EventID         string                 `json:"event_id"`
	EventType       string                 `json:"event_type"`
	TenantID        string                 `json:"tenant_id,omitempty"`
	Payload         map[string]interface{} `json:"payload,omitempty"`
	Status          DeliveryStatus         `json:"status"`
	Attempts        int                    `json:"attempts"`
	StatusCode      int                    `json:"status_code,omitempty"`
	ResponseExcerpt string                 `json:"response_excerpt,omitempty"`
	Error           string                 `json:"error,omitempty"`
	Success         bool                   `json:"success"`
	CreatedAt       time.Time              `json:"created_at"`
	DeliveredAt     *time.Time             `json:"delivered_at,omitempty"`
}

// DeliveryFilter narrows history reads; zero fields match everything
type DeliveryFilter struct {
	EndpointID string
	EventType  string
}

func (f DeliveryFilter) matches(d *Delivery) bool {
	if f.EndpointID != "" && d.EndpointID != f.EndpointID {
		return false
	}
	if f.EventType != "" && d.EventType != f.EventType {
		return false
	}
	return true
}

// DeliveryStats summarizes the retained delivery history
type DeliveryStats struct {
	Total       int     `json:"total_deliveries"`
	Successful  int     `json:"successful_deliveries"`
	Failed      int     `json:"failed_deliveries"`
	Pending     int     `json:"pending_deliveries"`
	SuccessRate float64 `json:"success_rate"`
}

// HistoryStore retains delivery records in insertion order with a bounded
// capacity, evicting the oldest once full
type HistoryStore interface {
	// Append stores a new record
	Append(ctx context.Context, d *Delivery) error

	// Update overwrites the record with the same ID; a record evicted
	// mid-flight is dropped silently
	Update(ctx context.Context, d *Delivery) error

	// List returns copies of matching records, oldest first
	List(ctx context.Context, filter DeliveryFilter) ([]*Delivery, error)

	// Stats summarizes the retained records
	Stats(ctx context.Context) (DeliveryStats, error)

	// Size returns the number of retained records
	Size(ctx context.Context) (int, error)
}

// DefaultHistoryCapacity bounds the in-memory delivery history
const DefaultHistoryCapacity = 1000

// MemoryHistory is the default in-memory HistoryStore. Records are keyed by
// delivery ID in an LRU cache; because IDs are unique and reads never touch
// recency, eviction order degenerates to pure insertion order.
type MemoryHistory struct {
	mu    sync.Mutex
	cache *lru.Cache[string, *Delivery]
}

// NewMemoryHistory creates an in-memory history with the given capacity
func NewMemoryHistory(capacity int) *MemoryHistory {
	if capacity <= 0 {
		capacity = DefaultHistoryCapacity
	}
	cache, _ := lru.New[string, *Delivery](capacity)
	return &MemoryHistory{cache: cache}
}

// Append stores a copy of the record, evicting the oldest when full
func (h *MemoryHistory) Append(ctx context.Context, d *Delivery) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	stored := *d
	h.cache.Add(d.ID, &stored)
	return nil
}

// Update overwrites the stored record in place without disturbing its
// position in the eviction order
func (h *MemoryHistory) Update(ctx context.Context, d *Delivery) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if stored, ok := h.cache.Peek(d.ID); ok {
		*stored = *d
	}
	return nil
}

// List returns copies of matching records, oldest first
func (h *MemoryHistory) List(ctx context.Context, filter DeliveryFilter) ([]*Delivery, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	var result []*Delivery
	for _, id := range h.cache.Keys() {
		d, ok := h.cache.Peek(id)
		if !ok {
			continue
		}
		if !filter.matches(d) {
			continue
		}
		copied := *d
		result = append(result, &copied)
	}
	return result, nil
}

// Stats summarizes the retained records
func (h *MemoryHistory) Stats(ctx context.Context) (DeliveryStats, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	var all []*Delivery
	for _, id := range h.cache.Keys() {
		if d, ok := h.cache.Peek(id); ok {
			all = append(all, d)
		}
	}
	return computeStats(all), nil
}

// Size returns the number of retained records
func (h *MemoryHistory) Size(ctx context.Context) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cache.Len(), nil
}

// computeStats aggregates delivery counts by status. The success rate is 0
// when the history is empty.
func computeStats(deliveries []*Delivery) DeliveryStats {
	var stats DeliveryStats
	for _, d := range deliveries {
		stats.Total++
		switch d.Status {
		case DeliveryStatusSuccess:
			stats.Successful++
		case DeliveryStatusFailed:
			stats.Failed++
		default:
			stats.Pending++
		}
	}
	if stats.Total > 0 {
		stats.SuccessRate = float64(stats.Successful) / float64(stats.Total)
	}
	return stats
}
