package webhooks

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Gal07143/Save-It.AI-sub002/pkg/async"
	"github.com/Gal07143/Save-It.AI-sub002/pkg/circuit"
	"github.com/Gal07143/Save-It.AI-sub002/pkg/observability"
)

// responseExcerptLimit caps how much of an endpoint's response body is kept
// in the delivery record
const responseExcerptLimit = 512

// EngineConfig configures delivery behavior
type EngineConfig struct {
	// MaxRetries is the total number of HTTP attempts per delivery
	MaxRetries int

	// AttemptTimeout bounds each individual HTTP request
	AttemptTimeout time.Duration

	// RetryDelays is the fixed escalating wait before attempts 2, 3, 4...
	// The last entry repeats if there are more attempts than entries. The
	// schedule is deliberately fixed rather than exponential so worst-case
	// end-to-end latency stays calculable.
	RetryDelays []time.Duration
}

// DefaultEngineConfig returns the default delivery configuration
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		MaxRetries:     3,
		AttemptTimeout: 30 * time.Second,
		RetryDelays:    []time.Duration{60 * time.Second, 300 * time.Second, 900 * time.Second},
	}
}

// withDefaults fills zero-valued fields with defaults
func (c EngineConfig) withDefaults() EngineConfig {
	def := DefaultEngineConfig()
	if c.MaxRetries <= 0 {
		c.MaxRetries = def.MaxRetries
	}
	if c.AttemptTimeout <= 0 {
		c.AttemptTimeout = def.AttemptTimeout
	}
	if c.RetryDelays == nil {
		c.RetryDelays = def.RetryDelays
	}
	return c
}

// Stats reports engine-level counters for the administrative surface
type Stats struct {
	Endpoints            int     `json:"endpoints"`
	EnabledEndpoints     int     `json:"enabled_endpoints"`
	TotalDeliveries      int     `json:"total_deliveries"`
	SuccessfulDeliveries int     `json:"successful_deliveries"`
	FailedDeliveries     int     `json:"failed_deliveries"`
	PendingDeliveries    int     `json:"pending_deliveries"`
	SuccessRate          float64 `json:"success_rate"`
}

// EngineOption configures an Engine
type EngineOption func(*Engine)

// WithHTTPClient replaces the outbound HTTP client, e.g. with an
// otelhttp-instrumented one
func WithHTTPClient(client *http.Client) EngineOption {
	return func(e *Engine) { e.client = client }
}

// WithHistory replaces the delivery history store
func WithHistory(history HistoryStore) EngineOption {
	return func(e *Engine) { e.history = history }
}

// WithMetrics enables Prometheus instrumentation of deliveries
func WithMetrics(metrics *observability.Metrics) EngineOption {
	return func(e *Engine) { e.metrics = metrics }
}

// WithBreakers wraps every delivery attempt in a per-endpoint circuit
// breaker, so a consistently failing endpoint fails fast instead of eating a
// full timeout per attempt
func WithBreakers(registry *circuit.Registry) EngineOption {
	return func(e *Engine) { e.breakers = registry }
}

// Engine fans triggered events out to matching endpoints and performs the
// signed, retried deliveries
type Engine struct {
	registry *Registry
	history  HistoryStore
	client   *http.Client
	logger   *observability.Logger
	metrics  *observability.Metrics
	breakers *circuit.Registry
	cfg      EngineConfig

	wg sync.WaitGroup
}

// NewEngine creates a delivery engine over the given endpoint registry
func NewEngine(registry *Registry, logger *observability.Logger, cfg EngineConfig, opts ...EngineOption) *Engine {
	cfg = cfg.withDefaults()

	e := &Engine{
		registry: registry,
		history:  NewMemoryHistory(DefaultHistoryCapacity),
		client:   &http.Client{Timeout: cfg.AttemptTimeout},
		logger:   logger.WithField("component", "webhooks"),
		cfg:      cfg,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Registry returns the engine's endpoint registry
func (e *Engine) Registry() *Registry {
	return e.registry
}

// History returns the engine's delivery history store
func (e *Engine) History() HistoryStore {
	return e.history
}

// Trigger fans the event out to all matching enabled endpoints. It is
// fire-and-continue: one independent delivery task is spawned per match and
// the call returns immediately. Delivery failures are never reported back to
// the caller; they are observable only through the history and stats.
func (e *Engine) Trigger(ctx context.Context, eventType string, data map[string]interface{}, tenantID string) Event {
	event := Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		TenantID:  tenantID,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}

	matches := e.registry.Match(eventType, tenantID)

	logger := observability.FromContext(ctx)
	logger.WithFields(map[string]interface{}{
		"event_id":   event.ID,
		"event_type": eventType,
		"tenant_id":  tenantID,
		"matches":    len(matches),
	}).Debug("event triggered")

	for _, ep := range matches {
		delivery := &Delivery{
			ID:         uuid.New().String(),
			EndpointID: ep.ID,
			EventID:    event.ID,
			EventType:  eventType,
			TenantID:   ep.TenantID,
			Payload:    data,
			Status:     DeliveryStatusPending,
			CreatedAt:  time.Now().UTC(),
		}
		if err := e.history.Append(context.Background(), delivery); err != nil {
			e.logger.WithError(err).WithField("delivery_id", delivery.ID).Error("failed to record delivery")
		}

		ep, delivery := ep, delivery
		e.wg.Add(1)
		async.Go(e.logger, "webhook delivery", func() error {
			defer e.wg.Done()
			e.deliver(ep, event, delivery)
			return nil
		})
	}

	return event
}

// Drain waits for in-flight deliveries to finish, or until ctx is done. Used
// at shutdown and in tests; deliveries themselves cannot be cancelled.
func (e *Engine) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("webhook deliveries still in flight: %w", ctx.Err())
	}
}

// Deliveries returns matching history records, oldest first
func (e *Engine) Deliveries(ctx context.Context, filter DeliveryFilter) ([]*Delivery, error) {
	return e.history.List(ctx, filter)
}

// GetStats reports endpoint and delivery counters. The success rate is
// defined as 0 when no deliveries have been recorded yet.
func (e *Engine) GetStats(ctx context.Context) (Stats, error) {
	hist, err := e.history.Stats(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to read delivery stats: %w", err)
	}

	stats := Stats{
		TotalDeliveries:      hist.Total,
		SuccessfulDeliveries: hist.Successful,
		FailedDeliveries:     hist.Failed,
		PendingDeliveries:    hist.Pending,
		SuccessRate:          hist.SuccessRate,
	}
	for _, ep := range e.registry.List() {
		stats.Endpoints++
		if ep.Enabled {
			stats.EnabledEndpoints++
		}
	}
	return stats, nil
}

// deliver runs one delivery task to completion: sign once, attempt up to
// MaxRetries times, record every outcome on the same history record.
func (e *Engine) deliver(ep Endpoint, event Event, delivery *Delivery) {
	logger := e.logger.WithFields(map[string]interface{}{
		"delivery_id": delivery.ID,
		"endpoint_id": ep.ID,
		"event_type":  event.Type,
	})

	body, err := json.Marshal(envelope{
		Event:     event.Type,
		Timestamp: event.Timestamp,
		Data:      event.Data,
	})
	if err != nil {
		delivery.Status = DeliveryStatusFailed
		delivery.Error = fmt.Sprintf("failed to marshal payload: %v", err)
		e.updateHistory(delivery)
		logger.WithError(err).Error("webhook payload not serializable")
		return
	}
	signature := Sign(body, ep.Secret)

	for attempt := 1; attempt <= e.cfg.MaxRetries; attempt++ {
		if attempt > 1 {
			time.Sleep(e.retryDelay(attempt))
		}

		delivery.Attempts = attempt
		e.updateHistory(delivery)

		start := time.Now()
		code, excerpt, err := e.attempt(ep, body, signature, event.Type, delivery.ID)
		duration := time.Since(start)

		if err == nil {
			now := time.Now().UTC()
			delivery.Status = DeliveryStatusSuccess
			delivery.Success = true
			delivery.StatusCode = code
			delivery.ResponseExcerpt = excerpt
			delivery.Error = ""
			delivery.DeliveredAt = &now
			e.updateHistory(delivery)

			if e.metrics != nil {
				e.metrics.ObserveAttempt(observability.AttemptResultSuccess, duration)
				e.metrics.ObserveDelivery(event.Type, true)
			}
			logger.WithFields(map[string]interface{}{
				"attempt":     attempt,
				"status_code": code,
			}).Info("webhook delivered")
			return
		}

		delivery.StatusCode = code
		delivery.ResponseExcerpt = excerpt
		delivery.Error = err.Error()
		if attempt < e.cfg.MaxRetries {
			delivery.Status = DeliveryStatusRetrying
		} else {
			delivery.Status = DeliveryStatusFailed
		}
		e.updateHistory(delivery)

		if e.metrics != nil {
			e.metrics.ObserveAttempt(attemptResult(code, err), duration)
		}
		logger.WithError(err).WithFields(map[string]interface{}{
			"attempt":     attempt,
			"status_code": code,
		}).Warn("webhook attempt failed")
	}

	if e.metrics != nil {
		e.metrics.ObserveDelivery(event.Type, false)
	}
	logger.WithField("attempts", delivery.Attempts).Warn("webhook delivery exhausted retries")
}

// retryDelay returns the wait before the given attempt (attempt >= 2)
func (e *Engine) retryDelay(attempt int) time.Duration {
	if len(e.cfg.RetryDelays) == 0 {
		return 0
	}
	idx := attempt - 2
	if idx >= len(e.cfg.RetryDelays) {
		idx = len(e.cfg.RetryDelays) - 1
	}
	return e.cfg.RetryDelays[idx]
}

// attempt performs a single HTTP POST, optionally under the endpoint's
// circuit breaker. A breaker rejection counts as a failed attempt.
func (e *Engine) attempt(ep Endpoint, body []byte, signature, eventType, deliveryID string) (int, string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), e.cfg.AttemptTimeout)
	defer cancel()

	if e.breakers == nil {
		return e.post(ctx, ep, body, signature, eventType, deliveryID)
	}

	var code int
	var excerpt string
	brk := e.breakers.GetOrCreate("webhook:"+ep.ID, nil)
	err := brk.Execute(ctx, func(ctx context.Context) error {
		var postErr error
		code, excerpt, postErr = e.post(ctx, ep, body, signature, eventType, deliveryID)
		return postErr
	})
	return code, excerpt, err
}

// post sends the signed envelope. The body bytes go out exactly as signed.
func (e *Engine) post(ctx context.Context, ep Endpoint, body []byte, signature, eventType, deliveryID string) (int, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ep.URL, bytes.NewReader(body))
	if err != nil {
		return 0, "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Webhook-Signature", signature)
	req.Header.Set("X-Webhook-Event", eventType)
	req.Header.Set("X-Webhook-Delivery", deliveryID)

	resp, err := e.client.Do(req)
	if err != nil {
		return 0, "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	excerptBytes, _ := io.ReadAll(io.LimitReader(resp.Body, responseExcerptLimit))
	excerpt := string(excerptBytes)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.StatusCode, excerpt, fmt.Errorf("endpoint returned status %d", resp.StatusCode)
	}
	return resp.StatusCode, excerpt, nil
}

// updateHistory pushes the record's current state to the history store
func (e *Engine) updateHistory(delivery *Delivery) {
	if err := e.history.Update(context.Background(), delivery); err != nil {
		e.logger.WithError(err).WithField("delivery_id", delivery.ID).Error("failed to update delivery record")
	}
}

// attemptResult classifies a failed attempt for metrics
func attemptResult(code int, err error) string {
	switch {
	case errors.Is(err, circuit.ErrCircuitOpen):
		return observability.AttemptResultCircuitOpen
	case code > 0:
		return observability.AttemptResultHTTPError
	default:
		return observability.AttemptResultTransport
	}
}
