// Package webhooks provides signed, retried outbound event delivery to
// third-party HTTP endpoints.
//
// # Overview
//
// Domain services trigger logical events (meter readings, invoices, device
// state changes); the Engine fans each event out to every enabled endpoint
// subscribed to its type within the event's tenant scope. Each matching
// endpoint gets an independent delivery task: a signed HTTP POST retried on a
// fixed escalating schedule, with the outcome recorded in a bounded in-memory
// history.
//
// # Usage Example
//
// Register an endpoint and trigger an event:
//
//	registry := webhooks.NewRegistry()
//	registry.Register(&webhooks.Endpoint{
//		URL:      "https://partner.example.com/hooks",
//		Secret:   "shared-secret",
//		Events:   []string{webhooks.EventMeterReadingCreated},
//		TenantID: "org-42",
//	})
//
//	engine := webhooks.NewEngine(registry, logger, webhooks.DefaultEngineConfig())
//	engine.Trigger(ctx, webhooks.EventMeterReadingCreated, payload, "org-42")
//
// Verify a delivery (receiver side):
//
//	sig := r.Header.Get("X-Webhook-Signature")
//	if !webhooks.VerifySignature(body, sig, secret) {
//		return errors.New("invalid signature")
//	}
//
// # Delivery Semantics
//
// Trigger is fire-and-continue: it returns as soon as the delivery tasks are
// spawned and never reports delivery failures to the caller. At most
// MaxRetries attempts are made per endpoint (default 3), waiting 60s, 300s,
// 900s before attempts 2-4; the first 2xx response stops retrying. Exhausted
// deliveries stay in the history as failed records; there is no dead-letter
// escalation. Nothing is persisted across restarts unless a durable
// HistoryStore (see RedisHistory) is plugged in.
//
// # Related Packages
//
//   - pkg/circuit: optional per-endpoint breaker protection for attempts
//   - pkg/async: supervised task spawning for delivery tasks
package webhooks
