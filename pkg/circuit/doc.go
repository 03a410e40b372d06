// Package circuit provides per-dependency circuit breakers for failure isolation.
//
// # Overview
//
// A Breaker protects callers from hammering a failing dependency. It tracks
// consecutive failures and transitions between three states:
//
//   - closed: calls pass through normally
//   - open: calls are rejected immediately with ErrCircuitOpen
//   - half-open: a bounded number of probe calls are admitted to test recovery
//
// The open -> half-open transition is lazy: it happens at call time once the
// configured timeout has elapsed, so no background timer is needed.
//
// # Usage Example
//
// Wrap a risky call:
//
//	registry := circuit.NewRegistry(circuit.DefaultConfig())
//	brk := registry.GetOrCreate("billing-gateway", nil)
//
//	err := brk.Execute(ctx, func(ctx context.Context) error {
//		return billingClient.Charge(ctx, invoice)
//	})
//	if errors.Is(err, circuit.ErrCircuitOpen) {
//		// dependency is unhealthy, call was never attempted
//	}
//
// Breakers sharing a name share failure state: unrelated call sites that hit
// the same logical dependency should use the same name.
//
// # Related Packages
//
//   - pkg/webhooks: optional breaker protection for outbound deliveries
package circuit
