// Package observability provides structured logging, Prometheus metrics,
// OpenTelemetry tracing, health probes, and graceful shutdown for the
// dispatch service.
//
// # Components
//
//   - Logger: structured JSON logging with field chaining and context plumbing
//   - Metrics: Prometheus metric families for webhook deliveries, circuit
//     breakers, and the admin HTTP surface
//   - InitTracing / NewHTTPClient: OTLP trace export and an instrumented
//     outbound HTTP client for webhook deliveries
//   - HealthChecker: liveness and readiness probes with optional Postgres and
//     Redis dependency checks
//   - ShutdownManager: signal-driven graceful shutdown of servers and
//     registered cleanup functions
package observability
