// Package telemetry groups the operational signals emitted by formrpc.
//
// # Traces (platform/otel)
//
// Procedure calls and safe actions run inside spans; unrecognized failures are
// recorded on the active span by the error reporter.
//
// # Operational Metrics (telemetry/metrics)
//
// Prometheus counters and histograms for HTTP requests, procedure outcomes,
// safe action outcomes and gRPC calls, exposed on /metrics.
package telemetry
