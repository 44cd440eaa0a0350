// Package metrics provides operational metrics collection.
//
// # Metric Categories
//
//   - HTTP: request count and latency by method, route and status
//   - Procedures: call count and latency by procedure and transport code
//   - Safe actions: submission count by action and status
//   - gRPC: call count by full method and status code
//
// # Integration
//
// Metrics register lazily on the default Prometheus registry and are exposed
// in Prometheus format by Handler. HTTP metrics are collected by a gin
// middleware, gRPC metrics by a unary server interceptor.
package metrics
