// Package timeouts defines shared timeout constants used by the servers.
package timeouts

import "time"

// ReadHeader limits how long an HTTP server waits for request headers.
const ReadHeader = 5 * time.Second

// Shutdown limits how long a server waits for in-flight requests during
// graceful shutdown.
const Shutdown = 5 * time.Second

// Dial caps the wait for a gRPC peer to report healthy.
const Dial = 2 * time.Second
