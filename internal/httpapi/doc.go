// Package httpapi serves the daemon's HTTP surface: status, IPFS content
// operations, snapshot checks, a node-style JSON-RPC endpoint for the
// dividends commands, liveness/readiness probes and Prometheus metrics.
//
// Mutating routes require the configured bearer token; an empty token leaves
// every route open, which is only appropriate when the bind address is local.
package httpapi
