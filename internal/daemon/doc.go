// Package daemon coordinates the long-running assetnode process.
//
// It wires configuration, the snapshot ledger, the dividends service, and the
// IPFS lifecycle supervisor into a single lifecycle with flock-based locking to
// prevent multiple instances. The daemon guards off-chain content operations
// behind the supervisor state so callers get a clear "unavailable" error while
// the IPFS daemon is starting or has failed.
//
// Keep orchestration logic here: the supervisor state machine lives in
// internal/ipfs and request validation lives in internal/dividends.
package daemon
