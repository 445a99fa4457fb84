// Package api defines wire-format types and converters for the IPC and HTTP
// API layer. It translates daemon, ipfs, and dividends results into
// transport-friendly DTOs so the CLI and HTTP consumers never couple to
// internal types.
//
// # Key Types
//
// DaemonStatus: daemon running state, IPFS supervisor state, ledger and lock
// paths, and dependency availability.
//
// AddResponse/StatResponse: results of off-chain content operations.
//
// SnapshotChecksResponse/SnapshotHeightsResponse: snapshot-check ledger views.
//
// ErrorResponse: error payload carrying the RPC code for dividends failures
// and the error kind for ipfs failures.
//
// # Design Notes
//
// DTOs use snake_case JSON tags to match the node's RPC field names
// (asset_name, block_height). Lifecycle states are exposed as their
// snake_case names.
package api
