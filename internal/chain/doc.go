// Package chain reports the current block height of the node that owns the
// snapshot ledger.
//
// The RPC source calls getblockcount on the node's JSON-RPC endpoint with
// basic auth and retries transient failures with exponential backoff. The
// static source returns a configured height and is used when no endpoint is
// configured.
package chain
