// Package dividends implements the snapshot-check commands exposed to RPC
// callers: recording that an asset's holders should be snapshotted at a future
// block height, and listing the assets recorded for a height.
//
// Requests are validated with go-playground/validator and failures are
// reported as *RequestError values carrying the node's RPC error codes.
package dividends
