// Package preflight runs environment checks before the daemon starts and for
// `assetnode status`: directory access, free disk space under the data
// directory, the ipfs binary, the IPFS HTTP API, and the chain RPC endpoint.
//
// Checks return Result values instead of errors so callers can render every
// outcome in one table.
package preflight
