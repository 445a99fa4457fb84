// Package ipc exposes the daemon over JSON-RPC Unix sockets and ships the
// matching client used by the CLI.
//
// It owns socket lifecycle management and request/response DTOs. Snapshot
// failures travel as an error code and message inside the response so the
// client can rebuild a *dividends.RequestError; other failures are plain RPC
// errors.
//
// Reuse these types when adding new RPC endpoints to keep the protocol stable
// and compatible with existing command implementations.
package ipc
