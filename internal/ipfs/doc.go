// Package ipfs supervises a local IPFS (Kubo) daemon and talks to its HTTP API.
//
// A Supervisor owns the daemon lifecycle: on a timer it checks the installed
// binary, launches `ipfs daemon`, probes the API with a known content id, and
// re-probes on a slower cadence once connected. Any failure ends the loop and
// dispatches a shutdown; Stop force-stops it for the rest of the process.
//
// The Launcher runs process control on a bounded worker pool and the Client
// wraps the cat, add, pin/add, and object/stat endpoints. Every operation is
// gated on the [ipfs] enabled setting and fails with ErrDisabled when off.
package ipfs
