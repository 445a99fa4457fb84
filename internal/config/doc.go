// Package config loads, normalizes, and validates assetnode configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks for the
// chain RPC credentials and the HTTP API token. The Config type centralizes
// every knob the daemon and CLI need: data and log directories, the IPFS
// supervisor cadence, and the full node RPC endpoint used for chain height.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
