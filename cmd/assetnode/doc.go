// Package main hosts the assetnode CLI entrypoint and command graph.
//
// The Cobra command tree runs the daemon in the foreground, manages the
// background process, and translates content and snapshot-check requests
// into IPC calls against the running daemon. Configuration resolution and
// socket discovery live here so subcommands only deal with presentation.
package main
