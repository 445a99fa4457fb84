// Package daemonctl manages the background assetnode process on behalf of
// the CLI: launching it detached, waiting for its IPC socket, stopping it
// with a force-kill fallback, and assembling status views that still work
// when the daemon is offline.
package daemonctl
