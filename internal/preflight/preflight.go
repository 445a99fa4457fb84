package preflight

import (
	"context"

	"assetnode/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
// Network checks are only run when the corresponding feature is configured.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
		CheckDiskSpace("Data volume", cfg.Paths.DataDir, MinFreeBytes),
	}

	if cfg.IPFS.Enabled {
		results = append(results, CheckIPFSAPI(ctx, "http://"+cfg.IPFSAPIAddress(), cfg.IPFSRequestTimeout()))
	}
	if cfg.Chain.RPCURL != "" {
		results = append(results, CheckChainRPC(ctx, cfg))
	}
	return results
}

// Failed returns the subset of results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}
