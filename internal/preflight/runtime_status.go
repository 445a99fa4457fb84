package preflight

import (
	"context"
	"strings"

	"assetnode/internal/config"
	"assetnode/internal/deps"
)

// CheckIPFSFromConfig evaluates IPFS status from config and connectivity.
// It is used by status views when the daemon is not running.
func CheckIPFSFromConfig(ctx context.Context, cfg *config.Config) Result {
	const name = "IPFS"

	if cfg == nil {
		return Result{Name: name, Detail: "Unknown"}
	}
	if !cfg.IPFS.Enabled {
		return Result{Name: name, Passed: true, Detail: "Disabled"}
	}
	if strings.TrimSpace(cfg.IPFS.Binary) == "" {
		return Result{Name: name, Detail: "Missing binary"}
	}
	if missing := deps.MissingRequired(CheckSystemDeps(cfg)); len(missing) > 0 {
		return Result{Name: name, Detail: missing[0].Detail}
	}
	check := CheckIPFSAPI(ctx, "http://"+cfg.IPFSAPIAddress(), cfg.IPFSRequestTimeout())
	return Result{Name: name, Passed: check.Passed, Detail: check.Detail}
}

// CheckChainFromConfig evaluates the chain tip source from config and connectivity.
func CheckChainFromConfig(ctx context.Context, cfg *config.Config) Result {
	const name = "Chain"

	if cfg == nil {
		return Result{Name: name, Detail: "Unknown"}
	}
	if !cfg.Chain.AssetIndex {
		return Result{Name: name, Detail: "Asset index disabled"}
	}
	if strings.TrimSpace(cfg.Chain.RPCURL) == "" {
		return Result{Name: name, Passed: true, Detail: "Static height"}
	}
	check := CheckChainRPC(ctx, cfg)
	return Result{Name: name, Passed: check.Passed, Detail: check.Detail}
}
