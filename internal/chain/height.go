package chain

import (
	"context"
	"log/slog"

	"assetnode/internal/config"
	"assetnode/internal/logging"
)

// HeightSource reports the current chain height.
type HeightSource interface {
	Height(ctx context.Context) (int64, error)
}

// StaticHeight is a HeightSource with a fixed height.
type StaticHeight int64

// Height returns the fixed height.
func (s StaticHeight) Height(context.Context) (int64, error) {
	return int64(s), nil
}

// NewHeightSource returns an RPC source when chain.rpc_url is set and a
// static source otherwise.
func NewHeightSource(cfg *config.Config, logger *slog.Logger) HeightSource {
	if cfg == nil || cfg.Chain.RPCURL == "" {
		var height int64
		if cfg != nil {
			height = cfg.Chain.StaticHeight
		}
		if logger != nil {
			logger.Debug("using static chain height", logging.BlockHeight(height))
		}
		return StaticHeight(height)
	}
	return NewRPCClient(cfg, logger)
}
