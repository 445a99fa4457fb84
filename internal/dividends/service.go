package dividends

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"

	"assetnode/internal/chain"
	"assetnode/internal/config"
	"assetnode/internal/ledger"
	"assetnode/internal/logging"
)

// Ledger persists snapshot checks.
type Ledger interface {
	Write(ctx context.Context, assetName string, blockHeight int64) error
	Read(ctx context.Context, blockHeight int64) ([]string, error)
	Heights(ctx context.Context) ([]int64, error)
}

// Service validates snapshot-check requests and records them in the ledger.
type Service struct {
	ledger     Ledger
	heights    chain.HeightSource
	assetIndex bool
	validate   *validator.Validate
	logger     *slog.Logger
}

// NewService wires the service. A nil ledger is allowed and surfaces as a
// database error on every call.
func NewService(cfg *config.Config, store Ledger, heights chain.HeightSource, logger *slog.Logger) *Service {
	if s, ok := store.(*ledger.Store); ok && s == nil {
		store = nil
	}
	if heights == nil {
		heights = chain.StaticHeight(0)
	}
	return &Service{
		ledger:     store,
		heights:    heights,
		assetIndex: cfg != nil && cfg.Chain.AssetIndex,
		validate:   newValidator(),
		logger:     logging.NewComponentLogger(logger, "dividends"),
	}
}

// CreateSnapshotCheck records that assetName should be snapshotted at
// blockHeight. The height must be ahead of the current chain tip.
func (s *Service) CreateSnapshotCheck(ctx context.Context, req CreateRequest) (string, error) {
	if !s.assetIndex {
		return "", newRequestError(CodeMiscError, msgAssetIndexRequired, nil)
	}
	if err := s.validate.StructCtx(ctx, req); err != nil {
		return "", requestErrorFor(err)
	}

	current, err := s.heights.Height(ctx)
	if err != nil {
		return "", newRequestError(CodeMiscError, msgHeightUnavailable, err)
	}
	if req.BlockHeight <= current {
		return "", newRequestError(CodeInvalidParameter, fmt.Sprintf(msgHeightNotAhead, current), nil)
	}
	if s.ledger == nil {
		return "", newRequestError(CodeDatabaseError, msgDatabaseMissing, nil)
	}

	logger := logging.WithContext(ctx, s.logger)
	if err := s.ledger.Write(ctx, req.AssetName, req.BlockHeight); err != nil {
		logging.ErrorWithContext(logger, "snapshot check write failed", "snapshot_check_write_failed",
			logging.AssetName(req.AssetName),
			logging.BlockHeight(req.BlockHeight),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the ledger database file and free disk space"),
		)
		return "", newRequestError(CodeDatabaseError, msgWriteFailed, err)
	}
	logger.Info("snapshot check recorded",
		logging.String(logging.FieldEventType, "snapshot_check_added"),
		logging.AssetName(req.AssetName),
		logging.BlockHeight(req.BlockHeight),
	)
	return MsgSnapshotCheckAdded, nil
}

// GetSnapshotChecks returns the sorted asset names recorded for blockHeight.
// The result is never nil.
func (s *Service) GetSnapshotChecks(ctx context.Context, req GetRequest) ([]string, error) {
	if !s.assetIndex {
		return nil, newRequestError(CodeMiscError, msgAssetIndexRequired, nil)
	}
	if err := s.validate.StructCtx(ctx, req); err != nil {
		return nil, requestErrorFor(err)
	}
	if s.ledger == nil {
		return nil, newRequestError(CodeDatabaseError, msgDatabaseMissing, nil)
	}
	names, err := s.ledger.Read(ctx, req.BlockHeight)
	if err != nil {
		return nil, newRequestError(CodeDatabaseError, msgReadFailed, err)
	}
	if names == nil {
		names = []string{}
	}
	return names, nil
}

// ListSnapshotHeights returns every height with at least one recorded check.
func (s *Service) ListSnapshotHeights(ctx context.Context) ([]int64, error) {
	if s.ledger == nil {
		return nil, newRequestError(CodeDatabaseError, msgDatabaseMissing, nil)
	}
	heights, err := s.ledger.Heights(ctx)
	if err != nil {
		return nil, newRequestError(CodeDatabaseError, msgReadFailed, err)
	}
	if heights == nil {
		heights = []int64{}
	}
	return heights, nil
}
