package api

import (
	"errors"

	"assetnode/internal/daemon"
	"assetnode/internal/deps"
	"assetnode/internal/dividends"
	"assetnode/internal/ipfs"
)

// FromDaemonStatus converts daemon status into its API representation.
func FromDaemonStatus(status daemon.Status) DaemonStatus {
	return DaemonStatus{
		Running:      status.Running,
		PID:          status.PID,
		LedgerPath:   status.LedgerPath,
		LockFilePath: status.LockPath,
		LogPath:      status.LogPath,
		IPFS: IPFSStatus{
			Enabled:           status.IPFSEnabled,
			State:             status.IPFSState.String(),
			Version:           status.IPFSVersion,
			PID:               status.IPFSPID,
			SupervisorRunning: status.SupervisorRunning,
			ForceStopped:      status.ForceStopped,
		},
		Dependencies: FromDependencies(status.Dependencies),
	}
}

// FromDependencies converts dependency checks and assigns a severity.
func FromDependencies(statuses []deps.Status) []DependencyStatus {
	if len(statuses) == 0 {
		return nil
	}
	out := make([]DependencyStatus, 0, len(statuses))
	for _, dep := range statuses {
		out = append(out, DependencyStatus{
			Name:        dep.Name,
			Command:     dep.Command,
			Description: dep.Description,
			Optional:    dep.Optional,
			Available:   dep.Available,
			Detail:      dep.Detail,
			Severity:    DependencySeverity(dep.Available, dep.Optional),
		})
	}
	return out
}

// DependencySeverity maps availability onto ok/warn/error.
func DependencySeverity(available, optional bool) string {
	switch {
	case available:
		return "ok"
	case optional:
		return "warn"
	default:
		return "error"
	}
}

// FromAddResult converts an ipfs add result.
func FromAddResult(result ipfs.AddResult) AddResponse {
	return AddResponse{Hash: result.Hash, Size: result.Size, Pinned: result.Pinned}
}

// ErrorFrom builds an error payload, carrying the RPC code of dividends
// failures and the kind of ipfs failures.
func ErrorFrom(err error) ErrorResponse {
	if err == nil {
		return ErrorResponse{}
	}
	var reqErr *dividends.RequestError
	if errors.As(err, &reqErr) {
		return ErrorResponse{Error: reqErr.Message, Code: reqErr.Code}
	}
	resp := ErrorResponse{Error: err.Error()}
	switch {
	case errors.Is(err, ipfs.ErrDisabled):
		resp.Kind = string(ipfs.KindDisabled)
	case errors.Is(err, daemon.ErrIPFSUnavailable):
		resp.Kind = "unavailable"
	default:
		resp.Kind = string(ipfs.KindOf(err))
	}
	return resp
}
