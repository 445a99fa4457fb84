package api

import (
	"errors"
	"fmt"
	"testing"

	"assetnode/internal/daemon"
	"assetnode/internal/deps"
	"assetnode/internal/dividends"
	"assetnode/internal/ipfs"
)

func TestFromDaemonStatus(t *testing.T) {
	status := daemon.Status{
		Running:     true,
		PID:         42,
		IPFSEnabled: true,
		IPFSState:   ipfs.Connected,
		IPFSVersion: "0.29.0",
		LedgerPath:  "/data/dividends.db",
		LockPath:    "/logs/assetnode.lock",
		Dependencies: []deps.Status{
			{Name: "IPFS", Command: "ipfs", Available: true},
			{Name: "Extra", Command: "extra", Optional: true},
		},
	}

	dto := FromDaemonStatus(status)
	if !dto.Running || dto.PID != 42 {
		t.Fatalf("unexpected daemon fields: %#v", dto)
	}
	if dto.IPFS.State != "connected" || dto.IPFS.Version != "0.29.0" {
		t.Fatalf("unexpected ipfs status: %#v", dto.IPFS)
	}
	if dto.LockFilePath != "/logs/assetnode.lock" {
		t.Fatalf("unexpected lock path %q", dto.LockFilePath)
	}
	if len(dto.Dependencies) != 2 {
		t.Fatalf("expected 2 dependencies, got %d", len(dto.Dependencies))
	}
	if dto.Dependencies[0].Severity != "ok" || dto.Dependencies[1].Severity != "warn" {
		t.Fatalf("unexpected severities: %#v", dto.Dependencies)
	}
}

func TestDependencySeverity(t *testing.T) {
	if got := DependencySeverity(false, false); got != "error" {
		t.Fatalf("missing required dependency should be error, got %q", got)
	}
}

func TestErrorFrom(t *testing.T) {
	reqErr := &dividends.RequestError{Code: dividends.CodeInvalidParameter, Message: "Invalid asset_name: Please use a valid asset_name"}
	resp := ErrorFrom(fmt.Errorf("create: %w", reqErr))
	if resp.Code != dividends.CodeInvalidParameter || resp.Error != reqErr.Message {
		t.Fatalf("unexpected dividends payload: %#v", resp)
	}

	resp = ErrorFrom(&ipfs.Error{Op: "cat", Kind: ipfs.KindTransport, Err: errors.New("connection refused")})
	if resp.Kind != "transport" {
		t.Fatalf("expected transport kind, got %#v", resp)
	}

	resp = ErrorFrom(fmt.Errorf("%w (state daemon_started)", daemon.ErrIPFSUnavailable))
	if resp.Kind != "unavailable" {
		t.Fatalf("expected unavailable kind, got %#v", resp)
	}

	resp = ErrorFrom(ipfs.ErrDisabled)
	if resp.Kind != "disabled" {
		t.Fatalf("expected disabled kind, got %#v", resp)
	}

	if resp := ErrorFrom(nil); resp != (ErrorResponse{}) {
		t.Fatalf("expected empty payload for nil error, got %#v", resp)
	}
}
