package ledger

import (
	"context"
	"errors"
	"testing"
)

var errLocked = errors.New("database is locked (5) (SQLITE_BUSY)")

func TestRetryOnBusyRecovers(t *testing.T) {
	calls := 0
	err := retryOnBusy(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errLocked
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected success after busy attempts, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
}

func TestRetryOnBusyGivesUp(t *testing.T) {
	calls := 0
	err := retryOnBusy(context.Background(), func() error {
		calls++
		return errLocked
	})
	if !errors.Is(err, errLocked) {
		t.Fatalf("expected busy error after exhausting attempts, got %v", err)
	}
	if calls != busyRetryAttempts {
		t.Fatalf("expected %d attempts, got %d", busyRetryAttempts, calls)
	}
}

func TestRetryOnBusyStopsOnOtherErrors(t *testing.T) {
	boom := errors.New("no such table: snapshot_checks")
	calls := 0
	err := retryOnBusy(context.Background(), func() error {
		calls++
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected original error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected a single attempt, got %d", calls)
	}
}

func TestRetryOnBusyHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := retryOnBusy(ctx, func() error {
		calls++
		cancel()
		return errLocked
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected retries to stop after cancel, got %d attempts", calls)
	}
}
