package daemon_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"assetnode/internal/chain"
	"assetnode/internal/config"
	"assetnode/internal/daemon"
	"assetnode/internal/dividends"
	"assetnode/internal/ipfs"
	"assetnode/internal/logging"
	"assetnode/internal/testsupport"
)

func newDaemon(t *testing.T, cfg *config.Config) (*daemon.Daemon, *ipfs.Supervisor) {
	t.Helper()
	store := testsupport.MustOpenLedger(t, cfg)
	sup, _, _ := testsupport.NewSupervisor(t, cfg)
	svc := dividends.NewService(cfg, store, chain.NewHeightSource(cfg, logging.NewNop()), logging.NewNop())
	d, err := daemon.New(cfg, store, sup, svc, logging.NewNop(), filepath.Join(cfg.Paths.LogDir, "daemon-test.log"))
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() {
		d.Stop()
	})
	return d, sup
}

func TestDaemonStartStop(t *testing.T) {
	fake := testsupport.NewFakeIPFS(t)
	cfg := testsupport.NewConfig(t, testsupport.WithIPFSAPI(fake.URL()))
	d, sup := newDaemon(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	testsupport.WaitForState(t, sup, ipfs.Connected, 2*time.Second)

	status := d.Status(ctx)
	if !status.Running {
		t.Fatal("expected daemon to report running")
	}
	if !status.IPFSEnabled || status.IPFSState != ipfs.Connected {
		t.Fatalf("unexpected ipfs status: %#v", status)
	}
	if status.IPFSVersion != "0.29.0" {
		t.Fatalf("unexpected ipfs version %q", status.IPFSVersion)
	}
	if status.PID != os.Getpid() {
		t.Fatalf("unexpected pid %d", status.PID)
	}

	// Second start should fail
	if err := d.Start(ctx); err == nil {
		t.Fatal("expected second start to fail")
	}

	d.Stop()
	status = d.Status(ctx)
	if status.Running {
		t.Fatal("expected daemon to be stopped")
	}
	if !status.ForceStopped {
		t.Fatal("expected supervisor to be force-stopped")
	}
	if status.IPFSState != ipfs.NotStarted {
		t.Fatalf("expected state not_started after stop, got %s", status.IPFSState)
	}
}

func TestDaemonLockPreventsSecondInstance(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithIPFSDisabled())
	first, _ := newDaemon(t, cfg)
	second, _ := newDaemon(t, cfg)

	if err := first.Start(context.Background()); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	if err := second.Start(context.Background()); err == nil {
		t.Fatal("expected lock contention error")
	}
}

func TestDaemonContentOperations(t *testing.T) {
	fake := testsupport.NewFakeIPFS(t)
	cfg := testsupport.NewConfig(t, testsupport.WithIPFSAPI(fake.URL()))
	d, sup := newDaemon(t, cfg)
	ctx := context.Background()

	if _, err := d.FetchContent(ctx, testsupport.SampleContentID); !errors.Is(err, daemon.ErrIPFSUnavailable) {
		t.Fatalf("expected ErrIPFSUnavailable before start, got %v", err)
	}

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	testsupport.WaitForState(t, sup, ipfs.Connected, 2*time.Second)

	result, err := d.AddContent(ctx, []byte("dividend memo"), true)
	if err != nil {
		t.Fatalf("AddContent: %v", err)
	}
	if result.Hash != testsupport.SampleContentID || !result.Pinned || result.Size != int64(len("dividend memo")) {
		t.Fatalf("unexpected add result %#v", result)
	}
	if pins := fake.Pins(); !reflect.DeepEqual(pins, []string{testsupport.SampleContentID}) {
		t.Fatalf("unexpected pins %v", pins)
	}

	data, err := d.FetchContent(ctx, result.Hash)
	if err != nil {
		t.Fatalf("FetchContent: %v", err)
	}
	if !bytes.Equal(data, []byte("dividend memo")) {
		t.Fatalf("unexpected content %q", data)
	}

	size, err := d.StatContent(ctx, result.Hash)
	if err != nil {
		t.Fatalf("StatContent: %v", err)
	}
	if size <= 0 {
		t.Fatalf("expected positive size, got %d", size)
	}

	path := filepath.Join(t.TempDir(), "memo.txt")
	if err := os.WriteFile(path, []byte("from file"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if _, err := d.AddFile(ctx, path, false); err != nil {
		t.Fatalf("AddFile: %v", err)
	}
	if _, err := d.AddFile(ctx, t.TempDir(), false); err == nil {
		t.Fatal("expected directory to be rejected")
	}

	if err := d.StopIPFS(); err != nil {
		t.Fatalf("StopIPFS: %v", err)
	}
	testsupport.WaitForState(t, sup, ipfs.NotStarted, 2*time.Second)
	if err := d.PinContent(ctx, result.Hash); !errors.Is(err, daemon.ErrIPFSUnavailable) {
		t.Fatalf("expected ErrIPFSUnavailable after stop, got %v", err)
	}
	if err := d.StartIPFS(); !errors.Is(err, ipfs.ErrForceStopped) {
		t.Fatalf("expected ErrForceStopped, got %v", err)
	}
}

func TestDaemonContentUnavailableDuringSlowShutdown(t *testing.T) {
	fake := testsupport.NewFakeIPFS(t)
	cfg := testsupport.NewConfig(t, testsupport.WithIPFSAPI(fake.URL()))
	store := testsupport.MustOpenLedger(t, cfg)
	sup, exec, _ := testsupport.NewSupervisor(t, cfg)
	exec.SetShutdownDelay(300 * time.Millisecond)
	svc := dividends.NewService(cfg, store, chain.NewHeightSource(cfg, logging.NewNop()), logging.NewNop())
	d, err := daemon.New(cfg, store, sup, svc, logging.NewNop(), filepath.Join(cfg.Paths.LogDir, "daemon-test.log"))
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(d.Stop)

	ctx := context.Background()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	testsupport.WaitForState(t, sup, ipfs.Connected, 2*time.Second)

	if err := d.StopIPFS(); err != nil {
		t.Fatalf("StopIPFS: %v", err)
	}
	if _, err := d.FetchContent(ctx, testsupport.SampleContentID); !errors.Is(err, daemon.ErrIPFSUnavailable) {
		t.Fatalf("expected ErrIPFSUnavailable while shutdown runs, got %v", err)
	}
	if status := d.Status(ctx); status.IPFSState != ipfs.NotStarted {
		t.Fatalf("expected not_started right after stop, got %s", status.IPFSState)
	}
}

func TestDaemonIPFSDisabled(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithIPFSDisabled())
	d, _ := newDaemon(t, cfg)
	ctx := context.Background()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := d.FetchContent(ctx, testsupport.SampleContentID); !errors.Is(err, ipfs.ErrDisabled) {
		t.Fatalf("expected ErrDisabled, got %v", err)
	}
	if err := d.StopIPFS(); !errors.Is(err, ipfs.ErrDisabled) {
		t.Fatalf("expected ErrDisabled from StopIPFS, got %v", err)
	}
	if status := d.Status(ctx); status.IPFSEnabled || status.Dependencies != nil {
		t.Fatalf("unexpected status for disabled ipfs: %#v", status)
	}
}

func TestDaemonSnapshotChecks(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithIPFSDisabled(), testsupport.WithChainHeight(100))
	d, _ := newDaemon(t, cfg)
	ctx := context.Background()

	if _, err := d.CreateSnapshotCheck(ctx, "TOKEN", 500); err != nil {
		t.Fatalf("CreateSnapshotCheck: %v", err)
	}
	if _, err := d.CreateSnapshotCheck(ctx, "TOKEN", 50); dividends.CodeOf(err) != dividends.CodeInvalidParameter {
		t.Fatalf("expected invalid parameter for past height, got %v", err)
	}
	names, err := d.SnapshotChecks(ctx, 500)
	if err != nil || !reflect.DeepEqual(names, []string{"TOKEN"}) {
		t.Fatalf("unexpected checks %v (err=%v)", names, err)
	}
	heights, err := d.SnapshotHeights(ctx)
	if err != nil || !reflect.DeepEqual(heights, []int64{500}) {
		t.Fatalf("unexpected heights %v (err=%v)", heights, err)
	}
}
