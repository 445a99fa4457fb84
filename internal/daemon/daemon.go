package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gofrs/flock"

	"assetnode/internal/config"
	"assetnode/internal/deps"
	"assetnode/internal/dividends"
	"assetnode/internal/ipfs"
	"assetnode/internal/ledger"
	"assetnode/internal/logging"
	"assetnode/internal/preflight"
)

// ErrIPFSUnavailable is returned by content operations while the supervisor
// is not connected to the IPFS daemon.
var ErrIPFSUnavailable = errors.New("ipfs daemon not connected")

// Daemon coordinates the background services and enforces single-instance execution.
type Daemon struct {
	cfg        *config.Config
	logger     *slog.Logger
	store      *ledger.Store
	supervisor *ipfs.Supervisor
	dividends  *dividends.Service
	logPath    string

	lockPath string
	lock     *flock.Flock

	mu      sync.Mutex
	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running           bool
	PID               int
	IPFSEnabled       bool
	IPFSState         ipfs.State
	IPFSVersion       string
	IPFSPID           int
	SupervisorRunning bool
	ForceStopped      bool
	LedgerPath        string
	LockPath          string
	LogPath           string
	Dependencies      []deps.Status
}

// New constructs a daemon with initialized dependencies. store may be nil, in
// which case snapshot requests fail with a database error.
func New(cfg *config.Config, store *ledger.Store, supervisor *ipfs.Supervisor, svc *dividends.Service, logger *slog.Logger, logPath string) (*Daemon, error) {
	if cfg == nil || supervisor == nil || svc == nil {
		return nil, errors.New("daemon requires config, ipfs supervisor, and dividends service")
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, "assetnode.lock")
	return &Daemon{
		cfg:        cfg,
		logger:     logging.NewComponentLogger(logger, "daemon"),
		store:      store,
		supervisor: supervisor,
		dividends:  svc,
		logPath:    logPath,
		lockPath:   lockPath,
		lock:       flock.New(lockPath),
	}, nil
}

// Start acquires the daemon lock and launches the IPFS supervisor.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running.Load() {
		return errors.New("daemon already running")
	}
	if err := os.MkdirAll(filepath.Dir(d.lockPath), 0o755); err != nil {
		return fmt.Errorf("create lock directory: %w", err)
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another assetnode daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	if err := d.supervisor.Start(d.ctx); err != nil {
		switch {
		case errors.Is(err, ipfs.ErrDisabled):
			d.logger.Debug("ipfs disabled; supervisor not started")
		default:
			logging.WarnWithContext(d.logger, "ipfs supervisor start failed", "ipfs_supervisor_start_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "restart the daemon to run the ipfs supervisor again"),
				logging.String(logging.FieldImpact, "off-chain content operations unavailable"),
			)
		}
	}

	d.running.Store(true)
	d.logger.Info("assetnode daemon started",
		logging.String(logging.FieldEventType, "daemon_start"),
		logging.String("lock_path", d.lockPath),
		logging.Bool("ipfs_enabled", d.supervisor.Enabled()),
	)
	return nil
}

// Stop stops the IPFS supervisor and releases the daemon lock. The supervisor
// stays force-stopped for the remainder of the process.
func (d *Daemon) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.running.Load() {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), d.cfg.IPFSShutdownGrace()+d.cfg.IPFSCommandTimeout())
	defer cancel()
	if err := d.supervisor.Close(ctx); err != nil {
		logging.WarnWithContext(d.logger, "ipfs supervisor did not stop cleanly", "ipfs_supervisor_close_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check for a lingering ipfs daemon process"),
			logging.String(logging.FieldImpact, "ipfs daemon may still be running"),
		)
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if err := d.lock.Unlock(); err != nil {
		logging.WarnWithContext(d.logger, "failed to release daemon lock", "daemon_lock_release_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "remove the lock file if the next start fails"),
			logging.String(logging.FieldImpact, "next daemon start may be refused"),
		)
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("assetnode daemon stopped", logging.String(logging.FieldEventType, "daemon_stop"))
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Running reports whether Start succeeded and Stop has not been called.
func (d *Daemon) Running() bool {
	return d.running.Load()
}

// LogPath returns the path to the daemon log file.
func (d *Daemon) LogPath() string {
	return d.logPath
}

// Supervisor exposes the IPFS supervisor for readiness probes and metrics.
func (d *Daemon) Supervisor() *ipfs.Supervisor {
	return d.supervisor
}

// Status returns the current daemon status.
func (d *Daemon) Status(context.Context) Status {
	ledgerPath := d.cfg.LedgerPath()
	if d.store != nil {
		ledgerPath = d.store.Path()
	}
	return Status{
		Running:           d.running.Load(),
		PID:               os.Getpid(),
		IPFSEnabled:       d.supervisor.Enabled(),
		IPFSState:         d.supervisor.State(),
		IPFSVersion:       d.supervisor.Version(),
		IPFSPID:           d.supervisor.PID(),
		SupervisorRunning: d.supervisor.Running(),
		ForceStopped:      d.supervisor.ForceStopped(),
		LedgerPath:        ledgerPath,
		LockPath:          d.lockPath,
		LogPath:           d.logPath,
		Dependencies:      preflight.CheckSystemDeps(d.cfg),
	}
}

// StartIPFS starts the supervisor loop under the daemon context.
func (d *Daemon) StartIPFS() error {
	d.mu.Lock()
	ctx := d.ctx
	d.mu.Unlock()
	if ctx == nil {
		return errors.New("daemon not running")
	}
	return d.supervisor.Start(ctx)
}

// StopIPFS force-stops the supervisor and shuts the IPFS daemon down.
func (d *Daemon) StopIPFS() error {
	return d.supervisor.Stop()
}

func (d *Daemon) client() (*ipfs.Client, error) {
	if !d.supervisor.Enabled() {
		return nil, ipfs.ErrDisabled
	}
	if state := d.supervisor.State(); state != ipfs.Connected {
		return nil, fmt.Errorf("%w (state %s)", ErrIPFSUnavailable, state)
	}
	return d.supervisor.Client(), nil
}

// FetchContent returns the content stored under contentID.
func (d *Daemon) FetchContent(ctx context.Context, contentID string) ([]byte, error) {
	contentID = strings.TrimSpace(contentID)
	if contentID == "" {
		return nil, errors.New("content id is required")
	}
	client, err := d.client()
	if err != nil {
		return nil, err
	}
	return client.Fetch(ctx, contentID)
}

// AddContent stores data and optionally pins it.
func (d *Daemon) AddContent(ctx context.Context, data []byte, pin bool) (ipfs.AddResult, error) {
	client, err := d.client()
	if err != nil {
		return ipfs.AddResult{}, err
	}
	return client.AddData(ctx, data, pin)
}

// AddFile stores the file at path and optionally pins it.
func (d *Daemon) AddFile(ctx context.Context, path string, pin bool) (ipfs.AddResult, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return ipfs.AddResult{}, errors.New("file path is required")
	}
	absPath, err := filepath.Abs(trimmed)
	if err != nil {
		return ipfs.AddResult{}, fmt.Errorf("resolve file path: %w", err)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return ipfs.AddResult{}, fmt.Errorf("stat file: %w", err)
	}
	if info.IsDir() {
		return ipfs.AddResult{}, fmt.Errorf("path %q is a directory", absPath)
	}
	client, err := d.client()
	if err != nil {
		return ipfs.AddResult{}, err
	}
	result, err := client.AddFile(ctx, absPath, pin)
	if err != nil {
		return ipfs.AddResult{}, err
	}
	d.logger.Info("file added to ipfs",
		logging.String(logging.FieldEventType, "ipfs_file_added"),
		logging.ContentID(result.Hash),
		logging.String("source_path", absPath),
		logging.Bool("pinned", result.Pinned),
	)
	return result, nil
}

// PinContent pins contentID on the IPFS daemon.
func (d *Daemon) PinContent(ctx context.Context, contentID string) error {
	client, err := d.client()
	if err != nil {
		return err
	}
	return client.Pin(ctx, contentID)
}

// StatContent returns the cumulative size of contentID.
func (d *Daemon) StatContent(ctx context.Context, contentID string) (int64, error) {
	client, err := d.client()
	if err != nil {
		return 0, err
	}
	return client.Stat(ctx, contentID)
}

// CreateSnapshotCheck records a snapshot check through the dividends service.
func (d *Daemon) CreateSnapshotCheck(ctx context.Context, assetName string, blockHeight int64) (string, error) {
	return d.dividends.CreateSnapshotCheck(ctx, dividends.CreateRequest{AssetName: assetName, BlockHeight: blockHeight})
}

// SnapshotChecks returns the asset names recorded for blockHeight.
func (d *Daemon) SnapshotChecks(ctx context.Context, blockHeight int64) ([]string, error) {
	return d.dividends.GetSnapshotChecks(ctx, dividends.GetRequest{BlockHeight: blockHeight})
}

// SnapshotHeights lists heights with recorded checks.
func (d *Daemon) SnapshotHeights(ctx context.Context) ([]int64, error) {
	return d.dividends.ListSnapshotHeights(ctx)
}

// Dividends exposes the dividends service for node-style RPC dispatch.
func (d *Daemon) Dividends() *dividends.Service {
	return d.dividends
}
