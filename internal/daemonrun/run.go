package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"assetnode/internal/chain"
	"assetnode/internal/config"
	"assetnode/internal/daemon"
	"assetnode/internal/dividends"
	"assetnode/internal/httpapi"
	"assetnode/internal/ipc"
	"assetnode/internal/ipfs"
	"assetnode/internal/ledger"
	"assetnode/internal/logging"
	"assetnode/internal/preflight"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
}

// Run starts the assetnode daemon and blocks until it receives SIGINT or
// SIGTERM, the parent context ends, or a client requests a stop over IPC.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	runID := uuid.NewString()
	stamp := time.Now().UTC().Format("20060102T150405.000Z")
	logPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("assetnode-%s.log", stamp))

	level := cfg.Logging.Level
	if strings.TrimSpace(opts.LogLevel) != "" {
		level = opts.LogLevel
	}
	logger, err := logging.New(logging.Options{
		Level:       level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stdout", logPath},
		Development: opts.Development,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logger = logger.With(logging.String(logging.FieldRunID, runID))

	if err := ensureCurrentLogPointer(cfg.Paths.LogDir, logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update assetnode.log link: %v\n", err)
	}
	logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays,
		logging.RetentionTarget{Dir: cfg.Paths.LogDir, Pattern: "assetnode-*.log", Exclude: []string{logPath}},
	)
	logDependencySnapshot(signalCtx, logger, cfg)

	pidPath := PIDPath(cfg)
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	store, err := ledger.Open(cfg)
	if err != nil {
		logging.ErrorWithContext(logger, "open snapshot ledger", "ledger_open_failed",
			logging.String("ledger_path", cfg.LedgerPath()),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check data_dir permissions and free disk space"),
			logging.String(logging.FieldImpact, "snapshot check requests fail with a database error"),
		)
		store = nil
	} else {
		defer store.Close()
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	supervisor, err := ipfs.NewSupervisor(cfg, logger, ipfs.WithRegisterer(registry))
	if err != nil {
		return fmt.Errorf("create ipfs supervisor: %w", err)
	}
	heights := chain.NewHeightSource(cfg, logger)
	svc := dividends.NewService(cfg, store, heights, logger)

	d, err := daemon.New(cfg, store, supervisor, svc, logger, logPath)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	ipcServer, err := ipc.NewServer(signalCtx, cfg.SocketPath(), d, logger, cancel)
	if err != nil {
		return fmt.Errorf("start IPC server: %w", err)
	}
	defer ipcServer.Close()
	ipcServer.Serve()

	apiServer, err := httpapi.New(cfg, d, registry, logger)
	if err != nil {
		return fmt.Errorf("create api server: %w", err)
	}
	if err := apiServer.Start(signalCtx); err != nil {
		logging.WarnWithContext(logger, "api server start failed", "api_start_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check api_bind for port conflicts"),
			logging.String(logging.FieldImpact, "HTTP API and health probes unavailable"),
		)
	}
	defer apiServer.Stop()

	if err := d.Start(signalCtx); err != nil {
		logging.WarnWithContext(logger, "daemon start failed", "daemon_start_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check for another running assetnode daemon and the lock file"),
			logging.String(logging.FieldImpact, "ipfs supervisor not running"),
		)
	}

	<-signalCtx.Done()
	logger.Info("assetnode daemon shutting down", logging.String(logging.FieldEventType, "daemon_shutdown"))
	d.Stop()
	return nil
}

// PIDPath returns the pid file written by a running daemon.
func PIDPath(cfg *config.Config) string {
	return filepath.Join(cfg.Paths.LogDir, "assetnode.pid")
}

// CurrentLogPath returns the pointer to the most recent run's log.
func CurrentLogPath(cfg *config.Config) string {
	return filepath.Join(cfg.Paths.LogDir, "assetnode.log")
}

func ensureCurrentLogPointer(logDir, target string) error {
	if logDir == "" || target == "" {
		return nil
	}
	current := filepath.Join(logDir, "assetnode.log")
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, current); err == nil {
		return nil
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

// logDependencySnapshot records binary availability and local checks at
// startup. The IPFS API is skipped since the supervisor has not launched the
// daemon yet.
func logDependencySnapshot(ctx context.Context, logger *slog.Logger, cfg *config.Config) {
	if logger == nil || cfg == nil {
		return
	}
	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "dependency_snapshot"),
		logging.Bool("ipfs_enabled", cfg.IPFS.Enabled),
		logging.String("ipfs_binary", cfg.IPFS.Binary),
		logging.Bool("asset_index", cfg.Chain.AssetIndex),
		logging.Bool("chain_rpc_configured", strings.TrimSpace(cfg.Chain.RPCURL) != ""),
	}
	for _, dep := range preflight.CheckSystemDeps(cfg) {
		attrs = append(attrs, logging.Bool(dep.Command+"_available", dep.Available))
		if dep.Path != "" {
			attrs = append(attrs, logging.String(dep.Command+"_path", dep.Path))
		}
	}
	checks := []preflight.Result{
		preflight.CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
		preflight.CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
		preflight.CheckDiskSpace("Data volume", cfg.Paths.DataDir, preflight.MinFreeBytes),
	}
	if strings.TrimSpace(cfg.Chain.RPCURL) != "" {
		checks = append(checks, preflight.CheckChainRPC(ctx, cfg))
	}
	for _, failed := range preflight.Failed(checks) {
		logging.WarnWithContext(logger, "startup check failed", "preflight_failed",
			logging.String("check", failed.Name),
			logging.String("detail", failed.Detail),
			logging.String(logging.FieldErrorHint, "run assetnode status for the full dependency report"),
			logging.String(logging.FieldImpact, "related features may fail at runtime"),
		)
	}
	logger.Info("dependency snapshot", logging.Args(attrs...)...)
}
