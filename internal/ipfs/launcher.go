package ipfs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"

	"assetnode/internal/config"
	"assetnode/internal/logging"
)

var versionPattern = regexp.MustCompile(`\d+\.\d+\.\d+`)

// Launcher starts and stops the daemon process on a bounded worker pool.
//
// Tasks acquire lock (the supervisor's lifecycle mutex) only around process
// control, never while waiting for the daemon to exit.
type Launcher struct {
	enabled        bool
	binary         string
	commandTimeout time.Duration
	shutdownGrace  time.Duration
	exec           Executor
	pool           *ants.Pool
	lock           sync.Locker
	logger         *slog.Logger
	metrics        *Metrics

	// guarded by lock
	proc   Process
	exited chan struct{}

	pid atomic.Int64

	canSpawn      func() bool
	onStopped     func()
	onSpawnFailed func(error)

	tasks sync.WaitGroup
}

func newLauncher(cfg *config.Config, lock sync.Locker, exec Executor, logger *slog.Logger, metrics *Metrics) (*Launcher, error) {
	l := &Launcher{
		enabled:        cfg.IPFS.Enabled,
		binary:         cfg.IPFS.Binary,
		commandTimeout: cfg.IPFSCommandTimeout(),
		shutdownGrace:  cfg.IPFSShutdownGrace(),
		exec:           exec,
		lock:           lock,
		logger:         logging.NewComponentLogger(logger, "ipfs-launcher"),
		metrics:        metrics,
		canSpawn:       func() bool { return true },
		onStopped:      func() {},
		onSpawnFailed:  func(error) {},
	}
	if !l.enabled {
		return l, nil
	}
	pool, err := ants.NewPool(cfg.IPFS.LauncherWorkers, ants.WithNonblocking(true))
	if err != nil {
		return nil, fmt.Errorf("create launcher pool: %w", err)
	}
	l.pool = pool
	return l, nil
}

// CheckVersion runs `<binary> version`, returns the reported version, and then
// initializes the repository. An init failure is logged and ignored since the
// repository usually exists already.
func (l *Launcher) CheckVersion(ctx context.Context) (string, error) {
	const op = "version"
	if !l.enabled {
		return "", disabledError(op)
	}

	versionCtx, cancel := context.WithTimeout(ctx, l.commandTimeout)
	out, err := l.exec.Output(versionCtx, l.binary, "version")
	cancel()
	l.metrics.observeCommand("version", err)
	if err != nil {
		return "", newError(op, KindDaemon, fmt.Errorf("run %s version: %w", l.binary, err))
	}
	version := versionPattern.FindString(string(out))
	if version == "" {
		return "", newError(op, KindProtocol, fmt.Errorf("no version number in %q", string(out)))
	}

	initCtx, cancel := context.WithTimeout(ctx, l.commandTimeout)
	_, err = l.exec.Output(initCtx, l.binary, "init")
	cancel()
	l.metrics.observeCommand("init", err)
	if err != nil {
		l.logger.Info("ipfs init failed; repository could already be initialized",
			logging.String(logging.FieldEventType, "ipfs_init_skipped"),
			logging.Error(err),
		)
	}
	return version, nil
}

// Launch dispatches a task that spawns `<binary> daemon`. It returns once the
// task is queued; an error means the pool rejected it.
func (l *Launcher) Launch() error {
	const op = "launch"
	if !l.enabled {
		return disabledError(op)
	}
	err := l.submit(l.runDaemon)
	if err != nil {
		l.metrics.observeCommand("daemon", err)
		return newError(op, KindDaemon, fmt.Errorf("dispatch daemon start: %w", err))
	}
	return nil
}

func (l *Launcher) runDaemon() {
	l.lock.Lock()
	if l.proc != nil {
		pid := l.proc.Pid()
		l.lock.Unlock()
		l.logger.Info("ipfs daemon already running; launch skipped", logging.Int("pid", pid))
		return
	}
	if !l.canSpawn() {
		l.lock.Unlock()
		l.logger.Info("ipfs daemon launch cancelled; supervisor no longer expects it",
			logging.String(logging.FieldEventType, "ipfs_launch_cancelled"))
		return
	}
	proc, err := l.exec.Start(l.binary, "daemon")
	l.metrics.observeCommand("daemon", err)
	if err != nil {
		l.onSpawnFailed(err)
		l.lock.Unlock()
		logging.ErrorWithContext(l.logger, "ipfs daemon failed to start", "ipfs_daemon_start_failed",
			logging.String("command", l.binary+" daemon"),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check that the ipfs binary is installed and on PATH"),
		)
		return
	}
	exited := make(chan struct{})
	l.proc = proc
	l.exited = exited
	l.pid.Store(int64(proc.Pid()))
	l.lock.Unlock()

	l.logger.Info("ipfs daemon started",
		logging.String(logging.FieldEventType, "ipfs_daemon_started"),
		logging.Int("pid", proc.Pid()),
	)

	waitErr := proc.Wait()
	close(exited)

	l.lock.Lock()
	if l.proc == proc {
		l.proc = nil
		l.exited = nil
		l.pid.Store(0)
	}
	l.lock.Unlock()

	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "ipfs_daemon_exited"),
		logging.Int("pid", proc.Pid()),
	}
	if waitErr != nil {
		attrs = append(attrs, logging.Error(waitErr))
	}
	l.logger.Info("ipfs daemon exited", logging.Args(attrs...)...)
}

// Shutdown dispatches a task that runs `<binary> shutdown`, terminates the
// tracked process group if it outlives the grace period, and resets the
// lifecycle to NotStarted.
func (l *Launcher) Shutdown() error {
	return l.shutdownUnless(nil)
}

// shutdownUnless is Shutdown with a guard evaluated under the lifecycle lock
// when the task runs. A task whose guard reports true does nothing.
func (l *Launcher) shutdownUnless(superseded func() bool) error {
	const op = "shutdown"
	if !l.enabled {
		return disabledError(op)
	}
	task := func() { l.runShutdown(superseded) }
	if err := l.submit(task); err != nil {
		// Shutdown must not be lost to a saturated pool.
		l.tasks.Add(1)
		go func() {
			defer l.tasks.Done()
			task()
		}()
	}
	return nil
}

func (l *Launcher) runShutdown(superseded func() bool) {
	l.lock.Lock()
	defer l.lock.Unlock()

	if superseded != nil && superseded() {
		l.logger.Debug("ipfs shutdown skipped; a newer supervisor run owns the daemon",
			logging.String(logging.FieldEventType, "ipfs_shutdown_superseded"))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), l.commandTimeout)
	_, err := l.exec.Output(ctx, l.binary, "shutdown")
	cancel()
	l.metrics.observeCommand("shutdown", err)
	if err != nil {
		l.logger.Info("ipfs shutdown command failed; daemon already stopped",
			logging.String(logging.FieldEventType, "ipfs_shutdown_noop"),
			logging.Error(err),
		)
	} else {
		l.logger.Info("ipfs daemon shutdown requested", logging.String(logging.FieldEventType, "ipfs_shutdown"))
	}

	if proc, exited := l.proc, l.exited; proc != nil {
		select {
		case <-exited:
		case <-time.After(l.shutdownGrace):
			if err := proc.Terminate(); err != nil {
				logging.WarnWithContext(l.logger, "ipfs daemon terminate failed", "ipfs_terminate_failed",
					logging.Int("pid", proc.Pid()),
					logging.Error(err),
					logging.String(logging.FieldImpact, "daemon process may still be running"),
					logging.String(logging.FieldErrorHint, "stop the ipfs process manually"),
				)
			} else {
				l.logger.Info("ipfs daemon terminated after grace period",
					logging.String(logging.FieldEventType, "ipfs_daemon_terminated"),
					logging.Int("pid", proc.Pid()),
				)
			}
		}
	}

	l.onStopped()
}

// PID returns the tracked daemon's process id, or 0 when none is running.
func (l *Launcher) PID() int {
	return int(l.pid.Load())
}

func (l *Launcher) submit(task func()) error {
	if l.pool == nil {
		return errors.New("launcher pool closed")
	}
	l.tasks.Add(1)
	err := l.pool.Submit(func() {
		defer l.tasks.Done()
		task()
	})
	if err != nil {
		l.tasks.Done()
	}
	return err
}

// Wait blocks until every dispatched task has finished.
func (l *Launcher) Wait() {
	l.tasks.Wait()
}

// Close joins dispatched tasks, bounded by ctx, and releases the pool.
func (l *Launcher) Close(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		l.tasks.Wait()
		close(done)
	}()
	var err error
	select {
	case <-done:
	case <-ctx.Done():
		err = fmt.Errorf("wait for launcher tasks: %w", ctx.Err())
	}
	if l.pool != nil {
		l.pool.Release()
	}
	return err
}
