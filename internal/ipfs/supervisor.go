package ipfs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"assetnode/internal/config"
	"assetnode/internal/logging"
)

// Supervisor drives the daemon lifecycle on a timer.
type Supervisor struct {
	enabled     bool
	interval    time.Duration
	healthEvery uint64
	probeID     string

	logger   *slog.Logger
	metrics  *Metrics
	client   *Client
	launcher *Launcher
	observer func(from, to State)

	// mu is the lifecycle lock shared with launcher tasks. state is only
	// written while holding it; readers use the atomic directly.
	mu             sync.Mutex
	state          atomic.Int32
	connectedTicks uint64
	runs           uint64
	version        atomic.Value

	started   atomic.Bool
	forceStop atomic.Bool
	stopCh    chan struct{}
	stopOnce  sync.Once
	loop      sync.WaitGroup
}

// NewSupervisor wires a supervisor, launcher, and client from cfg.
func NewSupervisor(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Supervisor, error) {
	if cfg == nil {
		return nil, errors.New("ipfs supervisor: config required")
	}
	o := collectOptions(opts)
	metrics := NewMetrics(o.registerer)

	interval := cfg.TickInterval()
	if o.interval > 0 {
		interval = o.interval
	}
	healthEvery := cfg.IPFS.HealthCheckEvery
	if healthEvery <= 0 {
		healthEvery = 1
	}
	s := &Supervisor{
		enabled:     cfg.IPFS.Enabled,
		interval:    interval,
		healthEvery: uint64(healthEvery),
		probeID:     cfg.IPFS.ProbeContentID,
		logger:      logging.NewComponentLogger(logger, "ipfs"),
		metrics:     metrics,
		client:      newClient(cfg, logger, o, metrics),
		observer:    o.observer,
		stopCh:      make(chan struct{}),
	}
	s.version.Store("")

	launcher, err := newLauncher(cfg, &s.mu, o.executor, logger, metrics)
	if err != nil {
		return nil, err
	}
	launcher.canSpawn = func() bool {
		return !s.forceStop.Load() && s.State() == DaemonStarted
	}
	launcher.onStopped = func() {
		s.connectedTicks = 0
		s.setState(NotStarted)
	}
	launcher.onSpawnFailed = func(error) {
		if s.State() == DaemonStarted {
			s.setState(DaemonStartFailed)
		}
	}
	s.launcher = launcher
	metrics.setState(NotStarted)
	return s, nil
}

// State returns the current lifecycle state.
func (s *Supervisor) State() State {
	return State(s.state.Load())
}

// Enabled reports the feature gate.
func (s *Supervisor) Enabled() bool { return s.enabled }

// Running reports whether the supervisor loop is active.
func (s *Supervisor) Running() bool { return s.started.Load() }

// ForceStopped reports whether Stop has been called.
func (s *Supervisor) ForceStopped() bool { return s.forceStop.Load() }

// Version returns the daemon version found by the last successful check.
func (s *Supervisor) Version() string {
	v, _ := s.version.Load().(string)
	return v
}

// PID returns the tracked daemon process id, or 0.
func (s *Supervisor) PID() int { return s.launcher.PID() }

// Client exposes the API client for fetch, add, pin, and stat.
func (s *Supervisor) Client() *Client { return s.client }

// Start launches the supervisor loop. Calling it while the loop runs is a no-op.
func (s *Supervisor) Start(ctx context.Context) error {
	if !s.enabled {
		s.logger.Debug("ipfs supervisor start skipped; ipfs disabled")
		return disabledError("start")
	}
	if s.forceStop.Load() {
		return ErrForceStopped
	}
	if !s.started.CompareAndSwap(false, true) {
		s.logger.Info("ipfs supervisor already running; start skipped",
			logging.String(logging.FieldEventType, "ipfs_supervisor_start_skipped"))
		return nil
	}
	s.loop.Add(1)
	go s.run(ctx)
	return nil
}

// Stop force-stops the supervisor for the rest of the process lifetime,
// resets state to NotStarted, and dispatches a daemon shutdown. Stop waits for
// an in-flight tick or shutdown task to release the lifecycle lock.
func (s *Supervisor) Stop() error {
	if !s.enabled {
		s.logger.Debug("ipfs supervisor stop skipped; ipfs disabled")
		return disabledError("stop")
	}
	s.logger.Info("ipfs supervisor stopping", logging.String(logging.FieldEventType, "ipfs_supervisor_stop"))
	s.forceStop.Store(true)
	s.stopOnce.Do(func() { close(s.stopCh) })

	s.mu.Lock()
	s.connectedTicks = 0
	s.setState(NotStarted)
	s.mu.Unlock()

	return s.launcher.Shutdown()
}

// Close stops the supervisor, joins the loop and launcher tasks, and releases
// the worker pool.
func (s *Supervisor) Close(ctx context.Context) error {
	if s.enabled {
		_ = s.Stop()
	}
	done := make(chan struct{})
	go func() {
		s.loop.Wait()
		close(done)
	}()
	var loopErr error
	select {
	case <-done:
	case <-ctx.Done():
		loopErr = fmt.Errorf("wait for ipfs supervisor loop: %w", ctx.Err())
	}
	return errors.Join(loopErr, s.launcher.Close(ctx))
}

// Wait blocks until the loop and all dispatched launcher tasks have finished.
func (s *Supervisor) Wait() {
	s.loop.Wait()
	s.launcher.Wait()
}

func (s *Supervisor) run(ctx context.Context) {
	defer s.loop.Done()

	s.mu.Lock()
	s.runs++
	run := s.runs
	if s.State().Failed() {
		s.setState(NotStarted)
	}
	s.connectedTicks = 0
	s.mu.Unlock()
	defer s.finish(run)

	s.logger.Info("ipfs supervisor started",
		logging.String(logging.FieldEventType, "ipfs_supervisor_started"),
		logging.Duration("tick_interval", s.interval),
	)

	timer := time.NewTimer(s.interval)
	defer timer.Stop()
	for {
		if s.forceStop.Load() {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-timer.C:
		}
		if s.forceStop.Load() {
			return
		}
		if !s.step(ctx) {
			return
		}
		timer.Reset(s.interval)
	}
}

// finish dispatches the end-of-run shutdown. The task is dropped if another
// run has started by the time it holds the lifecycle lock.
func (s *Supervisor) finish(run uint64) {
	s.started.Store(false)
	if !s.forceStop.Load() {
		superseded := func() bool { return s.runs != run }
		if err := s.launcher.shutdownUnless(superseded); err != nil {
			s.logger.Debug("ipfs shutdown dispatch skipped", logging.Error(err))
		}
	}
	s.logger.Info("ipfs supervisor exiting",
		logging.String(logging.FieldEventType, "ipfs_supervisor_exited"),
		logging.String(logging.FieldIPFSState, s.State().String()),
	)
}

// step runs one tick. It returns false when the loop should exit.
func (s *Supervisor) step(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.State() {
	case NotStarted:
		version, err := s.launcher.CheckVersion(ctx)
		if err != nil {
			s.setState(VersionCheckFailed)
			logging.WarnWithContext(s.logger, "ipfs version check failed; supervisor exiting", "ipfs_version_check_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "off-chain content will be unavailable"),
				logging.String(logging.FieldErrorHint, "install ipfs (Kubo) or set ipfs.binary"),
			)
			return false
		}
		s.version.Store(version)
		s.setState(VersionChecked)
		s.logger.Info("ipfs version checked", logging.String("version", version))
	case VersionChecked:
		if err := s.launcher.Launch(); err != nil {
			s.setState(DaemonStartFailed)
			logging.ErrorWithContext(s.logger, "ipfs daemon launch failed; supervisor exiting", "ipfs_launch_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "raise ipfs.launcher_workers or check system load"),
			)
			return false
		}
		s.setState(DaemonStarted)
	case DaemonStarted:
		if err := s.probe(ctx); err != nil {
			s.setState(ConnectFailed)
			return false
		}
		s.connectedTicks = 0
		s.setState(Connected)
	case Connected:
		s.connectedTicks++
		if s.connectedTicks%s.healthEvery != 0 {
			return true
		}
		if err := s.probe(ctx); err != nil {
			s.setState(ConnectFailed)
			return false
		}
	default:
		return false
	}
	return true
}

func (s *Supervisor) probe(ctx context.Context) error {
	_, err := s.client.Fetch(ctx, s.probeID)
	s.metrics.observeProbe(err)
	if err != nil {
		logging.WarnWithContext(s.logger, "ipfs health probe failed", "ipfs_probe_failed",
			logging.ContentID(s.probeID),
			logging.Error(err),
			logging.String(logging.FieldImpact, "off-chain content will be unavailable"),
			logging.String(logging.FieldErrorHint, "check the ipfs daemon log and api address"),
		)
		return err
	}
	s.logger.Debug("ipfs health probe ok", logging.ContentID(s.probeID))
	return nil
}

// setState must be called with mu held.
func (s *Supervisor) setState(next State) {
	prev := State(s.state.Swap(int32(next)))
	if prev == next {
		return
	}
	s.metrics.setState(next)
	attrs := append([]logging.Attr{logging.String(logging.FieldEventType, "ipfs_state_transition")}, logging.Transition(prev, next)...)
	s.logger.Info("ipfs state changed", logging.Args(attrs...)...)
	if s.observer != nil {
		s.observer(prev, next)
	}
}
