package daemonctl

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"assetnode/internal/api"
	"assetnode/internal/config"
	"assetnode/internal/ipc"
	"assetnode/internal/ledger"
	"assetnode/internal/preflight"
)

const offlineQueryTimeout = 2 * time.Second

// StatusSnapshot is the CLI's combined status view.
type StatusSnapshot struct {
	Daemon            api.DaemonStatus      `json:"daemon"`
	SystemChecks      []api.StatusLine      `json:"system_checks"`
	DependencySummary api.DependencySummary `json:"dependency_summary"`
	SnapshotHeights   []int64               `json:"snapshot_heights"`
}

// BuildStatusSnapshot collects daemon status over IPC and falls back to
// config-derived checks and a direct ledger read when the daemon is offline.
func BuildStatusSnapshot(ctx context.Context, socketPath string, cfg *config.Config) (*StatusSnapshot, error) {
	if cfg == nil {
		return nil, errors.New("configuration not available")
	}
	snapshot := &StatusSnapshot{
		Daemon: api.DaemonStatus{
			LedgerPath: cfg.LedgerPath(),
			IPFS:       api.IPFSStatus{Enabled: cfg.IPFS.Enabled, State: "not_started"},
		},
	}

	var client *ipc.Client
	if c, err := ipc.Dial(socketPath); err == nil {
		client = c
		defer client.Close()
		if resp, statusErr := client.Status(); statusErr == nil && resp != nil {
			snapshot.Daemon = *resp
		}
	}

	if snapshot.Daemon.Running && client != nil {
		if heights, err := client.SnapshotList(); err == nil {
			snapshot.SnapshotHeights = heights
		}
	} else {
		snapshot.SnapshotHeights = offlineHeights(ctx, cfg)
	}

	if len(snapshot.Daemon.Dependencies) == 0 {
		snapshot.Daemon.Dependencies = ResolveDependencies(cfg)
	}
	for i := range snapshot.Daemon.Dependencies {
		dep := &snapshot.Daemon.Dependencies[i]
		if strings.TrimSpace(dep.Severity) == "" {
			dep.Severity = api.DependencySeverity(dep.Available, dep.Optional)
		}
	}

	snapshot.SystemChecks = BuildSystemChecks(ctx, cfg, snapshot.Daemon)
	snapshot.DependencySummary = BuildDependencySummary(snapshot.Daemon.Dependencies)
	return snapshot, nil
}

// offlineHeights reads the ledger directly. A missing database yields no
// heights rather than creating one.
func offlineHeights(ctx context.Context, cfg *config.Config) []int64 {
	if _, err := os.Stat(cfg.LedgerPath()); err != nil {
		return nil
	}
	queryCtx, cancel := context.WithTimeout(ctx, offlineQueryTimeout)
	defer cancel()
	store, err := ledger.Open(cfg)
	if err != nil {
		return nil
	}
	defer store.Close()
	heights, err := store.Heights(queryCtx)
	if err != nil {
		return nil
	}
	return heights
}

// ResolveDependencies returns current dependency availability for status output.
func ResolveDependencies(cfg *config.Config) []api.DependencyStatus {
	if cfg == nil {
		return nil
	}
	return api.FromDependencies(preflight.CheckSystemDeps(cfg))
}

// BuildSystemChecks resolves status lines that combine runtime state and
// config checks. When the daemon runs, the IPFS line reflects the supervisor
// state; otherwise the API is probed directly.
func BuildSystemChecks(ctx context.Context, cfg *config.Config, status api.DaemonStatus) []api.StatusLine {
	lines := make([]api.StatusLine, 0, 4)
	if status.Running {
		lines = append(lines, api.StatusLine{Label: "AssetNode", Severity: "ok", Detail: fmt.Sprintf("Running (pid %d)", status.PID)})
		lines = append(lines, ipfsLineFromState(status.IPFS))
	} else {
		lines = append(lines, api.StatusLine{Label: "AssetNode", Severity: "warn", Detail: "Not running (run `assetnode start`)"})
		lines = append(lines, resultLine(preflight.CheckIPFSFromConfig(ctx, cfg), "Disabled"))
	}
	lines = append(lines, resultLine(preflight.CheckChainFromConfig(ctx, cfg), "Static height"))

	ledgerCheck := preflight.CheckDirectoryAccess("Ledger", cfg.Paths.DataDir)
	severity := "error"
	if ledgerCheck.Passed {
		severity = "ok"
	}
	lines = append(lines, api.StatusLine{Label: "Ledger", Severity: severity, Detail: cfg.LedgerPath()})
	return lines
}

func ipfsLineFromState(status api.IPFSStatus) api.StatusLine {
	line := api.StatusLine{Label: "IPFS", Detail: status.State}
	switch {
	case !status.Enabled:
		line.Severity = "info"
		line.Detail = "Disabled"
	case status.State == "connected":
		line.Severity = "ok"
		if status.Version != "" {
			line.Detail = fmt.Sprintf("Connected (v%s)", status.Version)
		}
	case strings.HasSuffix(status.State, "_failed"):
		line.Severity = "error"
	default:
		line.Severity = "warn"
	}
	if status.ForceStopped {
		line.Detail += " (stopped)"
	}
	return line
}

// resultLine renders a check; infoDetail marks a passing result that is
// informational rather than healthy.
func resultLine(result preflight.Result, infoDetail string) api.StatusLine {
	line := api.StatusLine{Label: result.Name, Detail: result.Detail}
	switch {
	case result.Passed && strings.EqualFold(strings.TrimSpace(result.Detail), infoDetail):
		line.Severity = "info"
	case result.Passed:
		line.Severity = "ok"
	case strings.EqualFold(strings.TrimSpace(result.Detail), "Unknown"):
		line.Severity = "info"
	default:
		line.Severity = "warn"
	}
	return line
}

// BuildDependencySummary computes aggregate dependency readiness.
func BuildDependencySummary(deps []api.DependencyStatus) api.DependencySummary {
	if len(deps) == 0 {
		return api.DependencySummary{
			Severity: "info",
			Detail:   "No dependency checks configured",
		}
	}

	missingRequired := 0
	missingOptional := 0
	for _, dep := range deps {
		if dep.Available {
			continue
		}
		if dep.Optional {
			missingOptional++
		} else {
			missingRequired++
		}
	}

	missingCount := missingRequired + missingOptional
	available := len(deps) - missingCount
	severity := "ok"
	if missingRequired > 0 {
		severity = "error"
	} else if missingOptional > 0 {
		severity = "warn"
	}
	detail := fmt.Sprintf("%d/%d available (missing: %d required, %d optional)", available, len(deps), missingRequired, missingOptional)
	if missingCount == 0 {
		detail = fmt.Sprintf("%d/%d available", available, len(deps))
	}

	return api.DependencySummary{
		Total:           len(deps),
		Available:       available,
		MissingRequired: missingRequired,
		MissingOptional: missingOptional,
		Severity:        severity,
		Detail:          detail,
	}
}
