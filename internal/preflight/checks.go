package preflight

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/shirou/gopsutil/v3/disk"
	"golang.org/x/sys/unix"

	"assetnode/internal/chain"
	"assetnode/internal/config"
	"assetnode/internal/deps"
	"assetnode/internal/logging"
)

// MinFreeBytes is the free space the data volume needs for the ledger.
const MinFreeBytes = 256 << 20

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckDiskSpace verifies the volume holding path has at least minFree bytes available.
func CheckDiskSpace(name, path string, minFree uint64) Result {
	usage, err := disk.Usage(path)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: usage: %v)", path, err)}
	}
	detail := fmt.Sprintf("%s (%d MiB free, %.1f%% used)", path, usage.Free>>20, usage.UsedPercent)
	if usage.Free < minFree {
		return Result{Name: name, Detail: detail + " below minimum"}
	}
	return Result{Name: name, Passed: true, Detail: detail}
}

// CheckIPFSAPI calls the version endpoint of the IPFS API at baseURL.
func CheckIPFSAPI(ctx context.Context, baseURL string, timeout time.Duration) Result {
	const name = "IPFS API"

	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		return Result{Name: name, Detail: "missing api address"}
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	checkCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(checkCtx, http.MethodPost, base+"/api/v0/version", nil)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("version check failed (%v)", err)}
	}
	resp, err := (&http.Client{Timeout: timeout}).Do(req)
	if err != nil {
		return Result{Name: name, Detail: summarizeNetError(err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Result{Name: name, Detail: fmt.Sprintf("version check failed (%d)", resp.StatusCode)}
	}
	var payload struct {
		Version string `json:"Version"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil || payload.Version == "" {
		return Result{Name: name, Passed: true, Detail: "Reachable"}
	}
	return Result{Name: name, Passed: true, Detail: "Reachable (kubo " + payload.Version + ")"}
}

// CheckChainRPC verifies the node answers getblockcount. It makes a single attempt.
func CheckChainRPC(ctx context.Context, cfg *config.Config) Result {
	const name = "Chain RPC"

	if cfg == nil || strings.TrimSpace(cfg.Chain.RPCURL) == "" {
		return Result{Name: name, Detail: "missing rpc_url"}
	}
	client := chain.NewRPCClient(cfg, logging.NewNop(), chain.WithBackOff(func() backoff.BackOff {
		return &backoff.StopBackOff{}
	}))
	height, err := client.Height(ctx)
	if err != nil {
		var rpcErr *chain.RPCError
		if errors.As(err, &rpcErr) {
			return Result{Name: name, Detail: rpcErr.Error()}
		}
		return Result{Name: name, Detail: summarizeNetError(err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("Reachable (height %d)", height)}
}

// CheckSystemDeps evaluates the external binaries required by the given config.
// Both the daemon and the CLI status command use this to avoid duplicating
// the requirements list.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	if cfg == nil || !cfg.IPFS.Enabled {
		return nil
	}
	return deps.CheckBinaries([]deps.Requirement{
		{
			Name:        "IPFS",
			Command:     cfg.IPFS.Binary,
			Description: "Required to fetch and pin off-chain content",
		},
	})
}

func summarizeNetError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "check timed out (endpoint unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "check timed out (endpoint unreachable)"
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return fmt.Sprintf("unreachable (%v)", opErr.Err)
	}
	return err.Error()
}
