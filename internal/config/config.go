package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	DataDir  string `toml:"data_dir"`
	LogDir   string `toml:"log_dir"`
	APIBind  string `toml:"api_bind"`
	APIToken string `toml:"api_token"`
}

// IPFS contains configuration for the supervised IPFS daemon and its HTTP API.
type IPFS struct {
	Enabled               bool   `toml:"enabled"`
	Binary                string `toml:"binary"`
	APIHost               string `toml:"api_host"`
	APIPort               int    `toml:"api_port"`
	TickIntervalSeconds   int    `toml:"tick_interval_seconds"`
	HealthCheckEvery      int    `toml:"health_check_every"`
	ProbeContentID        string `toml:"probe_content_id"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
	CommandTimeoutSeconds int    `toml:"command_timeout_seconds"`
	ShutdownGraceSeconds  int    `toml:"shutdown_grace_seconds"`
	LauncherWorkers       int    `toml:"launcher_workers"`
	MaxDataSize           int    `toml:"max_data_size"`
}

// Chain contains configuration for the full node whose chain tip gates snapshot checks.
type Chain struct {
	RPCURL                string `toml:"rpc_url"`
	RPCUser               string `toml:"rpc_user"`
	RPCPassword           string `toml:"rpc_password"`
	StaticHeight          int64  `toml:"static_height"`
	AssetIndex            bool   `toml:"asset_index"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for assetnode.
//
// Configuration sections by subsystem:
//   - Paths: data/log directories and HTTP API bind address
//   - IPFS: feature gate, daemon binary, API endpoint, supervisor cadence
//   - Chain: full node RPC used for the current block height
//   - Logging: log format, level, and retention
type Config struct {
	Paths   Paths   `toml:"paths"`
	IPFS    IPFS    `toml:"ipfs"`
	Chain   Chain   `toml:"chain"`
	Logging Logging `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/assetnode/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("assetnode.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// SocketPath returns the IPC socket location for the daemon.
func (c *Config) SocketPath() string {
	return filepath.Join(c.Paths.LogDir, "assetnode.sock")
}

// LedgerPath returns the SQLite database holding snapshot checks.
func (c *Config) LedgerPath() string {
	return filepath.Join(c.Paths.DataDir, "dividends.db")
}

// IPFSAPIAddress returns the host:port of the IPFS daemon HTTP API.
func (c *Config) IPFSAPIAddress() string {
	return fmt.Sprintf("%s:%d", c.IPFS.APIHost, c.IPFS.APIPort)
}

// TickInterval returns the supervisor loop interval.
func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.IPFS.TickIntervalSeconds) * time.Second
}

// IPFSRequestTimeout returns the HTTP timeout for IPFS API calls.
func (c *Config) IPFSRequestTimeout() time.Duration {
	return time.Duration(c.IPFS.RequestTimeoutSeconds) * time.Second
}

// IPFSCommandTimeout bounds one-shot ipfs CLI invocations (version, init, shutdown).
func (c *Config) IPFSCommandTimeout() time.Duration {
	return time.Duration(c.IPFS.CommandTimeoutSeconds) * time.Second
}

// IPFSShutdownGrace is how long a stopped daemon may linger before its process group is signalled.
func (c *Config) IPFSShutdownGrace() time.Duration {
	return time.Duration(c.IPFS.ShutdownGraceSeconds) * time.Second
}

// ChainRequestTimeout returns the per-request timeout for the chain RPC.
func (c *Config) ChainRequestTimeout() time.Duration {
	return time.Duration(c.Chain.RequestTimeoutSeconds) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
