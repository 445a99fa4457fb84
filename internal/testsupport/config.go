package testsupport

import (
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"assetnode/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// The chain height comes from a static value so no node is contacted, and the
// HTTP API binds to an ephemeral port.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.APIBind = "127.0.0.1:0"
	cfgVal.Chain.RPCURL = ""
	cfgVal.Chain.StaticHeight = 100
	cfgVal.IPFS.ShutdownGraceSeconds = 1

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithIPFSDisabled turns the IPFS feature gate off.
func WithIPFSDisabled() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.IPFS.Enabled = false
	}
}

// WithIPFSAPI points the IPFS client at rawURL, typically an httptest server.
func WithIPFSAPI(rawURL string) ConfigOption {
	return func(b *configBuilder) {
		parsed, err := url.Parse(rawURL)
		if err != nil {
			b.t.Fatalf("parse ipfs api url: %v", err)
		}
		host, portText, err := net.SplitHostPort(parsed.Host)
		if err != nil {
			b.t.Fatalf("split ipfs api host: %v", err)
		}
		port, err := strconv.Atoi(portText)
		if err != nil {
			b.t.Fatalf("parse ipfs api port: %v", err)
		}
		b.cfg.IPFS.APIHost = host
		b.cfg.IPFS.APIPort = port
	}
}

// WithChainHeight fixes the chain tip reported to the snapshot service.
func WithChainHeight(height int64) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Chain.RPCURL = ""
		b.cfg.Chain.StaticHeight = height
	}
}

// WithAssetIndex toggles the asset index gate.
func WithAssetIndex(enabled bool) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Chain.AssetIndex = enabled
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, the ipfs binary is stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"ipfs"}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		script := []byte("#!/bin/sh\nexit 0\n")
		for _, name := range names {
			target := filepath.Join(binDir, name)
			if err := os.WriteFile(target, script, 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
		}
		b.t.Setenv("PATH", binDir+string(os.PathListSeparator)+os.Getenv("PATH"))
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
