package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeIPFS()
	c.normalizeChain()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	if c.Paths.APIToken == "" {
		if value, ok := os.LookupEnv("ASSETNODE_API_TOKEN"); ok {
			c.Paths.APIToken = strings.TrimSpace(value)
		}
	}
	return nil
}

func (c *Config) normalizeIPFS() {
	c.IPFS.Binary = strings.TrimSpace(c.IPFS.Binary)
	if c.IPFS.Binary == "" {
		c.IPFS.Binary = defaultIPFSBinary
	}
	c.IPFS.APIHost = strings.TrimSpace(c.IPFS.APIHost)
	if c.IPFS.APIHost == "" {
		c.IPFS.APIHost = defaultIPFSAPIHost
	}
	c.IPFS.ProbeContentID = strings.TrimSpace(c.IPFS.ProbeContentID)
	if c.IPFS.ProbeContentID == "" {
		c.IPFS.ProbeContentID = defaultIPFSProbeContentID
	}
	if c.IPFS.LauncherWorkers <= 0 {
		c.IPFS.LauncherWorkers = defaultIPFSLauncherWorkers
	}
}

func (c *Config) normalizeChain() {
	c.Chain.RPCURL = strings.TrimRight(strings.TrimSpace(c.Chain.RPCURL), "/")
	if c.Chain.RPCUser == "" {
		if value, ok := os.LookupEnv("ASSETNODE_CHAIN_RPC_USER"); ok {
			c.Chain.RPCUser = strings.TrimSpace(value)
		}
	}
	if c.Chain.RPCPassword == "" {
		if value, ok := os.LookupEnv("ASSETNODE_CHAIN_RPC_PASSWORD"); ok {
			c.Chain.RPCPassword = value
		}
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
