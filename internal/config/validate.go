package config

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateIPFS(); err != nil {
		return err
	}
	if err := c.validateChain(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateIPFS() error {
	if c.IPFS.APIPort <= 0 || c.IPFS.APIPort > 65535 {
		return fmt.Errorf("ipfs.api_port must be between 1 and 65535 (got %d)", c.IPFS.APIPort)
	}
	if err := ensurePositiveMap(map[string]int{
		"ipfs.tick_interval_seconds":   c.IPFS.TickIntervalSeconds,
		"ipfs.health_check_every":      c.IPFS.HealthCheckEvery,
		"ipfs.request_timeout_seconds": c.IPFS.RequestTimeoutSeconds,
		"ipfs.command_timeout_seconds": c.IPFS.CommandTimeoutSeconds,
		"ipfs.max_data_size":           c.IPFS.MaxDataSize,
	}); err != nil {
		return err
	}
	if c.IPFS.ShutdownGraceSeconds < 0 {
		return errors.New("ipfs.shutdown_grace_seconds must not be negative")
	}
	return nil
}

func (c *Config) validateChain() error {
	if c.Chain.RPCURL != "" {
		parsed, err := url.Parse(c.Chain.RPCURL)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("chain.rpc_url must be an absolute http(s) URL (got %q)", c.Chain.RPCURL)
		}
	}
	if c.Chain.StaticHeight < 0 {
		return errors.New("chain.static_height must not be negative")
	}
	if c.Chain.RequestTimeoutSeconds <= 0 {
		return errors.New("chain.request_timeout_seconds must be positive")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if values[key] <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
