package config

const (
	defaultDataDir              = "~/.local/share/assetnode"
	defaultLogDir               = "~/.local/share/assetnode/logs"
	defaultLogRetentionDays     = 30
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
	defaultAPIBind              = "127.0.0.1:7491"
	defaultIPFSBinary           = "ipfs"
	defaultIPFSAPIHost          = "127.0.0.1"
	defaultIPFSAPIPort          = 5001
	defaultIPFSTickInterval     = 30
	defaultIPFSHealthCheckEvery = 10
	defaultIPFSProbeContentID   = "QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG/readme"
	defaultIPFSRequestTimeout   = 30
	defaultIPFSCommandTimeout   = 60
	defaultIPFSShutdownGrace    = 10
	defaultIPFSLauncherWorkers  = 4
	defaultIPFSMaxDataSize      = 16000
	defaultChainRPCURL          = "http://127.0.0.1:8766"
	defaultChainRequestTimeout  = 10
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		IPFS: IPFS{
			Enabled:               true,
			Binary:                defaultIPFSBinary,
			APIHost:               defaultIPFSAPIHost,
			APIPort:               defaultIPFSAPIPort,
			TickIntervalSeconds:   defaultIPFSTickInterval,
			HealthCheckEvery:      defaultIPFSHealthCheckEvery,
			ProbeContentID:        defaultIPFSProbeContentID,
			RequestTimeoutSeconds: defaultIPFSRequestTimeout,
			CommandTimeoutSeconds: defaultIPFSCommandTimeout,
			ShutdownGraceSeconds:  defaultIPFSShutdownGrace,
			LauncherWorkers:       defaultIPFSLauncherWorkers,
			MaxDataSize:           defaultIPFSMaxDataSize,
		},
		Chain: Chain{
			RPCURL:                defaultChainRPCURL,
			AssetIndex:            true,
			RequestTimeoutSeconds: defaultChainRequestTimeout,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
