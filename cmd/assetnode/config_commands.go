package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"assetnode/internal/config"
	"assetnode/internal/preflight"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and scaffold the assetnode configuration",
	}
	configCmd.AddCommand(newConfigInitCommand())
	configCmd.AddCommand(newConfigValidateCommand(ctx))
	configCmd.AddCommand(newConfigShowCommand(ctx))
	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Write a sample configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := initTarget(targetPath)
			if err != nil {
				return err
			}
			if err := writeSampleConfig(target, overwrite); err != nil {
				return err
			}
			cfg, _, _, err := config.Load(target)
			if err != nil {
				return fmt.Errorf("reload sample config: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Sample configuration written to %s\n", target)
			printInitHints(out, cfg)
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Where to write the file (default ~/.config/assetnode/config.toml)")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace an existing file")
	return cmd
}

func initTarget(flagValue string) (string, error) {
	if path := strings.TrimSpace(flagValue); path != "" {
		expanded, err := config.ExpandPath(path)
		if err != nil {
			return "", fmt.Errorf("resolve config path: %w", err)
		}
		return expanded, nil
	}
	path, err := config.DefaultConfigPath()
	if err != nil {
		return "", fmt.Errorf("determine default config path: %w", err)
	}
	return path, nil
}

func writeSampleConfig(target string, overwrite bool) error {
	if !overwrite {
		_, err := os.Stat(target)
		switch {
		case err == nil:
			return fmt.Errorf("%s already exists; pass --overwrite to replace it", target)
		case !errors.Is(err, os.ErrNotExist):
			return fmt.Errorf("inspect %s: %w", target, err)
		}
	}
	if err := config.CreateSample(target); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// printInitHints lists the settings a fresh sample still needs.
func printInitHints(out io.Writer, cfg *config.Config) {
	var hints []string
	if strings.TrimSpace(cfg.Chain.RPCURL) == "" {
		hints = append(hints, "[chain] rpc_url is empty; snapshot heights are checked against a static tip")
	}
	if !cfg.Chain.AssetIndex {
		hints = append(hints, "[chain] asset_index is off; snapshot requests will be refused")
	}
	if cfg.IPFS.Enabled {
		hints = append(hints, fmt.Sprintf("[ipfs] expects %q on PATH and an API at %s", cfg.IPFS.Binary, cfg.IPFSAPIAddress()))
	}
	if len(hints) == 0 {
		return
	}
	fmt.Fprintln(out, "Before starting the daemon:")
	for _, hint := range hints {
		fmt.Fprintf(out, "  - %s\n", hint)
	}
}

func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	var checkReachability bool

	cmd := &cobra.Command{
		Use:         "validate",
		Short:       "Load the configuration and report the effective settings",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, exists, err := config.Load(ctx.configPath())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return fmt.Errorf("ensure directories: %w", err)
			}

			out := cmd.OutOrStdout()
			source := path
			if !exists {
				source = path + " (not found, using defaults)"
			}
			rows := append([][]string{{"Source", source}}, settingRows(cfg)...)
			var failed []string
			if checkReachability {
				checkRows, bad := reachabilityRows(cmd.Context(), cfg)
				rows = append(rows, checkRows...)
				failed = bad
			}
			fmt.Fprint(out, renderFields(rows))
			if len(failed) > 0 {
				return fmt.Errorf("configuration loaded but %s unreachable", strings.Join(failed, " and "))
			}
			fmt.Fprintln(out, "Configuration OK")
			return nil
		},
	}

	cmd.Flags().BoolVar(&checkReachability, "check", false, "Also contact the chain node and IPFS API")
	return cmd
}

func settingRows(cfg *config.Config) [][]string {
	chainSource := "static tip"
	if rpc := strings.TrimSpace(cfg.Chain.RPCURL); rpc != "" {
		chainSource = rpc
	}
	return [][]string{
		{"Data dir", cfg.Paths.DataDir},
		{"Log dir", cfg.Paths.LogDir},
		{"HTTP API", cfg.Paths.APIBind},
		{"Chain", chainSource},
		{"Asset index", yesNo(cfg.Chain.AssetIndex)},
		{"IPFS", ipfsSetting(cfg)},
	}
}

func ipfsSetting(cfg *config.Config) string {
	if !cfg.IPFS.Enabled {
		return "disabled"
	}
	return fmt.Sprintf("%s via %s", cfg.IPFS.Binary, cfg.IPFSAPIAddress())
}

// reachabilityRows runs the chain and IPFS checks and names the ones that failed.
func reachabilityRows(ctx context.Context, cfg *config.Config) ([][]string, []string) {
	results := []preflight.Result{
		preflight.CheckChainFromConfig(ctx, cfg),
		preflight.CheckIPFSFromConfig(ctx, cfg),
	}
	rows := make([][]string, 0, len(results))
	var failed []string
	for _, r := range results {
		mark := "ok"
		if !r.Passed {
			mark = "FAIL"
			failed = append(failed, r.Name)
		}
		rows = append(rows, []string{r.Name + " check", fmt.Sprintf("%s: %s", mark, r.Detail)})
	}
	return rows, failed
}

func newConfigShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as TOML",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			data, err := toml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("encode config: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}
