package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"assetnode/internal/config"
	"assetnode/internal/ipc"
	"assetnode/internal/ipfs"
)

func newIPFSCommand(ctx *commandContext) *cobra.Command {
	ipfsCmd := &cobra.Command{
		Use:   "ipfs",
		Short: "Control the supervised IPFS daemon and its content",
	}
	ipfsCmd.AddCommand(
		newIPFSStartCommand(ctx),
		newIPFSStopCommand(ctx),
		newIPFSStateCommand(ctx),
		newIPFSFetchCommand(ctx),
		newIPFSAddCommand(ctx),
		newIPFSAddFileCommand(ctx),
		newIPFSPinCommand(ctx),
		newIPFSStatCommand(ctx),
		newIPFSCheckHashCommand(),
	)
	return ipfsCmd
}

func newIPFSStartCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the IPFS supervisor loop",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.IPFSStart()
				if err != nil {
					return err
				}
				if !resp.OK {
					return fmt.Errorf("ipfs start: %s", resp.Message)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "IPFS supervisor started (state: %s)\n", stateLabel(resp.State))
				return nil
			})
		},
	}
}

func newIPFSStopCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Force-stop the IPFS supervisor and shut the IPFS daemon down",
		Long:  "Force-stop the IPFS supervisor and shut the IPFS daemon down. The supervisor stays stopped until the assetnode daemon restarts.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.IPFSStop()
				if err != nil {
					return err
				}
				if !resp.OK {
					return fmt.Errorf("ipfs stop: %s", resp.Message)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "IPFS supervisor stopped")
				return nil
			})
		},
	}
}

func newIPFSStateCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "state",
		Short: "Show the IPFS lifecycle state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				status, err := client.Status()
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, status.IPFS)
				}
				fmt.Fprint(cmd.OutOrStdout(), renderFields(ipfsStatusRows(status.IPFS)))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit the state as JSON")
	return cmd
}

func newIPFSFetchCommand(ctx *commandContext) *cobra.Command {
	var outputPath string
	cmd := &cobra.Command{
		Use:   "fetch <content-id>",
		Short: "Fetch content by id and write it to stdout or a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				data, err := client.Fetch(strings.TrimSpace(args[0]))
				if err != nil {
					return err
				}
				if outputPath == "" {
					_, err = cmd.OutOrStdout().Write(data)
					return err
				}
				target, err := config.ExpandPath(outputPath)
				if err != nil {
					return fmt.Errorf("resolve output path: %w", err)
				}
				if err := os.WriteFile(target, data, 0o644); err != nil {
					return fmt.Errorf("write output: %w", err)
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %d bytes to %s\n", len(data), target)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Write content to this file instead of stdout")
	return cmd
}

func newIPFSAddCommand(ctx *commandContext) *cobra.Command {
	var pin bool
	cmd := &cobra.Command{
		Use:   "add <text>",
		Short: "Store text content and print its content id",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Add([]byte(strings.Join(args, " ")), pin)
				if err != nil {
					return err
				}
				printAddResult(cmd, resp.Hash, resp.Size, pin, resp.Pinned)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&pin, "pin", false, "Pin the content after adding it")
	return cmd
}

func newIPFSAddFileCommand(ctx *commandContext) *cobra.Command {
	var pin bool
	cmd := &cobra.Command{
		Use:   "add-file <path>",
		Short: "Store a file and print its content id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.ExpandPath(args[0])
			if err != nil {
				return fmt.Errorf("resolve path: %w", err)
			}
			abs, err := filepath.Abs(path)
			if err != nil {
				return fmt.Errorf("resolve path: %w", err)
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.AddFile(abs, pin)
				if err != nil {
					return err
				}
				printAddResult(cmd, resp.Hash, resp.Size, pin, resp.Pinned)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&pin, "pin", false, "Pin the content after adding it")
	return cmd
}

func printAddResult(cmd *cobra.Command, hash string, size int64, pinRequested, pinned bool) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s (%d bytes)\n", hash, size)
	if pinRequested && !pinned {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: content added but pin failed; run `assetnode ipfs pin %s`\n", hash)
	}
}

func newIPFSPinCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "pin <content-id>",
		Short: "Pin content on the local IPFS node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				if _, err := client.Pin(strings.TrimSpace(args[0])); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Pinned %s\n", strings.TrimSpace(args[0]))
				return nil
			})
		},
	}
}

func newIPFSStatCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stat <content-id>",
		Short: "Show the cumulative size of content",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Stat(strings.TrimSpace(args[0]))
				if err != nil {
					return err
				}
				rows := [][]string{
					{"Content ID", resp.ContentID},
					{"Cumulative size", strconv.FormatInt(resp.CumulativeSize, 10)},
				}
				fmt.Fprint(cmd.OutOrStdout(), renderFields(rows))
				return nil
			})
		},
	}
}

func newIPFSCheckHashCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "check-hash <content-id>",
		Short:       "Validate a content id without contacting the daemon",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := ipfs.ValidateHash(strings.TrimSpace(args[0])); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "valid")
			return nil
		},
	}
}
