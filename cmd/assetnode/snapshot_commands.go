package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"assetnode/internal/ipc"
)

func newSnapshotCommand(ctx *commandContext) *cobra.Command {
	snapshotCmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Manage dividend snapshot checks",
	}
	snapshotCmd.AddCommand(
		newSnapshotCreateCommand(ctx),
		newSnapshotGetCommand(ctx),
		newSnapshotListCommand(ctx),
	)
	return snapshotCmd
}

func newSnapshotCreateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "create <asset_name> <block_height>",
		Short: "Record a snapshot check for an asset at a future block height",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			height, err := parseHeight(args[1])
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *ipc.Client) error {
				msg, err := client.SnapshotCreate(strings.TrimSpace(args[0]), height)
				if err != nil {
					return formatRPCError(err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), msg)
				return nil
			})
		},
	}
}

func newSnapshotGetCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "get <block_height>",
		Short: "List the assets with snapshot checks at a block height",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			height, err := parseHeight(args[0])
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *ipc.Client) error {
				names, err := client.SnapshotGet(height)
				if err != nil {
					return formatRPCError(err)
				}
				if asJSON {
					return writeJSON(cmd, names)
				}
				out := cmd.OutOrStdout()
				if len(names) == 0 {
					fmt.Fprintf(out, "No snapshot checks at height %d\n", height)
					return nil
				}
				fmt.Fprint(out, renderAssets(names))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit asset names as a JSON array")
	return cmd
}

func newSnapshotListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List block heights that have snapshot checks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				heights, err := client.SnapshotList()
				if err != nil {
					return formatRPCError(err)
				}
				out := cmd.OutOrStdout()
				if len(heights) == 0 {
					fmt.Fprintln(out, "No snapshot checks recorded")
					return nil
				}
				fmt.Fprint(out, renderHeights(heights))
				return nil
			})
		},
	}
}

func parseHeight(raw string) (int64, error) {
	height, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("block_height must be an integer: %q", raw)
	}
	return height, nil
}
