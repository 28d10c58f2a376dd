package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/verbex/verbex/pkg/verbex"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Manage the lifecycle of the named index",
}

var indexCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new index",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig()
		if err != nil {
			fatalf("config error: %v", err)
		}
		ctx := context.Background()
		idx, err := verbex.CreateIndex(ctx, flagIndexName, cfg)
		if err != nil {
			fatalf("create index %q: %v", flagIndexName, err)
		}
		defer idx.Close(ctx)
		fmt.Printf("created index %q\n", flagIndexName)
	},
}

var indexDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete the named index and its on-disk files",
	Run: func(cmd *cobra.Command, args []string) {
		withIndex(func(ctx context.Context, idx *verbex.Index) error {
			return idx.Delete(ctx)
		})
	},
}

var indexFlushCmd = &cobra.Command{
	Use:   "flush [target_path]",
	Short: "Flush the index, optionally to a target path for in-memory indices",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		target := ""
		if len(args) == 1 {
			target = args[0]
		}
		withIndex(func(ctx context.Context, idx *verbex.Index) error {
			return idx.Flush(ctx, target)
		})
	},
}

var indexCheckpointCmd = &cobra.Command{
	Use:   "checkpoint",
	Short: "Checkpoint the write-ahead log of an on-disk index",
	Run: func(cmd *cobra.Command, args []string) {
		withIndex(func(ctx context.Context, idx *verbex.Index) error {
			return idx.Checkpoint(ctx)
		})
	},
}

func init() {
	indexCmd.AddCommand(indexCreateCmd, indexDeleteCmd, indexFlushCmd, indexCheckpointCmd)
}
