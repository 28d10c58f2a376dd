package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/verbex/verbex/pkg/verbex"
)

var statsCmd = &cobra.Command{
	Use:   "stats [term]",
	Short: "Show index-wide statistics, or per-term statistics when a term is given",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		withIndex(func(ctx context.Context, idx *verbex.Index) error {
			if len(args) == 1 {
				s, err := idx.TermStats(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSON(s)
			}
			s, err := idx.IndexStats(ctx)
			if err != nil {
				return err
			}
			return printJSON(s)
		})
	},
}
