package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/verbex/verbex/internal/query"
	"github.com/verbex/verbex/pkg/verbex"
)

var (
	searchMaxResults int
	searchAndLogic   bool
	searchLabels     []string
	searchTags       []string
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Run a ranked search over the index",
	Long: `Run a ranked search over the index.

Examples:
  verbex search "machine learning" --index articles
  verbex search "fox dog" --and --label animal --index articles
  verbex search "deploy" --tag env=prod --max-results 20`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		tags, err := parseTags(searchTags)
		if err != nil {
			fatalf("%v", err)
		}
		withIndex(func(ctx context.Context, idx *verbex.Index) error {
			resp, err := idx.Search(ctx, query.Request{
				QueryText:   args[0],
				MaxResults:  searchMaxResults,
				UseAndLogic: searchAndLogic,
				Labels:      searchLabels,
				Tags:        tags,
			})
			if err != nil {
				return err
			}
			return printJSON(resp)
		})
	},
}

func init() {
	searchCmd.Flags().IntVar(&searchMaxResults, "max-results", 0, "maximum results to return (0 = default)")
	searchCmd.Flags().BoolVar(&searchAndLogic, "and", false, "require every query term to match (default: any term matches)")
	searchCmd.Flags().StringSliceVar(&searchLabels, "label", nil, "require this label (repeatable)")
	searchCmd.Flags().StringSliceVar(&searchTags, "tag", nil, "require this key=value tag (repeatable)")
}
