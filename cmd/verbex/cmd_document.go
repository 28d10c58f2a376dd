package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/verbex/verbex/pkg/verbex"
)

var cmdOut = os.Stdout

var (
	addLabels []string
	addTags   []string
)

var addCmd = &cobra.Command{
	Use:   "add <name> <content>",
	Short: "Add a document to the index",
	Long: `Add a document, optionally attaching labels and key=value tags.

Examples:
  verbex add doc1 "the quick brown fox" --index articles
  verbex add doc2 "deep learning" --label ml --tag env=prod --tag team=search`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		tags, err := parseTags(addTags)
		if err != nil {
			fatalf("%v", err)
		}
		withIndex(func(ctx context.Context, idx *verbex.Index) error {
			id, err := idx.AddDocument(ctx, args[0], args[1], addLabels, tags)
			if err != nil {
				return err
			}
			fmt.Println(id)
			return nil
		})
	},
}

var getCmd = &cobra.Command{
	Use:   "get <document_id>",
	Short: "Fetch a document by id",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		withIndex(func(ctx context.Context, idx *verbex.Index) error {
			view, err := idx.GetDocument(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(view)
		})
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List every document in the index",
	Run: func(cmd *cobra.Command, args []string) {
		withIndex(func(ctx context.Context, idx *verbex.Index) error {
			views, err := idx.ListDocuments(ctx)
			if err != nil {
				return err
			}
			return printJSON(views)
		})
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <document_id>",
	Short: "Delete a document by id",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		withIndex(func(ctx context.Context, idx *verbex.Index) error {
			existed, err := idx.DeleteDocument(ctx, args[0])
			if err != nil {
				return err
			}
			if !existed {
				fmt.Println("not found")
				return nil
			}
			fmt.Println("deleted")
			return nil
		})
	},
}

var labelCmd = &cobra.Command{
	Use:   "label <document_id> <labels...>",
	Short: "Replace a document's labels",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		withIndex(func(ctx context.Context, idx *verbex.Index) error {
			return idx.UpdateDocumentLabels(ctx, args[0], args[1:])
		})
	},
}

var tagCmd = &cobra.Command{
	Use:   "tag <document_id> <key=value...>",
	Short: "Replace a document's tags",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		tags, err := parseTags(args[1:])
		if err != nil {
			fatalf("%v", err)
		}
		withIndex(func(ctx context.Context, idx *verbex.Index) error {
			return idx.UpdateDocumentTags(ctx, args[0], tags)
		})
	},
}

func init() {
	addCmd.Flags().StringSliceVar(&addLabels, "label", nil, "label to attach (repeatable)")
	addCmd.Flags().StringSliceVar(&addTags, "tag", nil, "key=value tag to attach (repeatable)")
}

func parseTags(pairs []string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok {
			return nil, fmt.Errorf("invalid tag %q, expected key=value", p)
		}
		out[k] = v
	}
	return out, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(cmdOut)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
