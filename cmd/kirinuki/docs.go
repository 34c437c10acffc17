package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hyperjump/kirinuki/internal/cli"
	"github.com/hyperjump/kirinuki/internal/corpus"
	"github.com/hyperjump/kirinuki/internal/models"
)

// NewDocsCmd lists, searches or shows registered documents.
func NewDocsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "docs [id]",
		Aliases: []string{"list"},
		Short:   "List registered documents",
		Long: `List registered documents, search them by name, description and tags with --search,
or show one document by id.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runDocs,
	}
	cmd.Flags().String("search", "", "search query (typos are tolerated)")
	cmd.Flags().Int("limit", 20, "maximum number of search results")
	return cmd
}

func runDocs(cmd *cobra.Command, args []string) error {
	format, err := outputFormat(cmd)
	if err != nil {
		return err
	}
	query, _ := cmd.Flags().GetString("search")
	limit, _ := cmd.Flags().GetInt("limit")

	return withBackend(cmd, func(ctx context.Context, b backend) error {
		if len(args) == 1 {
			doc, err := b.Document(ctx, args[0])
			if err != nil {
				return err
			}
			return cli.WriteDocuments(cmd.OutOrStdout(), &corpus.SearchResult{Documents: []models.Document{*doc}}, format)
		}
		result, err := b.Documents(ctx, query, limit)
		if err != nil {
			return fmt.Errorf("list documents: %w", err)
		}
		return cli.WriteDocuments(cmd.OutOrStdout(), result, format)
	})
}
