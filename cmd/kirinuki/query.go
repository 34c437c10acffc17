package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hyperjump/kirinuki/internal/cli"
	"github.com/hyperjump/kirinuki/internal/models"
)

// NewQueryCmd queries an index.
func NewQueryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query [text]",
		Short: "Query an index",
		Long: `Return the chunks of an index most similar to the query text, best first.
The text is --text or all remaining arguments joined by spaces.`,
		Example: `  kirinuki query --index text-hash_paragraph quarterly revenue
  kirinuki query --index notes --text "milk" --top-k 3 --min-score 0.2 --output json`,
		RunE: runQuery,
	}
	cmd.Flags().String("index", "", "index name")
	cmd.Flags().String("text", "", "query text")
	cmd.Flags().Int("top-k", 5, "number of results")
	cmd.Flags().Float64("min-score", 0, "drop results scoring below this")
	_ = cmd.MarkFlagRequired("index")
	return cmd
}

func runQuery(cmd *cobra.Command, args []string) error {
	format, err := outputFormat(cmd)
	if err != nil {
		return err
	}
	name, _ := cmd.Flags().GetString("index")
	text, _ := cmd.Flags().GetString("text")
	if text == "" {
		text = strings.TrimSpace(strings.Join(args, " "))
	}
	req := models.QueryRequest{Text: text}
	req.TopK, _ = cmd.Flags().GetInt("top-k")
	if cmd.Flags().Changed("min-score") {
		minScore, _ := cmd.Flags().GetFloat64("min-score")
		req.MinScore = &minScore
	}
	if strings.TrimSpace(req.Text) == "" {
		return fmt.Errorf("query text is required")
	}

	return withBackend(cmd, func(ctx context.Context, b backend) error {
		results, err := b.Query(ctx, name, req)
		if err != nil {
			return fmt.Errorf("query: %w", err)
		}
		return cli.WriteQueryResults(cmd.OutOrStdout(), name, results, format)
	})
}
