package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hyperjump/kirinuki/internal/chunking"
	"github.com/hyperjump/kirinuki/internal/cli"
	"github.com/hyperjump/kirinuki/internal/embedding"
	"github.com/hyperjump/kirinuki/internal/models"
)

// NewIndexCmd builds (or rebuilds) a named index.
func NewIndexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Build an index",
		Long: `Chunk documents with a policy, embed the chunks with a model and store the result
under a name (model_policy by default). An existing index of that name is replaced.

Models: text-hash, text-table, text-image, text-mini, text-e5, text-bge, text-openai.
Policies: sliding, paragraph, document.`,
		Example: `  kirinuki index --model text-hash --policy paragraph
  kirinuki index --model text-mini --policy sliding --window-chars 600 --overlap-chars 100 --name notes
  kirinuki index --model text-hash --policy document --documents a,b`,
		Args: cobra.NoArgs,
		RunE: runIndex,
	}
	cmd.Flags().String("model", embedding.ModelTextHash, "embedding model")
	cmd.Flags().String("policy", chunking.NameParagraph, "chunking policy")
	cmd.Flags().StringSlice("documents", nil, "document ids (all documents when empty)")
	cmd.Flags().Int("window-chars", 0, "sliding window size in characters (config default when 0)")
	cmd.Flags().Int("overlap-chars", 0, "sliding window overlap in characters")
	cmd.Flags().String("name", "", "index name (model_policy when empty)")
	return cmd
}

func runIndex(cmd *cobra.Command, _ []string) error {
	format, err := outputFormat(cmd)
	if err != nil {
		return err
	}
	req := models.BuildRequest{}
	req.Model, _ = cmd.Flags().GetString("model")
	req.Policy, _ = cmd.Flags().GetString("policy")
	req.Documents, _ = cmd.Flags().GetStringSlice("documents")
	req.ChunkConfig.WindowChars, _ = cmd.Flags().GetInt("window-chars")
	req.ChunkConfig.OverlapChars, _ = cmd.Flags().GetInt("overlap-chars")
	req.Name, _ = cmd.Flags().GetString("name")

	return withBackend(cmd, func(ctx context.Context, b backend) error {
		status, err := b.Build(ctx, req)
		if err != nil {
			return fmt.Errorf("build index: %w", err)
		}
		return cli.WriteStatuses(cmd.OutOrStdout(), []models.Status{status}, format)
	})
}
