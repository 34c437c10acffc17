package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hyperjump/kirinuki/internal/cli"
	"github.com/hyperjump/kirinuki/internal/models"
	"github.com/hyperjump/kirinuki/pkg/utils"
)

// NewIngestCmd registers documents from a file, a folder, a URL or inline text.
func NewIngestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest [path]",
		Short: "Register a document",
		Long: `Register a document from a local file, every file below a folder, a URL (downloaded
into the data directory) or inline text.`,
		Example: `  kirinuki ingest ./reports/q3.pdf
  kirinuki ingest --doc-id notes --content "Remember the milk"
  kirinuki ingest --url https://example.com/guide.html --tags web,guide
  kirinuki ingest ./papers`,
		Args: cobra.MaximumNArgs(1),
		RunE: runIngest,
	}
	cmd.Flags().String("doc-id", "", "document id (generated from the name when empty)")
	cmd.Flags().String("path", "", "local file or folder")
	cmd.Flags().String("url", "", "http(s) URL to download")
	cmd.Flags().String("content", "", "inline text")
	cmd.Flags().String("kind", "", "document kind: text, html, pdf, table or image (inferred when empty)")
	cmd.Flags().StringSlice("tags", nil, "comma-separated tags")
	cmd.Flags().String("description", "", "description")
	return cmd
}

func runIngest(cmd *cobra.Command, args []string) error {
	format, err := outputFormat(cmd)
	if err != nil {
		return err
	}
	in := models.DocumentInput{}
	in.ID, _ = cmd.Flags().GetString("doc-id")
	in.Path, _ = cmd.Flags().GetString("path")
	in.URL, _ = cmd.Flags().GetString("url")
	in.Content, _ = cmd.Flags().GetString("content")
	in.Kind, _ = cmd.Flags().GetString("kind")
	in.Tags, _ = cmd.Flags().GetStringSlice("tags")
	in.Description, _ = cmd.Flags().GetString("description")
	if len(args) == 1 {
		if in.Path != "" {
			return fmt.Errorf("give the path either as an argument or with --path")
		}
		in.Path = args[0]
	}

	isDir := false
	if in.Path != "" {
		// The server may run elsewhere in the tree; send it an absolute path.
		abs, err := filepath.Abs(utils.ExpandHome(strings.TrimSpace(in.Path)))
		if err != nil {
			return err
		}
		in.Path = abs
		if info, err := os.Stat(abs); err == nil && info.IsDir() {
			isDir = true
		}
	}

	return withBackend(cmd, func(ctx context.Context, b backend) error {
		if isDir {
			if in.ID != "" || in.URL != "" || in.Content != "" {
				return fmt.Errorf("--doc-id, --url and --content cannot be used with a folder")
			}
			ids, err := b.IngestFolder(ctx, in.Path)
			if err != nil {
				return fmt.Errorf("ingest folder: %w", err)
			}
			if format == cli.OutputJSON {
				if ids == nil {
					ids = []string{}
				}
				return writeJSON(cmd, map[string][]string{"ids": ids})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Registered %d documents from %s\n", len(ids), in.Path)
			for _, id := range ids {
				fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", id)
			}
			return nil
		}
		doc, err := b.Ingest(ctx, in)
		if err != nil {
			return fmt.Errorf("ingest: %w", err)
		}
		return cli.WriteDocument(cmd.OutOrStdout(), doc, format)
	})
}
