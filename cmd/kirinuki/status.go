package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hyperjump/kirinuki/internal/cli"
	"github.com/hyperjump/kirinuki/internal/models"
	"github.com/hyperjump/kirinuki/internal/service"
)

// NewStatusCmd shows index statuses and data directory usage.
func NewStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show indexes and document counts",
		Long: `Show every index with its model, policy, document and chunk counts, plus
document count and disk usage. Indexes not in memory are rebuilt from their manifests.`,
		Args: cobra.NoArgs,
		RunE: runStatus,
	}
	cmd.Flags().String("index", "", "show only this index")
	return cmd
}

type statusOutput struct {
	service.Health
	IndexStatuses []models.Status `json:"index_statuses"`
}

func runStatus(cmd *cobra.Command, _ []string) error {
	format, err := outputFormat(cmd)
	if err != nil {
		return err
	}
	name, _ := cmd.Flags().GetString("index")

	return withBackend(cmd, func(ctx context.Context, b backend) error {
		if name != "" {
			st, err := b.Index(ctx, name)
			if err != nil {
				return err
			}
			return cli.WriteStatuses(cmd.OutOrStdout(), []models.Status{st}, format)
		}
		h, err := b.Health(ctx)
		if err != nil {
			return fmt.Errorf("status: %w", err)
		}
		statuses, err := b.Indexes(ctx)
		if err != nil {
			return fmt.Errorf("status: %w", err)
		}
		if format == cli.OutputJSON {
			if statuses == nil {
				statuses = []models.Status{}
			}
			return writeJSON(cmd, statusOutput{Health: h, IndexStatuses: statuses})
		}
		if err := cli.WriteHealth(cmd.OutOrStdout(), h, format); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout())
		return cli.WriteStatuses(cmd.OutOrStdout(), statuses, format)
	})
}
