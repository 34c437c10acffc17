package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

// NewResetCmd drops one index or all of them.
func NewResetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Drop an index",
		Long:  `Drop one index (--index) or every index (--all). Registered documents are kept.`,
		Args:  cobra.NoArgs,
		RunE:  runReset,
	}
	cmd.Flags().String("index", "", "index to drop")
	cmd.Flags().Bool("all", false, "drop every index")
	return cmd
}

func runReset(cmd *cobra.Command, _ []string) error {
	name, _ := cmd.Flags().GetString("index")
	all, _ := cmd.Flags().GetBool("all")
	if (name == "") == !all {
		return errors.New("give exactly one of --index or --all")
	}

	return withBackend(cmd, func(ctx context.Context, b backend) error {
		if all {
			if err := b.ResetAll(ctx); err != nil {
				return fmt.Errorf("reset: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "All indexes dropped")
			return nil
		}
		if err := b.Reset(ctx, name); err != nil {
			return fmt.Errorf("reset: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Index %s dropped\n", name)
		return nil
	})
}
