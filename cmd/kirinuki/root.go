package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const defaultConfigPath = "config.yaml"

// NewRootCmd builds the command tree.
func NewRootCmd(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "kirinuki",
		Short:         "Chunked document indexes with pluggable embeddings",
		Long:          `Register documents, build named vector indexes over their chunks, and query them by similarity.`,
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		Run: func(cmd *cobra.Command, _ []string) {
			_ = cmd.Help()
		},
	}

	addPersistentFlags(rootCmd)
	rootCmd.AddCommand(
		NewIngestCmd(),
		NewDocsCmd(),
		NewIndexCmd(),
		NewQueryCmd(),
		NewStatusCmd(),
		NewResetCmd(),
		NewServeCmd(),
		NewVersionCmd(version),
	)
	return rootCmd
}

func addPersistentFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().String("config", defaultConfigPath, "config file path (defaults are used when it does not exist)")
	cmd.PersistentFlags().String("data", "", "data directory (overrides storage.data_dir)")
	cmd.PersistentFlags().String("output", "text", "output format: text or json")
	cmd.PersistentFlags().String("server", os.Getenv("KIRINUKI_SERVER"), "URL of a running kirinuki server (empty = open the data directory directly)")
	cmd.PersistentFlags().Bool("debug", false, "enable debug logging")
}

// NewVersionCmd prints the build version.
func NewVersionCmd(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "kirinuki version %s\n", version)
		},
	}
}
