// Package cli holds the word_mcp_server commands.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is the build version, overridden with -ldflags.
var Version = "1.0.0"

// Execute runs the root command. It is called by main.main().
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "word_mcp_server: %s\n", err)
		os.Exit(1)
	}
}

// NewRootCmd builds the command tree. Without a subcommand it serves.
func NewRootCmd() *cobra.Command {
	opts := &serveOptions{}
	root := &cobra.Command{
		Use:          "word_mcp_server",
		Short:        "MCP server for creating, reading and editing Word documents",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, opts)
		},
	}
	opts.bind(root)

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Serve the Word tools over stdio, SSE or streamable HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, opts)
		},
	}
	opts.bind(serve)

	root.AddCommand(serve, newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "word_mcp_server %s\n", Version)
		},
	}
}
