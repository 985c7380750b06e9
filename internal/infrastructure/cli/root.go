// Package cli wires the cobra command tree over the application container.
package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/archway-dev/archway/internal/app"
)

// Options holds CLI-level configuration.
type Options struct {
	Verbose bool
}

// NewRootCmd wires the cobra root command.
func NewRootCmd(ctx context.Context, opts Options) (*cobra.Command, error) {
	container, err := app.BuildContainer(ctx, opts.Verbose)
	if err != nil {
		return nil, err
	}

	root := &cobra.Command{
		Use:   "archway",
		Short: "Archway - code analysis orchestrator",
		Long:  "Archway routes code analysis requests to local, cloud, and code-search backends with caching, rate limiting, and durable history.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return container.Close()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newAnalyzeCommand(container))
	root.AddCommand(newHistoryCommand(container))
	root.AddCommand(newCacheCommand(container))
	root.AddCommand(newModelsCommand(container))
	root.AddCommand(newConfigCommand(container))
	return root, nil
}
