package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/archway-dev/archway/internal/app"
)

// newCacheCommand creates the cache command with all subcommands.
func newCacheCommand(container *app.Container) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the result cache",
	}

	cacheCmd.AddCommand(
		newCacheStatsCommand(container),
		newCacheClearCommand(container),
	)

	return cacheCmd
}

// newCacheStatsCommand creates the 'cache stats' subcommand.
func newCacheStatsCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show cache settings and entry count",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings := container.Config.Cache
			fmt.Fprintf(cmd.OutOrStdout(), "TTL: %s\nNegative TTL: %s\nMax entries: %d\nCurrent entries: %d\n",
				settings.TTL,
				settings.NegativeTTL,
				settings.MaxEntries,
				container.ResultCache.Len())
			return nil
		},
	}
}

// newCacheClearCommand creates the 'cache clear' subcommand.
func newCacheClearCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Drop all cached results",
		RunE: func(cmd *cobra.Command, args []string) error {
			container.ResultCache.Clear()
			fmt.Fprintln(cmd.OutOrStdout(), "Cache cleared.")
			return nil
		},
	}
}
