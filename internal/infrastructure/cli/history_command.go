package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/archway-dev/archway/internal/app"
	"github.com/archway-dev/archway/internal/domain"
)

const (
	defaultHistoryLimit  = 20
	msgNoHistoryRecorded = "No analyses recorded yet."
)

// newHistoryCommand creates the history command with all subcommands.
func newHistoryCommand(container *app.Container) *cobra.Command {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect recorded analyses",
	}

	historyCmd.AddCommand(
		newHistoryListCommand(container),
		newHistoryShowCommand(container),
		newHistoryDeleteCommand(container),
		newHistoryExportCommand(container),
	)

	return historyCmd
}

// newHistoryListCommand creates the 'history list' subcommand.
func newHistoryListCommand(container *app.Container) *cobra.Command {
	var (
		limit    int
		filePath string
		since    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent analyses, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := domain.HistoryFilter{FilePath: filePath, Limit: limit}
			if since > 0 {
				filter.Since = time.Now().Add(-since)
			}
			records, err := container.HistoryStore.List(cmd.Context(), filter)
			if err != nil {
				return fmt.Errorf("failed to retrieve history records: %w", err)
			}
			if len(records) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), msgNoHistoryRecorded)
				return nil
			}
			for _, rec := range records {
				fmt.Fprintf(cmd.OutOrStdout(), "%s | %s | %s | %s\n",
					rec.AnalysisID,
					humanize.Time(rec.Timestamp),
					rec.Kind,
					rec.Summary)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", defaultHistoryLimit, "Max entries to show")
	cmd.Flags().StringVar(&filePath, "file", "", "Only analyses covering this file path")
	cmd.Flags().DurationVar(&since, "since", 0, "Only analyses newer than this age (e.g. 24h)")
	return cmd
}

// newHistoryShowCommand creates the 'history show' subcommand.
func newHistoryShowCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show the full payload of one analysis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := container.HistoryStore.Get(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("failed to retrieve analysis %s: %w", args[0], err)
			}
			return renderHistoryRecord(cmd.OutOrStdout(), rec)
		},
	}
}

// newHistoryDeleteCommand creates the 'history delete' subcommand.
func newHistoryDeleteCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Remove one analysis from listings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := container.HistoryStore.Delete(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("failed to delete analysis %s: %w", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s.\n", args[0])
			return nil
		},
	}
}

// newHistoryExportCommand creates the 'history export' subcommand.
func newHistoryExportCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "export <path>",
		Short: "Export history to a JSONL file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := container.HistoryStore.ExportJSON(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("failed to export history to %s: %w", args[0], err)
			}
			return nil
		},
	}
}

func renderHistoryRecord(out io.Writer, rec domain.HistoryRecord) error {
	fmt.Fprintf(out, "ID:        %s\n", rec.AnalysisID)
	fmt.Fprintf(out, "Kind:      %s\n", rec.Kind)
	fmt.Fprintf(out, "When:      %s (%s)\n", rec.Timestamp.Format(time.RFC3339), humanize.Time(rec.Timestamp))
	if len(rec.FilePaths) > 0 {
		fmt.Fprintf(out, "Files:     %v\n", rec.FilePaths)
	}

	var sections []domain.Section
	if err := json.Unmarshal([]byte(rec.Payload), &sections); err != nil {
		// Old or hand-edited rows may carry a non-section payload.
		fmt.Fprintln(out)
		fmt.Fprintln(out, rec.Payload)
		return nil
	}
	for _, s := range sections {
		fmt.Fprintf(out, "\n%s\n", s.Title)
		fmt.Fprintln(out, s.Body)
	}
	return nil
}
