package commands

import (
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/doeshing/euca-validator/internal/app"
	"github.com/doeshing/euca-validator/internal/domain"
	"github.com/doeshing/euca-validator/internal/ports"
)

// NewHistoryCommand creates the history command with all subcommands
func NewHistoryCommand(factory app.Factory) *cobra.Command {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect recorded validation runs",
	}

	historyCmd.AddCommand(
		newHistoryListCommand(factory),
		newHistoryClearCommand(factory),
	)

	return historyCmd
}

// newHistoryListCommand creates the 'history list' subcommand
func newHistoryListCommand(factory app.Factory) *cobra.Command {
	var (
		limit      int
		failedOnly bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent validation runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := factory(cmd.Context())
			if err != nil {
				return err
			}
			defer container.Close()
			return listRuns(cmd.OutOrStdout(), container.HistoryStore, limit, failedOnly)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", DefaultHistoryLimit, "Max runs to show")
	cmd.Flags().BoolVar(&failedOnly, "failed", false, "Only show failed runs")
	return cmd
}

// newHistoryClearCommand creates the 'history clear' subcommand
func newHistoryClearCommand(factory app.Factory) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete all recorded runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := factory(cmd.Context())
			if err != nil {
				return err
			}
			defer container.Close()
			return clearRuns(cmd.OutOrStdout(), container.HistoryStore)
		},
	}
}

// listRuns prints one line per recorded run
func listRuns(out io.Writer, store ports.HistoryRepository, limit int, failedOnly bool) error {
	if store == nil {
		return errors.New(ErrHistoryStoreUnavailable)
	}

	records, err := store.Records(limit, failedOnly)
	if err != nil {
		return fmt.Errorf("failed to retrieve history records: %w", err)
	}
	if len(records) == 0 {
		fmt.Fprintln(out, MsgNoHistoryRecorded)
		return nil
	}

	for _, rec := range records {
		fmt.Fprintf(out, "%s | %s | %s | %s | %dms\n",
			rec.Timestamp.Format(TimestampFormat),
			rec.Stage,
			roleLabel(rec),
			statusLabel(rec),
			rec.DurationMS)
	}
	return nil
}

// clearRuns empties the history store
func clearRuns(out io.Writer, store ports.HistoryRepository) error {
	if store == nil {
		return errors.New(ErrHistoryStoreUnavailable)
	}
	if err := store.Clear(); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	fmt.Fprintln(out, MsgHistoryCleared)
	return nil
}

func roleLabel(rec domain.RunRecord) string {
	if rec.Traverse {
		return rec.Role + " (traverse)"
	}
	return rec.Role
}

func statusLabel(rec domain.RunRecord) string {
	if !rec.Failed {
		return color.GreenString("PASS")
	}
	noun := "failures"
	if rec.FailureCount == 1 {
		noun = "failure"
	}
	return color.RedString("FAIL") + fmt.Sprintf(" (%d %s)", rec.FailureCount, noun)
}
