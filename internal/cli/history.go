package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/vietddude/bridge/internal/core/domain"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "Show journaled bridge runs",
	Args:  cobra.MaximumNArgs(1),
	Run:   runHistory,
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "number of runs to list")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) {
	app, _ := newApp()
	defer func() {
		_ = app.Stop(context.Background())
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	journal := app.Journal()
	if len(args) == 1 {
		id, err := uuid.Parse(args[0])
		if err != nil {
			slog.Error("Invalid run id", "id", args[0], "error", err)
			os.Exit(1)
		}
		run, err := journal.Get(ctx, id)
		if err != nil {
			slog.Error("Failed to load run", "id", id, "error", err)
			os.Exit(1)
		}
		printRun(run)
		return
	}

	runs, err := journal.List(ctx, historyLimit)
	if err != nil {
		slog.Error("Failed to list runs", "error", err)
		os.Exit(1)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "ID\tSTARTED\tAMOUNT\tSTATE\tFAILED STEP\tREASON")
	for _, run := range runs {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			run.ID,
			run.StartedAt.Format(time.RFC3339),
			run.SourceAmount,
			run.Outcome.State,
			failedStep(run),
			run.Outcome.Reason,
		)
	}
	_ = w.Flush()
}

func failedStep(run domain.Run) string {
	if run.Outcome.FailedStep == "" {
		return "-"
	}
	return string(run.Outcome.FailedStep)
}
