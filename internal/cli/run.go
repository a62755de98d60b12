package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vietddude/bridge/internal/core/amount"
	"github.com/vietddude/bridge/internal/core/domain"
)

var amountArg string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Bridge an ETH amount to Sui",
	Long: `Run connects both wallets and executes convert, approve, transfer and mint in order.
The first interrupt stops the run before its next step; a second one aborts immediately.`,
	Run: runBridge,
}

func init() {
	runCmd.Flags().StringVar(&amountArg, "amount", "", "ETH amount to bridge, e.g. 0.5")
	_ = runCmd.MarkFlagRequired("amount")
	rootCmd.AddCommand(runCmd)
}

func runBridge(cmd *cobra.Command, args []string) {
	app, _ := newApp()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	src, dst, err := app.Connect(ctx)
	if err != nil {
		slog.Error("Failed to connect wallets", "error", err)
		os.Exit(1)
	}
	slog.Info("Wallets connected", "source", src.Address, "destination", dst.Address)

	orch := app.Orchestrator()
	sigChan := make(chan os.Signal, 2)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		sig, ok := <-sigChan
		if !ok {
			return
		}
		slog.Warn("Received signal, stopping before the next step", "signal", sig)
		orch.Cancel()
		if _, ok := <-sigChan; ok {
			slog.Warn("Aborting run")
			cancel()
		}
	}()

	run, runErr := orch.Execute(ctx, domain.Request{
		SourceAmount: amountArg,
		Source:       src,
		Destination:  dst,
	})

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := app.Stop(shutdownCtx); err != nil {
		slog.Error("Error during shutdown", "error", err)
	}

	printRun(run)
	if runErr != nil {
		os.Exit(1)
	}
}

func printRun(run domain.Run) {
	fmt.Printf("Run %s: %s\n", run.ID, run.Outcome.State)
	for _, step := range run.Steps {
		line := fmt.Sprintf("  %-9s %-10s", step.Kind, step.Status)
		if step.Amount != nil {
			line += " " + amount.FormatNative(step.Amount, amount.NativeDecimals)
		}
		if step.TxID != "" {
			line += " " + step.TxID
		}
		fmt.Println(line)
	}
	if run.Outcome.State == domain.OutcomeFailed {
		fmt.Printf("Reason: %s\n", run.Outcome.Reason)
	}
}
