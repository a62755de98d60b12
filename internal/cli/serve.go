package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the bridge HTTP API",
	Run:   runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) {
	app, cfg := newApp()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	src, dst, err := app.Connect(ctx)
	if err != nil {
		// The API still serves status and history; runs fail their precondition check.
		slog.Warn("Wallets not connected", "error", err)
	} else {
		slog.Info("Wallets connected", "source", src.Address, "destination", dst.Address)
	}

	slog.Info("Bridge API starting", "config", cfgPath, "port", cfg.Server.Port)
	serveErr := app.Serve(ctx)
	if serveErr != nil {
		slog.Error("Server stopped", "error", serveErr)
	} else {
		slog.Info("Received signal, shutting down...")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := app.Stop(shutdownCtx); err != nil {
		slog.Error("Error during shutdown", "error", err)
		os.Exit(1)
	}
	if serveErr != nil {
		os.Exit(1)
	}
}
