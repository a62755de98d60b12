package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var accountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "Connect both wallets and print their addresses",
	Run:   runAccounts,
}

func init() {
	rootCmd.AddCommand(accountsCmd)
}

func runAccounts(cmd *cobra.Command, args []string) {
	app, _ := newApp()
	defer func() {
		_ = app.Stop(context.Background())
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	src, dst, err := app.Connect(ctx)
	if !src.IsZero() {
		fmt.Printf("source      %s\n", src.Address)
	}
	if !dst.IsZero() {
		fmt.Printf("destination %s\n", dst.Address)
	}
	if err != nil {
		slog.Error("Failed to connect wallets", "error", err)
		os.Exit(1)
	}
}
