// Package main provides the entry point for the graphctl CLI application.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"allie-graph/pkg/logger"
)

var version = "0.1.0-dev"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	if err := logger.Init(os.Getenv("ENV")); err != nil {
		return err
	}
	defer logger.Sync()

	rootCmd := &cobra.Command{
		Use:     "graphctl",
		Short:   "Manage family knowledge graphs, migration and entity resolution",
		Version: version,
	}

	rootCmd.AddCommand(
		newSchemaCmd(),
		newLoadCmd(),
		newMigrateCmd(),
		newValidateCmd(),
		newDuplicatesCmd(),
		newResolveCmd(),
		newInsightsCmd(),
		newQueryCmd(),
	)

	return rootCmd.ExecuteContext(ctx)
}
