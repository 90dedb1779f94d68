package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Create graph store constraints and indexes",
		Long: `Connect to Neo4j and create uniqueness constraints, property
indexes and fulltext indexes for every entity type.

Safe to re-run; existing constraints and indexes are kept.

Examples:
  graphctl schema`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd.Context(), func(ctx context.Context, s *services) error {
				if err := s.graph.Initialize(ctx); err != nil {
					return fmt.Errorf("connecting to graph store: %w", err)
				}
				if err := s.graph.InitializeSchema(ctx); err != nil {
					return fmt.Errorf("initializing schema: %w", err)
				}
				fmt.Println("Graph schema initialized.")
				return nil
			})
		},
	}
}
