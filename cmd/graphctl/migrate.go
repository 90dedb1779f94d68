package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"allie-graph/internal/migration"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate [familyId]",
		Short: "Copy knowledge graphs into the graph store",
		Long: `Migrate one family's knowledge graph into Neo4j, or every
family when no id is given. Entities are migrated before relationships
and per-item failures are reported without aborting the batch.

Re-running a migration upserts and is safe.

Examples:
  graphctl migrate
  graphctl migrate fam-willis`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd.Context(), func(ctx context.Context, s *services) error {
				if len(args) == 1 {
					result, err := s.migrator.MigrateFamily(ctx, args[0])
					if err != nil {
						return fmt.Errorf("migrating family %s: %w", args[0], err)
					}
					printMigrationResult(result)
					return nil
				}

				summary, err := s.migrator.MigrateAllFamilies(ctx)
				if err != nil {
					return fmt.Errorf("migrating all families: %w", err)
				}

				for _, outcome := range summary.Families {
					if outcome.Error != "" {
						fmt.Printf("  %-24s FAILED: %s\n", outcome.FamilyID, outcome.Error)
						continue
					}
					fmt.Printf("  %-24s %s (%d entities, %d relationships, %d errors)\n",
						outcome.FamilyID, outcome.Result.Status,
						outcome.Result.EntityCount, outcome.Result.RelationshipCount,
						len(outcome.Result.Errors))
				}
				fmt.Printf("\nTotal: %d entities, %d relationships, %d errors (%s)\n",
					summary.EntityCount, summary.RelationshipCount, summary.ErrorCount, summary.Status)
				return nil
			})
		},
	}
}

func printMigrationResult(result *migration.Result) {
	fmt.Printf("Family %s: %s\n", result.FamilyID, result.Status)
	fmt.Printf("  Entities:      %d\n", result.EntityCount)
	fmt.Printf("  Relationships: %d\n", result.RelationshipCount)
	for _, itemErr := range result.Errors {
		fmt.Printf("  error: %s %s: %s\n", itemErr.Kind, itemErr.ID, itemErr.Message)
	}
}

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <familyId>",
		Short: "Check a migrated family against its source graph",
		Long: `Compare a family's document-store graph with the graph store
and report missing entities and relationships.

Examples:
  graphctl validate fam-willis`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd.Context(), func(ctx context.Context, s *services) error {
				validation, err := s.migrator.ValidateMigration(ctx, args[0])
				if err != nil {
					return fmt.Errorf("validating family %s: %w", args[0], err)
				}

				fmt.Printf("Family %s: %s\n", validation.FamilyID, validation.Status)
				fmt.Printf("  Source entities: %d, graph entities: %d\n",
					validation.SourceEntities, validation.GraphEntities)
				for _, id := range validation.MissingEntities {
					fmt.Printf("  missing entity: %s\n", id)
				}
				for _, id := range validation.MissingRelationships {
					fmt.Printf("  missing relationship: %s\n", id)
				}
				return nil
			})
		},
	}
}
