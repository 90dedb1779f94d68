package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"allie-graph/internal/resolution"
)

func newDuplicatesCmd() *cobra.Command {
	var entityType string
	var minScore float64

	cmd := &cobra.Command{
		Use:   "duplicates <familyId>",
		Short: "Scan a family for likely duplicate entities",
		Long: `Score entity pairs with the fuzzy matcher and list pairs above
the threshold. Without --type the most common entity types are scanned.

Examples:
  graphctl duplicates fam-willis
  graphctl duplicates fam-willis --type person --min-score 0.85`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd.Context(), func(ctx context.Context, s *services) error {
				pairs, err := s.resolver.FindPotentialDuplicates(ctx, args[0], entityType,
					resolution.DuplicateOptions{MinScore: minScore})
				if err != nil {
					return fmt.Errorf("scanning for duplicates: %w", err)
				}

				if len(pairs) == 0 {
					fmt.Println("No potential duplicates found.")
					return nil
				}

				fmt.Printf("Potential duplicates (%d pairs):\n\n", len(pairs))
				for _, pair := range pairs {
					fmt.Printf("  %-10s %.2f  %s <-> %s\n",
						pair.EntityType, pair.Score, pair.PrimaryID, pair.DuplicateID)
				}

				groups := resolution.GroupDuplicates(pairs)
				fmt.Printf("\nGroups (%d):\n", len(groups))
				for _, group := range groups {
					fmt.Printf("  %s <- %v\n", group.PrimaryID, group.DuplicateIDs)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&entityType, "type", "", "Entity type to scan (default: most common types)")
	cmd.Flags().Float64Var(&minScore, "min-score", 0, "Minimum match score (default 0.8)")

	return cmd
}

func newResolveCmd() *cobra.Command {
	var entityType string
	var minScore float64
	var keepDuplicates bool

	cmd := &cobra.Command{
		Use:   "resolve <familyId>",
		Short: "Merge detected duplicate entities",
		Long: `Detect duplicates, group them and merge each group into its
primary entity. Relationships are redirected to the primary and merged
duplicates are deleted unless --keep is set.

Examples:
  graphctl resolve fam-willis
  graphctl resolve fam-willis --type person --keep`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd.Context(), func(ctx context.Context, s *services) error {
				pairs, err := s.resolver.FindPotentialDuplicates(ctx, args[0], entityType,
					resolution.DuplicateOptions{MinScore: minScore})
				if err != nil {
					return fmt.Errorf("scanning for duplicates: %w", err)
				}
				if len(pairs) == 0 {
					fmt.Println("No potential duplicates found.")
					return nil
				}

				result, err := s.resolver.ResolveDuplicates(ctx, args[0], pairs, !keepDuplicates)
				if err != nil {
					return fmt.Errorf("resolving duplicates: %w", err)
				}

				fmt.Printf("Resolved %d, failed %d, skipped %d\n",
					len(result.Resolved), len(result.Failed), len(result.Skipped))
				for _, pair := range result.Resolved {
					fmt.Printf("  merged %s -> %s\n", pair.DuplicateID, pair.PrimaryID)
				}
				for _, pair := range result.Failed {
					fmt.Printf("  failed %s: %s\n", pair.PrimaryID, pair.Error)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&entityType, "type", "", "Entity type to scan (default: most common types)")
	cmd.Flags().Float64Var(&minScore, "min-score", 0, "Minimum match score (default 0.8)")
	cmd.Flags().BoolVar(&keepDuplicates, "keep", false, "Keep merged duplicate nodes instead of deleting them")

	return cmd
}
