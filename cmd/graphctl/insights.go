package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newInsightsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "insights <familyId>",
		Short: "Generate insights from a family's knowledge graph",
		Long: `Run the insight generators (task workload balance, schedule
conflicts, milestone gaps) over a family's graph. Generated insights are
persisted back into the graph as insight entities.

Examples:
  graphctl insights fam-willis`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd.Context(), func(ctx context.Context, s *services) error {
				insights, err := s.graphs.GenerateInsights(ctx, args[0])
				if err != nil {
					return fmt.Errorf("generating insights: %w", err)
				}

				if len(insights) == 0 {
					fmt.Println("No insights generated.")
					return nil
				}

				for _, insight := range insights {
					fmt.Printf("[%s] %s\n", insight.Severity, insight.Title)
					fmt.Printf("  %s\n", insight.Description)
					for _, action := range insight.ActionItems {
						fmt.Printf("  - %s\n", action)
					}
					fmt.Println()
				}
				return nil
			})
		},
	}
	return cmd
}
