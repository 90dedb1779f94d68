package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newQueryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "query <familyId> <question...>",
		Short: "Ask a natural language question about a family's graph",
		Long: `Classify a natural language question and run it against a
family's knowledge graph.

Examples:
  graphctl query fam-willis "find all tasks"
  graphctl query fam-willis how is Alice related to Charlie`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd.Context(), func(ctx context.Context, s *services) error {
				question := strings.Join(args[1:], " ")
				result, err := s.graphs.ExecuteNaturalLanguageQuery(ctx, args[0], question)
				if err != nil {
					return fmt.Errorf("running query: %w", err)
				}

				fmt.Printf("Intent: %s\n", result.Intent)
				if result.Message != "" {
					fmt.Println(result.Message)
				}
				if result.Results != nil {
					return printJSON(result.Results)
				}
				return nil
			})
		},
	}
}
