package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"swimcoach-be/pkg/store"

	"github.com/spf13/cobra"
)

var (
	inspectQuery string
	inspectK     int
	inspectJSON  bool
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Show index stats or the passages closest to a query",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRuntime(cmd, func(ctx context.Context, rt Runtime) error {
			passages, dim := rt.Stats()
			if inspectQuery == "" {
				cmd.Printf("Index holds %d passages (dimension %d)\n", passages, dim)
				return nil
			}

			hits, err := rt.Search(ctx, inspectQuery, inspectK)
			if err != nil {
				return fmt.Errorf("search failed: %w", err)
			}

			if inspectJSON {
				refs := make([]store.PassageRef, len(hits))
				for i, h := range hits {
					refs[i] = h.Ref()
				}
				data, err := json.MarshalIndent(refs, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to marshal results: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return nil
			}

			if len(hits) == 0 {
				cmd.Println("No results found.")
				return nil
			}
			for i, h := range hits {
				cmd.Printf("  [%d] %s (%.4f)\n", i+1, h.Passage.SourceID, h.Score)
				cmd.Printf("      %s\n", oneLine(h.Passage.Text, 160))
			}
			return nil
		})
	},
}

func init() {
	inspectCmd.Flags().StringVarP(&inspectQuery, "query", "q", "", "query text to search for")
	inspectCmd.Flags().IntVarP(&inspectK, "top-k", "k", 3, "number of passages to return")
	inspectCmd.Flags().BoolVar(&inspectJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(inspectCmd)
}

func oneLine(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}
