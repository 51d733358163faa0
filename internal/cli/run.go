package cli

import (
	"context"
	"fmt"

	"swimcoach-be/pkg/rag/ingest"

	"github.com/spf13/cobra"
)

var (
	runReplace  bool
	runSourceID string
)

var runCmd = &cobra.Command{
	Use:   "run [file...]",
	Short: "Ingest documents into the index",
	Long: `Chunks and embeds each file, then commits it to the persisted snapshot.
Files are processed in order; the first failure stops the run and leaves the
snapshot as it was after the last successful file.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if runSourceID != "" && len(args) > 1 {
			return fmt.Errorf("--source-id can only be used with a single file")
		}
		return withRuntime(cmd, func(ctx context.Context, rt Runtime) error {
			for _, path := range args {
				res, err := rt.Ingest(ctx, ingest.Source{Path: path, SourceID: runSourceID, Replace: runReplace})
				if err != nil {
					return fmt.Errorf("ingest %s: %w", path, err)
				}
				cmd.Println(res.Message)
			}
			passages, dim := rt.Stats()
			cmd.Printf("Index holds %d passages (dimension %d)\n", passages, dim)
			return nil
		})
	},
}

func init() {
	runCmd.Flags().BoolVar(&runReplace, "replace", false, "drop passages previously ingested from the same source")
	runCmd.Flags().StringVar(&runSourceID, "source-id", "", "source id to record (defaults to the file name)")
	rootCmd.AddCommand(runCmd)
}
