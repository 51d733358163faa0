// Package cli is the offline command line for the passage index.
package cli

import (
	"context"
	"errors"

	"swimcoach-be/pkg/rag/ingest"
	"swimcoach-be/pkg/store"

	"github.com/spf13/cobra"
)

// Runtime is the slice of the retrieval core the CLI needs.
type Runtime interface {
	Ingest(ctx context.Context, src ingest.Source) (*ingest.Result, error)
	Search(ctx context.Context, query string, k int) ([]store.ScoredPassage, error)
	Stats() (passages, dimension int)
	Close() error
}

// RuntimeFactory builds the runtime on first use, so --help never touches storage.
type RuntimeFactory func(ctx context.Context) (Runtime, error)

var openRuntime RuntimeFactory

var rootCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Build and inspect the swimmer passage index",
	Long: `Loads training documents into the persisted vector snapshot used by the
chat server, and lets you query that snapshot directly.`,
	SilenceUsage: true,
}

// Execute runs the command tree with open as the runtime factory.
func Execute(ctx context.Context, open RuntimeFactory) error {
	openRuntime = open
	return rootCmd.ExecuteContext(ctx)
}

func withRuntime(cmd *cobra.Command, fn func(ctx context.Context, rt Runtime) error) error {
	if openRuntime == nil {
		return errors.New("runtime not configured")
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	rt, err := openRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()
	return fn(ctx, rt)
}
