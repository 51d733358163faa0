package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"swimcoach-be/internal/bootstrap"
	"swimcoach-be/internal/cli"
	"swimcoach-be/internal/config"
	"swimcoach-be/internal/pkg/logger"
	"swimcoach-be/pkg/rag/ingest"
	"swimcoach-be/pkg/store"
)

// runtime adapts the bootstrapped retrieval core to the CLI.
type runtime struct {
	rag *bootstrap.RAG
}

func (r runtime) Ingest(ctx context.Context, src ingest.Source) (*ingest.Result, error) {
	return r.rag.Pipeline.Ingest(ctx, src)
}

func (r runtime) Search(ctx context.Context, query string, k int) ([]store.ScoredPassage, error) {
	return r.rag.Search.Execute(ctx, query, k)
}

func (r runtime) Stats() (int, int) {
	return r.rag.Index.Len(), r.rag.Index.Dimension()
}

func (r runtime) Close() error {
	return r.rag.Close()
}

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())
	defer sysLogger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	open := func(ctx context.Context) (cli.Runtime, error) {
		rag, err := bootstrap.NewRAG(ctx, cfg, sysLogger)
		if err != nil {
			return nil, err
		}
		return runtime{rag: rag}, nil
	}

	if err := cli.Execute(ctx, open); err != nil {
		os.Exit(1)
	}
}
