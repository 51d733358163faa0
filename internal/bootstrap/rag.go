package bootstrap

import (
	"context"
	"fmt"

	"swimcoach-be/internal/config"
	"swimcoach-be/internal/pkg/logger"
	"swimcoach-be/pkg/database"
	"swimcoach-be/pkg/embedding"
	"swimcoach-be/pkg/embedding/jina"
	"swimcoach-be/pkg/loader"
	"swimcoach-be/pkg/rag/chunker"
	"swimcoach-be/pkg/rag/ingest"
	"swimcoach-be/pkg/rag/search"
	"swimcoach-be/pkg/vectorindex"

	"gorm.io/gorm"
)

// RAG is the retrieval core shared by the HTTP server and the CLI.
type RAG struct {
	Index    *vectorindex.Index
	Gateway  *embedding.Gateway
	Chunker  *chunker.Chunker
	Loaders  *loader.Registry
	Pipeline *ingest.Pipeline
	Search   *search.Orchestrator

	db *gorm.DB
}

// NewRAG restores the vector index from the configured snapshot backend and
// wires the ingestion and retrieval components around it.
func NewRAG(ctx context.Context, cfg *config.Config, sysLogger logger.ILogger) (*RAG, error) {
	metric, err := vectorindex.ParseMetric(cfg.Rag.Metric)
	if err != nil {
		return nil, err
	}

	ch, err := chunker.New(cfg.ChunkPolicy(), sysLogger.Named("chunker"))
	if err != nil {
		return nil, err
	}

	st, db, err := newSnapshotStore(ctx, cfg, sysLogger)
	if err != nil {
		return nil, err
	}

	index, err := vectorindex.Restore(ctx, metric,
		vectorindex.WithStore(st, cfg.Rag.SnapshotKey),
		vectorindex.WithPersistTimeout(cfg.Timeouts.Persist),
		vectorindex.WithLogger(sysLogger.Named("vectorindex")),
	)
	if err != nil {
		return nil, err
	}
	sysLogger.Info("Bootstrap", "Vector index ready", map[string]interface{}{
		"backend":   cfg.Rag.SnapshotBackend,
		"passages":  index.Len(),
		"dimension": index.Dimension(),
		"metric":    string(metric),
	})

	gatewayOpts := []embedding.GatewayOption{
		embedding.WithConcurrency(cfg.Rag.EmbedConcurrency),
		embedding.WithBatchSize(cfg.Rag.EmbedBatchSize),
		embedding.WithTimeout(cfg.Timeouts.Embed),
		embedding.WithLogger(sysLogger.Named("embedding")),
	}
	if cfg.Rag.EmbedRateLimit > 0 {
		gatewayOpts = append(gatewayOpts, embedding.WithRateLimit(cfg.Rag.EmbedRateLimit, cfg.Rag.EmbedBurst))
	}
	if d := index.Dimension(); d > 0 {
		gatewayOpts = append(gatewayOpts, embedding.WithDimension(d))
	}
	gateway := embedding.NewGateway(newEmbeddingProvider(cfg, sysLogger), gatewayOpts...)

	loaders := loader.NewRegistry()

	return &RAG{
		Index:    index,
		Gateway:  gateway,
		Chunker:  ch,
		Loaders:  loaders,
		Pipeline: ingest.NewPipeline(loaders, ch, gateway, index, sysLogger.Named("ingest")),
		Search:   search.NewOrchestrator(gateway, index, sysLogger.Named("search")),
		db:       db,
	}, nil
}

// Close releases the database connection when the postgres backend is in use.
func (r *RAG) Close() error {
	if r.db == nil {
		return nil
	}
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func newSnapshotStore(ctx context.Context, cfg *config.Config, sysLogger logger.ILogger) (vectorindex.SnapshotStore, *gorm.DB, error) {
	switch cfg.Rag.SnapshotBackend {
	case config.SnapshotBackendPostgres:
		db, err := database.NewGormDBFromDSN(cfg.Database.Connection, sysLogger.Named("database"))
		if err != nil {
			return nil, nil, fmt.Errorf("connect snapshot database: %w", err)
		}
		st := vectorindex.NewGormStore(db)
		if err := st.Migrate(ctx); err != nil {
			return nil, nil, fmt.Errorf("migrate snapshot tables: %w", err)
		}
		return st, db, nil
	case config.SnapshotBackendFile:
		return vectorindex.NewFileStore(cfg.Rag.SnapshotDir), nil, nil
	}
	return nil, nil, fmt.Errorf("unknown snapshot backend %q", cfg.Rag.SnapshotBackend)
}

func newEmbeddingProvider(cfg *config.Config, sysLogger logger.ILogger) embedding.EmbeddingProvider {
	switch cfg.Ai.EmbeddingProvider {
	case "ollama":
		sysLogger.Info("Bootstrap", "Using Embedding Provider: OLLAMA", map[string]interface{}{"model": cfg.Ai.OllamaModel})
		return embedding.NewOllamaProvider(cfg.Ai.OllamaBaseURL, cfg.Ai.OllamaModel)
	case "jina":
		sysLogger.Info("Bootstrap", "Using Embedding Provider: JINA AI", map[string]interface{}{"model": cfg.Ai.JinaModel})
		return jina.NewJinaProviderWithURL(cfg.Keys.Jina, jina.DefaultBaseURL, cfg.Ai.JinaModel)
	default:
		sysLogger.Info("Bootstrap", "Using Embedding Provider: GEMINI", nil)
		return embedding.NewGeminiProvider(cfg.Keys.GoogleGemini)
	}
}
