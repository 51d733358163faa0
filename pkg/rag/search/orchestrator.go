package search

import (
	"context"

	"swimcoach-be/pkg/apperror"
	"swimcoach-be/pkg/embedding"
	"swimcoach-be/pkg/store"

	"go.uber.org/zap"
)

// DefaultTopK is the number of passages retrieved per query.
const DefaultTopK = 3

type Embedder interface {
	Embed(ctx context.Context, text string, taskType string) ([]float32, error)
}

type Index interface {
	Len() int
	Search(query []float32, k int) ([]store.ScoredPassage, error)
}

// Orchestrator embeds a query and runs it against the index.
type Orchestrator struct {
	embedder Embedder
	index    Index
	logger   *zap.Logger
}

func NewOrchestrator(embedder Embedder, index Index, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{embedder: embedder, index: index, logger: logger}
}

// Execute returns up to k passages by descending similarity. An empty index
// returns an empty result without calling the embedding provider.
func (o *Orchestrator) Execute(ctx context.Context, query string, k int) ([]store.ScoredPassage, error) {
	if k <= 0 || o.index.Len() == 0 {
		o.logger.Debug("retrieval skipped", zap.Int("k", k), zap.Int("indexed", o.index.Len()))
		return []store.ScoredPassage{}, nil
	}

	vec, err := o.embedder.Embed(ctx, query, embedding.TaskRetrievalQuery)
	if err != nil {
		return nil, apperror.WithStage(apperror.StageRetrieval, err)
	}

	hits, err := o.index.Search(vec, k)
	if err != nil {
		o.logger.Error("vector search failed", zap.Error(err))
		return nil, apperror.WithStage(apperror.StageRetrieval, err)
	}

	for i, h := range hits {
		o.logger.Debug("candidate",
			zap.Int("rank", i+1),
			zap.Float64("score", h.Score),
			zap.String("passage_id", h.Passage.ID),
			zap.String("source_id", h.Passage.SourceID),
		)
	}
	return hits, nil
}
