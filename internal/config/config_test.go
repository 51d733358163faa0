package config

import (
	"testing"
	"time"

	"swimcoach-be/pkg/rag/chunker"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, 400, cfg.Rag.ChunkSize)
	assert.Equal(t, 40, cfg.Rag.ChunkOverlap)
	assert.Equal(t, 3, cfg.Rag.TopK)
	assert.Equal(t, 10, cfg.Rag.SessionLimit)
	assert.Equal(t, "cosine", cfg.Rag.Metric)
	assert.Equal(t, "swimmerStoryDb", cfg.Rag.SnapshotDir)
	assert.Equal(t, "swimmer-story", cfg.Rag.SnapshotKey)
	assert.Equal(t, 500, cfg.Ai.MaxTokens)
	assert.InDelta(t, 0.7, cfg.Ai.Temperature, 1e-9)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("RAG_CHUNK_SIZE", "800")
	t.Setenv("RAG_CHUNK_STRATEGY", "structured")
	t.Setenv("TIMEOUT_GENERATE", "90s")
	t.Setenv("TRACING_ENABLED", "true")
	t.Setenv("RAG_EMBED_RATE_LIMIT", "2.5")
	t.Setenv("RAG_TOP_K", "not-a-number")
	t.Setenv("LLM_MAX_TOKENS", "1200")
	t.Setenv("LLM_TEMPERATURE", "0")

	cfg := Load()

	assert.Equal(t, 800, cfg.Rag.ChunkSize)
	assert.Equal(t, chunker.StrategyStructured, cfg.ChunkPolicy().Strategy)
	assert.Equal(t, 90*time.Second, cfg.Timeouts.Generate)
	assert.True(t, cfg.App.TracingEnabled)
	assert.InDelta(t, 2.5, cfg.Rag.EmbedRateLimit, 1e-9)
	assert.Equal(t, 1200, cfg.Ai.MaxTokens)
	assert.Zero(t, cfg.Ai.Temperature)
	assert.Equal(t, 3, cfg.Rag.TopK, "unparsable values fall back to the default")
}

func TestValidate_CollectsEveryProblem(t *testing.T) {
	t.Setenv("RAG_CHUNK_SIZE", "40")
	t.Setenv("RAG_CHUNK_OVERLAP", "40")
	t.Setenv("RAG_METRIC", "dot")
	t.Setenv("RAG_SNAPSHOT_BACKEND", "postgres")
	t.Setenv("DB_CONNECTION_STRING", "")
	t.Setenv("TIMEOUT_EMBED", "0s")

	err := Load().Validate()

	require.Error(t, err)
	assert.ErrorIs(t, err, chunker.ErrInvalidConfig)
	assert.ErrorContains(t, err, `unknown similarity metric "dot"`)
	assert.ErrorContains(t, err, "DB_CONNECTION_STRING is required")
	assert.ErrorContains(t, err, "TIMEOUT_EMBED must be positive")
}
