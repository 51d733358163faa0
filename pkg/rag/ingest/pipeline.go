// Package ingest turns a document into indexed passages.
package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"swimcoach-be/pkg/apperror"
	"swimcoach-be/pkg/embedding"
	"swimcoach-be/pkg/loader"
	"swimcoach-be/pkg/store"
	"swimcoach-be/pkg/vectorindex"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type DocumentLoader interface {
	LoadFile(ctx context.Context, path, mimeType string) (*loader.Document, error)
}

type Chunker interface {
	Chunk(text string) []string
}

type Embedder interface {
	EmbedMany(ctx context.Context, texts []string, taskType string) ([][]float32, error)
}

type Index interface {
	Commit(ctx context.Context, u vectorindex.Update) error
	Len() int
}

// Source describes one document to ingest.
type Source struct {
	Path     string
	MimeType string
	// SourceID defaults to the file name.
	SourceID string
	// Replace drops passages previously ingested under SourceID.
	Replace bool
	// Staged marks Path as a temporary copy that is removed once ingestion ends.
	Staged bool
}

// Result summarizes a finished ingestion.
type Result struct {
	SourceID   string
	Passages   int
	IndexTotal int
	Message    string
}

// Pipeline runs load, chunk, embed and commit as one unit. At most one
// ingestion is in flight at a time.
type Pipeline struct {
	loader   DocumentLoader
	chunker  Chunker
	embedder Embedder
	index    Index
	logger   *zap.Logger
	tracer   trace.Tracer
	now      func() time.Time

	mu sync.Mutex
}

func NewPipeline(l DocumentLoader, c Chunker, e Embedder, ix Index, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		loader:   l,
		chunker:  c,
		embedder: e,
		index:    ix,
		logger:   logger,
		tracer:   otel.Tracer("swimcoach-be/rag"),
		now:      time.Now,
	}
}

// Ingest loads src and indexes it. Nothing is added to the index unless
// every step succeeds, and a staged file is removed on every path.
func (p *Pipeline) Ingest(ctx context.Context, src Source) (*Result, error) {
	if src.Staged {
		defer p.release(src.Path)
	}
	if strings.TrimSpace(src.Path) == "" {
		return nil, apperror.Validation("document path is required")
	}

	doc, err := p.loader.LoadFile(ctx, src.Path, src.MimeType)
	if err != nil {
		return nil, apperror.WithStage(apperror.StageIngestion, err)
	}

	sourceID := src.SourceID
	if sourceID == "" {
		sourceID = filepath.Base(src.Path)
	}
	if src.MimeType != "" {
		doc.Metadata["content_type"] = src.MimeType
	}
	return p.IngestText(ctx, sourceID, doc.Text, doc.Metadata, src.Replace)
}

// IngestText indexes already-loaded text under sourceID. An empty text is a
// no-op and does not touch the persisted snapshot.
func (p *Pipeline) IngestText(ctx context.Context, sourceID, text string, metadata map[string]string, replace bool) (*Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	ctx, span := p.tracer.Start(ctx, "rag.ingest", trace.WithAttributes(attribute.String("source.id", sourceID)))
	defer span.End()

	start := p.now()
	chunks := p.chunker.Chunk(text)
	span.SetAttributes(attribute.Int("rag.chunks", len(chunks)))
	if len(chunks) == 0 {
		p.logger.Info("document is empty, nothing to ingest", zap.String("source_id", sourceID))
		return &Result{
			SourceID:   sourceID,
			IndexTotal: p.index.Len(),
			Message:    fmt.Sprintf("No content to ingest from %s", sourceID),
		}, nil
	}

	vectors, err := p.embedder.EmbedMany(ctx, chunks, embedding.TaskRetrievalDocument)
	if err != nil {
		return nil, p.fail(span, sourceID, "embedding chunks failed", apperror.WithStage(apperror.StageIngestion, err))
	}

	passages := make([]store.Passage, len(chunks))
	for i, chunk := range chunks {
		meta := make(map[string]string, len(metadata)+1)
		for k, v := range metadata {
			meta[k] = v
		}
		meta["chunk_index"] = strconv.Itoa(i)
		passages[i] = store.Passage{
			ID:        uuid.NewString(),
			Text:      chunk,
			Embedding: vectors[i],
			SourceID:  sourceID,
			Metadata:  meta,
		}
	}

	update := vectorindex.Update{Insert: passages}
	if replace {
		update.RemoveSources = []string{sourceID}
	}
	if err := p.index.Commit(ctx, update); err != nil {
		return nil, p.fail(span, sourceID, "index commit failed", apperror.WithStage(apperror.StageIngestion, err))
	}

	total := p.index.Len()
	p.logger.Info("document ingested",
		zap.String("source_id", sourceID),
		zap.Int("passages", len(passages)),
		zap.Int("index_total", total),
		zap.Duration("took", p.now().Sub(start)),
	)
	return &Result{
		SourceID:   sourceID,
		Passages:   len(passages),
		IndexTotal: total,
		Message:    fmt.Sprintf("Ingested %d passages from %s", len(passages), sourceID),
	}, nil
}

func (p *Pipeline) release(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		p.logger.Warn("failed to remove staged document", zap.String("path", path), zap.Error(err))
	}
}

func (p *Pipeline) fail(span trace.Span, sourceID, msg string, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, msg)
	p.logger.Error(msg, zap.String("source_id", sourceID), zap.Error(err))
	return err
}
