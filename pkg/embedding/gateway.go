package embedding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"swimcoach-be/pkg/apperror"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const stageEmbedding = "embedding"

// Gateway turns ordered batches of text into ordered batches of vectors.
// A call either embeds every input or fails as a whole.
type Gateway struct {
	provider    EmbeddingProvider
	concurrency int
	batchSize   int
	timeout     time.Duration
	dimension   int
	limiter     *rate.Limiter
	logger      *zap.Logger
}

type GatewayOption func(*Gateway)

// WithConcurrency bounds the number of in-flight provider calls.
func WithConcurrency(n int) GatewayOption {
	return func(g *Gateway) {
		if n > 0 {
			g.concurrency = n
		}
	}
}

// WithBatchSize sets how many texts go into one request for batch-capable providers.
func WithBatchSize(n int) GatewayOption {
	return func(g *Gateway) {
		if n > 0 {
			g.batchSize = n
		}
	}
}

// WithTimeout bounds a whole EmbedMany call.
func WithTimeout(d time.Duration) GatewayOption {
	return func(g *Gateway) {
		g.timeout = d
	}
}

// WithDimension pins the expected vector length. Zero accepts whatever the provider returns,
// as long as it is consistent within a call.
func WithDimension(d int) GatewayOption {
	return func(g *Gateway) {
		g.dimension = d
	}
}

// WithRateLimit caps provider requests per second.
func WithRateLimit(rps float64, burst int) GatewayOption {
	return func(g *Gateway) {
		if rps <= 0 {
			return
		}
		if burst <= 0 {
			burst = 1
		}
		g.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

func WithLogger(l *zap.Logger) GatewayOption {
	return func(g *Gateway) {
		if l != nil {
			g.logger = l
		}
	}
}

func NewGateway(provider EmbeddingProvider, opts ...GatewayOption) *Gateway {
	g := &Gateway{
		provider:    provider,
		concurrency: 4,
		batchSize:   64,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Embed embeds a single text.
func (g *Gateway) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	vectors, err := g.EmbedMany(ctx, []string{text}, taskType)
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedMany returns one vector per input, in input order. An empty input yields an empty result.
func (g *Gateway) EmbedMany(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	start := time.Now()
	out := make([][]float32, len(texts))

	var err error
	if batcher, ok := g.provider.(BatchEmbeddingProvider); ok {
		err = g.embedBatches(ctx, batcher, texts, taskType, out)
	} else {
		err = g.embedEach(ctx, texts, taskType, out)
	}
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			err = apperror.Timeout(stageEmbedding, err)
		} else {
			err = apperror.FromContext(stageEmbedding, err, apperror.Provider)
		}
		g.logger.Error("embedding failed", zap.Int("inputs", len(texts)), zap.Error(err))
		return nil, err
	}

	if err := g.checkShape(out); err != nil {
		g.logger.Error("embedding provider broke its contract", zap.Error(err))
		return nil, apperror.Provider(stageEmbedding, err)
	}

	g.logger.Debug("embedded texts",
		zap.Int("inputs", len(texts)),
		zap.Int("dimension", len(out[0])),
		zap.Duration("took", time.Since(start)),
	)
	return out, nil
}

func (g *Gateway) embedEach(ctx context.Context, texts []string, taskType string, out [][]float32) error {
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(g.concurrency)

	for i, text := range texts {
		eg.Go(func() error {
			if err := g.wait(egCtx); err != nil {
				return err
			}
			res, err := g.provider.Generate(egCtx, text, taskType)
			if err != nil {
				return fmt.Errorf("input %d: %w", i, err)
			}
			if res == nil {
				return fmt.Errorf("input %d: provider returned no embedding", i)
			}
			out[i] = res.Embedding.Values
			return nil
		})
	}
	return eg.Wait()
}

func (g *Gateway) embedBatches(ctx context.Context, p BatchEmbeddingProvider, texts []string, taskType string, out [][]float32) error {
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(g.concurrency)

	for from := 0; from < len(texts); from += g.batchSize {
		to := min(from+g.batchSize, len(texts))
		eg.Go(func() error {
			if err := g.wait(egCtx); err != nil {
				return err
			}
			vectors, err := p.GenerateBatch(egCtx, texts[from:to], taskType)
			if err != nil {
				return fmt.Errorf("batch [%d:%d): %w", from, to, err)
			}
			if len(vectors) != to-from {
				return fmt.Errorf("batch [%d:%d): got %d vectors", from, to, len(vectors))
			}
			copy(out[from:to], vectors)
			return nil
		})
	}
	return eg.Wait()
}

func (g *Gateway) wait(ctx context.Context) error {
	if g.limiter == nil {
		return nil
	}
	return g.limiter.Wait(ctx)
}

func (g *Gateway) checkShape(out [][]float32) error {
	want := g.dimension
	if want == 0 {
		want = len(out[0])
	}
	if want == 0 {
		return errors.New("provider returned zero-length vectors")
	}
	for i, v := range out {
		if len(v) != want {
			return fmt.Errorf("vector %d has dimension %d, expected %d", i, len(v), want)
		}
	}
	return nil
}
