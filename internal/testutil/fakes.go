// Package testutil holds deterministic stand-ins for the embedding and language-model providers.
package testutil

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode"

	"swimcoach-be/pkg/embedding"
	"swimcoach-be/pkg/llm"
)

// HashEmbedder maps words into a fixed number of buckets and normalizes,
// so texts sharing words score higher under cosine similarity.
type HashEmbedder struct {
	Dim   int
	Err   error
	Delay time.Duration

	calls atomic.Int64
}

var _ embedding.EmbeddingProvider = (*HashEmbedder)(nil)

func NewHashEmbedder(dim int) *HashEmbedder {
	return &HashEmbedder{Dim: dim}
}

func (h *HashEmbedder) Calls() int {
	return int(h.calls.Load())
}

func (h *HashEmbedder) Generate(ctx context.Context, text string, _ string) (*embedding.EmbeddingResponse, error) {
	h.calls.Add(1)
	if h.Delay > 0 {
		select {
		case <-time.After(h.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if h.Err != nil {
		return nil, h.Err
	}
	return &embedding.EmbeddingResponse{
		Embedding: embedding.EmbeddingResponseEmbedding{Values: HashVector(text, h.Dim)},
	}, nil
}

// HashVector is the vector HashEmbedder produces for text.
func HashVector(text string, dim int) []float32 {
	vec := make([]float32, dim)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		f := fnv.New32a()
		_, _ = f.Write([]byte(w))
		vec[int(f.Sum32())%dim] += 1
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		vec[0] = 1
		return vec
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
	return vec
}

// FakeLLM records the messages it receives and answers with Reply or Err.
type FakeLLM struct {
	Reply string
	Err   error
	Delay time.Duration

	mu       sync.Mutex
	received [][]llm.Message
	options  []llm.Options
}

var _ llm.LLMProvider = (*FakeLLM)(nil)

func (f *FakeLLM) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	f.mu.Lock()
	f.received = append(f.received, append([]llm.Message(nil), history...))
	f.options = append(f.options, llm.Apply(opts...))
	f.mu.Unlock()

	if f.Delay > 0 {
		select {
		case <-time.After(f.Delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if f.Err != nil {
		return "", f.Err
	}
	return f.Reply, nil
}

func (f *FakeLLM) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	return f.Chat(ctx, []llm.Message{{Role: llm.RoleUser, Content: prompt}}, opts...)
}

// Received returns every message list passed to Chat, oldest first.
func (f *FakeLLM) Received() [][]llm.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]llm.Message(nil), f.received...)
}

// Options returns the resolved options of every Chat call, oldest first.
func (f *FakeLLM) Options() []llm.Options {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]llm.Options(nil), f.options...)
}
