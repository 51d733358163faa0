package search

import (
	"context"
	"errors"
	"testing"

	"swimcoach-be/pkg/apperror"
	"swimcoach-be/pkg/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubEmbedder struct {
	vec   []float32
	err   error
	calls int
}

func (s *stubEmbedder) Embed(context.Context, string, string) ([]float32, error) {
	s.calls++
	return s.vec, s.err
}

type stubIndex struct {
	hits []store.ScoredPassage
	err  error
	n    int
	k    int
}

func (s *stubIndex) Len() int { return s.n }

func (s *stubIndex) Search(_ []float32, k int) ([]store.ScoredPassage, error) {
	s.k = k
	return s.hits, s.err
}

func TestExecute(t *testing.T) {
	hits := []store.ScoredPassage{{Passage: store.Passage{ID: "a"}, Score: 0.9}}
	emb := &stubEmbedder{vec: []float32{1}}
	ix := &stubIndex{hits: hits, n: 4}

	got, err := NewOrchestrator(emb, ix, nil).Execute(context.Background(), "kick", DefaultTopK)

	require.NoError(t, err)
	assert.Equal(t, hits, got)
	assert.Equal(t, DefaultTopK, ix.k)
}

func TestExecute_SkipsEmptyIndex(t *testing.T) {
	emb := &stubEmbedder{err: errors.New("should not be called")}
	got, err := NewOrchestrator(emb, &stubIndex{}, nil).Execute(context.Background(), "kick", 3)

	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Zero(t, emb.calls)
}

func TestExecute_StampsRetrievalStage(t *testing.T) {
	emb := &stubEmbedder{err: apperror.Provider("embedding", errors.New("quota"))}
	_, err := NewOrchestrator(emb, &stubIndex{n: 1}, nil).Execute(context.Background(), "kick", 3)

	var typed *apperror.Error
	require.ErrorAs(t, err, &typed)
	assert.Equal(t, apperror.StageRetrieval, typed.Stage)
	assert.Equal(t, apperror.KindProvider, typed.Kind)

	_, err = NewOrchestrator(&stubEmbedder{vec: []float32{1}}, &stubIndex{n: 1, err: errors.New("dim")}, nil).Execute(context.Background(), "kick", 3)
	assert.ErrorIs(t, err, apperror.ErrInternal)
}
