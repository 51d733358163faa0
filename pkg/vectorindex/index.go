// Package vectorindex is an in-memory similarity index over passages with
// durable snapshots. Readers never block: every write builds a new immutable
// view and publishes it with a single atomic pointer swap.
package vectorindex

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"swimcoach-be/pkg/apperror"
	"swimcoach-be/pkg/store"

	"go.uber.org/zap"
)

var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// view is an immutable state of the index. It is never modified once published.
type view struct {
	dimension int
	passages  []store.Passage
	norms     []float64
}

var emptyView = &view{}

type Index struct {
	metric         Metric
	current        atomic.Pointer[view]
	writeMu        sync.Mutex
	store          SnapshotStore
	key            string
	persistTimeout time.Duration
	logger         *zap.Logger
}

type Option func(*Index)

// WithStore attaches durable storage. key is the fixed snapshot identifier.
func WithStore(st SnapshotStore, key string) Option {
	return func(ix *Index) {
		ix.store = st
		ix.key = key
	}
}

// WithPersistTimeout bounds each snapshot save.
func WithPersistTimeout(d time.Duration) Option {
	return func(ix *Index) {
		ix.persistTimeout = d
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(ix *Index) {
		if l != nil {
			ix.logger = l
		}
	}
}

// New returns an empty index.
func New(metric Metric, opts ...Option) (*Index, error) {
	if err := metric.Validate(); err != nil {
		return nil, err
	}
	ix := &Index{metric: metric, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(ix)
	}
	ix.current.Store(emptyView)
	return ix, nil
}

// Restore loads the snapshot from the configured store. A missing, unreadable
// or inconsistent snapshot is logged and replaced by an empty index; only a bad
// metric fails.
func Restore(ctx context.Context, metric Metric, opts ...Option) (*Index, error) {
	ix, err := New(metric, opts...)
	if err != nil {
		return nil, err
	}
	if ix.store == nil {
		return ix, nil
	}

	if ix.persistTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, ix.persistTimeout)
		defer cancel()
	}

	snap, err := ix.store.Load(ctx, ix.key)
	switch {
	case errors.Is(err, ErrSnapshotNotFound):
		ix.logger.Info("no vector snapshot found, starting with an empty index", zap.String("key", ix.key))
		return ix, nil
	case err != nil:
		ix.logger.Error("vector snapshot unreadable, starting with an empty index",
			zap.String("key", ix.key), zap.Error(apperror.IndexCorruption(err)))
		return ix, nil
	}

	if err := snap.Validate(); err != nil {
		ix.logger.Error("vector snapshot inconsistent, starting with an empty index",
			zap.String("key", ix.key), zap.Error(apperror.IndexCorruption(err)))
		return ix, nil
	}
	if snap.Metric != metric {
		ix.logger.Error("vector snapshot built with a different metric, starting with an empty index",
			zap.String("key", ix.key),
			zap.String("snapshot_metric", string(snap.Metric)),
			zap.String("index_metric", string(metric)),
			zap.Error(apperror.IndexCorruption(errors.New("metric mismatch"))),
		)
		return ix, nil
	}

	v := &view{dimension: snap.Dimension, passages: snap.Passages, norms: make([]float64, len(snap.Passages))}
	for i, p := range snap.Passages {
		v.norms[i] = magnitude(p.Embedding)
	}
	ix.current.Store(v)

	ix.logger.Info("vector snapshot restored",
		zap.String("key", ix.key), zap.Int("passages", len(v.passages)), zap.Int("dimension", v.dimension))
	return ix, nil
}

func (ix *Index) Metric() Metric {
	return ix.metric
}

func (ix *Index) Len() int {
	return len(ix.current.Load().passages)
}

// Dimension is zero until the first passage is inserted.
func (ix *Index) Dimension() int {
	return ix.current.Load().dimension
}

// Update is one atomic change: passages from RemoveSources are dropped first,
// then Insert is appended in order.
type Update struct {
	RemoveSources []string
	Insert        []store.Passage
}

// Insert appends passages in memory only. It does not deduplicate.
func (ix *Index) Insert(passages []store.Passage) error {
	ix.writeMu.Lock()
	defer ix.writeMu.Unlock()

	next, err := ix.build(ix.current.Load(), Update{Insert: passages})
	if err != nil {
		return err
	}
	ix.current.Store(next)
	return nil
}

// Commit applies u and persists the result as one unit. The new state becomes
// visible only after the snapshot is saved; on any failure the index is unchanged.
func (ix *Index) Commit(ctx context.Context, u Update) error {
	ix.writeMu.Lock()
	defer ix.writeMu.Unlock()

	next, err := ix.build(ix.current.Load(), u)
	if err != nil {
		return err
	}
	if err := ix.save(ctx, next); err != nil {
		return err
	}
	ix.current.Store(next)
	return nil
}

// Persist saves the currently visible state. Without a store it is a no-op.
func (ix *Index) Persist(ctx context.Context) error {
	ix.writeMu.Lock()
	defer ix.writeMu.Unlock()
	return ix.save(ctx, ix.current.Load())
}

// Snapshot returns the durable form of the current state. Passages share
// storage with the index and must be treated as read-only.
func (ix *Index) Snapshot() *Snapshot {
	return ix.snapshotOf(ix.current.Load())
}

// Search returns at most k passages ordered by descending score. Equal scores
// keep insertion order. An empty index or k <= 0 yields an empty result.
func (ix *Index) Search(query []float32, k int) ([]store.ScoredPassage, error) {
	v := ix.current.Load()
	if k <= 0 || len(v.passages) == 0 {
		return []store.ScoredPassage{}, nil
	}
	if len(query) != v.dimension {
		return nil, fmt.Errorf("%w: query has %d, index has %d", ErrDimensionMismatch, len(query), v.dimension)
	}

	type hit struct {
		pos   int
		score float64
	}
	qNorm := magnitude(query)
	hits := make([]hit, len(v.passages))
	for i, p := range v.passages {
		hits[i] = hit{pos: i, score: ix.metric.score(query, qNorm, p.Embedding, v.norms[i])}
	}
	sort.SliceStable(hits, func(a, b int) bool {
		return hits[a].score > hits[b].score
	})

	k = min(k, len(hits))
	out := make([]store.ScoredPassage, k)
	for i := 0; i < k; i++ {
		out[i] = store.ScoredPassage{Passage: v.passages[hits[i].pos], Score: hits[i].score}
	}
	return out, nil
}

func (ix *Index) build(cur *view, u Update) (*view, error) {
	dim := cur.dimension

	keep := cur.passages
	keepNorms := cur.norms
	if len(u.RemoveSources) > 0 {
		keep, keepNorms = nil, nil
		for i, p := range cur.passages {
			if slices.Contains(u.RemoveSources, p.SourceID) {
				continue
			}
			keep = append(keep, p)
			keepNorms = append(keepNorms, cur.norms[i])
		}
		if len(keep) == 0 {
			dim = 0
		}
	}

	for i, p := range u.Insert {
		if len(p.Embedding) == 0 {
			return nil, fmt.Errorf("%w: passage %d has no embedding", ErrDimensionMismatch, i)
		}
		if dim == 0 {
			dim = len(p.Embedding)
		}
		if len(p.Embedding) != dim {
			return nil, fmt.Errorf("%w: passage %d has %d, index has %d", ErrDimensionMismatch, i, len(p.Embedding), dim)
		}
	}

	next := &view{
		dimension: dim,
		passages:  make([]store.Passage, 0, len(keep)+len(u.Insert)),
		norms:     make([]float64, 0, len(keep)+len(u.Insert)),
	}
	next.passages = append(next.passages, keep...)
	next.norms = append(next.norms, keepNorms...)
	for _, p := range u.Insert {
		p = clonePassage(p)
		next.passages = append(next.passages, p)
		next.norms = append(next.norms, magnitude(p.Embedding))
	}
	return next, nil
}

func (ix *Index) save(ctx context.Context, v *view) error {
	if ix.store == nil {
		return nil
	}
	if ix.persistTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, ix.persistTimeout)
		defer cancel()
	}

	start := time.Now()
	if err := ix.store.Save(ctx, ix.key, ix.snapshotOf(v)); err != nil {
		ix.logger.Error("vector snapshot save failed", zap.String("key", ix.key), zap.Error(err))
		return apperror.FromContext(apperror.StagePersistence, err, apperror.Internal)
	}
	ix.logger.Debug("vector snapshot saved",
		zap.String("key", ix.key), zap.Int("passages", len(v.passages)), zap.Duration("took", time.Since(start)))
	return nil
}

func (ix *Index) snapshotOf(v *view) *Snapshot {
	return &Snapshot{
		Version:   SnapshotVersion,
		Metric:    ix.metric,
		Dimension: v.dimension,
		Count:     len(v.passages),
		Passages:  slices.Clone(v.passages),
	}
}

// clonePassage detaches a passage from caller-owned slices and maps.
func clonePassage(p store.Passage) store.Passage {
	p.Embedding = slices.Clone(p.Embedding)
	if p.Metadata != nil {
		p.Metadata = maps.Clone(p.Metadata)
	}
	return p
}
