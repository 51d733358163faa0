package vectorindex

import (
	"context"
	"errors"
	"fmt"

	"swimcoach-be/pkg/store"
)

// SnapshotVersion is bumped whenever the persisted layout changes.
const SnapshotVersion = 1

var ErrSnapshotNotFound = errors.New("vector snapshot not found")

// Snapshot is the durable form of an index.
type Snapshot struct {
	Version   int             `json:"version"`
	Metric    Metric          `json:"metric"`
	Dimension int             `json:"dimension"`
	Count     int             `json:"count"`
	Passages  []store.Passage `json:"passages"`
}

// Validate reports whether the snapshot is internally consistent.
func (s *Snapshot) Validate() error {
	if s == nil {
		return errors.New("nil snapshot")
	}
	if s.Version != SnapshotVersion {
		return fmt.Errorf("unsupported snapshot version %d", s.Version)
	}
	if err := s.Metric.Validate(); err != nil {
		return err
	}
	if s.Count != len(s.Passages) {
		return fmt.Errorf("snapshot declares %d passages but holds %d", s.Count, len(s.Passages))
	}
	if len(s.Passages) > 0 && s.Dimension <= 0 {
		return fmt.Errorf("snapshot has passages but dimension %d", s.Dimension)
	}
	for i, p := range s.Passages {
		if len(p.Embedding) != s.Dimension {
			return fmt.Errorf("passage %d has dimension %d, snapshot dimension is %d", i, len(p.Embedding), s.Dimension)
		}
	}
	return nil
}

// SnapshotStore persists snapshots under a fixed key. Save must be atomic:
// after a failed or interrupted Save, Load returns the previous snapshot.
type SnapshotStore interface {
	Save(ctx context.Context, key string, snap *Snapshot) error
	// Load returns ErrSnapshotNotFound when nothing was ever saved under key.
	Load(ctx context.Context, key string) (*Snapshot, error)
}
