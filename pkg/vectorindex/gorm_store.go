package vectorindex

import (
	"context"
	"errors"
	"fmt"
	"time"

	"swimcoach-be/pkg/store"

	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type snapshotModel struct {
	SnapshotKey  string `gorm:"primaryKey;size:128"`
	Version      int
	Metric       string `gorm:"size:16"`
	Dimension    int
	PassageCount int
	UpdatedAt    time.Time
}

func (snapshotModel) TableName() string {
	return "vector_snapshots"
}

type passageModel struct {
	SnapshotKey string `gorm:"primaryKey;size:128"`
	Ordinal     int    `gorm:"primaryKey"`
	PassageId   string `gorm:"size:64;index"`
	SourceId    string `gorm:"index"`
	Text        string
	Metadata    datatypes.JSONMap
	Embedding   pgvector.Vector `gorm:"type:vector"`
}

func (passageModel) TableName() string {
	return "vector_snapshot_passages"
}

// GormStore persists snapshots in two tables: a header row per key and
// one row per passage. Save replaces both inside a single transaction.
type GormStore struct {
	db        *gorm.DB
	batchSize int
}

var _ SnapshotStore = (*GormStore)(nil)

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db, batchSize: 200}
}

// Migrate creates the snapshot tables, enabling pgvector on Postgres.
func (s *GormStore) Migrate(ctx context.Context) error {
	db := s.db.WithContext(ctx)
	if db.Dialector.Name() == "postgres" {
		if err := db.Exec("CREATE EXTENSION IF NOT EXISTS vector").Error; err != nil {
			return fmt.Errorf("enable pgvector: %w", err)
		}
	}
	return db.AutoMigrate(&snapshotModel{}, &passageModel{})
}

func (s *GormStore) Save(ctx context.Context, key string, snap *Snapshot) error {
	rows := make([]passageModel, len(snap.Passages))
	for i, p := range snap.Passages {
		rows[i] = passageModel{
			SnapshotKey: key,
			Ordinal:     i,
			PassageId:   p.ID,
			SourceId:    p.SourceID,
			Text:        p.Text,
			Metadata:    toJSONMap(p.Metadata),
			Embedding:   pgvector.NewVector(p.Embedding),
		}
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("snapshot_key = ?", key).Delete(&passageModel{}).Error; err != nil {
			return fmt.Errorf("clear passages: %w", err)
		}
		if len(rows) > 0 {
			if err := tx.CreateInBatches(rows, s.batchSize).Error; err != nil {
				return fmt.Errorf("insert passages: %w", err)
			}
		}
		header := snapshotModel{
			SnapshotKey:  key,
			Version:      snap.Version,
			Metric:       string(snap.Metric),
			Dimension:    snap.Dimension,
			PassageCount: len(rows),
			UpdatedAt:    time.Now(),
		}
		if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&header).Error; err != nil {
			return fmt.Errorf("upsert snapshot header: %w", err)
		}
		return nil
	})
}

func (s *GormStore) Load(ctx context.Context, key string) (*Snapshot, error) {
	db := s.db.WithContext(ctx)

	var header snapshotModel
	if err := db.Where("snapshot_key = ?", key).First(&header).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSnapshotNotFound
		}
		return nil, err
	}

	var rows []passageModel
	if err := db.Where("snapshot_key = ?", key).Order("ordinal").Find(&rows).Error; err != nil {
		return nil, err
	}

	snap := &Snapshot{
		Version:   header.Version,
		Metric:    Metric(header.Metric),
		Dimension: header.Dimension,
		Count:     header.PassageCount,
		Passages:  make([]store.Passage, len(rows)),
	}
	for i, r := range rows {
		snap.Passages[i] = store.Passage{
			ID:        r.PassageId,
			Text:      r.Text,
			Embedding: r.Embedding.Slice(),
			SourceID:  r.SourceId,
			Metadata:  fromJSONMap(r.Metadata),
		}
	}
	return snap, nil
}

func toJSONMap(m map[string]string) datatypes.JSONMap {
	if len(m) == 0 {
		return nil
	}
	out := make(datatypes.JSONMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func fromJSONMap(m datatypes.JSONMap) map[string]string {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = fmt.Sprint(v)
	}
	return out
}
