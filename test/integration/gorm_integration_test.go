package integration

import (
	"context"
	"log"
	"os"
	"testing"

	"swimcoach-be/pkg/database"
	"swimcoach-be/pkg/store"
	"swimcoach-be/pkg/vectorindex"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newPostgresStore(t *testing.T) *vectorindex.GormStore {
	t.Helper()
	// Load .env from root
	if err := godotenv.Load("../../.env"); err != nil {
		log.Println("No .env file found, using system env")
	}

	dsn := os.Getenv("TEST_DB_CONNECTION_STRING")
	if dsn == "" {
		t.Skip("Skipping integration test: TEST_DB_CONNECTION_STRING not set")
	}

	gormDB, err := database.NewGormDBFromDSN(dsn, zap.NewNop())
	require.NoError(t, err, "Failed to connect to DB")
	t.Cleanup(func() {
		sqlDB, _ := gormDB.DB()
		_ = sqlDB.Close()
	})

	st := vectorindex.NewGormStore(gormDB)
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func TestGormStore_Postgres(t *testing.T) {
	st := newPostgresStore(t)
	ctx := context.Background()
	key := "it-" + uuid.NewString()

	t.Run("Missing snapshot", func(t *testing.T) {
		_, err := st.Load(ctx, key)
		assert.ErrorIs(t, err, vectorindex.ErrSnapshotNotFound)
	})

	t.Run("Commit and restore", func(t *testing.T) {
		ix, err := vectorindex.New(vectorindex.MetricCosine, vectorindex.WithStore(st, key))
		require.NoError(t, err)

		batch := []store.Passage{
			{ID: uuid.NewString(), Text: "Anna 100 fly 1:04", Embedding: []float32{0.6, 0.8, 0}, SourceID: "anna.txt", Metadata: map[string]string{"chunk_index": "0"}},
			{ID: uuid.NewString(), Text: "Ben 50 back 31.2", Embedding: []float32{0, 0.6, 0.8}, SourceID: "ben.txt"},
		}
		require.NoError(t, ix.Commit(ctx, vectorindex.Update{Insert: batch}))

		restored, err := vectorindex.Restore(ctx, vectorindex.MetricCosine, vectorindex.WithStore(st, key))
		require.NoError(t, err)
		require.Equal(t, 2, restored.Len())
		assert.Equal(t, 3, restored.Dimension())

		hits, err := restored.Search([]float32{0.6, 0.8, 0}, 1)
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, "anna.txt", hits[0].Passage.SourceID)
		assert.Equal(t, "0", hits[0].Passage.Metadata["chunk_index"])
	})

	t.Run("Replace source", func(t *testing.T) {
		ix, err := vectorindex.Restore(ctx, vectorindex.MetricCosine, vectorindex.WithStore(st, key))
		require.NoError(t, err)

		err = ix.Commit(ctx, vectorindex.Update{
			Insert:        []store.Passage{{ID: uuid.NewString(), Text: "Anna 200 IM", Embedding: []float32{1, 0, 0}, SourceID: "anna.txt"}},
			RemoveSources: []string{"anna.txt"},
		})
		require.NoError(t, err)

		snap, err := st.Load(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, 2, snap.Count)
	})
}
