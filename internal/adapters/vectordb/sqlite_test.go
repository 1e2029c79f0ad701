package vectordb

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xcro3dile/coursechat-go/internal/domain/entities"
)

func newSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "nested", "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStore_StoreAndSearch(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()

	chunks := []entities.Chunk{
		{ID: "c1", DocumentID: "1", Source: "COMPSCI 61A", Content: "programs", Embedding: []float32{1.0, 0.0, 0.0}},
		{ID: "c2", DocumentID: "2", Source: "MATH 1A", Content: "calculus", Embedding: []float32{0.0, 1.0, 0.0}},
	}
	require.NoError(t, store.Store(ctx, chunks))

	results, err := store.Search(ctx, []float32{1.0, 0.1, 0.0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "c1", results[0].Chunk.ID)
	assert.Equal(t, "COMPSCI 61A", results[0].SourceDoc)
	assert.Equal(t, []float32{1, 0, 0}, results[0].Chunk.Embedding)
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestSQLiteStore_SkipsOtherDimensions(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, store.Store(ctx, []entities.Chunk{
		{ID: "old", DocumentID: "1", Content: "x", Embedding: []float32{1, 0}},
		{ID: "new", DocumentID: "1", Content: "y", Embedding: []float32{1, 0, 0}},
	}))

	results, err := store.Search(ctx, []float32{1, 0, 0}, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "new", results[0].Chunk.ID)
}

func TestSQLiteStore_Delete(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, store.Store(ctx, []entities.Chunk{
		{ID: "c1", DocumentID: "doc1", Content: "test", Embedding: []float32{1, 0, 0}},
	}))
	require.NoError(t, store.Delete(ctx, "doc1"))

	results, err := store.Search(ctx, []float32{1, 0, 0}, 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSQLiteStore_ClearAndPersist(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	ctx := context.Background()

	store, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Store(ctx, []entities.Chunk{
		{ID: "c1", Content: "a", Embedding: []float32{1, 0, 0}},
		{ID: "c2", Content: "b", Embedding: []float32{0, 1, 0}},
	}))
	require.NoError(t, store.Close())

	reopened, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer reopened.Close()

	count, err := reopened.ChunkCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	require.NoError(t, reopened.Clear(ctx))
	count, err = reopened.ChunkCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestEmbeddingCodec(t *testing.T) {
	v := []float32{0.5, -1.25, 3e-7}
	got, err := decodeEmbedding(encodeEmbedding(v))
	require.NoError(t, err)
	assert.Equal(t, v, got)

	_, err = decodeEmbedding([]byte{1, 2, 3})
	assert.Error(t, err)
}
