package bootstrap

import (
	"context"
	"fmt"
	"sync"

	"github.com/0xcro3dile/coursechat-go/internal/adapters/vectordb"
	"github.com/0xcro3dile/coursechat-go/internal/config"
	"github.com/0xcro3dile/coursechat-go/internal/domain/catalog"
	"github.com/0xcro3dile/coursechat-go/internal/domain/ports"
	"github.com/0xcro3dile/coursechat-go/internal/domain/usecases"
)

// searchIndex is the retrieval oracle for one catalog snapshot. An index
// that is not yet built is filled on the first Ask, so questions answered
// from the catalog never touch the embedding service.
type searchIndex struct {
	cat       *catalog.Catalog
	store     ports.VectorStore
	ingest    *usecases.IngestUseCase
	retrieval *usecases.RetrievalUseCase

	mu    sync.Mutex
	built bool
}

var _ ports.Oracle = (*searchIndex)(nil)

// newSearchIndex returns the index a router over cat searches. The memory
// driver gets a private store per snapshot so a reload never disturbs the
// index in-flight queries are reading. A persistent store is shared and
// maintained by the index command.
func (a *App) newSearchIndex(cat *catalog.Catalog) *searchIndex {
	if a.cfg.VectorDB.Driver != config.StoreMemory {
		return &searchIndex{cat: cat, store: a.store, retrieval: a.retrieval, built: true}
	}
	store := vectordb.NewInMemoryStore()
	return &searchIndex{
		cat:       cat,
		store:     store,
		ingest:    usecases.NewIngestUseCase(a.embedder, store, a.cfg.Index.ChunkSize, a.cfg.Index.ChunkOverlap),
		retrieval: usecases.NewRetrievalUseCase(a.embedder, store, a.generator, a.cfg.Index.TopK),
	}
}

// Ask builds the index if needed and answers from it.
func (ix *searchIndex) Ask(ctx context.Context, prompt string) (string, error) {
	if err := ix.Build(ctx); err != nil {
		return "", err
	}
	return ix.retrieval.Ask(ctx, prompt)
}

// Build fills the index once. A failed build is retried by the next call.
func (ix *searchIndex) Build(ctx context.Context) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if ix.built {
		return nil
	}
	if _, err := ix.ingest.IngestCatalog(ctx, ix.cat.All()); err != nil {
		return fmt.Errorf("building index: %w", err)
	}
	ix.built = true
	return nil
}

// ChunkCount reports the stored chunks, or zero for a store that cannot say.
func (ix *searchIndex) ChunkCount(ctx context.Context) (int, error) {
	counter, ok := ix.store.(chunkCounter)
	if !ok {
		return 0, nil
	}
	return counter.ChunkCount(ctx)
}

// chunkCounter is implemented by both vector stores.
type chunkCounter interface {
	ChunkCount(ctx context.Context) (int, error)
}
