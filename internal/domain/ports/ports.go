// Package ports defines interfaces for external dependencies.
// Usecases depend on these abstractions; adapters implement them.
package ports

import (
	"context"

	"github.com/0xcro3dile/coursechat-go/internal/domain/entities"
)

// Oracle answers a free-text prompt from the indexed course corpus.
// Nothing is assumed about the answer: it may mention no course at all.
type Oracle interface {
	Ask(ctx context.Context, prompt string) (string, error)
}

// EmbeddingService generates vector embeddings for text.
type EmbeddingService interface {
	// Embed generates a vector embedding for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts efficiently.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// LLMService generates text responses from a language model.
type LLMService interface {
	// Generate produces a response given a prompt and its retrieved context.
	Generate(ctx context.Context, prompt string, context []string) (string, error)
}

// VectorStore persists and queries chunk embeddings.
type VectorStore interface {
	// Store saves chunks with their embeddings.
	Store(ctx context.Context, chunks []entities.Chunk) error

	// Search finds the most similar chunks to a query embedding.
	Search(ctx context.Context, embedding []float32, topK int) ([]entities.SearchResult, error)

	// Delete removes all chunks for a document.
	Delete(ctx context.Context, documentID string) error

	// Clear removes all data from the store.
	Clear(ctx context.Context) error
}

// CatalogSource fetches the course catalog from an upstream system.
type CatalogSource interface {
	Fetch(ctx context.Context) ([]entities.Course, error)
}

// CatalogStore loads and persists the flat course list.
type CatalogStore interface {
	Load(ctx context.Context, path string) ([]entities.Course, error)
	Save(ctx context.Context, path string, courses []entities.Course) error
}

// FileWatcher monitors a file for changes.
type FileWatcher interface {
	// Watch starts monitoring path and emits events for it.
	Watch(ctx context.Context, path string) (<-chan FileEvent, error)

	// Stop stops the watcher.
	Stop() error
}

// FileEvent represents a file system change.
type FileEvent struct {
	Path      string
	Operation FileOperation
}

// FileOperation is the type of file change.
type FileOperation int

const (
	FileCreated FileOperation = iota
	FileModified
	FileDeleted
)
