// Package usecases contains application business rules.
// Usecases orchestrate entities and depend on port interfaces only.
package usecases

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/0xcro3dile/coursechat-go/internal/domain/entities"
	"github.com/0xcro3dile/coursechat-go/internal/domain/ports"
)

// IngestUseCase builds the retrieval index from course records.
type IngestUseCase struct {
	embedder     ports.EmbeddingService
	vectorStore  ports.VectorStore
	chunkSize    int
	chunkOverlap int
}

// NewIngestUseCase creates an IngestUseCase with injected dependencies.
func NewIngestUseCase(
	embedder ports.EmbeddingService,
	vectorStore ports.VectorStore,
	chunkSize, chunkOverlap int,
) *IngestUseCase {
	if chunkSize <= 0 {
		chunkSize = 500 // characters
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		chunkOverlap = 50
	}
	return &IngestUseCase{
		embedder:     embedder,
		vectorStore:  vectorStore,
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
	}
}

// IngestCatalog replaces the index with one document per course.
// It returns the number of chunks stored.
func (uc *IngestUseCase) IngestCatalog(ctx context.Context, courses []entities.Course) (int, error) {
	if err := uc.vectorStore.Clear(ctx); err != nil {
		return 0, fmt.Errorf("clearing index: %w", err)
	}

	now := time.Now()
	total := 0
	for _, c := range courses {
		doc, err := courseDocument(c, now)
		if err != nil {
			return total, err
		}
		n, err := uc.ingest(ctx, doc)
		if err != nil {
			return total, fmt.Errorf("indexing %s: %w", c.Code(), err)
		}
		total += n
	}
	return total, nil
}

// Ingest processes a document: chunks it, embeds it, stores it.
func (uc *IngestUseCase) Ingest(ctx context.Context, doc *entities.Document) error {
	_, err := uc.ingest(ctx, doc)
	return err
}

func (uc *IngestUseCase) ingest(ctx context.Context, doc *entities.Document) (int, error) {
	chunks := uc.chunkDocument(doc)
	if len(chunks) == 0 {
		return 0, nil
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Content
	}

	embeddings, err := uc.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embedding chunks: %w", err)
	}
	if len(embeddings) != len(chunks) {
		return 0, fmt.Errorf("embedding chunks: got %d vectors for %d chunks", len(embeddings), len(chunks))
	}

	for i := range chunks {
		chunks[i].Embedding = embeddings[i]
	}

	if err := uc.vectorStore.Store(ctx, chunks); err != nil {
		return 0, fmt.Errorf("storing chunks: %w", err)
	}
	return len(chunks), nil
}

// courseDocument serializes a course the way the index stores it; the
// document name is the course code so answers can cite it.
func courseDocument(c entities.Course, now time.Time) (*entities.Document, error) {
	body, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("serializing %s: %w", c.ID, err)
	}
	return &entities.Document{
		ID:        c.ID,
		Name:      c.Code(),
		Content:   string(body),
		CreatedAt: now,
	}, nil
}

// chunkDocument splits document content into overlapping chunks,
// breaking at word boundaries where possible.
func (uc *IngestUseCase) chunkDocument(doc *entities.Document) []entities.Chunk {
	content := strings.TrimSpace(doc.Content)
	if len(content) == 0 {
		return nil
	}

	var chunks []entities.Chunk
	start := 0
	index := 0

	for start < len(content) {
		end := start + uc.chunkSize
		if end > len(content) {
			end = len(content)
		}

		if end < len(content) {
			lastSpace := strings.LastIndex(content[start:end], " ")
			if lastSpace > 0 {
				end = start + lastSpace
			}
		}

		chunkContent := strings.TrimSpace(content[start:end])
		if len(chunkContent) > 0 {
			chunks = append(chunks, entities.Chunk{
				ID:         generateChunkID(doc.ID, index),
				DocumentID: doc.ID,
				Source:     doc.Name,
				Content:    chunkContent,
				Index:      index,
			})
			index++
		}

		if end >= len(content) {
			break
		}
		next := end - uc.chunkOverlap
		if next <= start {
			next = end
		}
		start = next
	}

	return chunks
}

// generateChunkID creates a deterministic ID for a chunk.
func generateChunkID(docID string, index int) string {
	hash := sha256.Sum256([]byte(fmt.Sprintf("%s#%d", docID, index)))
	return hex.EncodeToString(hash[:8])
}
