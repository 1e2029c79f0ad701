// Package vectordb provides vector store adapters implementing ports.VectorStore.
// Search is brute-force cosine similarity; a course catalog is a few thousand
// chunks at most.
package vectordb

import (
	"math"
	"sort"

	"github.com/0xcro3dile/coursechat-go/internal/domain/entities"
)

// cosineSimilarity calculates cosine similarity between two vectors.
// Mismatched or empty vectors score 0.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

// rank scores chunks against query and returns the best topK, highest score
// first. Equal scores are ordered by chunk id so results are reproducible.
func rank(query []float32, chunks []entities.Chunk, topK int) []entities.SearchResult {
	results := make([]entities.SearchResult, 0, len(chunks))
	for _, chunk := range chunks {
		results = append(results, entities.SearchResult{
			Chunk:     chunk,
			Score:     cosineSimilarity(query, chunk.Embedding),
			SourceDoc: chunk.Source,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Chunk.ID < results[j].Chunk.ID
	})

	if topK > 0 && len(results) > topK {
		results = results[:topK]
	}
	return results
}
