package usecases

import (
	"context"
	"fmt"
	"strings"

	"github.com/0xcro3dile/coursechat-go/internal/domain/entities"
	"github.com/0xcro3dile/coursechat-go/internal/domain/ports"
)

// RetrievalUseCase answers free-text prompts from the indexed course corpus.
// It implements ports.Oracle.
type RetrievalUseCase struct {
	embedder    ports.EmbeddingService
	vectorStore ports.VectorStore
	llm         ports.LLMService
	topK        int
}

var _ ports.Oracle = (*RetrievalUseCase)(nil)

// NewRetrievalUseCase creates a RetrievalUseCase with injected dependencies.
func NewRetrievalUseCase(
	embedder ports.EmbeddingService,
	vectorStore ports.VectorStore,
	llm ports.LLMService,
	topK int,
) *RetrievalUseCase {
	if topK <= 0 {
		topK = 4
	}
	return &RetrievalUseCase{
		embedder:    embedder,
		vectorStore: vectorStore,
		llm:         llm,
		topK:        topK,
	}
}

// Ask retrieves the chunks closest to prompt and generates an answer from them.
func (uc *RetrievalUseCase) Ask(ctx context.Context, prompt string) (string, error) {
	results, err := uc.Search(ctx, prompt)
	if err != nil {
		return "", err
	}

	contextParts := make([]string, len(results))
	for i, r := range results {
		contextParts[i] = fmt.Sprintf("[Source: %s]\n%s", r.SourceDoc, r.Chunk.Content)
	}

	answer, err := uc.llm.Generate(ctx, buildGroundedPrompt(prompt, contextParts), contextParts)
	if err != nil {
		return "", fmt.Errorf("generating response: %w", err)
	}
	return strings.TrimSpace(answer), nil
}

// Search only retrieves relevant chunks without LLM generation.
func (uc *RetrievalUseCase) Search(ctx context.Context, query string) ([]entities.SearchResult, error) {
	embedding, err := uc.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	results, err := uc.vectorStore.Search(ctx, embedding, uc.topK)
	if err != nil {
		return nil, fmt.Errorf("searching vectors: %w", err)
	}
	return results, nil
}

func buildGroundedPrompt(question string, context []string) string {
	var sb strings.Builder
	sb.WriteString("You are a helpful assistant for university course planning. ")
	sb.WriteString("Answer the question using only the course records below. ")
	sb.WriteString("Refer to courses by department and number, for example COMPSCI 61A.\n\n")
	sb.WriteString("Course records:\n")
	sb.WriteString(strings.Join(context, "\n\n"))
	sb.WriteString("\n\nQuestion: ")
	sb.WriteString(question)
	sb.WriteString("\n\nAnswer:")
	return sb.String()
}
