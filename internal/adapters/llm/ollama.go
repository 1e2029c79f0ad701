// Package llm provides the answer generation adapters.
// Each adapter implements ports.LLMService.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/0xcro3dile/coursechat-go/internal/domain/ports"
)

const systemPrompt = "You are a course planning assistant. Answer briefly and name courses by department and number."

// OllamaLLMAdapter implements ports.LLMService using the Ollama chat API.
type OllamaLLMAdapter struct {
	baseURL string
	model   string
	client  *http.Client
	logger  zerolog.Logger
}

var _ ports.LLMService = (*OllamaLLMAdapter)(nil)

// NewOllamaLLMAdapter creates a new Ollama LLM adapter.
func NewOllamaLLMAdapter(baseURL, model string, timeout time.Duration, logger zerolog.Logger) *OllamaLLMAdapter {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		model = "llama3.2"
	}
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &OllamaLLMAdapter{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		client:  &http.Client{Timeout: timeout},
		logger:  logger.With().Str("adapter", "ollama-llm").Logger(),
	}
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Options  ollamaOptions   `json:"options"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
}

type ollamaChatResponse struct {
	Message ollamaMessage `json:"message"`
	Done    bool          `json:"done"`
}

// Generate produces a response for prompt. The retrieved context is already
// embedded in prompt.
func (a *OllamaLLMAdapter) Generate(ctx context.Context, prompt string, context []string) (string, error) {
	reqBody := ollamaChatRequest{
		Model: a.model,
		Messages: []ollamaMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		Options: ollamaOptions{Temperature: 0},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/api/chat", bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := a.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling Ollama: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", statusError("Ollama", resp)
	}

	var chatResp ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}

	a.logger.Debug().
		Str("model", a.model).
		Int("sources", len(context)).
		Dur("elapsed", time.Since(start)).
		Msg("generated answer")
	return chatResp.Message.Content, nil
}

// statusError reports a non-200 response with the start of its body.
func statusError(service string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	if msg := strings.TrimSpace(string(body)); msg != "" {
		return fmt.Errorf("%s returned status %d: %s", service, resp.StatusCode, msg)
	}
	return fmt.Errorf("%s returned status %d", service, resp.StatusCode)
}
