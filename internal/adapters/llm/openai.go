package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/rs/zerolog"

	"github.com/0xcro3dile/coursechat-go/internal/domain/ports"
)

// OpenAIAdapter implements ports.LLMService with an OpenAI-compatible chat
// completions endpoint.
type OpenAIAdapter struct {
	client openai.Client
	model  string
	logger zerolog.Logger
}

var _ ports.LLMService = (*OpenAIAdapter)(nil)

// NewOpenAIAdapter creates a chat completions adapter. An empty baseURL uses
// the public OpenAI API. Retries are left to the caller.
func NewOpenAIAdapter(apiKey, baseURL, model string, timeout time.Duration, logger zerolog.Logger) *OpenAIAdapter {
	if model == "" {
		model = string(openai.ChatModelGPT4oMini)
	}
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	opts := []option.RequestOption{
		option.WithAPIKey(strings.TrimSpace(apiKey)),
		option.WithHTTPClient(&http.Client{Timeout: timeout}),
		option.WithMaxRetries(0),
	}
	if baseURL = strings.TrimSpace(baseURL); baseURL != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimRight(baseURL, "/")+"/"))
	}
	return &OpenAIAdapter{
		client: openai.NewClient(opts...),
		model:  model,
		logger: logger.With().Str("adapter", "openai-llm").Logger(),
	}
}

// Generate produces a response for prompt.
func (a *OpenAIAdapter) Generate(ctx context.Context, prompt string, context []string) (string, error) {
	start := time.Now()
	resp, err := a.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(a.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(prompt),
		},
		Temperature: openai.Float(0),
	})
	if err != nil {
		return "", fmt.Errorf("calling OpenAI: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("OpenAI returned no choices")
	}

	a.logger.Debug().
		Str("model", a.model).
		Int("sources", len(context)).
		Int64("tokens", resp.Usage.TotalTokens).
		Dur("elapsed", time.Since(start)).
		Msg("generated answer")
	return resp.Choices[0].Message.Content, nil
}
