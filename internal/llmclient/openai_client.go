package llmclient

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.uber.org/zap"

	"github.com/xkilldash9x/synthmind/api/schemas"
	"github.com/xkilldash9x/synthmind/internal/config"
)

// DefaultOpenAIBaseURL is used when no endpoint is configured. OpenRouter speaks
// the OpenAI chat completions protocol.
const DefaultOpenAIBaseURL = "https://openrouter.ai/api/v1"

// OpenAIClient implements schemas.LLMClient against any OpenAI-compatible
// chat completions endpoint.
type OpenAIClient struct {
	client     openai.Client
	httpClient *http.Client
	model      string
	config     config.LLMConfig
	logger     *zap.Logger
}

var _ schemas.LLMClient = (*OpenAIClient)(nil)

// NewOpenAIClient initializes the client. Retries are delegated to the SDK.
func NewOpenAIClient(cfg config.LLMConfig, logger *zap.Logger) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai API key is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("openai model is required")
	}

	baseURL := cfg.Endpoint
	if baseURL == "" {
		baseURL = DefaultOpenAIBaseURL
	}
	httpClient := &http.Client{Timeout: cfg.APITimeout}

	return &OpenAIClient{
		client: openai.NewClient(
			option.WithAPIKey(cfg.APIKey),
			option.WithBaseURL(baseURL),
			option.WithHTTPClient(httpClient),
			option.WithMaxRetries(max(cfg.MaxRetries, 0)),
		),
		httpClient: httpClient,
		model:      cfg.Model,
		config:     cfg,
		logger:     logger.Named("llm_client.openai"),
	}, nil
}

// Generate sends one system and one user message and returns the first choice.
func (c *OpenAIClient) Generate(ctx context.Context, req schemas.GenerationRequest) (string, error) {
	maxTokens := req.Options.MaxTokens
	if maxTokens == 0 {
		maxTokens = c.config.MaxTokens
	}

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if req.SystemPrompt != "" {
		messages = append(messages, openai.SystemMessage(req.SystemPrompt))
	}
	messages = append(messages, openai.UserMessage(req.UserPrompt))

	params := openai.ChatCompletionNewParams{
		Model:       c.model,
		Messages:    messages,
		Temperature: openai.Float(req.Options.Temperature),
	}
	if maxTokens > 0 {
		params.MaxTokens = openai.Int(int64(maxTokens))
	}

	start := time.Now()
	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("chat completion request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}

	c.logger.Info("LLM generation complete",
		zap.String("model", resp.Model),
		zap.Duration("duration", time.Since(start)),
		zap.Int64("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int64("completion_tokens", resp.Usage.CompletionTokens),
		zap.Int64("total_tokens", resp.Usage.TotalTokens),
	)
	return resp.Choices[0].Message.Content, nil
}

// Close releases idle connections.
func (c *OpenAIClient) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}
