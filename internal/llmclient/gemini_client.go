// internal/llmclient/gemini_client.go
package llmclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/synthmind/api/schemas"
	"github.com/xkilldash9x/synthmind/internal/config"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// GeminiClient implements schemas.LLMClient against the Gemini REST API.
type GeminiClient struct {
	apiKey         string
	endpoint       string
	httpClient     *http.Client
	logger         *zap.Logger
	config         config.LLMConfig
	backoffFactory func() backoff.BackOff
}

var _ schemas.LLMClient = (*GeminiClient)(nil)

// -- Gemini API Request/Response Structures --
type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
	Role  string       `json:"role,omitempty"`
}

type geminiGenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

type geminiRequestPayload struct {
	Contents          []geminiContent        `json:"contents"`
	SystemInstruction *geminiContent         `json:"system_instruction,omitempty"`
	GenerationConfig  geminiGenerationConfig `json:"generationConfig"`
}

type geminiResponsePayload struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
}

// NewGeminiClient initializes the client.
func NewGeminiClient(cfg config.LLMConfig, logger *zap.Logger) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = fmt.Sprintf("https://generativelanguage.googleapis.com/v1beta/models/%s:generateContent", cfg.Model)
	}

	maxRetries := uint64(max(cfg.MaxRetries, 0))
	return &GeminiClient{
		apiKey:     cfg.APIKey,
		endpoint:   endpoint,
		config:     cfg,
		httpClient: &http.Client{Timeout: cfg.APITimeout},
		logger:     logger.Named("llm_client.gemini"),
		backoffFactory: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 500 * time.Millisecond
			b.MaxInterval = 10 * time.Second
			b.MaxElapsedTime = time.Minute
			return backoff.WithMaxRetries(b, maxRetries)
		},
	}, nil
}

// Generate sends the prompts to Gemini, retrying transient failures.
func (c *GeminiClient) Generate(ctx context.Context, req schemas.GenerationRequest) (string, error) {
	body, err := json.Marshal(c.buildRequestPayload(req))
	if err != nil {
		return "", fmt.Errorf("failed to marshal request payload: %w", err)
	}

	var responseContent string
	operation := func() error {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to create HTTP request: %w", err))
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("x-goog-api-key", c.apiKey)

		start := time.Now()
		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			c.logger.Warn("Network error during LLM request, retrying...", zap.Error(err))
			return fmt.Errorf("failed to execute HTTP request: %w", err)
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to read response body: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			return c.handleAPIError(resp.StatusCode, respBody)
		}

		var payload geminiResponsePayload
		if err := json.Unmarshal(respBody, &payload); err != nil {
			return backoff.Permanent(fmt.Errorf("failed to decode response payload: %w", err))
		}
		if len(payload.Candidates) == 0 {
			return backoff.Permanent(fmt.Errorf("gemini API returned no candidates"))
		}

		candidate := payload.Candidates[0]
		if len(candidate.Content.Parts) == 0 {
			return backoff.Permanent(fmt.Errorf("gemini API returned empty content (reason: %s)", candidate.FinishReason))
		}

		c.logger.Info("LLM generation complete",
			zap.Duration("duration", time.Since(start)),
			zap.Int("prompt_tokens", payload.UsageMetadata.PromptTokenCount),
			zap.Int("completion_tokens", payload.UsageMetadata.CandidatesTokenCount),
			zap.Int("total_tokens", payload.UsageMetadata.TotalTokenCount),
		)

		var sb strings.Builder
		for _, p := range candidate.Content.Parts {
			sb.WriteString(p.Text)
		}
		responseContent = sb.String()
		return nil
	}

	if err := backoff.Retry(operation, backoff.WithContext(c.backoffFactory(), ctx)); err != nil {
		return "", err
	}
	return responseContent, nil
}

// Close is a no-op; the HTTP client holds no dedicated resources.
func (c *GeminiClient) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

func (c *GeminiClient) buildRequestPayload(req schemas.GenerationRequest) geminiRequestPayload {
	maxTokens := req.Options.MaxTokens
	if maxTokens == 0 {
		maxTokens = c.config.MaxTokens
	}
	payload := geminiRequestPayload{
		Contents: []geminiContent{
			{Role: "user", Parts: []geminiPart{{Text: req.UserPrompt}}},
		},
		GenerationConfig: geminiGenerationConfig{
			Temperature:     req.Options.Temperature,
			MaxOutputTokens: maxTokens,
		},
	}
	if req.SystemPrompt != "" {
		payload.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: req.SystemPrompt}}}
	}
	return payload
}

func (c *GeminiClient) handleAPIError(statusCode int, body []byte) error {
	c.logger.Error("Gemini API returned error status", zap.Int("status", statusCode), zap.String("response", string(body)))
	err := fmt.Errorf("gemini API error: status %d, body: %s", statusCode, string(body))

	switch statusCode {
	case http.StatusTooManyRequests, http.StatusServiceUnavailable, http.StatusInternalServerError, http.StatusBadGateway:
		return err
	default:
		return backoff.Permanent(err)
	}
}
