// Package openai implements the llm.Client interface against the
// OpenAI-compatible chat-completions and embeddings wire format.
//
// It speaks plain HTTP/JSON rather than an SDK so the same implementation
// serves any endpoint exposing the de-facto standard surface (OpenAI,
// Azure-compatible gateways, local inference servers).
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/loomkit/loom-api/internal/config"
	"github.com/loomkit/loom-api/internal/domain"
	"github.com/loomkit/loom-api/internal/llm"
)

const defaultBaseURL = "https://api.openai.com/v1"

// Client implements llm.Client against an OpenAI-compatible endpoint.
type Client struct {
	logger *slog.Logger
	http   *http.Client

	baseURL        string
	apiKey         string
	model          string
	embeddingModel string
	embeddingDim   int
	policy         llm.RetryPolicy
}

var _ llm.Client = (*Client)(nil)

// New creates an OpenAI-backed llm.Client from the given configuration.
func New(logger *slog.Logger, cfg config.LLMConfig) (*Client, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	if cfg.OpenAIAPIKey == "" {
		return nil, fmt.Errorf("%w: openai API key cannot be empty", llm.ErrInvalidConfig)
	}

	if cfg.ModelName == "" {
		return nil, fmt.Errorf("%w: model name cannot be empty", llm.ErrInvalidConfig)
	}

	if cfg.EmbeddingModel == "" || cfg.EmbeddingDim <= 0 {
		return nil, fmt.Errorf("%w: embedding model and dimension must be set", llm.ErrInvalidConfig)
	}

	baseURL := strings.TrimSuffix(cfg.OpenAIBaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &Client{
		logger:         logger,
		http:           &http.Client{Timeout: 90 * time.Second},
		baseURL:        baseURL,
		apiKey:         cfg.OpenAIAPIKey,
		model:          cfg.ModelName,
		embeddingModel: cfg.EmbeddingModel,
		embeddingDim:   cfg.EmbeddingDim,
		policy: llm.RetryPolicy{
			MaxRetries: cfg.MaxRetries,
			BaseDelay:  time.Duration(cfg.RetryDelaySeconds) * time.Second,
		},
	}, nil
}

// ModelName returns the configured chat model identifier.
func (c *Client) ModelName() string {
	return c.model
}

// chatRequestBody is the chat-completions request payload.
type chatRequestBody struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	TopP        float64       `json:"top_p"`
	MaxTokens   int           `json:"max_tokens"`
	Stop        []string      `json:"stop,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatResponseBody is the subset of the chat-completions response we consume.
type chatResponseBody struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// Chat sends the conversation to the chat-completions endpoint and returns
// the normalized reply. HTTP 429 and 5xx responses are retried; a
// content_filter finish reason is permanent.
func (c *Client) Chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	body := chatRequestBody{
		Model:       c.model,
		Messages:    make([]chatMessage, 0, len(req.Messages)),
		Temperature: req.Settings.Temperature,
		TopP:        req.Settings.TopP,
		MaxTokens:   req.Settings.MaxTokens,
		Stop:        req.Settings.Stop,
	}
	for _, msg := range req.Messages {
		body.Messages = append(body.Messages, chatMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		})
	}

	var resp *llm.ChatResponse
	err := llm.Retry(ctx, c.logger, c.policy, "openai.chat", func(ctx context.Context) error {
		var parsed chatResponseBody
		if err := c.post(ctx, "/chat/completions", body, &parsed); err != nil {
			return err
		}

		if len(parsed.Choices) == 0 {
			return fmt.Errorf("%w: no choices in response", llm.ErrInvalidResponse)
		}

		choice := parsed.Choices[0]
		if choice.FinishReason == "content_filter" {
			return fmt.Errorf("%w: finish reason content_filter", llm.ErrContentBlocked)
		}

		if choice.Message.Content == "" {
			return fmt.Errorf("%w: model returned empty text", llm.ErrInvalidResponse)
		}

		resp = &llm.ChatResponse{
			Content: choice.Message.Content,
			Usage: domain.TokenUsage{
				Input:  parsed.Usage.PromptTokens,
				Output: parsed.Usage.CompletionTokens,
				Total:  parsed.Usage.TotalTokens,
			},
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return resp, nil
}

// embeddingRequestBody is the embeddings request payload.
type embeddingRequestBody struct {
	Model      string   `json:"model"`
	Input      []string `json:"input"`
	Dimensions int      `json:"dimensions,omitempty"`
}

// embeddingResponseBody is the subset of the embeddings response we consume.
type embeddingResponseBody struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// Embed computes embeddings for the given texts in a single batched call.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, llm.ErrEmptyInput
	}
	for _, text := range texts {
		if text == "" {
			return nil, llm.ErrEmptyInput
		}
	}

	body := embeddingRequestBody{
		Model:      c.embeddingModel,
		Input:      texts,
		Dimensions: c.embeddingDim,
	}

	var vectors [][]float32
	err := llm.Retry(ctx, c.logger, c.policy, "openai.embed", func(ctx context.Context) error {
		var parsed embeddingResponseBody
		if err := c.post(ctx, "/embeddings", body, &parsed); err != nil {
			return err
		}

		if len(parsed.Data) != len(texts) {
			return fmt.Errorf("%w: got %d embeddings for %d texts",
				llm.ErrInvalidResponse, len(parsed.Data), len(texts))
		}

		result := make([][]float32, len(texts))
		for _, item := range parsed.Data {
			if item.Index < 0 || item.Index >= len(texts) {
				return fmt.Errorf("%w: embedding index %d out of range",
					llm.ErrInvalidResponse, item.Index)
			}
			if len(item.Embedding) != c.embeddingDim {
				return fmt.Errorf("%w: embedding %d has unexpected size %d",
					llm.ErrInvalidResponse, item.Index, len(item.Embedding))
			}
			result[item.Index] = item.Embedding
		}

		vectors = result
		return nil
	})
	if err != nil {
		return nil, err
	}

	return vectors, nil
}

// post sends a JSON request to the given API path and decodes the response
// into out. Status 429 and 5xx map to transient errors, other non-2xx
// statuses to permanent ones.
func (c *Client) post(ctx context.Context, path string, payload, out any) error {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", llm.ErrTransientFailure, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return fmt.Errorf("%w: reading response: %v", llm.ErrTransientFailure, err)
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		c.logger.WarnContext(ctx, "provider returned retryable status",
			"path", path,
			"status", resp.StatusCode)
		return fmt.Errorf("%w: status %d", llm.ErrTransientFailure, resp.StatusCode)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", llm.ErrInvalidResponse, resp.StatusCode)
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: failed to parse JSON response: %v", llm.ErrInvalidResponse, err)
	}

	return nil
}
