// Package gemini implements the llm.Client interface using Google's
// Gemini API for both chat generation and text embeddings.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/genai"

	"github.com/loomkit/loom-api/internal/config"
	"github.com/loomkit/loom-api/internal/domain"
	"github.com/loomkit/loom-api/internal/llm"
)

// Client implements llm.Client against the Gemini API.
type Client struct {
	logger *slog.Logger
	client *genai.Client

	model          string
	embeddingModel string
	embeddingDim   int
	policy         llm.RetryPolicy
}

var _ llm.Client = (*Client)(nil)

// New creates a Gemini-backed llm.Client from the given configuration.
//
// Parameters:
//   - ctx: Context for the operation, which can be used for cancellation
//   - logger: A structured logger for operation logging
//   - cfg: LLM configuration containing API key, model names, and retry policy
//
// Returns:
//   - A properly initialized Client or an error if initialization fails
func New(ctx context.Context, logger *slog.Logger, cfg config.LLMConfig) (*Client, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", llm.ErrInvalidConfig)
	}

	if cfg.ModelName == "" {
		return nil, fmt.Errorf("%w: model name cannot be empty", llm.ErrInvalidConfig)
	}

	if cfg.EmbeddingModel == "" || cfg.EmbeddingDim <= 0 {
		return nil, fmt.Errorf("%w: embedding model and dimension must be set", llm.ErrInvalidConfig)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v", llm.ErrInvalidConfig, err)
	}

	return &Client{
		logger:         logger,
		client:         client,
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

// Chat sends the conversation to the Gemini API and returns the normalized
// reply. Transient API failures are retried with exponential backoff;
// safety blocks and malformed replies are permanent.
func (c *Client) Chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	contents, genCfg := buildRequest(req)

	var resp *llm.ChatResponse
	err := llm.Retry(ctx, c.logger, c.policy, "gemini.chat", func(ctx context.Context) error {
		c.logger.DebugContext(ctx, "calling Gemini generate",
			"model", c.model,
			"message_count", len(req.Messages))

		out, err := c.client.Models.GenerateContent(ctx, c.model, contents, genCfg)
		if err != nil {
			// Treat transport errors as retryable; the API surfaces
			// rate limits and server hiccups this way.
			return fmt.Errorf("%w: %v", llm.ErrTransientFailure, err)
		}

		parsed, err := parseResponse(out)
		if err != nil {
			return err
		}

		resp = parsed
		return nil
	})
	if err != nil {
		return nil, err
	}

	return resp, nil
}

// Embed computes embeddings for the given texts in a single batched call.
// The returned vectors are index-aligned with the input and checked against
// the configured dimensionality.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, llm.ErrEmptyInput
	}

	contents := make([]*genai.Content, 0, len(texts))
	for _, text := range texts {
		if text == "" {
			return nil, llm.ErrEmptyInput
		}
		contents = append(contents, &genai.Content{
			Parts: []*genai.Part{{Text: text}},
		})
	}

	embedCfg := &genai.EmbedContentConfig{
		OutputDimensionality: genai.Ptr(int32(c.embeddingDim)),
	}

	var vectors [][]float32
	err := llm.Retry(ctx, c.logger, c.policy, "gemini.embed", func(ctx context.Context) error {
		out, err := c.client.Models.EmbedContent(ctx, c.embeddingModel, contents, embedCfg)
		if err != nil {
			return fmt.Errorf("%w: %v", llm.ErrTransientFailure, err)
		}

		if len(out.Embeddings) != len(texts) {
			return fmt.Errorf("%w: got %d embeddings for %d texts",
				llm.ErrInvalidResponse, len(out.Embeddings), len(texts))
		}

		result := make([][]float32, len(out.Embeddings))
		for i, emb := range out.Embeddings {
			if emb == nil || len(emb.Values) != c.embeddingDim {
				return fmt.Errorf("%w: embedding %d has unexpected size",
					llm.ErrInvalidResponse, i)
			}
			vec := make([]float32, c.embeddingDim)
			copy(vec, emb.Values)
			result[i] = vec
		}

		vectors = result
		return nil
	})
	if err != nil {
		return nil, err
	}

	return vectors, nil
}

// buildRequest maps the provider-agnostic request onto the genai API:
// system messages become the system instruction, user/tool messages map to
// the "user" role, and assistant messages to "model".
func buildRequest(req llm.ChatRequest) ([]*genai.Content, *genai.GenerateContentConfig) {
	genCfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(req.Settings.Temperature)),
		TopP:            genai.Ptr(float32(req.Settings.TopP)),
		MaxOutputTokens: int32(req.Settings.MaxTokens),
	}
	if len(req.Settings.Stop) > 0 {
		genCfg.StopSequences = req.Settings.Stop
	}

	contents := make([]*genai.Content, 0, len(req.Messages))
	for _, msg := range req.Messages {
		switch msg.Role {
		case domain.RoleSystem:
			genCfg.SystemInstruction = &genai.Content{
				Parts: []*genai.Part{{Text: msg.Content}},
			}
		case domain.RoleAssistant:
			contents = append(contents, &genai.Content{
				Role:  "model",
				Parts: []*genai.Part{{Text: msg.Content}},
			})
		default:
			contents = append(contents, &genai.Content{
				Role:  "user",
				Parts: []*genai.Part{{Text: msg.Content}},
			})
		}
	}

	return contents, genCfg
}

// parseResponse normalizes a Gemini response, classifying safety blocks
// and empty candidates as permanent errors.
func parseResponse(out *genai.GenerateContentResponse) (*llm.ChatResponse, error) {
	if out == nil || len(out.Candidates) == 0 {
		return nil, fmt.Errorf("%w: no content generated", llm.ErrInvalidResponse)
	}

	candidate := out.Candidates[0]
	if candidate.FinishReason == genai.FinishReasonSafety {
		return nil, fmt.Errorf("%w: finish reason safety", llm.ErrContentBlocked)
	}

	if candidate.Content == nil {
		return nil, fmt.Errorf("%w: empty content in response", llm.ErrInvalidResponse)
	}

	text := ""
	for _, part := range candidate.Content.Parts {
		if part != nil {
			text += part.Text
		}
	}
	if text == "" {
		return nil, fmt.Errorf("%w: model returned empty text", llm.ErrInvalidResponse)
	}

	resp := &llm.ChatResponse{Content: text}
	if out.UsageMetadata != nil {
		resp.Usage = domain.TokenUsage{
			Input:  int(out.UsageMetadata.PromptTokenCount),
			Output: int(out.UsageMetadata.CandidatesTokenCount),
			Total:  int(out.UsageMetadata.TotalTokenCount),
		}
	}

	return resp, nil
}
