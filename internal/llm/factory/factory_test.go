package factory

import (
	"context"
	"log/slog"
	"testing"

	"github.com/loomkit/loom-api/internal/config"
	"github.com/loomkit/loom-api/internal/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSelectsProvider(t *testing.T) {
	cfg := config.LLMConfig{
		Provider:          "openai",
		OpenAIAPIKey:      "test-key",
		ModelName:         "gpt-4o-mini",
		EmbeddingModel:    "text-embedding-3-small",
		EmbeddingDim:      1536,
		MaxRetries:        3,
		RetryDelaySeconds: 2,
	}

	client, err := New(context.Background(), slog.Default(), cfg)
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", client.ModelName())
}

func TestNewRejectsUnknownProvider(t *testing.T) {
	cfg := config.LLMConfig{Provider: "anthropic"}

	_, err := New(context.Background(), slog.Default(), cfg)
	assert.ErrorIs(t, err, llm.ErrUnknownProvider)
}

func TestNewPropagatesProviderConfigErrors(t *testing.T) {
	cfg := config.LLMConfig{Provider: "gemini"}

	_, err := New(context.Background(), slog.Default(), cfg)
	assert.ErrorIs(t, err, llm.ErrInvalidConfig)
}
