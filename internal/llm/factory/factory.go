// Package factory constructs the configured LLM provider. It lives apart
// from package llm so the interface package stays free of provider imports.
package factory

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/loomkit/loom-api/internal/config"
	"github.com/loomkit/loom-api/internal/llm"
	"github.com/loomkit/loom-api/internal/platform/gemini"
	"github.com/loomkit/loom-api/internal/platform/openai"
)

// New returns the llm.Client selected by cfg.Provider.
func New(ctx context.Context, logger *slog.Logger, cfg config.LLMConfig) (llm.Client, error) {
	switch cfg.Provider {
	case "gemini":
		return gemini.New(ctx, logger, cfg)
	case "openai":
		return openai.New(logger, cfg)
	default:
		return nil, fmt.Errorf("%w: %q", llm.ErrUnknownProvider, cfg.Provider)
	}
}
