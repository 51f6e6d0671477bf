package llm

import (
	"context"

	"github.com/loomkit/loom-api/internal/domain"
)

// Message is the wire-level form of a chat message sent to a provider.
// It deliberately carries no IDs or timestamps; persistence concerns stay
// in the domain package.
type Message struct {
	Role    domain.Role
	Content string
}

// ChatRequest bundles the conversation sent to a provider together with
// the sampling settings for this call.
type ChatRequest struct {
	// Messages is the ordered conversation, oldest first. A leading
	// system message, when present, carries the instructions.
	Messages []Message

	// Settings holds the validated sampling parameters for this call.
	Settings domain.GenerationSettings
}

// Validate checks that the request can be sent to a provider.
func (r ChatRequest) Validate() error {
	if len(r.Messages) == 0 {
		return ErrEmptyInput
	}
	for _, m := range r.Messages {
		if m.Content == "" {
			return ErrEmptyInput
		}
		if !domain.IsValidRole(m.Role) {
			return domain.ErrInvalidRole
		}
	}
	return r.Settings.Validate()
}

// ChatResponse is the normalized reply from any provider.
type ChatResponse struct {
	// Content is the generated text.
	Content string

	// Usage reports token accounting when the provider supplies it.
	Usage domain.TokenUsage
}

// Client is the provider-agnostic interface for LLM API calls.
// Implementations handle authentication, retries, and response parsing,
// and normalize provider failures onto the sentinel errors in this package.
type Client interface {
	// Chat sends the conversation and returns the model's reply.
	//
	// Transient provider failures are retried internally according to the
	// configured policy; the returned error wraps ErrTransientFailure when
	// retries were exhausted, ErrContentBlocked when safety filters fired,
	// or ErrInvalidResponse when the reply could not be parsed.
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)

	// Embed computes dense vector representations for a batch of texts.
	// The returned slice is index-aligned with the input. Every vector
	// has the dimensionality the client was configured with.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// ModelName returns the identifier of the chat model in use,
	// for logging and cache-key derivation.
	ModelName() string
}
