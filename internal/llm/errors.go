package llm

import "errors"

// Common errors returned by LLM client implementations.
var (
	// ErrInvalidConfig is returned when a provider configuration is invalid.
	ErrInvalidConfig = errors.New("invalid LLM client configuration")

	// ErrEmptyInput is returned when a chat or embedding request carries
	// no content to send.
	ErrEmptyInput = errors.New("input cannot be empty")

	// ErrInvalidResponse is returned when the provider response cannot be
	// parsed or is malformed.
	ErrInvalidResponse = errors.New("invalid response from language model")

	// ErrContentBlocked is returned when the provider blocks the content
	// due to safety filters.
	ErrContentBlocked = errors.New("content blocked by language model safety filters")

	// ErrTransientFailure is returned for temporary errors (rate limits,
	// network failures, 5xx responses) that might resolve on retry.
	ErrTransientFailure = errors.New("transient language model failure")

	// ErrUnknownProvider is returned by the factory when the configured
	// provider name has no implementation.
	ErrUnknownProvider = errors.New("unknown LLM provider")
)

// IsTransient reports whether the error is worth retrying.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransientFailure)
}
