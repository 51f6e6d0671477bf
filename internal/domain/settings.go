package domain

import (
	"errors"
	"fmt"
)

// Validation errors for generation settings.
var (
	ErrTemperatureOutOfRange = errors.New("temperature must be between 0.0 and 2.0")
	ErrTopPOutOfRange        = errors.New("top_p must be between 0.0 and 1.0")
	ErrMaxTokensNotPositive  = errors.New("max_tokens must be positive")
)

// GenerationSettings holds the sampling parameters passed to an LLM provider.
// These are the portable knobs that every supported provider understands;
// provider-specific options stay inside the provider packages.
type GenerationSettings struct {
	// Temperature controls randomness. Valid range is 0.0 to 2.0.
	Temperature float64 `json:"temperature"`

	// TopP is the nucleus sampling parameter. Valid range is 0.0 to 1.0.
	TopP float64 `json:"top_p"`

	// MaxTokens caps the length of the generated response.
	MaxTokens int `json:"max_tokens"`

	// Stop lists sequences that terminate generation early.
	Stop []string `json:"stop,omitempty"`
}

// DefaultGenerationSettings returns the settings applied when a request
// does not override anything.
func DefaultGenerationSettings() GenerationSettings {
	return GenerationSettings{
		Temperature: 0.7,
		TopP:        1.0,
		MaxTokens:   1024,
	}
}

// Validate checks that all parameters are within their allowed bounds.
func (s GenerationSettings) Validate() error {
	if s.Temperature < 0.0 || s.Temperature > 2.0 {
		return fmt.Errorf("%w: got %v", ErrTemperatureOutOfRange, s.Temperature)
	}

	if s.TopP < 0.0 || s.TopP > 1.0 {
		return fmt.Errorf("%w: got %v", ErrTopPOutOfRange, s.TopP)
	}

	if s.MaxTokens < 1 {
		return fmt.Errorf("%w: got %d", ErrMaxTokensNotPositive, s.MaxTokens)
	}

	return nil
}

// GenerationOverrides carries optional per-request overrides for
// GenerationSettings. Nil fields leave the base value untouched.
type GenerationOverrides struct {
	Temperature *float64 `json:"temperature,omitempty"`
	TopP        *float64 `json:"top_p,omitempty"`
	MaxTokens   *int     `json:"max_tokens,omitempty"`
	Stop        []string `json:"stop,omitempty"`
}

// Merge returns a copy of s with the non-nil override fields applied.
// The receiver is never mutated, so shared defaults stay stable across
// concurrent requests. The merged result is validated before returning.
func (s GenerationSettings) Merge(o *GenerationOverrides) (GenerationSettings, error) {
	merged := s

	if o != nil {
		if o.Temperature != nil {
			merged.Temperature = *o.Temperature
		}
		if o.TopP != nil {
			merged.TopP = *o.TopP
		}
		if o.MaxTokens != nil {
			merged.MaxTokens = *o.MaxTokens
		}
		if len(o.Stop) > 0 {
			merged.Stop = append([]string(nil), o.Stop...)
		}
	}

	if err := merged.Validate(); err != nil {
		return GenerationSettings{}, err
	}

	return merged, nil
}
