// Package llm defines the provider-agnostic interface for language model
// clients. This interface serves as a boundary between the application core
// and external AI/LLM services: the rest of the application talks to
// llm.Client and never imports a provider SDK directly.
//
// Provider implementations live under internal/platform (gemini, openai)
// and are selected at startup by the factory subpackage based on
// configuration.
package llm
