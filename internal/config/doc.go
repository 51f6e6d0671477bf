// Package config defines the application configuration structure and the
// loading/validation logic behind it. Configuration is read from environment
// variables (LOOM_ prefix) and an optional config.yaml file, with environment
// variables taking precedence. Loading fails fast: a missing required secret
// or an out-of-range value aborts startup with a descriptive error.
package config
