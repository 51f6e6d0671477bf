package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"   validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Auth     AuthConfig     `mapstructure:"auth"     validate:"required"`
	LLM      LLMConfig      `mapstructure:"llm"      validate:"required"`
	RAG      RAGConfig      `mapstructure:"rag"      validate:"required"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Task     TaskConfig     `mapstructure:"task"     validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required,url"`
}

// AuthConfig contains all authentication and authorization settings.
type AuthConfig struct {
	JWTSecret                   string `mapstructure:"jwt_secret"                     validate:"required,min=32"`
	TokenLifetimeMinutes        int    `mapstructure:"token_lifetime_minutes"         validate:"required,gt=0"`
	RefreshTokenLifetimeMinutes int    `mapstructure:"refresh_token_lifetime_minutes" validate:"required,gt=0"`
}

// LLMConfig contains the provider selection and provider credentials for
// the LLM client, plus the retry policy applied to provider calls.
//
// Provider selects the implementation built by the llm factory. The API key
// matching the selected provider is required; the other may stay empty.
type LLMConfig struct {
	Provider string `mapstructure:"provider" validate:"required,oneof=gemini openai"`

	GeminiAPIKey string `mapstructure:"gemini_api_key" validate:"required_if=Provider gemini"`

	OpenAIAPIKey  string `mapstructure:"openai_api_key" validate:"required_if=Provider openai"`
	OpenAIBaseURL string `mapstructure:"openai_base_url" validate:"omitempty,url"`

	ModelName      string `mapstructure:"model_name"      validate:"required"`
	EmbeddingModel string `mapstructure:"embedding_model" validate:"required"`
	EmbeddingDim   int    `mapstructure:"embedding_dim"   validate:"required,gt=0"`

	MaxRetries        int `mapstructure:"max_retries"         validate:"gte=0"`
	RetryDelaySeconds int `mapstructure:"retry_delay_seconds" validate:"gte=1"`

	DefaultTemperature float64 `mapstructure:"default_temperature" validate:"gte=0,lte=2"`
	DefaultMaxTokens   int     `mapstructure:"default_max_tokens"  validate:"required,gt=0"`
}

// RAGConfig contains retrieval and prompt-assembly settings.
type RAGConfig struct {
	PromptsPath     string `mapstructure:"prompts_path"      validate:"required"`
	TopK            int    `mapstructure:"top_k"             validate:"required,gt=0"`
	MaxContextChars int    `mapstructure:"max_context_chars" validate:"required,gt=0"`
	HistoryLimit    int    `mapstructure:"history_limit"     validate:"gte=0"`
}

// CacheConfig contains the optional Redis answer cache settings.
// An empty RedisURL disables caching entirely.
type CacheConfig struct {
	RedisURL   string `mapstructure:"redis_url" validate:"omitempty,uri"`
	TTLSeconds int    `mapstructure:"ttl_seconds" validate:"gte=0"`
}

// TaskConfig contains background worker settings for document ingestion.
type TaskConfig struct {
	QueueSize           int `mapstructure:"queue_size"             validate:"required,gt=0"`
	WorkerCount         int `mapstructure:"worker_count"           validate:"required,gt=0"`
	StuckTaskAgeMinutes int `mapstructure:"stuck_task_age_minutes" validate:"required,gt=0"`
}
