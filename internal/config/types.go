package config

import "time"

// AppConfig holds runtime startup configuration loaded from YAML.
type AppConfig struct {
	Port           int                   `yaml:"port"`
	Env            string                `yaml:"env"` // "development" | "production"
	DSN            string                `yaml:"dsn"` // MySQL DSN
	Database       DatabaseRuntimeConfig `yaml:"database"`
	RedisURL       string                `yaml:"redis_url"`
	JWTSecret      string                `yaml:"jwt_secret"`
	AllowedOrigins []string              `yaml:"allowed_origins"`
	AI             AIConfig              `yaml:"ai"`
	Embedding      EmbeddingConfig       `yaml:"embedding"`
	Pipeline       PipelineConfig        `yaml:"pipeline"`
	Transcripts    TranscriptConfig      `yaml:"transcripts"`
	Transcription  TranscriptionConfig   `yaml:"transcription"`
}

type DatabaseRuntimeConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	Charset  string `yaml:"charset"`
}

// AIConfig lists the configured generative providers and which of them
// serves each pipeline role.
type AIConfig struct {
	Providers     []AIProvider       `yaml:"providers"`
	SummaryModel  *AIModelAssignment `yaml:"summary_model,omitempty"`
	AbstractModel *AIModelAssignment `yaml:"abstract_model,omitempty"`
}

type AIModelAssignment struct {
	ProviderID string `yaml:"provider_id"`
	Model      string `yaml:"model"`
}

type AIProvider struct {
	ID           string `yaml:"id"`
	Name         string `yaml:"name"`
	Type         string `yaml:"type"` // OpenAI | OpenAI-Compatible | Anthropic | OpenRouter
	APIKey       string `yaml:"api_key"`
	Endpoint     string `yaml:"endpoint,omitempty"`
	DefaultModel string `yaml:"default_model"`
	Enabled      bool   `yaml:"enabled"`
}

// EmbeddingConfig points at an OpenAI-compatible embeddings service.
type EmbeddingConfig struct {
	Endpoint      string `yaml:"endpoint"`
	APIKey        string `yaml:"api_key"`
	Model         string `yaml:"model"`
	TimeoutSec    int    `yaml:"timeout_seconds"`
	CacheTTLHours int    `yaml:"cache_ttl_hours"`
}

// PipelineConfig tunes pipeline concurrency and external-call bounds.
type PipelineConfig struct {
	Workers        int `yaml:"workers"`          // bounded fan-out width for embedding calls
	CallTimeoutSec int `yaml:"call_timeout_sec"` // per external call
	MaxRetries     int `yaml:"max_retries"`      // transient failures only
	RelatedLimit   int `yaml:"related_limit"`    // default top-K
}

// TranscriptConfig configures the video transcript adapter.
type TranscriptConfig struct {
	Endpoint string `yaml:"endpoint"` // override for tests / proxies
	Language string `yaml:"language"`
}

// TranscriptionConfig points at a Whisper-compatible audio transcription
// service.
type TranscriptionConfig struct {
	Endpoint string `yaml:"endpoint"`
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`
}

// IsDev reports whether the app runs in development mode.
func (c *AppConfig) IsDev() bool { return c.Env != "production" }

// CallTimeout returns the per-external-call timeout as a duration.
func (c *PipelineConfig) CallTimeout() time.Duration {
	if c.CallTimeoutSec <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.CallTimeoutSec) * time.Second
}
