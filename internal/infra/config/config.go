// Package config loads runtime configuration in three layers: built-in
// defaults, an optional YAML file, then environment variables.
// All fields have safe defaults so the binary runs locally without any setup.
package config

import (
	"fmt"
	"time"

	"github.com/matiasleandrokruk/newsroom/internal/validation"
)

// Config holds runtime configuration for the newsroom service.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Log      LogConfig      `koanf:"log"`
	Database DatabaseConfig `koanf:"database"`
	Reco     RecoConfig     `koanf:"reco"`
	LLM      LLMConfig      `koanf:"llm"`
	Ingest   IngestConfig   `koanf:"ingest"`
	Briefing BriefingConfig `koanf:"briefing"`
	Cache    CacheConfig    `koanf:"cache"`
	Tracing  TracingConfig  `koanf:"tracing"`
	Security SecurityConfig `koanf:"security"`
	Feeds    FeedsConfig    `koanf:"feeds"`
	UI       UIConfig       `koanf:"ui"`
}

type ServerConfig struct {
	Host         string        `koanf:"host"`
	Port         int           `koanf:"port" validate:"gte=1,lte=65535"`
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
	IdleTimeout  time.Duration `koanf:"idle_timeout"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format" validate:"oneof=json console"`
}

type DatabaseConfig struct {
	Path string `koanf:"path" validate:"required"`
}

// RecoConfig tunes the ranking engine.
type RecoConfig struct {
	Engine      string             `koanf:"engine" validate:"required"`
	DefaultTopN int                `koanf:"default_top_n" validate:"gte=1,lte=100"`
	SourceShare float64            `koanf:"source_share" validate:"gt=0,lte=1"`
	Weights     WeightsConfig      `koanf:"weights"`
	Authority   map[string]float64 `koanf:"authority"`
}

// WeightsConfig overrides hybrid weights. Unset fields keep the built-in
// value; 0 disables a component.
type WeightsConfig struct {
	Similarity *float64 `koanf:"similarity" validate:"omitempty,gte=0"`
	Freshness  *float64 `koanf:"freshness" validate:"omitempty,gte=0"`
	Authority  *float64 `koanf:"authority" validate:"omitempty,gte=0"`
	Quality    *float64 `koanf:"quality" validate:"omitempty,gte=0"`
	Popularity *float64 `koanf:"popularity" validate:"omitempty,gte=0"`
}

type LLMConfig struct {
	Provider      string         `koanf:"provider" validate:"oneof=openai anthropic gemini ollama"`
	EmbedProvider string         `koanf:"embed_provider"`
	Timeout       time.Duration  `koanf:"timeout"`
	RatePerSecond float64        `koanf:"rate_per_second" validate:"gte=0"`
	Breaker       BreakerConfig  `koanf:"breaker"`
	OpenAI        ProviderConfig `koanf:"openai"`
	Anthropic     ProviderConfig `koanf:"anthropic"`
	Gemini        ProviderConfig `koanf:"gemini"`
	Ollama        OllamaConfig   `koanf:"ollama"`
}

type ProviderConfig struct {
	APIKey  string `koanf:"api_key"`
	Model   string `koanf:"model"`
	BaseURL string `koanf:"base_url"`
}

type OllamaConfig struct {
	BaseURL    string `koanf:"base_url"`
	Model      string `koanf:"model"`
	EmbedModel string `koanf:"embed_model"`
}

type BreakerConfig struct {
	MaxFailures uint32        `koanf:"max_failures"`
	OpenTimeout time.Duration `koanf:"open_timeout"`
}

type IngestConfig struct {
	DatasetPath  string `koanf:"dataset_path"`
	ChunkSize    int    `koanf:"chunk_size" validate:"gt=0"`
	ChunkOverlap int    `koanf:"chunk_overlap" validate:"gte=0"`
}

type BriefingConfig struct {
	DefaultTopK int           `koanf:"default_top_k" validate:"gte=1,lte=50"`
	CacheTTL    time.Duration `koanf:"cache_ttl"`
}

type CacheConfig struct {
	RedisURL string `koanf:"redis_url"`
}

type TracingConfig struct {
	Enabled      bool    `koanf:"enabled"`
	Exporter     string  `koanf:"exporter"`
	Endpoint     string  `koanf:"endpoint"`
	SamplingRate float64 `koanf:"sampling_rate" validate:"gte=0,lte=1"`
	Insecure     bool    `koanf:"insecure"`
}

type SecurityConfig struct {
	JWTSecret        string        `koanf:"jwt_secret"`
	JWTExpiry        time.Duration `koanf:"jwt_expiry"`
	CORSOrigins      []string      `koanf:"cors_origins"`
	CompareRateLimit int           `koanf:"compare_rate_limit" validate:"gte=0"`
}

type FeedsConfig struct {
	URLs     []string `koanf:"urls" validate:"dive,url"`
	Schedule string   `koanf:"schedule"`
}

type UIConfig struct {
	Dir string `koanf:"dir"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validation.Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.Ingest.ChunkOverlap >= c.Ingest.ChunkSize {
		return fmt.Errorf("config: ingest.chunk_overlap (%d) must be smaller than ingest.chunk_size (%d)",
			c.Ingest.ChunkOverlap, c.Ingest.ChunkSize)
	}
	for src, v := range c.Reco.Authority {
		if v < 0 || v > 1 {
			return fmt.Errorf("config: reco.authority[%q] = %v must be in [0,1]", src, v)
		}
	}
	return nil
}
