package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// PathEnvVar overrides the config file location.
const PathEnvVar = "CONFIG_PATH"

// DefaultPaths are searched in order when CONFIG_PATH is unset.
var DefaultPaths = []string{"config.yaml", "config.yml", "/etc/newsroom/config.yaml"}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Log:      LogConfig{Level: "info", Format: "json"},
		Database: DatabaseConfig{Path: "data/newsroom.db"},
		Reco: RecoConfig{
			Engine:      "simple",
			DefaultTopN: 10,
			SourceShare: 0.4,
		},
		LLM: LLMConfig{
			Provider:      "gemini",
			EmbedProvider: "ollama",
			Timeout:       60 * time.Second,
			RatePerSecond: 5,
			Breaker:       BreakerConfig{MaxFailures: 5, OpenTimeout: 30 * time.Second},
			OpenAI:        ProviderConfig{Model: "gpt-4o-mini", BaseURL: "https://api.openai.com/v1"},
			Anthropic:     ProviderConfig{Model: "claude-3-7-sonnet", BaseURL: "https://api.anthropic.com/v1"},
			Gemini:        ProviderConfig{Model: "gemini-2.0-flash", BaseURL: "https://generativelanguage.googleapis.com/v1beta/models"},
			Ollama: OllamaConfig{
				BaseURL:    "http://localhost:11434",
				Model:      "llama3.2:3b",
				EmbedModel: "nomic-embed-text",
			},
		},
		Ingest: IngestConfig{
			DatasetPath:  "data/dummy_articles.json",
			ChunkSize:    512,
			ChunkOverlap: 50,
		},
		Briefing: BriefingConfig{DefaultTopK: 5, CacheTTL: 10 * time.Minute},
		Tracing:  TracingConfig{Exporter: "otlp-http", SamplingRate: 1},
		Security: SecurityConfig{
			JWTExpiry:        24 * time.Hour,
			CORSOrigins:      []string{"*"},
			CompareRateLimit: 30,
		},
		Feeds: FeedsConfig{Schedule: "@every 30m"},
		UI:    UIConfig{Dir: "frontend"},
	}
}

// Load layers defaults, the first config file found, and environment variables.
func Load() (*Config, error) {
	return LoadFile(findConfigFile())
}

// LoadFile is Load with an explicit file path; "" skips the file layer.
func LoadFile(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("config: load defaults: %w", err)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("config: load %s: %w", path, err)
		}
	}
	if err := k.Load(env.ProviderWithValue("", ".", envValue), nil); err != nil {
		return nil, fmt.Errorf("config: load env: %w", err)
	}
	if err := splitSliceFields(k); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func findConfigFile() string {
	if p := os.Getenv(PathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// envKeys maps environment variable names (lower-cased) to koanf paths.
var envKeys = map[string]string{
	"http_host":          "server.host",
	"http_port":          "server.port",
	"log_level":          "log.level",
	"log_format":         "log.format",
	"db_path":            "database.path",
	"reco_engine":        "reco.engine",
	"reco_top_n":         "reco.default_top_n",
	"reco_source_share":  "reco.source_share",
	"llm_provider":       "llm.provider",
	"embed_provider":     "llm.embed_provider",
	"llm_timeout":        "llm.timeout",
	"llm_rate_per_sec":   "llm.rate_per_second",
	"openai_api_key":     "llm.openai.api_key",
	"openai_model":       "llm.openai.model",
	"openai_base_url":    "llm.openai.base_url",
	"anthropic_api_key":  "llm.anthropic.api_key",
	"anthropic_model":    "llm.anthropic.model",
	"anthropic_base_url": "llm.anthropic.base_url",
	"google_api_key":     "llm.gemini.api_key",
	"gemini_api_key":     "llm.gemini.api_key",
	"gemini_model":       "llm.gemini.model",
	"gemini_base_url":    "llm.gemini.base_url",
	"ollama_base_url":    "llm.ollama.base_url",
	"ollama_chat_model":  "llm.ollama.model",
	"ollama_embed_model": "llm.ollama.embed_model",
	"dataset_path":       "ingest.dataset_path",
	"chunk_size":         "ingest.chunk_size",
	"chunk_overlap":      "ingest.chunk_overlap",
	"briefing_top_k":     "briefing.default_top_k",
	"briefing_cache_ttl": "briefing.cache_ttl",
	"redis_url":          "cache.redis_url",
	"tracing_enabled":    "tracing.enabled",
	"otel_exporter":      "tracing.exporter",
	"otel_endpoint":      "tracing.endpoint",
	"otel_sampling_rate": "tracing.sampling_rate",
	"otel_insecure":      "tracing.insecure",
	"jwt_secret":         "security.jwt_secret",
	"jwt_expiry":         "security.jwt_expiry",
	"cors_origins":       "security.cors_origins",
	"compare_rate_limit": "security.compare_rate_limit",
	"feed_urls":          "feeds.urls",
	"feed_schedule":      "feeds.schedule",
	"ui_dir":             "ui.dir",
}

// envTransform returns "" for unrelated variables so koanf skips them.
// NEWSROOM_A__B maps to a.b for keys without a short alias.
func envTransform(key string) string {
	key = strings.ToLower(key)
	if path, ok := envKeys[key]; ok {
		return path
	}
	if rest, ok := strings.CutPrefix(key, "newsroom_"); ok && rest != "" {
		return strings.ReplaceAll(rest, "__", ".")
	}
	return ""
}

// envValue skips empty variables so they never clear a default.
func envValue(key, value string) (string, any) {
	if strings.TrimSpace(value) == "" {
		return "", nil
	}
	return envTransform(key), value
}

var sliceFields = []string{"security.cors_origins", "feeds.urls"}

// splitSliceFields turns comma-separated env values into slices.
func splitSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceFields {
		s, ok := k.Get(path).(string)
		if !ok {
			continue
		}
		var parts []string
		for _, p := range strings.Split(s, ",") {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
		if err := k.Set(path, parts); err != nil {
			return fmt.Errorf("config: split %s: %w", path, err)
		}
	}
	return nil
}
