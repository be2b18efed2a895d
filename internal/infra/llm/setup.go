package llm

import (
	"github.com/matiasleandrokruk/newsroom/internal/infra/config"
)

// NewRouterFromConfig registers every adapter. Each one is wrapped, outermost
// first, in instrumentation, the circuit breaker and the outbound rate limiter.
// Cloud adapters without an API key are still registered so callers get the
// provider's own auth error rather than an unknown-provider error.
func NewRouterFromConfig(cfg config.LLMConfig) *Router {
	adapters := map[string]LLMProvider{
		ProviderOllama: NewOllamaProvider(ClientConfig{
			BaseURL:    cfg.Ollama.BaseURL,
			Model:      cfg.Ollama.Model,
			EmbedModel: cfg.Ollama.EmbedModel,
			Timeout:    cfg.Timeout,
		}),
		ProviderOpenAI:    NewOpenAIProvider(clientConfig(cfg.OpenAI, cfg)),
		ProviderAnthropic: NewAnthropicProvider(clientConfig(cfg.Anthropic, cfg)),
		ProviderGemini:    NewGeminiProvider(clientConfig(cfg.Gemini, cfg)),
	}

	breaker := BreakerConfig{MaxFailures: cfg.Breaker.MaxFailures, OpenTimeout: cfg.Breaker.OpenTimeout}
	providers := make(map[string]LLMProvider, len(adapters))
	for name, a := range adapters {
		providers[name] = Wrap(a,
			Instrument(name),
			Breaker(name, breaker),
			RateLimit(cfg.RatePerSecond, burstFor(cfg.RatePerSecond)),
		)
	}

	r := NewRouter(providers, cfg.Provider)
	if cfg.EmbedProvider != "" {
		r.SetEmbedProvider(cfg.EmbedProvider)
	}
	return r
}

func clientConfig(p config.ProviderConfig, cfg config.LLMConfig) ClientConfig {
	return ClientConfig{
		BaseURL: p.BaseURL,
		APIKey:  p.APIKey,
		Model:   p.Model,
		Timeout: cfg.Timeout,
	}
}

func burstFor(perSecond float64) int {
	if perSecond < 1 {
		return 1
	}
	return int(perSecond)
}
