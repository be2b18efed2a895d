// Package llm is the vendor-neutral language model layer: a provider
// interface, HTTP adapters for Ollama, OpenAI, Anthropic and Gemini, and the
// router that picks one per request.
package llm

import "time"

// Provider names accepted by the router and in config.
const (
	ProviderOllama    = "ollama"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
)

// Message is one conversation turn.
type Message struct {
	Role    string // "system" | "user" | "assistant"
	Content string
}

// ChatRequest is the input for a non-streaming chat completion.
type ChatRequest struct {
	// Model overrides the provider default when non-empty.
	Model       string
	Messages    []Message
	Temperature float32
	MaxTokens   int
}

// ChatResponse is the output from a non-streaming chat completion.
// Token counts are zero when the provider does not report them.
type ChatResponse struct {
	Content      string
	Model        string
	StopReason   string
	InputTokens  int
	OutputTokens int
	Tokens       int
}

// EmbedRequest is the input for a batch embedding call.
type EmbedRequest struct {
	// Model overrides the provider default when non-empty.
	Model string
	Texts []string
}

// EmbedResponse holds one vector per input text, in order.
type EmbedResponse struct {
	Embeddings [][]float32
	Tokens     int
}

// ModelMeta describes the model / provider identity.
type ModelMeta struct {
	ID        string // e.g. "gpt-4o-mini", "llama3.2:3b"
	Provider  string // e.g. "ollama", "openai"
	Version   string
	MaxTokens int
}

// ClientConfig configures one HTTP adapter.
type ClientConfig struct {
	BaseURL    string
	APIKey     string
	Model      string
	EmbedModel string
	Timeout    time.Duration
}

const defaultTimeout = 30 * time.Second

func (c ClientConfig) timeout() time.Duration {
	if c.Timeout <= 0 {
		return defaultTimeout
	}
	return c.Timeout
}

// SystemAndUser builds the common two-message prompt. An empty system
// prompt yields a single user message.
func SystemAndUser(system, user string) []Message {
	if system == "" {
		return []Message{{Role: "user", Content: user}}
	}
	return []Message{{Role: "system", Content: system}, {Role: "user", Content: user}}
}

func splitSystem(msgs []Message) (string, []Message) {
	var system string
	rest := make([]Message, 0, len(msgs))
	for _, m := range msgs {
		if m.Role == "system" {
			if system != "" {
				system += "\n\n"
			}
			system += m.Content
			continue
		}
		rest = append(rest, m)
	}
	return system, rest
}
