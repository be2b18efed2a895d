package llm

import (
	"context"
	"fmt"
	"strings"
)

const (
	anthropicVersion          = "2023-06-01"
	anthropicDefaultMaxTokens = 1024
)

// AnthropicProvider calls the Messages API. Chat only.
type AnthropicProvider struct {
	client jsonClient
	model  string
}

func NewAnthropicProvider(cfg ClientConfig) *AnthropicProvider {
	return &AnthropicProvider{
		client: newJSONClient(ProviderAnthropic, cfg.BaseURL, cfg.timeout(), map[string]string{
			"x-api-key":         cfg.APIKey,
			"anthropic-version": anthropicVersion,
		}),
		model: cfg.Model,
	}
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float32            `json:"temperature"`
}

type anthropicResponse struct {
	Model   string `json:"model"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// ChatCompletion calls POST /messages. System turns go in the top-level
// system field; max_tokens is mandatory for this API.
func (p *AnthropicProvider) ChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	model := req.Model
	if model == "" {
		model = p.model
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = anthropicDefaultMaxTokens
	}

	system, turns := splitSystem(req.Messages)
	msgs := make([]anthropicMessage, len(turns))
	for i, m := range turns {
		msgs[i] = anthropicMessage(m)
	}

	var out anthropicResponse
	err := p.client.doPost(ctx, "/messages", anthropicRequest{
		Model:       model,
		System:      system,
		Messages:    msgs,
		MaxTokens:   maxTokens,
		Temperature: req.Temperature,
	}, &out)
	if err != nil {
		return nil, fmt.Errorf("anthropic chat: %w", err)
	}

	var sb strings.Builder
	for _, block := range out.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if out.Model == "" {
		out.Model = model
	}
	return &ChatResponse{
		Content:      sb.String(),
		Model:        out.Model,
		StopReason:   out.StopReason,
		InputTokens:  out.Usage.InputTokens,
		OutputTokens: out.Usage.OutputTokens,
		Tokens:       out.Usage.InputTokens + out.Usage.OutputTokens,
	}, nil
}

func (p *AnthropicProvider) Embed(_ context.Context, _ EmbedRequest) (*EmbedResponse, error) {
	return nil, fmt.Errorf("anthropic: %w", ErrEmbeddingUnsupported)
}

func (p *AnthropicProvider) ModelInfo() ModelMeta {
	return ModelMeta{ID: p.model, Provider: ProviderAnthropic, Version: anthropicVersion, MaxTokens: 200000}
}

func (p *AnthropicProvider) HealthCheck(ctx context.Context) error {
	if err := p.client.doGet(ctx, "/models", nil); err != nil {
		return fmt.Errorf("anthropic healthcheck: %w", err)
	}
	return nil
}
