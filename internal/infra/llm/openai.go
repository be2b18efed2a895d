package llm

import (
	"context"
	"errors"
	"fmt"
)

const defaultOpenAIEmbedModel = "text-embedding-3-small"

// OpenAIProvider talks to the OpenAI REST API (or any compatible server).
type OpenAIProvider struct {
	client     jsonClient
	model      string
	embedModel string
}

// NewOpenAIProvider builds the adapter; BaseURL includes the /v1 prefix.
func NewOpenAIProvider(cfg ClientConfig) *OpenAIProvider {
	embed := cfg.EmbedModel
	if embed == "" {
		embed = defaultOpenAIEmbedModel
	}
	return &OpenAIProvider{
		client: newJSONClient(ProviderOpenAI, cfg.BaseURL, cfg.timeout(), map[string]string{
			"Authorization": "Bearer " + cfg.APIKey,
		}),
		model:      cfg.Model,
		embedModel: embed,
	}
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIChatRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	Temperature float32         `json:"temperature"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
}

type openAIUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type openAIChatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message      openAIMessage `json:"message"`
		FinishReason string        `json:"finish_reason"`
	} `json:"choices"`
	Usage openAIUsage `json:"usage"`
}

type openAIEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type openAIEmbedResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
	Usage openAIUsage `json:"usage"`
}

// ChatCompletion calls POST /chat/completions.
func (p *OpenAIProvider) ChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	model := req.Model
	if model == "" {
		model = p.model
	}
	msgs := make([]openAIMessage, len(req.Messages))
	for i, m := range req.Messages {
		msgs[i] = openAIMessage(m)
	}

	var out openAIChatResponse
	err := p.client.doPost(ctx, "/chat/completions", openAIChatRequest{
		Model:       model,
		Messages:    msgs,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}, &out)
	if err != nil {
		return nil, fmt.Errorf("openai chat: %w", err)
	}
	if len(out.Choices) == 0 {
		return nil, errors.New("openai chat: response has no choices")
	}
	if out.Model == "" {
		out.Model = model
	}
	return &ChatResponse{
		Content:      out.Choices[0].Message.Content,
		Model:        out.Model,
		StopReason:   out.Choices[0].FinishReason,
		InputTokens:  out.Usage.PromptTokens,
		OutputTokens: out.Usage.CompletionTokens,
		Tokens:       out.Usage.TotalTokens,
	}, nil
}

// Embed calls POST /embeddings with the whole batch.
func (p *OpenAIProvider) Embed(ctx context.Context, req EmbedRequest) (*EmbedResponse, error) {
	if len(req.Texts) == 0 {
		return &EmbedResponse{Embeddings: [][]float32{}}, nil
	}
	model := req.Model
	if model == "" {
		model = p.embedModel
	}

	var out openAIEmbedResponse
	if err := p.client.doPost(ctx, "/embeddings", openAIEmbedRequest{Model: model, Input: req.Texts}, &out); err != nil {
		return nil, fmt.Errorf("openai embed: %w", err)
	}
	if len(out.Data) != len(req.Texts) {
		return nil, fmt.Errorf("openai embed: got %d vectors for %d texts", len(out.Data), len(req.Texts))
	}
	vecs := make([][]float32, len(req.Texts))
	for _, d := range out.Data {
		if d.Index < 0 || d.Index >= len(vecs) {
			return nil, fmt.Errorf("openai embed: vector index %d out of range", d.Index)
		}
		vecs[d.Index] = d.Embedding
	}
	return &EmbedResponse{Embeddings: vecs, Tokens: out.Usage.TotalTokens}, nil
}

func (p *OpenAIProvider) ModelInfo() ModelMeta {
	return ModelMeta{ID: p.model, Provider: ProviderOpenAI, Version: "v1", MaxTokens: 128000}
}

// HealthCheck lists models, which also validates the API key.
func (p *OpenAIProvider) HealthCheck(ctx context.Context) error {
	if err := p.client.doGet(ctx, "/models", nil); err != nil {
		return fmt.Errorf("openai healthcheck: %w", err)
	}
	return nil
}
