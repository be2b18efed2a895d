package llm

// Ollama REST endpoints used:
//   - POST /api/embeddings  single text embedding
//   - POST /api/chat        non-streaming chat completion
//   - GET  /api/tags        health check (lists available models)

import (
	"context"
	"fmt"
)

// OllamaProvider implements LLMProvider against a running Ollama instance.
// It is the only adapter used for embeddings by default.
type OllamaProvider struct {
	client     jsonClient
	model      string
	embedModel string
}

// NewOllamaProvider creates an OllamaProvider. EmbedModel falls back to Model.
func NewOllamaProvider(cfg ClientConfig) *OllamaProvider {
	embed := cfg.EmbedModel
	if embed == "" {
		embed = cfg.Model
	}
	return &OllamaProvider{
		client:     newJSONClient(ProviderOllama, cfg.BaseURL, cfg.timeout(), nil),
		model:      cfg.Model,
		embedModel: embed,
	}
}

type ollamaEmbedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaEmbedResponse struct {
	Embedding []float32 `json:"embedding"`
}

type ollamaChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatRequest struct {
	Model    string              `json:"model"`
	Messages []ollamaChatMessage `json:"messages"`
	Stream   bool                `json:"stream"`
	Options  map[string]any      `json:"options,omitempty"`
}

type ollamaChatResponse struct {
	Model           string            `json:"model"`
	Message         ollamaChatMessage `json:"message"`
	DoneReason      string            `json:"done_reason"`
	Done            bool              `json:"done"`
	PromptEvalCount int               `json:"prompt_eval_count"`
	EvalCount       int               `json:"eval_count"`
}

// Embed calls /api/embeddings once per text; Ollama has no batch form here.
func (p *OllamaProvider) Embed(ctx context.Context, req EmbedRequest) (*EmbedResponse, error) {
	if len(req.Texts) == 0 {
		return &EmbedResponse{Embeddings: [][]float32{}}, nil
	}

	model := req.Model
	if model == "" {
		model = p.embedModel
	}

	embeddings := make([][]float32, 0, len(req.Texts))
	for _, text := range req.Texts {
		var out ollamaEmbedResponse
		if err := p.client.doPost(ctx, "/api/embeddings", ollamaEmbedRequest{Model: model, Prompt: text}, &out); err != nil {
			return nil, fmt.Errorf("ollama embed: %w", err)
		}
		embeddings = append(embeddings, out.Embedding)
	}
	return &EmbedResponse{Embeddings: embeddings}, nil
}

// ChatCompletion performs a non-streaming chat via POST /api/chat.
func (p *OllamaProvider) ChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	model := req.Model
	if model == "" {
		model = p.model
	}

	msgs := make([]ollamaChatMessage, len(req.Messages))
	for i, m := range req.Messages {
		msgs[i] = ollamaChatMessage(m)
	}

	var out ollamaChatResponse
	err := p.client.doPost(ctx, "/api/chat", ollamaChatRequest{
		Model:    model,
		Messages: msgs,
		Stream:   false,
		Options:  buildChatOptions(req),
	}, &out)
	if err != nil {
		return nil, fmt.Errorf("ollama chat: %w", err)
	}
	if out.Model == "" {
		out.Model = model
	}
	return &ChatResponse{
		Content:      out.Message.Content,
		Model:        out.Model,
		StopReason:   out.DoneReason,
		InputTokens:  out.PromptEvalCount,
		OutputTokens: out.EvalCount,
		Tokens:       out.PromptEvalCount + out.EvalCount,
	}, nil
}

// buildChatOptions always pins temperature; Ollama's own default is not 0.
func buildChatOptions(req ChatRequest) map[string]any {
	opts := map[string]any{"temperature": req.Temperature}
	if req.MaxTokens != 0 {
		opts["num_predict"] = req.MaxTokens
	}
	return opts
}

// ModelInfo returns static metadata for this provider/model.
func (p *OllamaProvider) ModelInfo() ModelMeta {
	return ModelMeta{
		ID:        p.model,
		Provider:  ProviderOllama,
		Version:   "v1",
		MaxTokens: 4096,
	}
}

// HealthCheck calls GET /api/tags.
func (p *OllamaProvider) HealthCheck(ctx context.Context) error {
	if err := p.client.doGet(ctx, "/api/tags", nil); err != nil {
		return fmt.Errorf("ollama healthcheck: %w", err)
	}
	return nil
}
