package llm

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

const defaultGeminiEmbedModel = "text-embedding-004"

// GeminiProvider calls the Generative Language API. BaseURL ends in /models.
type GeminiProvider struct {
	client     jsonClient
	model      string
	embedModel string
}

func NewGeminiProvider(cfg ClientConfig) *GeminiProvider {
	embed := cfg.EmbedModel
	if embed == "" {
		embed = defaultGeminiEmbedModel
	}
	return &GeminiProvider{
		client: newJSONClient(ProviderGemini, cfg.BaseURL, cfg.timeout(), map[string]string{
			"x-goog-api-key": cfg.APIKey,
		}),
		model:      cfg.Model,
		embedModel: embed,
	}
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature     float32 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

type geminiRequest struct {
	Contents          []geminiContent        `json:"contents"`
	SystemInstruction *geminiContent         `json:"systemInstruction,omitempty"`
	GenerationConfig  geminiGenerationConfig `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
	ModelVersion string `json:"modelVersion"`
}

type geminiEmbedRequest struct {
	Requests []geminiEmbedItem `json:"requests"`
}

type geminiEmbedItem struct {
	Model   string        `json:"model"`
	Content geminiContent `json:"content"`
}

type geminiEmbedResponse struct {
	Embeddings []struct {
		Values []float32 `json:"values"`
	} `json:"embeddings"`
}

// ChatCompletion calls POST /{model}:generateContent. Assistant turns use
// the "model" role.
func (p *GeminiProvider) ChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	model := req.Model
	if model == "" {
		model = p.model
	}

	system, turns := splitSystem(req.Messages)
	body := geminiRequest{
		Contents: make([]geminiContent, 0, len(turns)),
		GenerationConfig: geminiGenerationConfig{
			Temperature:     req.Temperature,
			MaxOutputTokens: req.MaxTokens,
		},
	}
	if system != "" {
		body.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: system}}}
	}
	for _, m := range turns {
		role := "user"
		if m.Role == "assistant" {
			role = "model"
		}
		body.Contents = append(body.Contents, geminiContent{Role: role, Parts: []geminiPart{{Text: m.Content}}})
	}

	var out geminiResponse
	if err := p.client.doPost(ctx, "/"+url.PathEscape(model)+":generateContent", body, &out); err != nil {
		return nil, fmt.Errorf("gemini chat: %w", err)
	}
	if len(out.Candidates) == 0 {
		return nil, errors.New("gemini chat: response has no candidates")
	}

	var sb strings.Builder
	for _, part := range out.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	if out.ModelVersion == "" {
		out.ModelVersion = model
	}
	return &ChatResponse{
		Content:      sb.String(),
		Model:        out.ModelVersion,
		StopReason:   strings.ToLower(out.Candidates[0].FinishReason),
		InputTokens:  out.UsageMetadata.PromptTokenCount,
		OutputTokens: out.UsageMetadata.CandidatesTokenCount,
		Tokens:       out.UsageMetadata.TotalTokenCount,
	}, nil
}

// Embed calls POST /{model}:batchEmbedContents.
func (p *GeminiProvider) Embed(ctx context.Context, req EmbedRequest) (*EmbedResponse, error) {
	if len(req.Texts) == 0 {
		return &EmbedResponse{Embeddings: [][]float32{}}, nil
	}
	model := req.Model
	if model == "" {
		model = p.embedModel
	}

	body := geminiEmbedRequest{Requests: make([]geminiEmbedItem, len(req.Texts))}
	for i, text := range req.Texts {
		body.Requests[i] = geminiEmbedItem{
			Model:   "models/" + model,
			Content: geminiContent{Parts: []geminiPart{{Text: text}}},
		}
	}

	var out geminiEmbedResponse
	if err := p.client.doPost(ctx, "/"+url.PathEscape(model)+":batchEmbedContents", body, &out); err != nil {
		return nil, fmt.Errorf("gemini embed: %w", err)
	}
	if len(out.Embeddings) != len(req.Texts) {
		return nil, fmt.Errorf("gemini embed: got %d vectors for %d texts", len(out.Embeddings), len(req.Texts))
	}
	vecs := make([][]float32, len(out.Embeddings))
	for i, e := range out.Embeddings {
		vecs[i] = e.Values
	}
	return &EmbedResponse{Embeddings: vecs}, nil
}

func (p *GeminiProvider) ModelInfo() ModelMeta {
	return ModelMeta{ID: p.model, Provider: ProviderGemini, Version: "v1beta", MaxTokens: 1048576}
}

func (p *GeminiProvider) HealthCheck(ctx context.Context) error {
	if err := p.client.doGet(ctx, "", nil); err != nil {
		return fmt.Errorf("gemini healthcheck: %w", err)
	}
	return nil
}
