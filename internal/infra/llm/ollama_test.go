package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func newTestOllama(url string) *OllamaProvider {
	return NewOllamaProvider(ClientConfig{BaseURL: url, Model: "llama3.2:3b", EmbedModel: "nomic-embed-text"})
}

// ============================================================================
// Embed
// ============================================================================

func TestOllamaProvider_Embed_Success(t *testing.T) {
	t.Parallel()

	var gotModel string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embeddings" || r.Method != http.MethodPost {
			http.Error(w, "unexpected path", http.StatusNotFound)
			return
		}
		var req ollamaEmbedRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		gotModel = req.Model
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(ollamaEmbedResponse{Embedding: []float32{0.1, 0.2, 0.3}}) //nolint:errcheck
	}))
	defer srv.Close()

	resp, err := newTestOllama(srv.URL).Embed(context.Background(), EmbedRequest{Texts: []string{"hello world"}})
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	if len(resp.Embeddings) != 1 || len(resp.Embeddings[0]) != 3 {
		t.Fatalf("unexpected embeddings: %v", resp.Embeddings)
	}
	if gotModel != "nomic-embed-text" {
		t.Errorf("embed model = %q, want nomic-embed-text", gotModel)
	}
}

func TestOllamaProvider_Embed_MultiText_CallsOncePerText(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(ollamaEmbedResponse{Embedding: []float32{0.5}}) //nolint:errcheck
	}))
	defer srv.Close()

	resp, err := newTestOllama(srv.URL).Embed(context.Background(), EmbedRequest{Texts: []string{"a", "b", "c"}})
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("expected 3 HTTP calls (one per text), got %d", calls.Load())
	}
	if len(resp.Embeddings) != 3 {
		t.Errorf("expected 3 embeddings, got %d", len(resp.Embeddings))
	}
}

func TestOllamaProvider_Embed_ServerError_ReturnsStatusError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := newTestOllama(srv.URL).Embed(context.Background(), EmbedRequest{Texts: []string{"hello"}})
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected *StatusError, got %v", err)
	}
	if se.Status != http.StatusInternalServerError || se.Body != "model not loaded" {
		t.Errorf("unexpected status error: %+v", se)
	}
}

func TestOllamaProvider_Embed_EmptyTexts_NoCall(t *testing.T) {
	t.Parallel()

	p := newTestOllama("http://127.0.0.1:1")
	resp, err := p.Embed(context.Background(), EmbedRequest{Texts: []string{}})
	if err != nil {
		t.Fatalf("expected no error for empty texts, got %v", err)
	}
	if len(resp.Embeddings) != 0 {
		t.Errorf("expected 0 embeddings, got %d", len(resp.Embeddings))
	}
}

// ============================================================================
// ChatCompletion
// ============================================================================

func TestOllamaProvider_ChatCompletion_Success(t *testing.T) {
	t.Parallel()

	var got ollamaChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" || r.Method != http.MethodPost {
			http.Error(w, "unexpected path", http.StatusNotFound)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(ollamaChatResponse{ //nolint:errcheck
			Message:         ollamaChatMessage{Role: "assistant", Content: "Hello from Ollama"},
			DoneReason:      "stop",
			Done:            true,
			PromptEvalCount: 12,
			EvalCount:       4,
		})
	}))
	defer srv.Close()

	resp, err := newTestOllama(srv.URL).ChatCompletion(context.Background(), ChatRequest{
		Messages: SystemAndUser("be brief", "hi"),
	})
	if err != nil {
		t.Fatalf("ChatCompletion failed: %v", err)
	}
	if resp.Content != "Hello from Ollama" || resp.StopReason != "stop" {
		t.Errorf("unexpected response: %+v", resp)
	}
	if resp.InputTokens != 12 || resp.OutputTokens != 4 || resp.Tokens != 16 {
		t.Errorf("tokens = %d/%d/%d, want 12/4/16", resp.InputTokens, resp.OutputTokens, resp.Tokens)
	}
	if resp.Model != "llama3.2:3b" {
		t.Errorf("model = %q, want default llama3.2:3b", resp.Model)
	}
	if got.Stream {
		t.Error("expected stream=false")
	}
	if len(got.Messages) != 2 || got.Messages[0].Role != "system" {
		t.Errorf("messages not forwarded: %+v", got.Messages)
	}
	if temp, ok := got.Options["temperature"]; !ok || temp != float64(0) {
		t.Errorf("temperature option = %v (present %v), want explicit 0", temp, ok)
	}
}

func TestOllamaProvider_ChatCompletion_ServerError_ReturnsError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad request", http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := newTestOllama(srv.URL).ChatCompletion(context.Background(), ChatRequest{
		Messages: []Message{{Role: "user", Content: "hi"}},
	})
	if err == nil {
		t.Error("expected error for 400 response, got nil")
	}
}

// ============================================================================
// HealthCheck / ModelInfo
// ============================================================================

func TestOllamaProvider_HealthCheck_Healthy(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"models": []any{}}) //nolint:errcheck
	}))
	defer srv.Close()

	if err := newTestOllama(srv.URL).HealthCheck(context.Background()); err != nil {
		t.Errorf("expected healthy, got error: %v", err)
	}
}

func TestOllamaProvider_HealthCheck_Down_ReturnsError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	if err := newTestOllama(srv.URL).HealthCheck(context.Background()); err == nil {
		t.Error("expected error when server is down, got nil")
	}
}

func TestOllamaProvider_ModelInfo_ReturnsMetadata(t *testing.T) {
	t.Parallel()

	meta := newTestOllama("http://localhost:11434").ModelInfo()
	if meta.ID != "llama3.2:3b" || meta.Provider != ProviderOllama {
		t.Errorf("unexpected metadata: %+v", meta)
	}
}

func TestBuildChatOptions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		req  ChatRequest
		want map[string]any
	}{
		{"zero values pin temperature", ChatRequest{}, map[string]any{"temperature": float32(0)}},
		{"temperature", ChatRequest{Temperature: 0.7}, map[string]any{"temperature": float32(0.7)}},
		{"max tokens", ChatRequest{MaxTokens: 256}, map[string]any{"temperature": float32(0), "num_predict": 256}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := buildChatOptions(tt.req)
			if len(got) != len(tt.want) {
				t.Fatalf("opts = %v, want %v", got, tt.want)
			}
			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("opts[%q] = %v, want %v", k, got[k], v)
				}
			}
		})
	}
}
