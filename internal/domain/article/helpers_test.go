package article

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/matiasleandrokruk/newsroom/internal/infra/llm"
	"github.com/matiasleandrokruk/newsroom/internal/infra/sqlite"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sqlite.Open(sqlite.MemoryPath)
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck
	return db
}

// keywordEmbedder maps text onto a 3-dim space: (ai, sports, space),
// counting keyword hits per axis. Unmatched text maps to a small uniform vector.
type keywordEmbedder struct {
	mu    sync.Mutex
	calls int
	fail  int // fail the first n calls
	err   error
}

var axes = [][]string{
	{"ai", "model", "llm", "neural"},
	{"football", "match", "league", "goal"},
	{"rocket", "orbit", "mars", "launch"},
}

func embedText(text string) []float32 {
	vec := make([]float32, len(axes))
	words := strings.Fields(strings.ToLower(text))
	for i, kws := range axes {
		for _, w := range words {
			for _, k := range kws {
				if strings.Trim(w, ".,!?") == k {
					vec[i]++
				}
			}
		}
	}
	if vec[0] == 0 && vec[1] == 0 && vec[2] == 0 {
		return []float32{0.01, 0.01, 0.01}
	}
	return vec
}

func (e *keywordEmbedder) Embed(_ context.Context, req llm.EmbedRequest) (*llm.EmbedResponse, error) {
	e.mu.Lock()
	e.calls++
	n := e.calls
	e.mu.Unlock()

	if e.err != nil && n <= e.fail {
		return nil, e.err
	}
	out := make([][]float32, len(req.Texts))
	for i, t := range req.Texts {
		out[i] = embedText(t)
	}
	return &llm.EmbedResponse{Embeddings: out}, nil
}

func (e *keywordEmbedder) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

var errEmbedDown = errors.New("embedder down")

func sampleDocs() []Document {
	return []Document{
		{ID: "d1", Title: "New LLM model beats benchmark", URL: "https://a.example/1", Source: "TechCrunch",
			PublishedAt: "2025-03-10T10:00:00Z", Body: "The neural model is an llm trained for AI reasoning."},
		{ID: "d2", Title: "League final ends in late goal", URL: "https://b.example/2", Source: "BBC",
			PublishedAt: "2025-03-09T10:00:00Z", Body: "The football match was decided by a goal in the league final."},
		{ID: "d3", Title: "Rocket launch reaches orbit", URL: "https://c.example/3",
			Body: "The rocket launch put a probe into orbit on its way to mars. An AI model steered it."},
	}
}

func countRows(t *testing.T, db *sql.DB, query string, args ...any) int {
	t.Helper()
	var n int
	if err := db.QueryRow(query, args...).Scan(&n); err != nil {
		t.Fatalf("count %q: %v", query, err)
	}
	return n
}
