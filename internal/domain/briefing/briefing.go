// Package briefing produces a short retrieval-augmented summary of the
// articles that best match a query.
package briefing

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/matiasleandrokruk/newsroom/internal/domain/ranking"
	"github.com/matiasleandrokruk/newsroom/internal/infra/cache"
	"github.com/matiasleandrokruk/newsroom/internal/infra/llm"
	"github.com/matiasleandrokruk/newsroom/internal/logging"
	"github.com/matiasleandrokruk/newsroom/internal/tracing"
)

const (
	DefaultTopK = 5

	contextBodyChars = 1200
	snippetChars     = 240
	maxBullets       = 5
)

const systemPrompt = "You are a technical news summarization assistant. " +
	"State only facts found in the provided context. " +
	"Answer in at most five sentences, and make the last line a one-line insight."

var ErrEmptyQuery = errors.New("briefing: query is required")

// Resolver picks the language model for a request. An empty name selects
// the default provider.
type Resolver interface {
	Resolve(name, model string) (llm.LLMProvider, error)
}

// Source is one retrieved article cited by a briefing.
type Source struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// Briefing is the summary plus the articles it was built from.
type Briefing struct {
	Answer  string   `json:"answer"`
	Bullets []string `json:"bullets"`
	Sources []Source `json:"sources"`
}

type Service struct {
	source   ranking.CandidateSource
	models   Resolver
	cache    cache.Cache
	cacheTTL time.Duration
	defaultK int
}

type Option func(*Service)

// WithCache stores briefings in c for ttl. A nil cache disables caching.
func WithCache(c cache.Cache, ttl time.Duration) Option {
	return func(s *Service) {
		s.cache = c
		s.cacheTTL = ttl
	}
}

// WithDefaultTopK sets the context size used when a request passes k <= 0.
func WithDefaultTopK(k int) Option {
	return func(s *Service) {
		if k > 0 {
			s.defaultK = k
		}
	}
}

func NewService(source ranking.CandidateSource, models Resolver, opts ...Option) *Service {
	s := &Service{source: source, models: models, defaultK: DefaultTopK}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Brief retrieves k articles for query and asks the provider to summarize
// them at temperature 0. k <= 0 uses the configured default.
func (s *Service) Brief(ctx context.Context, query string, k int, provider string) (out *Briefing, err error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	if k <= 0 {
		k = s.defaultK
	}

	ctx, end := tracing.StartSpan(ctx, "briefing.brief",
		attribute.Int("briefing.k", k),
		attribute.String("briefing.provider", provider),
	)
	defer func() { end(err) }()

	model, err := s.models.Resolve(provider, "")
	if err != nil {
		return nil, fmt.Errorf("briefing: %w", err)
	}

	meta := model.ModelInfo()
	key := cacheKey(meta.Provider, meta.ID, query, k)
	if s.cache != nil {
		var cached Briefing
		if hit, cerr := cache.GetJSON(ctx, s.cache, key, &cached); cerr != nil {
			logging.Ctx(ctx).Warn().Err(cerr).Msg("briefing cache read failed")
		} else if hit {
			tracing.SetAttributes(ctx, attribute.Bool("briefing.cached", true))
			return &cached, nil
		}
	}

	cands, err := s.source.Search(ctx, query, k)
	if err != nil {
		return nil, fmt.Errorf("briefing: retrieve: %w", err)
	}

	resp, err := model.ChatCompletion(ctx, llm.ChatRequest{
		Messages:    llm.SystemAndUser(systemPrompt, BuildPrompt(query, cands)),
		Temperature: 0,
	})
	if err != nil {
		return nil, fmt.Errorf("briefing: summarize: %w", err)
	}

	out = &Briefing{
		Answer:  resp.Content,
		Bullets: Bullets(resp.Content),
		Sources: sourcesOf(cands),
	}

	if s.cache != nil {
		if cerr := cache.SetJSON(ctx, s.cache, key, out, s.cacheTTL); cerr != nil {
			logging.Ctx(ctx).Warn().Err(cerr).Msg("briefing cache write failed")
		}
	}
	return out, nil
}

// BuildPrompt renders the numbered context blocks followed by the summary cue.
func BuildPrompt(query string, cands []ranking.Candidate) string {
	blocks := make([]string, len(cands))
	for i, c := range cands {
		blocks[i] = "[" + strconv.Itoa(i+1) + "] " + c.Title + "\n" + truncate(c.Text, contextBodyChars)
	}

	var b strings.Builder
	b.WriteString("Query: ")
	b.WriteString(query)
	b.WriteString("\n\nContext:\n")
	b.WriteString(strings.Join(blocks, "\n\n"))
	b.WriteString("\n\nSummary:")
	return b.String()
}

// Bullets returns the first five non-blank lines of answer.
func Bullets(answer string) []string {
	out := []string{}
	for _, ln := range strings.Split(answer, "\n") {
		if strings.TrimSpace(ln) == "" {
			continue
		}
		out = append(out, strings.TrimRight(ln, "\r"))
		if len(out) == maxBullets {
			break
		}
	}
	return out
}

func sourcesOf(cands []ranking.Candidate) []Source {
	out := make([]Source, len(cands))
	for i, c := range cands {
		out[i] = Source{Title: c.Title, URL: c.URL, Snippet: truncate(c.Text, snippetChars)}
	}
	return out
}

func cacheKey(provider, model, query string, k int) string {
	sum := sha256.Sum256([]byte(strings.ToLower(provider) + "\x00" + model + "\x00" + query + "\x00" + strconv.Itoa(k)))
	return "briefing:" + hex.EncodeToString(sum[:16])
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
