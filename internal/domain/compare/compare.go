// Package compare sends one prompt to several providers and reports how each
// one answered.
package compare

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/matiasleandrokruk/newsroom/internal/infra/llm"
	"github.com/matiasleandrokruk/newsroom/internal/logging"
	"github.com/matiasleandrokruk/newsroom/internal/tracing"
)

const (
	maxAnswerChars = 800
	defaultWorkers = 4
)

var (
	ErrEmptyPrompt  = errors.New("compare: prompt is required")
	ErrNoCandidates = errors.New("compare: at least one candidate is required")
	ErrAllFailed    = errors.New("compare: every candidate failed")
)

// Resolver picks the language model for a candidate.
type Resolver interface {
	Resolve(name, model string) (llm.LLMProvider, error)
}

// Candidate names a provider and an optional model override.
type Candidate struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

// Result is one candidate's outcome. Token counts are omitted when the
// provider does not report them.
type Result struct {
	Provider  string `json:"provider"`
	Model     string `json:"model"`
	LatencyMS int64  `json:"latency_ms"`
	TokensIn  *int   `json:"tokens_in"`
	TokensOut *int   `json:"tokens_out"`
	Answer    string `json:"answer"`
	Error     string `json:"error,omitempty"`
}

type Report struct {
	Prompt string   `json:"prompt"`
	Models []Result `json:"models"`
}

type Service struct {
	models  Resolver
	workers int
	now     func() time.Time
}

func NewService(models Resolver) *Service {
	return &Service{models: models, workers: defaultWorkers, now: time.Now}
}

// Run asks every candidate concurrently at temperature 0. Results keep the
// input order. A failing candidate carries its error in Result.Error; the
// call itself fails only when no candidate succeeded.
func (s *Service) Run(ctx context.Context, prompt string, candidates []Candidate) (rep *Report, err error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, ErrEmptyPrompt
	}
	if len(candidates) == 0 {
		return nil, ErrNoCandidates
	}

	ctx, end := tracing.StartSpan(ctx, "compare.run", attribute.Int("compare.candidates", len(candidates)))
	defer func() { end(err) }()

	results := make([]Result, len(candidates))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, c := range candidates {
		g.Go(func() error {
			results[i] = s.runOne(gctx, prompt, c)
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	var firstErr string
	for _, r := range results {
		if r.Error != "" {
			if failed == 0 {
				firstErr = r.Error
			}
			failed++
		}
	}
	rep = &Report{Prompt: prompt, Models: results}
	if failed == len(results) {
		return rep, fmt.Errorf("%w: %s", ErrAllFailed, firstErr)
	}
	return rep, nil
}

func (s *Service) runOne(ctx context.Context, prompt string, c Candidate) Result {
	res := Result{Provider: c.Provider, Model: c.Model}

	p, err := s.models.Resolve(c.Provider, c.Model)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	if res.Model == "" {
		res.Model = p.ModelInfo().ID
	}

	start := s.now()
	resp, err := p.ChatCompletion(ctx, llm.ChatRequest{
		Messages:    []llm.Message{{Role: "user", Content: prompt}},
		Temperature: 0,
	})
	res.LatencyMS = s.now().Sub(start).Milliseconds()
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("provider", c.Provider).Str("model", res.Model).Msg("compare candidate failed")
		res.Error = err.Error()
		return res
	}

	if resp.InputTokens > 0 || resp.OutputTokens > 0 {
		in, out := resp.InputTokens, resp.OutputTokens
		res.TokensIn, res.TokensOut = &in, &out
	}
	res.Answer = truncate(resp.Content, maxAnswerChars)
	return res
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
