package ranking

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/matiasleandrokruk/newsroom/internal/metrics"
	"github.com/matiasleandrokruk/newsroom/internal/tracing"
)

// Ranker composes a CandidateSource with scoring and diversification.
type Ranker struct {
	source CandidateSource
	now    func() time.Time
}

// Option configures a Ranker.
type Option func(*Ranker)

// WithClock overrides the time source used for freshness.
func WithClock(now func() time.Time) Option {
	return func(r *Ranker) { r.now = now }
}

// NewRanker creates a Ranker over source.
func NewRanker(source CandidateSource, opts ...Option) *Ranker {
	r := &Ranker{source: source, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Recommend fetches candidates for query and returns at most topN ranked items.
// An empty pool yields an empty slice; only source failures are errors.
func (r *Ranker) Recommend(ctx context.Context, query string, topN int, p Policy) (items []ScoredItem, err error) {
	ctx, end := tracing.StartSpan(ctx, "ranking.recommend")
	start := time.Now()
	defer func() {
		end(err)
		metrics.RecommendDuration.WithLabelValues(string(p.Mode)).Observe(time.Since(start).Seconds())
		if err == nil {
			metrics.RecommendResults.WithLabelValues(string(p.Mode)).Observe(float64(len(items)))
		}
	}()

	if topN <= 0 {
		return []ScoredItem{}, nil
	}

	limit := p.FetchLimit(topN)
	tracing.SetAttributes(ctx,
		attribute.String("ranking.mode", string(p.Mode)),
		attribute.Int("ranking.top_n", topN),
		attribute.Int("ranking.fetch_limit", limit),
	)

	cands, err := r.source.Search(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("ranking: fetch candidates: %w", err)
	}
	tracing.SetAttributes(ctx, attribute.Int("ranking.candidates", len(cands)))

	return Rank(cands, topN, p, r.now()), nil
}

// Rank scores, orders and selects candidates according to p. It is pure:
// the same inputs always produce the same output.
func Rank(cands []Candidate, topN int, p Policy, now time.Time) []ScoredItem {
	if topN <= 0 || len(cands) == 0 {
		return []ScoredItem{}
	}

	if p.Passthrough {
		return passthrough(cands, topN, p.Label)
	}

	scored := make([]ScoredItem, len(cands))
	for i, c := range cands {
		scored[i] = ScoreWith(c, p.Weights, now, p.Authority)
		if p.Label != "" {
			scored[i].Reason = p.Label
		}
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if p.Diversify {
		share := p.SourceShare
		if share <= 0 {
			share = defaultSourceShare
		}
		return DiversifyShare(scored, topN, share)
	}
	if len(scored) > topN {
		scored = scored[:topN]
	}
	return scored
}

func passthrough(cands []Candidate, topN int, label string) []ScoredItem {
	n := min(topN, len(cands))
	out := make([]ScoredItem, n)
	for i := range n {
		out[i] = ScoredItem{Candidate: cands[i], Score: cands[i].Similarity, Reason: label}
	}
	return out
}
