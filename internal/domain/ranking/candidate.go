// Package ranking scores retrieved articles and selects a diverse Top-N.
// It is a pure function over a candidate list supplied by a CandidateSource;
// it performs no indexing, no persistence and no I/O of its own.
package ranking

import "context"

// Candidate is a retrieved article with its raw similarity to the query.
type Candidate struct {
	Title       string
	URL         string
	PublishedAt string // ISO-8601 as stored; may be empty or malformed
	Source      string // may be empty
	Text        string
	Similarity  float64 // nominally [0,1]
	Popularity  float64 // 0 when the source has no signal
}

// ScoredItem is a Candidate with its composite score and a human readable breakdown.
type ScoredItem struct {
	Candidate
	Score  float64
	Reason string
}

// CandidateSource retrieves up to limit candidates for a query.
// Implementations return candidates ordered by descending similarity.
type CandidateSource interface {
	Search(ctx context.Context, query string, limit int) ([]Candidate, error)
}

// CandidateSourceFunc adapts a function to CandidateSource.
type CandidateSourceFunc func(ctx context.Context, query string, limit int) ([]Candidate, error)

// Search calls f.
func (f CandidateSourceFunc) Search(ctx context.Context, query string, limit int) ([]Candidate, error) {
	return f(ctx, query, limit)
}
