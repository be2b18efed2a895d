package article

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode"

	"go.opentelemetry.io/otel/attribute"

	"github.com/matiasleandrokruk/newsroom/internal/domain/ranking"
	"github.com/matiasleandrokruk/newsroom/internal/infra/llm"
	"github.com/matiasleandrokruk/newsroom/internal/logging"
	"github.com/matiasleandrokruk/newsroom/internal/metrics"
	"github.com/matiasleandrokruk/newsroom/internal/tracing"
)

// Search methods reported on spans.
const (
	MethodVector  = "vector"
	MethodKeyword = "keyword"
)

// SearchService is the ranking CandidateSource over the article store.
// Articles are scored by the cosine similarity of their best chunk to the
// query embedding. Articles with no embedded chunk yet are matched by FTS5
// BM25 and merged in, scaled so they never outscore the best vector hit.
// When the query cannot be embedded or no vectors exist, BM25 alone is used,
// normalized so the best hit scores 1.
type SearchService struct {
	db       *sql.DB
	embedder llm.Embedder
}

var _ ranking.CandidateSource = (*SearchService)(nil)

func NewSearchService(db *sql.DB, embedder llm.Embedder) *SearchService {
	return &SearchService{db: db, embedder: embedder}
}

// Search returns up to limit candidates ordered by descending similarity.
func (s *SearchService) Search(ctx context.Context, query string, limit int) (cands []ranking.Candidate, err error) {
	ctx, end := tracing.StartSpan(ctx, "article.search",
		attribute.Int("search.limit", limit),
	)
	defer func() { end(err) }()

	if limit <= 0 || strings.TrimSpace(query) == "" {
		return []ranking.Candidate{}, nil
	}

	if vec, ok := s.embedQuery(ctx, query); ok {
		cands, err = s.vectorSearch(ctx, vec, limit)
		if err != nil {
			return nil, fmt.Errorf("article: vector search: %w", err)
		}
		if len(cands) > 0 {
			tracing.SetAttributes(ctx, attribute.String("search.method", MethodVector))
			pending, err := s.keywordSearch(ctx, query, limit, true)
			if err != nil {
				return nil, fmt.Errorf("article: keyword search: %w", err)
			}
			return mergePending(cands, pending, limit), nil
		}
	}

	metrics.SearchFallbacks.Inc()
	tracing.SetAttributes(ctx, attribute.String("search.method", MethodKeyword))
	cands, err = s.keywordSearch(ctx, query, limit, false)
	if err != nil {
		return nil, fmt.Errorf("article: keyword search: %w", err)
	}
	return cands, nil
}

func (s *SearchService) embedQuery(ctx context.Context, query string) ([]float32, bool) {
	if s.embedder == nil {
		return nil, false
	}
	resp, err := s.embedder.Embed(ctx, llm.EmbedRequest{Texts: []string{query}})
	if err != nil || len(resp.Embeddings) == 0 || len(resp.Embeddings[0]) == 0 {
		if err != nil {
			logging.Ctx(ctx).Debug().Err(err).Msg("query embedding failed, using keyword search")
		}
		return nil, false
	}
	return resp.Embeddings[0], true
}

type scoredArticle struct {
	cand ranking.Candidate
	id   string
}

// vectorSearch scans every embedded chunk and keeps each article's best score.
func (s *SearchService) vectorSearch(ctx context.Context, queryVec []float32, limit int) ([]ranking.Candidate, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT a.id, a.title, a.url, a.published_at, a.source, a.body, a.popularity, c.embedding
		FROM article_chunk c
		JOIN article a ON a.id = c.article_id
		WHERE c.embedding_status = 'embedded' AND c.embedding IS NOT NULL`)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	best := map[string]*scoredArticle{}
	for rows.Next() {
		var (
			sa  scoredArticle
			emb string
		)
		if err := rows.Scan(&sa.id, &sa.cand.Title, &sa.cand.URL, &sa.cand.PublishedAt, &sa.cand.Source,
			&sa.cand.Text, &sa.cand.Popularity, &emb); err != nil {
			return nil, err
		}
		vec, err := decodeEmbedding(emb)
		if err != nil {
			continue
		}
		sim := clampUnit(cosineSimilarity(queryVec, vec))
		if cur, ok := best[sa.id]; !ok || sim > cur.cand.Similarity {
			sa.cand.Similarity = sim
			best[sa.id] = &sa
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return topCandidates(best, limit), nil
}

// keywordSearch ranks by FTS5 bm25 over title and body. bm25 is negative with
// lower meaning better, so each score is divided by the best one. With
// pendingOnly set, articles that already have an embedded chunk are skipped.
func (s *SearchService) keywordSearch(ctx context.Context, query string, limit int, pendingOnly bool) ([]ranking.Candidate, error) {
	match := ftsQuery(query)
	if match == "" {
		return []ranking.Candidate{}, nil
	}

	q := `
		SELECT a.id, a.title, a.url, a.published_at, a.source, a.body, a.popularity, bm25(article_fts) AS score
		FROM article_fts
		JOIN article a ON a.rowid = article_fts.rowid
		WHERE article_fts MATCH ?`
	if pendingOnly {
		q += `
		AND NOT EXISTS (
			SELECT 1 FROM article_chunk c
			WHERE c.article_id = a.id AND c.embedding_status = 'embedded')`
	}
	q += `
		ORDER BY score, a.doc_id
		LIMIT ?`

	rows, err := s.db.QueryContext(ctx, q, match, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	out := []ranking.Candidate{}
	var bestScore float64
	for rows.Next() {
		var (
			c     ranking.Candidate
			id    string
			score float64
		)
		if err := rows.Scan(&id, &c.Title, &c.URL, &c.PublishedAt, &c.Source, &c.Text, &c.Popularity, &score); err != nil {
			return nil, err
		}
		if len(out) == 0 {
			bestScore = score
		}
		c.Similarity = normalizeBM25(score, bestScore)
		out = append(out, c)
	}
	return out, rows.Err()
}

func normalizeBM25(score, best float64) float64 {
	if best >= 0 || score >= 0 {
		return 1
	}
	return clampUnit(score / best)
}

// ftsQuery turns free text into an OR of quoted terms so user input can
// never be parsed as FTS5 syntax.
func ftsQuery(q string) string {
	terms := strings.FieldsFunc(strings.ToLower(q), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	seen := map[string]bool{}
	quoted := make([]string, 0, len(terms))
	for _, t := range terms {
		if seen[t] {
			continue
		}
		seen[t] = true
		quoted = append(quoted, `"`+t+`"`)
	}
	return strings.Join(quoted, " OR ")
}

// mergePending adds keyword hits for not-yet-embedded articles to the vector
// hits. Their scores are scaled by the best vector similarity; on ties the
// vector hit stays ahead.
func mergePending(vector, pending []ranking.Candidate, limit int) []ranking.Candidate {
	if len(pending) == 0 {
		return vector
	}
	best := vector[0].Similarity
	out := make([]ranking.Candidate, 0, len(vector)+len(pending))
	out = append(out, vector...)
	for _, c := range pending {
		c.Similarity *= best
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Similarity > out[j].Similarity })
	return out[:min(limit, len(out))]
}

func topCandidates(best map[string]*scoredArticle, limit int) []ranking.Candidate {
	all := make([]*scoredArticle, 0, len(best))
	for _, sa := range best {
		all = append(all, sa)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].cand.Similarity != all[j].cand.Similarity {
			return all[i].cand.Similarity > all[j].cand.Similarity
		}
		return all[i].id < all[j].id
	})
	out := make([]ranking.Candidate, 0, min(limit, len(all)))
	for i := 0; i < len(all) && i < limit; i++ {
		out = append(out, all[i].cand)
	}
	return out
}

// cosineSimilarity returns 0 for mismatched or zero-magnitude vectors.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	denom := math.Sqrt(normA) * math.Sqrt(normB)
	if denom == 0 {
		return 0
	}
	return dot / denom
}

func clampUnit(x float64) float64 {
	switch {
	case math.IsNaN(x) || x < 0:
		return 0
	case x > 1:
		return 1
	default:
		return x
	}
}
