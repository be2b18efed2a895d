package article

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/matiasleandrokruk/newsroom/internal/infra/eventbus"
	"github.com/matiasleandrokruk/newsroom/internal/logging"
	"github.com/matiasleandrokruk/newsroom/internal/metrics"
)

// TopicArticleIngested is published once per stored article.
const TopicArticleIngested = "article.ingested"

// Origins label where ingested documents came from.
const (
	OriginDataset = "dataset"
	OriginFeed    = "feed"
)

// Chunking defaults, in words.
const (
	DefaultChunkSize    = 512
	DefaultChunkOverlap = 50
)

// IngestedEvent is the payload of TopicArticleIngested.
type IngestedEvent struct {
	ArticleID  string
	DocID      string
	ChunkCount int
}

// IngestService stores documents and their chunks, then notifies the embedder.
type IngestService struct {
	db        *sql.DB
	bus       eventbus.EventBus
	chunkSize int
	overlap   int
	now       func() time.Time
}

// IngestOption configures an IngestService.
type IngestOption func(*IngestService)

// WithChunking overrides the chunk window and overlap.
func WithChunking(size, overlap int) IngestOption {
	return func(s *IngestService) {
		if size > 0 {
			s.chunkSize = size
		}
		if overlap >= 0 {
			s.overlap = overlap
		}
	}
}

func NewIngestService(db *sql.DB, bus eventbus.EventBus, opts ...IngestOption) *IngestService {
	s := &IngestService{
		db:        db,
		bus:       bus,
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
		now:       time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// IngestFile loads a dataset file and ingests it.
func (s *IngestService) IngestFile(ctx context.Context, path string) (int, error) {
	docs, err := LoadDataset(path)
	if err != nil {
		return 0, err
	}
	return s.IngestFrom(ctx, OriginDataset, docs)
}

// Ingest upserts documents from a dataset and returns how many were stored.
func (s *IngestService) Ingest(ctx context.Context, docs []Document) (int, error) {
	return s.IngestFrom(ctx, OriginDataset, docs)
}

// IngestFrom upserts documents by external id in one transaction. Each
// article's chunks are replaced and reset to pending. Events are published
// only after commit.
func (s *IngestService) IngestFrom(ctx context.Context, origin string, docs []Document) (int, error) {
	if len(docs) == 0 {
		return 0, nil
	}
	now := s.now()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("article: ingest: begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	events := make([]IngestedEvent, 0, len(docs))
	for _, d := range docs {
		d = d.WithDefaults()
		if strings.TrimSpace(d.ID) == "" {
			return 0, fmt.Errorf("article: ingest: document %q has no id", d.Title)
		}

		articleID, err := upsertArticle(ctx, tx, newID(), d, now)
		if err != nil {
			return 0, fmt.Errorf("article: ingest: %w", err)
		}
		chunks := s.chunk(articleID, d.Body)
		if err := replaceChunks(ctx, tx, articleID, chunks); err != nil {
			return 0, fmt.Errorf("article: ingest %q: %w", d.ID, err)
		}
		events = append(events, IngestedEvent{ArticleID: articleID, DocID: d.ID, ChunkCount: len(chunks)})
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("article: ingest: commit: %w", err)
	}

	for _, evt := range events {
		s.bus.Publish(TopicArticleIngested, evt)
	}
	metrics.ArticlesIngested.WithLabelValues(origin).Add(float64(len(docs)))
	logging.Ctx(ctx).Info().Str("origin", origin).Int("count", len(docs)).Msg("articles ingested")
	return len(docs), nil
}

func (s *IngestService) chunk(articleID, body string) []Chunk {
	windows := SplitWords(body, s.chunkSize, s.overlap)
	chunks := make([]Chunk, len(windows))
	for i, w := range windows {
		chunks[i] = Chunk{
			ID:         newID(),
			ArticleID:  articleID,
			Index:      i,
			Content:    w,
			TokenCount: len(strings.Fields(w)),
			Status:     EmbeddingStatusPending,
		}
	}
	return chunks
}

// newID returns a time-ordered UUIDv7, falling back to v4.
func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
