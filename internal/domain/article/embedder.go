package article

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/matiasleandrokruk/newsroom/internal/infra/eventbus"
	"github.com/matiasleandrokruk/newsroom/internal/infra/llm"
	"github.com/matiasleandrokruk/newsroom/internal/logging"
	"github.com/matiasleandrokruk/newsroom/internal/metrics"
)

const (
	embedMaxRetries = 3
	embedBaseDelay  = 100 * time.Millisecond
)

// EmbedderService turns pending chunks into stored vectors.
type EmbedderService struct {
	store     *Store
	embedder  llm.Embedder
	baseDelay time.Duration
	now       func() time.Time
}

func NewEmbedderService(db *sql.DB, embedder llm.Embedder) *EmbedderService {
	return &EmbedderService{
		store:     NewStore(db),
		embedder:  embedder,
		baseDelay: embedBaseDelay,
		now:       time.Now,
	}
}

// Start consumes TopicArticleIngested until ctx ends or the bus closes.
// Run it in its own goroutine.
func (s *EmbedderService) Start(ctx context.Context, bus eventbus.EventBus) {
	ch := bus.Subscribe(TopicArticleIngested)
	log := logging.WithComponent("embedder")
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-ch:
			if !ok {
				return
			}
			payload, ok := evt.Payload.(IngestedEvent)
			if !ok {
				continue
			}
			if err := s.EmbedArticle(ctx, payload.ArticleID); err != nil {
				log.Warn().Err(err).Str("article_id", payload.ArticleID).Msg("embedding failed")
			}
		}
	}
}

// EmbedArticle embeds the pending chunks of one article in a single batch.
// After the retries are exhausted the chunks are marked failed.
func (s *EmbedderService) EmbedArticle(ctx context.Context, articleID string) error {
	chunks, err := s.store.chunksByStatus(ctx, articleID, EmbeddingStatusPending)
	if err != nil {
		return fmt.Errorf("embedder: fetch chunks: %w", err)
	}
	return s.embed(ctx, chunks)
}

// EmbedPending retries every pending or failed chunk, one article at a time,
// and returns the number of chunks embedded. Used at startup and after the
// embedding provider recovers.
func (s *EmbedderService) EmbedPending(ctx context.Context) (int, error) {
	chunks, err := s.store.chunksByStatus(ctx, "", EmbeddingStatusPending, EmbeddingStatusFailed)
	if err != nil {
		return 0, fmt.Errorf("embedder: fetch chunks: %w", err)
	}

	var (
		done    int
		lastErr error
	)
	for start := 0; start < len(chunks); {
		end := start
		for end < len(chunks) && chunks[end].ArticleID == chunks[start].ArticleID {
			end++
		}
		batch := chunks[start:end]
		if err := s.embed(ctx, batch); err != nil {
			if ctx.Err() != nil {
				return done, ctx.Err()
			}
			lastErr = err
		} else {
			done += len(batch)
		}
		start = end
	}
	return done, lastErr
}

func (s *EmbedderService) embed(ctx context.Context, chunks []Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}

	vecs, err := s.embedWithRetry(ctx, texts)
	if err == nil && len(vecs) != len(chunks) {
		err = fmt.Errorf("got %d vectors for %d chunks", len(vecs), len(chunks))
	}
	if err != nil {
		s.store.markFailed(context.WithoutCancel(ctx), chunks)
		metrics.ChunksEmbedded.WithLabelValues(string(EmbeddingStatusFailed)).Add(float64(len(chunks)))
		return fmt.Errorf("embedder: embed: %w", err)
	}

	if err := s.store.storeEmbeddings(ctx, chunks, vecs, s.now()); err != nil {
		s.store.markFailed(context.WithoutCancel(ctx), chunks)
		metrics.ChunksEmbedded.WithLabelValues(string(EmbeddingStatusFailed)).Add(float64(len(chunks)))
		return fmt.Errorf("embedder: store vectors: %w", err)
	}
	metrics.ChunksEmbedded.WithLabelValues(string(EmbeddingStatusEmbedded)).Add(float64(len(chunks)))
	return nil
}

// embedWithRetry backs off 100ms, 200ms between attempts. Providers without
// embedding support fail immediately.
func (s *EmbedderService) embedWithRetry(ctx context.Context, texts []string) ([][]float32, error) {
	var lastErr error
	delay := s.baseDelay
	for attempt := 0; attempt < embedMaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
				delay *= 2
			}
		}
		resp, err := s.embedder.Embed(ctx, llm.EmbedRequest{Texts: texts})
		if err == nil {
			return resp.Embeddings, nil
		}
		if errors.Is(err, llm.ErrEmbeddingUnsupported) {
			return nil, err
		}
		lastErr = err
	}
	return nil, fmt.Errorf("all %d attempts failed: %w", embedMaxRetries, lastErr)
}
