package article

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Store is the SQL access layer for article and article_chunk.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const timeLayout = time.RFC3339Nano

// upsertArticle inserts or updates by doc_id and returns the internal id.
func upsertArticle(ctx context.Context, q queryer, id string, d Document, now time.Time) (string, error) {
	tags, err := json.Marshal(d.Tags)
	if err != nil {
		return "", fmt.Errorf("encode tags: %w", err)
	}
	ts := now.UTC().Format(timeLayout)

	var out string
	err = q.QueryRowContext(ctx, `
		INSERT INTO article (id, doc_id, title, url, published_at, source, body, tags, popularity, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (doc_id) DO UPDATE SET
			title        = excluded.title,
			url          = excluded.url,
			published_at = excluded.published_at,
			source       = excluded.source,
			body         = excluded.body,
			tags         = excluded.tags,
			popularity   = excluded.popularity,
			updated_at   = excluded.updated_at
		RETURNING id`,
		id, d.ID, d.Title, d.URL, d.PublishedAt, d.Source, d.Body, string(tags), d.Popularity, ts, ts,
	).Scan(&out)
	if err != nil {
		return "", fmt.Errorf("upsert article %q: %w", d.ID, err)
	}
	return out, nil
}

func replaceChunks(ctx context.Context, q queryer, articleID string, chunks []Chunk) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM article_chunk WHERE article_id = ?`, articleID); err != nil {
		return fmt.Errorf("delete chunks: %w", err)
	}
	for _, c := range chunks {
		if _, err := q.ExecContext(ctx, `
			INSERT INTO article_chunk (id, article_id, chunk_index, content, token_count, embedding_status)
			VALUES (?, ?, ?, ?, ?, ?)`,
			c.ID, articleID, c.Index, c.Content, c.TokenCount, string(EmbeddingStatusPending),
		); err != nil {
			return fmt.Errorf("insert chunk %d: %w", c.Index, err)
		}
	}
	return nil
}

const articleColumns = `id, doc_id, title, url, published_at, source, body, tags, popularity, created_at, updated_at`

func scanArticle(scan func(dest ...any) error) (*Article, error) {
	var (
		a                Article
		tags             string
		created, updated string
	)
	if err := scan(&a.ID, &a.DocID, &a.Title, &a.URL, &a.PublishedAt, &a.Source, &a.Body,
		&tags, &a.Popularity, &created, &updated); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(tags), &a.Tags); err != nil {
		a.Tags = []string{}
	}
	a.CreatedAt, _ = time.Parse(timeLayout, created)
	a.UpdatedAt, _ = time.Parse(timeLayout, updated)
	return &a, nil
}

// Get returns the article with the given internal id.
func (s *Store) Get(ctx context.Context, id string) (*Article, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+articleColumns+` FROM article WHERE id = ?`, id)
	a, err := scanArticle(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("article: get %s: %w", id, err)
	}
	return a, nil
}

// GetByDocID returns the article with the given external id.
func (s *Store) GetByDocID(ctx context.Context, docID string) (*Article, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+articleColumns+` FROM article WHERE doc_id = ?`, docID)
	a, err := scanArticle(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("article: get doc %s: %w", docID, err)
	}
	return a, nil
}

// Recent returns up to limit articles, newest published first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Article, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+articleColumns+` FROM article ORDER BY published_at DESC, doc_id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("article: recent: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var out []Article
	for rows.Next() {
		a, err := scanArticle(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("article: recent scan: %w", err)
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

// Stats counts articles and chunks by embedding status.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM article`).Scan(&st.Articles); err != nil {
		return st, fmt.Errorf("article: stats: %w", err)
	}
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(embedding_status = 'embedded'), 0),
		       COALESCE(SUM(embedding_status = 'pending'), 0),
		       COALESCE(SUM(embedding_status = 'failed'), 0)
		FROM article_chunk`).Scan(&st.Chunks, &st.ChunksEmbedded, &st.ChunksPending, &st.ChunksFailed)
	if err != nil {
		return st, fmt.Errorf("article: stats: %w", err)
	}
	return st, nil
}

// chunksByStatus lists chunks of one article (or all articles when articleID
// is empty) in the given states.
func (s *Store) chunksByStatus(ctx context.Context, articleID string, states ...EmbeddingStatus) ([]Chunk, error) {
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(states)), ", ")
	query := `SELECT id, article_id, chunk_index, content, token_count, embedding_status
		FROM article_chunk WHERE embedding_status IN (` + placeholders + `)`
	args := make([]any, 0, len(states)+1)
	for _, st := range states {
		args = append(args, string(st))
	}
	if articleID != "" {
		query += ` AND article_id = ?`
		args = append(args, articleID)
	}
	query += ` ORDER BY article_id, chunk_index`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	var out []Chunk
	for rows.Next() {
		var (
			c      Chunk
			status string
		)
		if err := rows.Scan(&c.ID, &c.ArticleID, &c.Index, &c.Content, &c.TokenCount, &status); err != nil {
			return nil, err
		}
		c.Status = EmbeddingStatus(status)
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) storeEmbeddings(ctx context.Context, chunks []Chunk, vecs [][]float32, now time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	ts := now.UTC().Format(timeLayout)
	for i, c := range chunks {
		enc, err := encodeEmbedding(vecs[i])
		if err != nil {
			return fmt.Errorf("encode embedding[%d]: %w", i, err)
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE article_chunk SET embedding = ?, embedding_status = ?, embedded_at = ? WHERE id = ?`,
			enc, string(EmbeddingStatusEmbedded), ts, c.ID,
		); err != nil {
			return fmt.Errorf("update chunk %s: %w", c.ID, err)
		}
	}
	return tx.Commit()
}

func (s *Store) markFailed(ctx context.Context, chunks []Chunk) {
	for _, c := range chunks {
		_, _ = s.db.ExecContext(ctx,
			`UPDATE article_chunk SET embedding_status = ? WHERE id = ?`, string(EmbeddingStatusFailed), c.ID)
	}
}

// encodeEmbedding serialises a vector as JSON text: [0.1,0.2,0.3].
func encodeEmbedding(vec []float32) (string, error) {
	b, err := json.Marshal(vec)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeEmbedding(s string) ([]float32, error) {
	var vec []float32
	if err := json.Unmarshal([]byte(s), &vec); err != nil {
		return nil, fmt.Errorf("decode embedding: %w", err)
	}
	return vec, nil
}
