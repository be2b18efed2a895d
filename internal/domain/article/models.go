// Package article owns the article corpus: dataset loading, ingestion into
// SQLite, chunk embedding, and retrieval of ranking candidates.
package article

import (
	"errors"
	"time"
)

// Dataset defaults for fields a document may omit.
const (
	DefaultPublishedAt = "1970-01-01T00:00:00Z"
	DefaultSource      = "demo"
)

var (
	// ErrEmptyDataset is returned when a dataset file holds no documents.
	ErrEmptyDataset = errors.New("article: dataset is empty")

	// ErrNotFound is returned when an article id does not exist.
	ErrNotFound = errors.New("article: not found")
)

// EmbeddingStatus tracks a chunk through the embedding pipeline.
type EmbeddingStatus string

const (
	EmbeddingStatusPending  EmbeddingStatus = "pending"
	EmbeddingStatusEmbedded EmbeddingStatus = "embedded"
	EmbeddingStatusFailed   EmbeddingStatus = "failed"
)

// Document is one input record, as found in a dataset file or built from a feed item.
type Document struct {
	ID          string   `json:"id" yaml:"id" validate:"required"`
	Title       string   `json:"title" yaml:"title" validate:"required"`
	URL         string   `json:"url" yaml:"url"`
	PublishedAt string   `json:"published_at,omitempty" yaml:"published_at"`
	Source      string   `json:"source,omitempty" yaml:"source"`
	Body        string   `json:"body" yaml:"body"`
	Tags        []string `json:"tags,omitempty" yaml:"tags"`
	Popularity  float64  `json:"popularity,omitempty" yaml:"popularity" validate:"gte=0"`
}

// WithDefaults fills published_at and source when absent.
func (d Document) WithDefaults() Document {
	if d.PublishedAt == "" {
		d.PublishedAt = DefaultPublishedAt
	}
	if d.Source == "" {
		d.Source = DefaultSource
	}
	if d.Tags == nil {
		d.Tags = []string{}
	}
	return d
}

// Article is a stored document. DocID is the external id from the dataset.
type Article struct {
	ID          string
	DocID       string
	Title       string
	URL         string
	PublishedAt string
	Source      string
	Body        string
	Tags        []string
	Popularity  float64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Chunk is a window of an article body prepared for embedding.
type Chunk struct {
	ID         string
	ArticleID  string
	Index      int
	Content    string
	TokenCount int
	Status     EmbeddingStatus
}

// Stats summarizes the store for health and CLI output.
type Stats struct {
	Articles       int `json:"articles"`
	Chunks         int `json:"chunks"`
	ChunksEmbedded int `json:"chunks_embedded"`
	ChunksPending  int `json:"chunks_pending"`
	ChunksFailed   int `json:"chunks_failed"`
}
