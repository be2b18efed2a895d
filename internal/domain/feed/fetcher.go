// Package feed pulls RSS/Atom feeds into article documents and refreshes
// them on a schedule.
package feed

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
	"github.com/mmcdole/gofeed"

	"github.com/matiasleandrokruk/newsroom/internal/domain/article"
	"github.com/matiasleandrokruk/newsroom/internal/logging"
	"github.com/matiasleandrokruk/newsroom/internal/metrics"
)

const (
	defaultTimeout  = 15 * time.Second
	defaultMinBody  = 280
	maxBodyChars    = 20000
	defaultMaxItems = 50
)

var ErrAllFeedsFailed = errors.New("feed: every feed failed")

// Fetcher turns feed items into documents. Items whose summary is shorter
// than minBody characters get their body from the linked page.
type Fetcher struct {
	client   *http.Client
	minBody  int
	maxItems int
}

type Option func(*Fetcher)

// WithHTTPClient replaces the default client.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) { f.client = c }
}

// WithMinBody sets the summary length below which the article page is fetched.
// Zero disables page extraction.
func WithMinBody(n int) Option {
	return func(f *Fetcher) { f.minBody = n }
}

// WithMaxItems caps items taken per feed.
func WithMaxItems(n int) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.maxItems = n
		}
	}
}

func NewFetcher(opts ...Option) *Fetcher {
	f := &Fetcher{
		client:   &http.Client{Timeout: defaultTimeout},
		minBody:  defaultMinBody,
		maxItems: defaultMaxItems,
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// Fetch parses every feed and returns the items as documents, deduplicated by
// id in feed order. A failing feed is logged and skipped; an error is returned
// only when none could be read.
func (f *Fetcher) Fetch(ctx context.Context, urls []string) ([]article.Document, error) {
	log := logging.Ctx(ctx)
	seen := map[string]bool{}
	out := []article.Document{}

	var failures []error
	for _, feedURL := range urls {
		docs, err := f.fetchOne(ctx, feedURL)
		if err != nil {
			if ctx.Err() != nil {
				return out, ctx.Err()
			}
			log.Warn().Err(err).Str("feed", feedURL).Msg("feed fetch failed")
			failures = append(failures, err)
			continue
		}
		metrics.FeedItemsFetched.WithLabelValues(feedLabel(feedURL)).Add(float64(len(docs)))
		for _, d := range docs {
			if seen[d.ID] {
				continue
			}
			seen[d.ID] = true
			out = append(out, d)
		}
	}

	if len(urls) > 0 && len(failures) == len(urls) {
		return nil, fmt.Errorf("%w: %w", ErrAllFeedsFailed, errors.Join(failures...))
	}
	return out, nil
}

func (f *Fetcher) fetchOne(ctx context.Context, feedURL string) ([]article.Document, error) {
	parser := gofeed.NewParser()
	parser.Client = f.client
	parser.UserAgent = "newsroom/1.0"

	parsed, err := parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("feed: parse %s: %w", feedURL, err)
	}

	source := strings.TrimSpace(parsed.Title)
	items := parsed.Items
	if len(items) > f.maxItems {
		items = items[:f.maxItems]
	}

	docs := make([]article.Document, 0, len(items))
	for _, it := range items {
		d, ok := f.toDocument(ctx, source, it)
		if ok {
			docs = append(docs, d)
		}
	}
	return docs, nil
}

func (f *Fetcher) toDocument(ctx context.Context, source string, it *gofeed.Item) (article.Document, bool) {
	link := strings.TrimSpace(it.Link)
	id := strings.TrimSpace(it.GUID)
	if id == "" {
		id = link
	}
	title := strings.TrimSpace(it.Title)
	if id == "" || title == "" {
		return article.Document{}, false
	}

	body := htmlText(it.Content)
	if body == "" {
		body = htmlText(it.Description)
	}
	if f.minBody > 0 && len(body) < f.minBody && link != "" {
		if extracted, err := f.extract(ctx, link); err != nil {
			logging.Ctx(ctx).Debug().Err(err).Str("url", link).Msg("article extraction failed, keeping summary")
		} else if len(extracted) > len(body) {
			body = extracted
		}
	}

	d := article.Document{
		ID:     id,
		Title:  title,
		URL:    link,
		Source: source,
		Body:   truncate(body, maxBodyChars),
		Tags:   it.Categories,
	}
	switch {
	case it.PublishedParsed != nil:
		d.PublishedAt = it.PublishedParsed.UTC().Format(time.RFC3339)
	case it.UpdatedParsed != nil:
		d.PublishedAt = it.UpdatedParsed.UTC().Format(time.RFC3339)
	}
	return d.WithDefaults(), true
}

// extract downloads the page and returns its readable text.
func (f *Fetcher) extract(ctx context.Context, link string) (string, error) {
	pageURL, err := url.Parse(link)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return "", err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("status %d", resp.StatusCode)
	}
	page, err := readability.FromReader(resp.Body, pageURL)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(page.TextContent), nil
}

// htmlText flattens an HTML fragment to whitespace-normalized text.
func htmlText(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if strings.Contains(s, "<") {
		if doc, err := goquery.NewDocumentFromReader(strings.NewReader(s)); err == nil {
			s = doc.Text()
		}
	}
	return strings.Join(strings.Fields(s), " ")
}

// feedLabel keeps metric cardinality to one series per host.
func feedLabel(feedURL string) string {
	u, err := url.Parse(feedURL)
	if err != nil || u.Host == "" {
		return "unknown"
	}
	return u.Host
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
