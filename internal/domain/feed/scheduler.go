package feed

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/matiasleandrokruk/newsroom/internal/domain/article"
	"github.com/matiasleandrokruk/newsroom/internal/logging"
)

const defaultRunTimeout = 5 * time.Minute

var ErrNoFeeds = errors.New("feed: no feed urls configured")

// Ingester stores fetched documents.
type Ingester interface {
	IngestFrom(ctx context.Context, origin string, docs []article.Document) (int, error)
}

// Refresher fetches the configured feeds and ingests what they return.
type Refresher struct {
	fetcher *Fetcher
	ingest  Ingester
	urls    []string
	mu      sync.Mutex
}

func NewRefresher(fetcher *Fetcher, ingest Ingester, urls []string) *Refresher {
	return &Refresher{fetcher: fetcher, ingest: ingest, urls: urls}
}

// Refresh runs one fetch-and-ingest pass and returns the number of articles
// stored. Concurrent calls are serialized.
func (r *Refresher) Refresh(ctx context.Context) (int, error) {
	if len(r.urls) == 0 {
		return 0, ErrNoFeeds
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	docs, err := r.fetcher.Fetch(ctx, r.urls)
	if err != nil {
		return 0, err
	}
	n, err := r.ingest.IngestFrom(ctx, article.OriginFeed, docs)
	if err != nil {
		return 0, fmt.Errorf("feed: ingest: %w", err)
	}
	return n, nil
}

// Scheduler runs a Refresher on a cron spec. Runs never overlap.
type Scheduler struct {
	cron    *cron.Cron
	refresh *Refresher
	timeout time.Duration
}

// NewScheduler validates spec (standard five fields or a descriptor such as
// "@hourly" / "@every 30m").
func NewScheduler(spec string, r *Refresher) (*Scheduler, error) {
	log := cronLogger{logging.WithComponent("feed-scheduler")}
	s := &Scheduler{
		cron:    cron.New(cron.WithLogger(log), cron.WithChain(cron.Recover(log), cron.SkipIfStillRunning(log))),
		refresh: r,
		timeout: defaultRunTimeout,
	}
	if _, err := s.cron.AddFunc(spec, s.run); err != nil {
		return nil, fmt.Errorf("feed: schedule %q: %w", spec, err)
	}
	return s, nil
}

func (s *Scheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	log := logging.WithComponent("feed-scheduler")
	n, err := s.refresh.Refresh(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("scheduled feed refresh failed")
		return
	}
	log.Info().Int("count", n).Msg("scheduled feed refresh done")
}

func (s *Scheduler) Start() { s.cron.Start() }

// Stop halts scheduling and waits for a running refresh, up to ctx.
func (s *Scheduler) Stop(ctx context.Context) error {
	select {
	case <-s.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct{ log zerolog.Logger }

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
