package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/matiasleandrokruk/newsroom/internal/domain/article"
	"github.com/matiasleandrokruk/newsroom/internal/domain/briefing"
	"github.com/matiasleandrokruk/newsroom/internal/domain/compare"
	"github.com/matiasleandrokruk/newsroom/internal/domain/feed"
	"github.com/matiasleandrokruk/newsroom/internal/domain/ranking"
	"github.com/matiasleandrokruk/newsroom/internal/infra/cache"
	"github.com/matiasleandrokruk/newsroom/internal/infra/config"
	"github.com/matiasleandrokruk/newsroom/internal/infra/eventbus"
	"github.com/matiasleandrokruk/newsroom/internal/infra/llm"
	"github.com/matiasleandrokruk/newsroom/internal/infra/sqlite"
	"github.com/matiasleandrokruk/newsroom/internal/tracing"
	"github.com/matiasleandrokruk/newsroom/internal/version"
)

const serviceName = "newsroom"

// components holds every long-lived service built from configuration.
type components struct {
	cfg    *config.Config
	db     *sql.DB
	bus    *eventbus.Bus
	models *llm.Router
	cache  cache.Cache
	tracer *tracing.Provider

	ingest   *article.IngestService
	embedder *article.EmbedderService
	search   *article.SearchService
	ranker   *ranking.Ranker
	briefing *briefing.Service
	compare  *compare.Service
	feeds    *feed.Refresher
}

func build(ctx context.Context, cfg *config.Config) (_ *components, err error) {
	c := &components{cfg: cfg}
	defer func() {
		if err != nil {
			c.close(context.WithoutCancel(ctx)) //nolint:errcheck
		}
	}()

	c.tracer, err = tracing.NewProvider(ctx, tracing.Config{
		Enabled:      cfg.Tracing.Enabled,
		ServiceName:  serviceName,
		Version:      version.Version,
		Exporter:     cfg.Tracing.Exporter,
		Endpoint:     cfg.Tracing.Endpoint,
		SamplingRate: cfg.Tracing.SamplingRate,
		Insecure:     cfg.Tracing.Insecure,
	})
	if err != nil {
		return nil, err
	}

	c.db, err = sqlite.Open(cfg.Database.Path)
	if err != nil {
		return nil, err
	}

	c.models = llm.NewRouterFromConfig(cfg.LLM)
	emb, err := c.models.Embedder()
	if err != nil {
		return nil, fmt.Errorf("embedding provider: %w", err)
	}

	c.cache, err = cache.New(ctx, cfg.Cache.RedisURL)
	if err != nil {
		return nil, err
	}

	c.bus = eventbus.New()
	c.ingest = article.NewIngestService(c.db, c.bus, article.WithChunking(cfg.Ingest.ChunkSize, cfg.Ingest.ChunkOverlap))
	c.embedder = article.NewEmbedderService(c.db, emb)
	c.search = article.NewSearchService(c.db, emb)
	c.ranker = ranking.NewRanker(c.search)
	c.briefing = briefing.NewService(c.search, c.models,
		briefing.WithCache(c.cache, cfg.Briefing.CacheTTL),
		briefing.WithDefaultTopK(cfg.Briefing.DefaultTopK),
	)
	c.compare = compare.NewService(c.models)
	c.feeds = feed.NewRefresher(feed.NewFetcher(), c.ingest, cfg.Feeds.URLs)
	return c, nil
}

// recoDefaults maps the reco section onto the ranking defaults.
func recoDefaults(cfg config.RecoConfig) ranking.Defaults {
	w := cfg.Weights
	return ranking.Defaults{
		Engine: cfg.Engine,
		TopN:   cfg.DefaultTopN,
		Weights: ranking.WeightOverrides{
			Similarity: w.Similarity,
			Freshness:  w.Freshness,
			Authority:  w.Authority,
			Quality:    w.Quality,
			Popularity: w.Popularity,
		},
		Authority:   cfg.Authority,
		SourceShare: cfg.SourceShare,
	}
}

// close releases everything build opened, in reverse order.
func (c *components) close(ctx context.Context) error {
	var errs []error
	if c.bus != nil {
		c.bus.Close()
	}
	if c.cache != nil {
		if err := c.cache.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close cache: %w", err))
		}
	}
	if c.db != nil {
		if err := c.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close database: %w", err))
		}
	}
	if err := c.tracer.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
