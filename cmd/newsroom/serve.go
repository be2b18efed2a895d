package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/matiasleandrokruk/newsroom/internal/api"
	"github.com/matiasleandrokruk/newsroom/internal/api/handlers"
	"github.com/matiasleandrokruk/newsroom/internal/domain/feed"
	"github.com/matiasleandrokruk/newsroom/internal/infra/config"
	"github.com/matiasleandrokruk/newsroom/internal/infra/eventbus"
	"github.com/matiasleandrokruk/newsroom/internal/logging"
	"github.com/matiasleandrokruk/newsroom/internal/server"
	pkgauth "github.com/matiasleandrokruk/newsroom/pkg/auth"
)

func runServe(cfg *config.Config, _ []string, out io.Writer) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := serve(ctx, cfg); err != nil {
		fmt.Fprintln(out, err) //nolint:errcheck
		return 1
	}
	return 0
}

func serve(ctx context.Context, cfg *config.Config) error {
	log := logging.WithComponent("main")

	c, err := build(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := c.close(context.WithoutCancel(ctx)); err != nil {
			log.Warn().Err(err).Msg("shutdown")
		}
	}()

	// Registered after close so the workers are gone before the database is.
	defer runEmbedding(ctx, c.embedder, c.bus)()

	var feeds handlers.FeedRefresher
	if len(cfg.Feeds.URLs) > 0 {
		feeds = c.feeds
		if cfg.Feeds.Schedule != "" {
			sched, err := feed.NewScheduler(cfg.Feeds.Schedule, c.feeds)
			if err != nil {
				return err
			}
			sched.Start()
			defer func() {
				stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
				defer cancel()
				sched.Stop(stopCtx) //nolint:errcheck
			}()
		}
	}

	issuer, err := adminIssuer(cfg.Security)
	if err != nil {
		return err
	}
	if issuer == nil {
		log.Warn().Msg("jwt_secret not set, admin routes are unauthenticated")
	}

	router := api.NewRouter(api.Deps{
		Recommender: c.ranker,
		Briefer:     c.briefing,
		Comparer:    c.compare,
		Ingester:    c.ingest,
		Feeds:       feeds,
		Providers:   c.models,
		Checks:      healthChecks(c),
		Reco:        recoDefaults(cfg.Reco),
		DatasetPath: cfg.Ingest.DatasetPath,
		Issuer:      issuer,
		CORSOrigins: cfg.Security.CORSOrigins,
		RateLimit:   cfg.Security.CompareRateLimit,
		UIDir:       cfg.UI.Dir,
	})

	return server.NewServer(router, cfg.Server).Start(ctx)
}

type backgroundEmbedder interface {
	Start(ctx context.Context, bus eventbus.EventBus)
	EmbedPending(ctx context.Context) (int, error)
}

// runEmbedding starts the event-driven embedder and the startup pass over
// pending chunks. The returned func cancels both and waits for them to exit.
func runEmbedding(ctx context.Context, emb backgroundEmbedder, bus eventbus.EventBus) (stop func()) {
	log := logging.WithComponent("embedder")
	ctx, cancel := context.WithCancel(ctx)

	var wg sync.WaitGroup
	wg.Go(func() { emb.Start(ctx, bus) })
	wg.Go(func() {
		n, err := emb.EmbedPending(ctx)
		if err != nil {
			log.Warn().Err(err).Int("embedded", n).Msg("startup embedding pass incomplete")
			return
		}
		log.Info().Int("embedded", n).Msg("startup embedding pass done")
	})

	return func() {
		cancel()
		wg.Wait()
	}
}

// adminIssuer returns nil when no secret is configured.
func adminIssuer(sec config.SecurityConfig) (*pkgauth.Issuer, error) {
	if sec.JWTSecret == "" {
		return nil, nil
	}
	return pkgauth.NewIssuer(sec.JWTSecret, sec.JWTExpiry)
}

func healthChecks(c *components) map[string]handlers.Check {
	checks := map[string]handlers.Check{
		"database": c.db.PingContext,
	}
	if hc, ok := c.cache.(interface{ HealthCheck(context.Context) error }); ok {
		checks["cache"] = hc.HealthCheck
	}
	return checks
}
