package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/matiasleandrokruk/newsroom/internal/infra/config"
	"github.com/matiasleandrokruk/newsroom/internal/logging"
)

// runIngest loads a dataset and embeds it synchronously. An embedding
// failure is reported but not fatal: the articles are stored and the
// server retries pending chunks on startup.
func runIngest(cfg *config.Config, args []string, out io.Writer) int {
	path := cfg.Ingest.DatasetPath
	if len(args) > 0 {
		path = args[0]
	}
	if path == "" {
		fmt.Fprintln(out, "ingest: no dataset path given") //nolint:errcheck
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	c, err := build(ctx, cfg)
	if err != nil {
		fmt.Fprintln(out, err) //nolint:errcheck
		return 1
	}
	defer c.close(context.WithoutCancel(ctx)) //nolint:errcheck

	n, err := c.ingest.IngestFile(ctx, path)
	if err != nil {
		fmt.Fprintln(out, err) //nolint:errcheck
		return 1
	}
	fmt.Fprintf(out, "ingested %d articles from %s\n", n, path) //nolint:errcheck

	embedded, err := c.embedder.EmbedPending(ctx)
	if err != nil {
		log := logging.WithComponent("main")
		log.Warn().Err(err).Msg("embedding incomplete, keyword search will be used until it succeeds")
	}
	fmt.Fprintf(out, "embedded %d chunks\n", embedded) //nolint:errcheck
	return 0
}
