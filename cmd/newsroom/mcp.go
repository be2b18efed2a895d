package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/matiasleandrokruk/newsroom/internal/infra/config"
	"github.com/matiasleandrokruk/newsroom/internal/mcpserver"
)

// runMCP serves the tools over stdio. stdout belongs to the protocol, so
// errors go to stderr.
func runMCP(cfg *config.Config, _ []string, _ io.Writer) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := build(ctx, cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err) //nolint:errcheck
		return 1
	}
	defer c.close(context.WithoutCancel(ctx)) //nolint:errcheck

	go c.embedder.Start(ctx, c.bus)

	srv := mcpserver.New(c.ranker, c.briefing, recoDefaults(cfg.Reco))
	if err := mcpserver.ServeStdio(ctx, srv); err != nil && ctx.Err() == nil {
		fmt.Fprintln(os.Stderr, err) //nolint:errcheck
		return 1
	}
	return 0
}
