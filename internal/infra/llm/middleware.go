package llm

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"

	"github.com/matiasleandrokruk/newsroom/internal/metrics"
	"github.com/matiasleandrokruk/newsroom/internal/tracing"
)

// Middleware decorates a provider.
type Middleware func(LLMProvider) LLMProvider

// Wrap applies mws so that mws[0] is the outermost layer.
func Wrap(p LLMProvider, mws ...Middleware) LLMProvider {
	for i := len(mws) - 1; i >= 0; i-- {
		p = mws[i](p)
	}
	return p
}

// ─── instrumentation ─────────────────────────────────────────────────────────

type instrumented struct {
	next LLMProvider
	name string
}

// Instrument records a span, a latency histogram and token counters per call.
func Instrument(name string) Middleware {
	return func(next LLMProvider) LLMProvider {
		return &instrumented{next: next, name: name}
	}
}

func (p *instrumented) ChatCompletion(ctx context.Context, req ChatRequest) (resp *ChatResponse, err error) {
	ctx, end := tracing.StartSpan(ctx, "llm.chat",
		attribute.String("llm.provider", p.name),
		attribute.String("llm.model", modelOr(req.Model, p.next.ModelInfo().ID)),
	)
	start := time.Now()
	defer func() {
		metrics.ObserveLLM(p.name, "chat", err, time.Since(start))
		end(err)
	}()

	resp, err = p.next.ChatCompletion(ctx, req)
	if err != nil {
		return nil, err
	}
	metrics.LLMTokens.WithLabelValues(p.name, "in").Add(float64(resp.InputTokens))
	metrics.LLMTokens.WithLabelValues(p.name, "out").Add(float64(resp.OutputTokens))
	tracing.SetAttributes(ctx,
		attribute.Int("llm.tokens_in", resp.InputTokens),
		attribute.Int("llm.tokens_out", resp.OutputTokens),
	)
	return resp, nil
}

func (p *instrumented) Embed(ctx context.Context, req EmbedRequest) (resp *EmbedResponse, err error) {
	ctx, end := tracing.StartSpan(ctx, "llm.embed",
		attribute.String("llm.provider", p.name),
		attribute.Int("llm.texts", len(req.Texts)),
	)
	start := time.Now()
	defer func() {
		metrics.ObserveLLM(p.name, "embed", err, time.Since(start))
		end(err)
	}()
	return p.next.Embed(ctx, req)
}

func (p *instrumented) ModelInfo() ModelMeta { return p.next.ModelInfo() }

func (p *instrumented) HealthCheck(ctx context.Context) error { return p.next.HealthCheck(ctx) }

// ─── rate limiting ───────────────────────────────────────────────────────────

type limited struct {
	next    LLMProvider
	limiter *rate.Limiter
}

// RateLimit blocks each call until the token bucket admits it or ctx ends.
// perSecond <= 0 disables limiting.
func RateLimit(perSecond float64, burst int) Middleware {
	return func(next LLMProvider) LLMProvider {
		if perSecond <= 0 {
			return next
		}
		if burst < 1 {
			burst = 1
		}
		return &limited{next: next, limiter: rate.NewLimiter(rate.Limit(perSecond), burst)}
	}
}

func (p *limited) ChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("llm rate limit: %w", err)
	}
	return p.next.ChatCompletion(ctx, req)
}

func (p *limited) Embed(ctx context.Context, req EmbedRequest) (*EmbedResponse, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("llm rate limit: %w", err)
	}
	return p.next.Embed(ctx, req)
}

func (p *limited) ModelInfo() ModelMeta { return p.next.ModelInfo() }

func (p *limited) HealthCheck(ctx context.Context) error { return p.next.HealthCheck(ctx) }

// ─── model pinning ───────────────────────────────────────────────────────────

type pinned struct {
	next  LLMProvider
	model string
}

// WithModel fills ChatRequest.Model when the caller left it empty.
func WithModel(model string) Middleware {
	return func(next LLMProvider) LLMProvider {
		if model == "" {
			return next
		}
		return &pinned{next: next, model: model}
	}
}

func (p *pinned) ChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if req.Model == "" {
		req.Model = p.model
	}
	return p.next.ChatCompletion(ctx, req)
}

func (p *pinned) Embed(ctx context.Context, req EmbedRequest) (*EmbedResponse, error) {
	return p.next.Embed(ctx, req)
}

func (p *pinned) ModelInfo() ModelMeta {
	meta := p.next.ModelInfo()
	meta.ID = p.model
	return meta
}

func (p *pinned) HealthCheck(ctx context.Context) error { return p.next.HealthCheck(ctx) }

func modelOr(model, fallback string) string {
	if model != "" {
		return model
	}
	return fallback
}
