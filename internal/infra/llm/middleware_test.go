package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/matiasleandrokruk/newsroom/internal/metrics"
)

func TestBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	t.Parallel()

	upstream := errors.New("upstream 500")
	stub := &stubProvider{err: upstream}
	b := NewBreakerProvider(stub, "breaker-open", BreakerConfig{MaxFailures: 2, OpenTimeout: time.Minute})

	for i := 0; i < 2; i++ {
		if _, err := b.ChatCompletion(context.Background(), ChatRequest{}); !errors.Is(err, upstream) {
			t.Fatalf("call %d: err = %v, want upstream error", i, err)
		}
	}
	if b.State() != gobreaker.StateOpen {
		t.Fatalf("state = %v, want open", b.State())
	}

	_, err := b.ChatCompletion(context.Background(), ChatRequest{})
	if !errors.Is(err, ErrProviderUnavailable) {
		t.Errorf("err = %v, want ErrProviderUnavailable", err)
	}
	if stub.calls.Load() != 2 {
		t.Errorf("upstream calls = %d, want 2 (third rejected)", stub.calls.Load())
	}
	if got := testutil.ToFloat64(metrics.LLMBreakerState.WithLabelValues("breaker-open")); got != 2 {
		t.Errorf("breaker gauge = %v, want 2", got)
	}
}

func TestBreaker_EmbeddingUnsupportedDoesNotTrip(t *testing.T) {
	t.Parallel()

	stub := &stubProvider{err: ErrEmbeddingUnsupported}
	b := NewBreakerProvider(stub, "breaker-embed", BreakerConfig{MaxFailures: 1, OpenTimeout: time.Minute})

	for i := 0; i < 3; i++ {
		if _, err := b.Embed(context.Background(), EmbedRequest{Texts: []string{"x"}}); !errors.Is(err, ErrEmbeddingUnsupported) {
			t.Fatalf("err = %v", err)
		}
	}
	if b.State() != gobreaker.StateClosed {
		t.Errorf("state = %v, want closed", b.State())
	}
}

func TestBreaker_ZeroMaxFailuresDisables(t *testing.T) {
	t.Parallel()

	stub := &stubProvider{}
	if p := Breaker("x", BreakerConfig{})(stub); p != LLMProvider(stub) {
		t.Error("expected the provider to be returned unwrapped")
	}
}

func TestRateLimit_RespectsContext(t *testing.T) {
	t.Parallel()

	stub := &stubProvider{}
	p := RateLimit(0.001, 1)(stub)

	if _, err := p.ChatCompletion(context.Background(), ChatRequest{}); err != nil {
		t.Fatalf("first call should use the burst: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := p.ChatCompletion(ctx, ChatRequest{}); err == nil {
		t.Error("expected rate limit error once the bucket is empty")
	}
	if stub.calls.Load() != 1 {
		t.Errorf("upstream calls = %d, want 1", stub.calls.Load())
	}
}

func TestRateLimit_DisabledReturnsProvider(t *testing.T) {
	t.Parallel()

	stub := &stubProvider{}
	if p := RateLimit(0, 0)(stub); p != LLMProvider(stub) {
		t.Error("expected the provider to be returned unwrapped")
	}
}

func TestInstrument_CountsTokens(t *testing.T) {
	t.Parallel()

	stub := &stubProvider{response: &ChatResponse{Content: "ok", InputTokens: 7, OutputTokens: 3}}
	p := Instrument("instr-test")(stub)

	in := metrics.LLMTokens.WithLabelValues("instr-test", "in")
	out := metrics.LLMTokens.WithLabelValues("instr-test", "out")
	beforeIn, beforeOut := testutil.ToFloat64(in), testutil.ToFloat64(out)

	if _, err := p.ChatCompletion(context.Background(), ChatRequest{}); err != nil {
		t.Fatal(err)
	}
	if got := testutil.ToFloat64(in) - beforeIn; got != 7 {
		t.Errorf("tokens in = %v, want 7", got)
	}
	if got := testutil.ToFloat64(out) - beforeOut; got != 3 {
		t.Errorf("tokens out = %v, want 3", got)
	}
}

func TestWrap_Order(t *testing.T) {
	t.Parallel()

	var order []string
	mark := func(name string) Middleware {
		return func(next LLMProvider) LLMProvider {
			order = append(order, name)
			return next
		}
	}
	Wrap(&stubProvider{}, mark("outer"), mark("inner"))

	// Inner layers are built first so the outermost wraps everything.
	if len(order) != 2 || order[0] != "inner" || order[1] != "outer" {
		t.Errorf("construction order = %v", order)
	}
}
