package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/matiasleandrokruk/newsroom/internal/logging"
	"github.com/matiasleandrokruk/newsroom/internal/metrics"
)

// BreakerConfig controls when a provider's circuit opens.
type BreakerConfig struct {
	// MaxFailures consecutive failures open the circuit. 0 disables the breaker.
	MaxFailures uint32
	// OpenTimeout is how long the circuit stays open before a half-open probe.
	OpenTimeout time.Duration
}

// BreakerProvider stops calling a failing provider for OpenTimeout after
// MaxFailures consecutive errors. Rejected calls return ErrProviderUnavailable.
type BreakerProvider struct {
	next LLMProvider
	name string
	cb   *gobreaker.CircuitBreaker[any]
}

// Breaker returns a Middleware wrapping providers in a BreakerProvider.
func Breaker(name string, cfg BreakerConfig) Middleware {
	return func(next LLMProvider) LLMProvider {
		if cfg.MaxFailures == 0 {
			return next
		}
		return NewBreakerProvider(next, name, cfg)
	}
}

func NewBreakerProvider(next LLMProvider, name string, cfg BreakerConfig) *BreakerProvider {
	metrics.LLMBreakerState.WithLabelValues(name).Set(0)

	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.MaxFailures
		},
		// Caller-side conditions say nothing about provider health.
		IsSuccessful: func(err error) bool {
			return err == nil ||
				errors.Is(err, ErrEmbeddingUnsupported) ||
				errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().Str("provider", name).Str("from", from.String()).Str("to", to.String()).
				Msg("llm circuit breaker state change")
			metrics.LLMBreakerState.WithLabelValues(name).Set(stateToFloat(to))
		},
	})
	return &BreakerProvider{next: next, name: name, cb: cb}
}

// State reports the current breaker state.
func (b *BreakerProvider) State() gobreaker.State { return b.cb.State() }

func (b *BreakerProvider) ChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	res, err := b.cb.Execute(func() (any, error) {
		return b.next.ChatCompletion(ctx, req)
	})
	if err != nil {
		return nil, b.mapErr(err)
	}
	return res.(*ChatResponse), nil
}

func (b *BreakerProvider) Embed(ctx context.Context, req EmbedRequest) (*EmbedResponse, error) {
	res, err := b.cb.Execute(func() (any, error) {
		return b.next.Embed(ctx, req)
	})
	if err != nil {
		return nil, b.mapErr(err)
	}
	return res.(*EmbedResponse), nil
}

func (b *BreakerProvider) ModelInfo() ModelMeta { return b.next.ModelInfo() }

// HealthCheck bypasses the breaker so probes can observe recovery.
func (b *BreakerProvider) HealthCheck(ctx context.Context) error { return b.next.HealthCheck(ctx) }

func (b *BreakerProvider) mapErr(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %s: %v", ErrProviderUnavailable, b.name, err)
	}
	return err
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
