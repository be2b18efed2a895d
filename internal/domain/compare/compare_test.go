package compare

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/matiasleandrokruk/newsroom/internal/infra/llm"
)

type providerStub struct {
	id     string
	answer string
	delay  time.Duration
	err    error
	in     int
	out    int
	calls  atomic.Int32
}

func (p *providerStub) ChatCompletion(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	p.calls.Add(1)
	if p.delay > 0 {
		select {
		case <-time.After(p.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if p.err != nil {
		return nil, p.err
	}
	if req.Temperature != 0 {
		return nil, fmt.Errorf("temperature %v", req.Temperature)
	}
	return &llm.ChatResponse{Content: p.answer, InputTokens: p.in, OutputTokens: p.out}, nil
}

func (p *providerStub) Embed(context.Context, llm.EmbedRequest) (*llm.EmbedResponse, error) {
	return nil, llm.ErrEmbeddingUnsupported
}

func (p *providerStub) ModelInfo() llm.ModelMeta { return llm.ModelMeta{ID: p.id + "-default"} }

func (p *providerStub) HealthCheck(context.Context) error { return nil }

type resolverStub map[string]*providerStub

func (r resolverStub) Resolve(name, model string) (llm.LLMProvider, error) {
	p, ok := r[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", llm.ErrUnknownProvider, name)
	}
	return llm.WithModel(model)(p), nil
}

func TestRun_KeepsInputOrderAndMetadata(t *testing.T) {
	t.Parallel()

	models := resolverStub{
		"slow": {id: "slow", answer: "slow answer", delay: 30 * time.Millisecond, in: 10, out: 20},
		"fast": {id: "fast", answer: "fast answer"},
	}
	rep, err := NewService(models).Run(context.Background(), "hello", []Candidate{
		{Provider: "slow", Model: "s-1"},
		{Provider: "fast"},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rep.Prompt != "hello" || len(rep.Models) != 2 {
		t.Fatalf("report = %+v", rep)
	}

	slow, fast := rep.Models[0], rep.Models[1]
	if slow.Provider != "slow" || slow.Model != "s-1" || slow.Answer != "slow answer" {
		t.Errorf("slow = %+v", slow)
	}
	if slow.LatencyMS < 20 {
		t.Errorf("slow latency = %dms, want >= 20", slow.LatencyMS)
	}
	if slow.TokensIn == nil || *slow.TokensIn != 10 || slow.TokensOut == nil || *slow.TokensOut != 20 {
		t.Errorf("slow tokens = %v/%v", slow.TokensIn, slow.TokensOut)
	}
	if fast.Provider != "fast" || fast.Model != "fast-default" {
		t.Errorf("fast = %+v", fast)
	}
	if fast.TokensIn != nil || fast.TokensOut != nil {
		t.Errorf("unreported tokens should be nil")
	}
}

func TestRun_TruncatesAnswer(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("ü", maxAnswerChars+50)
	rep, err := NewService(resolverStub{"p": {id: "p", answer: long}}).
		Run(context.Background(), "x", []Candidate{{Provider: "p"}})
	if err != nil {
		t.Fatal(err)
	}
	if got := []rune(rep.Models[0].Answer); len(got) != maxAnswerChars {
		t.Errorf("answer runes = %d, want %d", len(got), maxAnswerChars)
	}
}

func TestRun_PartialFailure(t *testing.T) {
	t.Parallel()

	models := resolverStub{
		"ok":   {id: "ok", answer: "fine"},
		"down": {id: "down", err: errors.New("503 from upstream")},
	}
	rep, err := NewService(models).Run(context.Background(), "x", []Candidate{
		{Provider: "down"},
		{Provider: "missing"},
		{Provider: "ok"},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.Contains(rep.Models[0].Error, "503") {
		t.Errorf("down error = %q", rep.Models[0].Error)
	}
	if !strings.Contains(rep.Models[1].Error, "unknown provider") {
		t.Errorf("missing error = %q", rep.Models[1].Error)
	}
	if rep.Models[2].Error != "" || rep.Models[2].Answer != "fine" {
		t.Errorf("ok result = %+v", rep.Models[2])
	}
}

func TestRun_AllFailed(t *testing.T) {
	t.Parallel()

	models := resolverStub{"down": {id: "down", err: errors.New("boom")}}
	rep, err := NewService(models).Run(context.Background(), "x", []Candidate{{Provider: "down"}, {Provider: "down"}})
	if !errors.Is(err, ErrAllFailed) {
		t.Fatalf("err = %v, want ErrAllFailed", err)
	}
	if rep == nil || len(rep.Models) != 2 {
		t.Errorf("report should still carry per-candidate errors: %+v", rep)
	}
	if got := models["down"].calls.Load(); got != 2 {
		t.Errorf("calls = %d, want 2", got)
	}
}

func TestRun_Validation(t *testing.T) {
	t.Parallel()

	svc := NewService(resolverStub{})
	if _, err := svc.Run(context.Background(), " ", []Candidate{{Provider: "p"}}); !errors.Is(err, ErrEmptyPrompt) {
		t.Errorf("err = %v, want ErrEmptyPrompt", err)
	}
	if _, err := svc.Run(context.Background(), "x", nil); !errors.Is(err, ErrNoCandidates) {
		t.Errorf("err = %v, want ErrNoCandidates", err)
	}
}
