package ctxkeys

import (
	"context"
	"testing"
)

func TestWithValue_SetsAndGetsTypedKey(t *testing.T) {
	t.Parallel()

	ctx := WithValue(context.Background(), Subject, "ops@example.com")
	if got := String(ctx, Subject); got != "ops@example.com" {
		t.Fatalf("expected ops@example.com, got %q", got)
	}
	if got := String(ctx, Role); got != "" {
		t.Errorf("unset key = %q, want empty", got)
	}
}

func TestString_IgnoresUntypedKeys(t *testing.T) {
	t.Parallel()

	//nolint:staticcheck // deliberately using a plain string key
	ctx := context.WithValue(context.Background(), "subject", "spoofed")
	if got := String(ctx, Subject); got != "" {
		t.Errorf("plain string key leaked into typed lookup: %q", got)
	}
}
