package llm

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Router selects an LLMProvider per request by name, falling back to the
// configured default.
type Router struct {
	mu              sync.RWMutex
	providers       map[string]LLMProvider
	defaultProvider string
	embedProvider   string
}

// NewRouter creates a Router with an initial set of providers and a default key.
// The embedding provider defaults to the chat default.
func NewRouter(providers map[string]LLMProvider, defaultProvider string) *Router {
	ps := make(map[string]LLMProvider, len(providers))
	for k, v := range providers {
		ps[strings.ToLower(k)] = v
	}
	def := strings.ToLower(defaultProvider)
	return &Router{providers: ps, defaultProvider: def, embedProvider: def}
}

// Register adds (or replaces) a provider under the given key.
func (r *Router) Register(key string, p LLMProvider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[strings.ToLower(key)] = p
}

// SetEmbedProvider selects the provider returned by Embedder.
func (r *Router) SetEmbedProvider(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.embedProvider = strings.ToLower(key)
}

// Default returns the default provider name.
func (r *Router) Default() string {
	return r.defaultProvider
}

// Route returns the default provider.
func (r *Router) Route(_ context.Context) (LLMProvider, error) {
	return r.Resolve("", "")
}

// Resolve returns the provider registered under name (case-insensitive;
// empty means the default). A non-empty model is pinned onto chat requests
// that do not name one.
func (r *Router) Resolve(name, model string) (LLMProvider, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		key = r.defaultProvider
	}

	r.mu.RLock()
	p, ok := r.providers[key]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %v)", ErrUnknownProvider, key, r.Names())
	}
	return WithModel(strings.TrimSpace(model))(p), nil
}

// Embedder returns the provider used for embeddings.
func (r *Router) Embedder() (LLMProvider, error) {
	r.mu.RLock()
	key := r.embedProvider
	r.mu.RUnlock()
	return r.Resolve(key, "")
}

// Names returns the registered provider names, sorted.
func (r *Router) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.providers))
	for k := range r.providers {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// HealthCheck probes every provider and returns the failures by name.
func (r *Router) HealthCheck(ctx context.Context) map[string]error {
	r.mu.RLock()
	snapshot := make(map[string]LLMProvider, len(r.providers))
	for k, v := range r.providers {
		snapshot[k] = v
	}
	r.mu.RUnlock()

	failed := map[string]error{}
	for name, p := range snapshot {
		if err := p.HealthCheck(ctx); err != nil {
			failed[name] = err
		}
	}
	return failed
}
