package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	mimeJSON          = "application/json"
	headerContentType = "Content-Type"

	maxErrorBody = 512
)

// StatusError is returned for non-2xx provider responses.
type StatusError struct {
	Provider string
	Path     string
	Status   int
	Body     string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s %s: status %d", e.Provider, e.Path, e.Status)
	}
	return fmt.Sprintf("%s %s: status %d: %s", e.Provider, e.Path, e.Status, e.Body)
}

// jsonClient is the shared JSON-over-HTTP transport of the adapters.
type jsonClient struct {
	provider   string
	baseURL    string
	headers    map[string]string
	httpClient *http.Client
}

func newJSONClient(provider, baseURL string, timeout time.Duration, headers map[string]string) jsonClient {
	return jsonClient{
		provider:   provider,
		baseURL:    baseURL,
		headers:    headers,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// doPost sends in as JSON to baseURL+path and decodes the reply into out.
func (c jsonClient) doPost(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("%s post %s: encode: %w", c.provider, path, err)
	}
	return c.do(ctx, http.MethodPost, path, bytes.NewReader(body), out)
}

// doGet issues a GET and discards the body when out is nil.
func (c jsonClient) doGet(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

func (c jsonClient) do(ctx context.Context, method, path string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%s %s: build request: %w", c.provider, path, err)
	}
	if body != nil {
		req.Header.Set(headerContentType, mimeJSON)
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", c.provider, path, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{
			Provider: c.provider,
			Path:     path,
			Status:   resp.StatusCode,
			Body:     string(bytes.TrimSpace(snippet)),
		}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", c.provider, path, err)
	}
	return nil
}
