// Package handlers implements the HTTP endpoints. Handlers depend on small
// interfaces so tests can drive them with stubs.
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"

	"github.com/matiasleandrokruk/newsroom/internal/domain/article"
	"github.com/matiasleandrokruk/newsroom/internal/domain/briefing"
	"github.com/matiasleandrokruk/newsroom/internal/domain/compare"
	"github.com/matiasleandrokruk/newsroom/internal/domain/feed"
	"github.com/matiasleandrokruk/newsroom/internal/infra/llm"
	"github.com/matiasleandrokruk/newsroom/internal/logging"
	"github.com/matiasleandrokruk/newsroom/internal/validation"
)

const (
	headerContentType = "Content-Type"
	mimeJSON          = "application/json"

	maxBodyBytes = 1 << 20

	errInvalidBody = "invalid request body"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set(headerContentType, mimeJSON)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Warn().Err(err).Msg("encode response")
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// decodeJSON reads a JSON body into dst and validates it. An empty body
// leaves dst at its defaults.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return errors.New(errInvalidBody)
	}
	return validation.Struct(dst)
}

// statusFor maps domain errors onto HTTP statuses.
func statusFor(err error) int {
	var (
		verr *validation.Error
		serr *llm.StatusError
	)
	switch {
	case errors.As(err, &verr),
		errors.Is(err, llm.ErrUnknownProvider),
		errors.Is(err, article.ErrEmptyDataset),
		errors.Is(err, briefing.ErrEmptyQuery),
		errors.Is(err, compare.ErrEmptyPrompt),
		errors.Is(err, compare.ErrNoCandidates):
		return http.StatusBadRequest
	case errors.Is(err, os.ErrNotExist):
		return http.StatusNotFound
	case errors.Is(err, feed.ErrNoFeeds):
		return http.StatusConflict
	case errors.Is(err, llm.ErrProviderUnavailable):
		return http.StatusServiceUnavailable
	case errors.As(err, &serr),
		errors.Is(err, compare.ErrAllFailed),
		errors.Is(err, feed.ErrAllFeedsFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// fail logs err against the request and writes the mapped status.
func fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	ev := logging.Ctx(r.Context()).Warn()
	if status >= http.StatusInternalServerError {
		ev = logging.Ctx(r.Context()).Error()
	}
	ev.Err(err).Int("status", status).Msg("request failed")
	writeError(w, status, err.Error())
}
