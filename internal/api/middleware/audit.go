package middleware

import (
	"context"
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/matiasleandrokruk/newsroom/internal/logging"
)

// Audit outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeDenied  = "denied"
	OutcomeError   = "error"
)

// Audit writes one "audit" log line per admin request with the caller and
// the outcome. Place it before AdminAuth so denials are recorded.
func Audit(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			rec := &auditRecord{}
			next.ServeHTTP(ww, r.WithContext(context.WithValue(r.Context(), auditKey{}, rec)))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			log.Info().
				Str("request_id", logging.RequestIDFromContext(r.Context())).
				Str("subject", rec.subject).
				Str("action", ActionFor(r.Method, r.URL.Path)).
				Int("status", status).
				Str("outcome", OutcomeFor(status)).
				Dur("duration", time.Since(start)).
				Msg("audit")
		})
	}
}

type auditKey struct{}

// auditRecord is filled by AdminAuth once the caller is known.
type auditRecord struct{ subject string }

func recordSubject(ctx context.Context, subject string) {
	if rec, ok := ctx.Value(auditKey{}).(*auditRecord); ok {
		rec.subject = subject
	}
}

// OutcomeFor classifies a response status.
func OutcomeFor(status int) string {
	switch {
	case status >= 200 && status < 300:
		return OutcomeSuccess
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return OutcomeDenied
	default:
		return OutcomeError
	}
}

var actions = map[string]string{
	"/ingest":        "ingest_dataset",
	"/feeds/refresh": "refresh_feeds",
}

// ActionFor names the admin action behind a request.
func ActionFor(method, path string) string {
	if a, ok := actions[path]; ok {
		return a
	}
	return method + " " + path
}
