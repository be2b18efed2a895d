package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/matiasleandrokruk/newsroom/internal/api/ctxkeys"
	"github.com/matiasleandrokruk/newsroom/internal/logging"
	"github.com/matiasleandrokruk/newsroom/internal/metrics"
	pkgauth "github.com/matiasleandrokruk/newsroom/pkg/auth"
)

func newIssuer(t *testing.T) *pkgauth.Issuer {
	t.Helper()
	i, err := pkgauth.NewIssuer("test-secret-key-32-chars-min!!!", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	return i
}

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("X-Subject", ctxkeys.String(r.Context(), ctxkeys.Subject))
	w.WriteHeader(http.StatusOK)
})

func TestAdminAuth(t *testing.T) {
	t.Parallel()

	issuer := newIssuer(t)
	admin, _ := issuer.Issue("ops")
	viewer, _ := issuer.IssueRole("reader", "viewer")

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantSubj   string
	}{
		{"missing header", "", http.StatusUnauthorized, ""},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized, ""},
		{"garbage token", "Bearer nope", http.StatusUnauthorized, ""},
		{"non-admin role", "Bearer " + viewer, http.StatusForbidden, ""},
		{"admin", "Bearer " + admin, http.StatusOK, "ops"},
	}
	h := AdminAuth(issuer)(okHandler)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			req := httptest.NewRequest(http.MethodPost, "/ingest", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)

			if rr.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (%s)", rr.Code, tt.wantStatus, rr.Body.String())
			}
			if got := rr.Header().Get("X-Subject"); got != tt.wantSubj {
				t.Errorf("subject = %q, want %q", got, tt.wantSubj)
			}
			if rr.Code != http.StatusOK {
				var body map[string]string
				if err := json.NewDecoder(rr.Body).Decode(&body); err != nil || body["error"] == "" {
					t.Errorf("expected JSON error body, got %v / %v", body, err)
				}
			}
		})
	}
}

func TestAdminAuth_NilIssuerPassesThrough(t *testing.T) {
	t.Parallel()

	rr := httptest.NewRecorder()
	AdminAuth(nil)(okHandler).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/ingest", nil))
	if rr.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rr.Code)
	}
}

func TestAudit_RecordsSubjectAndOutcome(t *testing.T) {
	t.Parallel()

	issuer := newIssuer(t)
	token, _ := issuer.Issue("ops")

	var buf bytes.Buffer
	h := Audit(logging.NewTestLogger(&buf))(AdminAuth(issuer)(okHandler))

	req := httptest.NewRequest(http.MethodPost, "/feeds/refresh", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	h.ServeHTTP(httptest.NewRecorder(), req)
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/ingest", nil))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("audit lines = %d, want 2: %s", len(lines), buf.String())
	}
	var first, second map[string]any
	_ = json.Unmarshal([]byte(lines[0]), &first)
	_ = json.Unmarshal([]byte(lines[1]), &second)

	if first["subject"] != "ops" || first["action"] != "refresh_feeds" || first["outcome"] != OutcomeSuccess {
		t.Errorf("first = %v", first)
	}
	if second["subject"] != "" || second["action"] != "ingest_dataset" || second["outcome"] != OutcomeDenied {
		t.Errorf("second = %v", second)
	}
}

func TestOutcomeFor(t *testing.T) {
	t.Parallel()

	cases := map[int]string{
		200: OutcomeSuccess,
		204: OutcomeSuccess,
		401: OutcomeDenied,
		403: OutcomeDenied,
		400: OutcomeError,
		502: OutcomeError,
	}
	for status, want := range cases {
		if got := OutcomeFor(status); got != want {
			t.Errorf("OutcomeFor(%d) = %q, want %q", status, got, want)
		}
	}
	if got := ActionFor(http.MethodGet, "/other"); got != "GET /other" {
		t.Errorf("ActionFor fallback = %q", got)
	}
}

func TestRequestID(t *testing.T) {
	t.Parallel()

	var seen, seenLog string
	h := RequestID(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = chimw.GetReqID(r.Context())
		seenLog = logging.RequestIDFromContext(r.Context())
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if seen == "" || seen != seenLog || rr.Header().Get(chimw.RequestIDHeader) != seen {
		t.Errorf("generated id not propagated: chi=%q log=%q header=%q", seen, seenLog, rr.Header().Get(chimw.RequestIDHeader))
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(chimw.RequestIDHeader, "abc-123")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if seen != "abc-123" || rr.Header().Get(chimw.RequestIDHeader) != "abc-123" {
		t.Errorf("inbound id not honoured: %q", seen)
	}
}

func TestAccessLog_RecordsRoutePattern(t *testing.T) {
	t.Parallel()

	r := chi.NewRouter()
	r.Use(AccessLog)
	r.Get("/things/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})

	counter := metrics.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/things/{id}", "202")
	before := testutil.ToFloat64(counter)
	for _, id := range []string{"1", "2"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/things/"+id, nil))
	}
	if got := testutil.ToFloat64(counter) - before; got != 2 {
		t.Errorf("counter delta = %v, want 2", got)
	}
}

func TestRateLimit(t *testing.T) {
	t.Parallel()

	h := RateLimit(2)(okHandler)
	codes := make([]int, 3)
	for i := range codes {
		req := httptest.NewRequest(http.MethodPost, "/compare", nil)
		req.RemoteAddr = "10.0.0.9:1234"
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		codes[i] = rr.Code
	}
	if codes[0] != 200 || codes[1] != 200 || codes[2] != http.StatusTooManyRequests {
		t.Errorf("codes = %v, want [200 200 429]", codes)
	}

	rr := httptest.NewRecorder()
	RateLimit(0)(okHandler).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/compare", nil))
	if rr.Code != 200 {
		t.Errorf("disabled limiter status = %d", rr.Code)
	}
}

func TestCORS(t *testing.T) {
	t.Parallel()

	h := CORS([]string{"http://localhost:5173"})(okHandler)
	req := httptest.NewRequest(http.MethodOptions, "/query", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Errorf("allow-origin = %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/query", nil)
	req.Header.Set("Origin", "http://evil.example")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("unexpected allow-origin for foreign origin: %q", got)
	}
}
