package handlers

import (
	"context"
	"net/http"

	"golang.org/x/sync/errgroup"

	"github.com/matiasleandrokruk/newsroom/internal/domain/briefing"
	"github.com/matiasleandrokruk/newsroom/internal/domain/ranking"
)

const (
	defaultQueryTopK = 5
	defaultQueryTopN = 10
)

// Recommender produces ranked items for a query.
type Recommender interface {
	Recommend(ctx context.Context, query string, topN int, p ranking.Policy) ([]ranking.ScoredItem, error)
}

// Briefer summarizes the articles retrieved for a query.
type Briefer interface {
	Brief(ctx context.Context, query string, k int, provider string) (*briefing.Briefing, error)
}

// RecoDefaults carries the configured ranking defaults into the handlers.
type RecoDefaults = ranking.Defaults

type QueryHandler struct {
	reco     Recommender
	briefer  Briefer
	defaults RecoDefaults
}

func NewQueryHandler(reco Recommender, briefer Briefer, defaults RecoDefaults) *QueryHandler {
	return &QueryHandler{reco: reco, briefer: briefer, defaults: defaults}
}

type recommendRequest struct {
	UserID   string `json:"user_id"`
	Query    string `json:"query" validate:"required"`
	TopN     *int   `json:"top_n" validate:"omitempty,gte=0,lte=100"`
	RecoMode string `json:"reco_mode"`
}

type recommendResponse struct {
	Engine          string           `json:"engine"`
	Recommendations []ranking.Record `json:"recommendations"`
}

type queryRequest struct {
	UserID   string `json:"user_id"`
	Query    string `json:"query" validate:"required"`
	TopK     *int   `json:"top_k" validate:"omitempty,gte=0,lte=50"`
	TopN     *int   `json:"top_n" validate:"omitempty,gte=0,lte=100"`
	RecoMode string `json:"reco_mode"`
}

type queryResponse struct {
	Engine          string             `json:"engine"`
	Recommendations []ranking.Record   `json:"recommendations"`
	Briefing        *briefing.Briefing `json:"briefing"`
}

// Policy resolves the ranking preset for a request: the requested mode, then
// the configured engine, then simple.
func (h *QueryHandler) Policy(requested string) ranking.Policy {
	return h.defaults.Resolve(requested)
}

// Recommend handles POST /recommend.
func (h *QueryHandler) Recommend(w http.ResponseWriter, r *http.Request) {
	var req recommendRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	p := h.Policy(req.RecoMode)
	items, err := h.reco.Recommend(r.Context(), req.Query, h.defaults.Limit(req.TopN, defaultQueryTopN), p)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, recommendResponse{
		Engine:          string(p.Mode),
		Recommendations: ranking.Records(items, p),
	})
}

// Query handles POST /query: recommendations and a briefing for the same
// query, computed concurrently. Either failure fails the request.
func (h *QueryHandler) Query(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	p := h.Policy(req.RecoMode)
	topN := h.defaults.Limit(req.TopN, defaultQueryTopN)
	topK := defaultQueryTopK
	if req.TopK != nil {
		topK = *req.TopK
	}

	var (
		items []ranking.ScoredItem
		brief *briefing.Briefing
	)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var err error
		items, err = h.reco.Recommend(ctx, req.Query, topN, p)
		return err
	})
	if h.briefer != nil && topK > 0 {
		g.Go(func() error {
			var err error
			brief, err = h.briefer.Brief(ctx, req.Query, topK, "")
			return err
		})
	}
	if err := g.Wait(); err != nil {
		fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, queryResponse{
		Engine:          string(p.Mode),
		Recommendations: ranking.Records(items, p),
		Briefing:        brief,
	})
}
