package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/matiasleandrokruk/newsroom/internal/domain/compare"
)

// Comparer sends one prompt to several models.
type Comparer interface {
	Run(ctx context.Context, prompt string, candidates []compare.Candidate) (*compare.Report, error)
}

type CompareHandler struct {
	comparer Comparer
}

func NewCompareHandler(comparer Comparer) *CompareHandler {
	return &CompareHandler{comparer: comparer}
}

type compareCandidate struct {
	Provider string `json:"provider" validate:"required"`
	Model    string `json:"model"`
}

type compareRequest struct {
	Prompt     string             `json:"prompt" validate:"required"`
	Candidates []compareCandidate `json:"candidates" validate:"required,min=1,max=8,dive"`
}

// Compare handles POST /compare. Per-model failures are reported inside the
// result list; only a run where every model failed is a 502.
func (h *CompareHandler) Compare(w http.ResponseWriter, r *http.Request) {
	var req compareRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	cands := make([]compare.Candidate, len(req.Candidates))
	for i, c := range req.Candidates {
		cands[i] = compare.Candidate{Provider: c.Provider, Model: c.Model}
	}

	report, err := h.comparer.Run(r.Context(), req.Prompt, cands)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, report)
	case errors.Is(err, compare.ErrAllFailed) && report != nil:
		writeJSON(w, http.StatusBadGateway, struct {
			*compare.Report
			Error string `json:"error"`
		}{report, err.Error()})
	default:
		fail(w, r, err)
	}
}
