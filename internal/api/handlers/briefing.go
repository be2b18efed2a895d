package handlers

import "net/http"

type BriefingHandler struct {
	briefer Briefer
}

func NewBriefingHandler(briefer Briefer) *BriefingHandler {
	return &BriefingHandler{briefer: briefer}
}

type briefingRequest struct {
	Query    string `json:"query" validate:"required"`
	TopK     int    `json:"top_k" validate:"gte=0,lte=50"`
	Provider string `json:"provider"`
}

// Brief handles POST /briefing. top_k 0 uses the configured default.
func (h *BriefingHandler) Brief(w http.ResponseWriter, r *http.Request) {
	var req briefingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	b, err := h.briefer.Brief(r.Context(), req.Query, req.TopK, req.Provider)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}
