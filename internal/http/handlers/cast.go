package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/sean-park-funda/thegrim-cms-sub003/internal/extract"
)

type castRequest struct {
	Characters []extract.Character `json:"characters"`
	// StyleRefs are URLs of shared reference images applied to every
	// portrait in the batch.
	StyleRefs []string `json:"style_refs,omitempty"`
}

func (a *App) CastGenerate(w http.ResponseWriter, r *http.Request) {
	var req castRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if len(req.Characters) == 0 {
		a.error(w, http.StatusBadRequest, "bad_request", "characters required")
		return
	}

	res, err := a.Cast.GenerateCast(r.Context(), req.Characters, req.StyleRefs)
	if err != nil {
		a.pipelineError(w, err)
		return
	}

	// Partial failure is a normal outcome for a batch; the report tells the
	// caller which characters need a retry.
	code := http.StatusOK
	if res.Report.Succeeded == 0 && res.Report.Failed > 0 {
		code = http.StatusBadGateway
	}
	a.json(w, code, res)
}
