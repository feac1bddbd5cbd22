package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
)

type tokenRequest struct {
	Token string `json:"token"`
}

// TokenUpsert stores a provider API token so it can be rotated without a
// redeploy.
func (a *App) TokenUpsert(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")
	var req tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if err := a.Credentials.SetToken(r.Context(), provider, req.Token); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	a.json(w, http.StatusOK, map[string]string{"provider": provider, "status": "stored"})
}
