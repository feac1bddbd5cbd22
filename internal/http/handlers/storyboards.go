package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
)

type storyboardGenerateRequest struct {
	Synopsis string `json:"synopsis"`
}

func (a *App) StoryboardGenerate(w http.ResponseWriter, r *http.Request) {
	episodeID := chi.URLParam(r, "episode_id")
	if episodeID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "episode_id required")
		return
	}
	var req storyboardGenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if req.Synopsis == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "synopsis required")
		return
	}

	res, err := a.Storyboards.Generate(r.Context(), episodeID, req.Synopsis)
	if err != nil {
		a.pipelineError(w, err)
		return
	}

	warnings := make([]string, 0, len(res.Warnings))
	for _, wmsg := range res.Warnings {
		warnings = append(warnings, wmsg.String())
	}
	a.json(w, http.StatusOK, map[string]any{
		"episode_id":   episodeID,
		"storyboard":   res.Storyboard,
		"parse_status": res.Document.Status,
		"warnings":     warnings,
		"attempt":      res.Attempt,
	})
}

func (a *App) StoryboardGet(w http.ResponseWriter, r *http.Request) {
	episodeID := chi.URLParam(r, "episode_id")
	if episodeID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "episode_id required")
		return
	}
	raw, status, err := a.Records.Storyboard(r.Context(), episodeID)
	if err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to load storyboard")
		return
	}
	if raw == nil {
		a.error(w, http.StatusNotFound, "not_found", "no storyboard for episode")
		return
	}
	a.json(w, http.StatusOK, map[string]any{
		"episode_id":   episodeID,
		"storyboard":   raw,
		"parse_status": status,
	})
}
