package handlers

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"path"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sean-park-funda/thegrim-cms-sub003/internal/gen"
	"github.com/sean-park-funda/thegrim-cms-sub003/internal/grid"
	"github.com/sean-park-funda/thegrim-cms-sub003/internal/pipeline"
	"github.com/sean-park-funda/thegrim-cms-sub003/internal/scene"
	"github.com/sean-park-funda/thegrim-cms-sub003/pkg/zip"
)

type panelsRequest struct {
	// Composite carries a base64-encoded panel image. When empty, Prompt
	// must be set and the server generates the composite itself.
	Composite string `json:"composite,omitempty"`
	Prompt    string `json:"prompt,omitempty"`
	Provider  string `json:"provider,omitempty"`

	Layout   string            `json:"layout"`
	Mode     string            `json:"mode"`
	Duration int               `json:"duration,omitempty"`
	Prompts  map[string]string `json:"prompts,omitempty"`
}

func (a *App) PanelsGenerate(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "project_id")
	if projectID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "project_id required")
		return
	}
	var req panelsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}

	layout, err := grid.ParseLayout(req.Layout)
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	mode, err := scene.ParseMode(req.Mode)
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	var composite []byte
	switch {
	case req.Composite != "":
		composite, err = base64.StdEncoding.DecodeString(req.Composite)
		if err != nil {
			a.error(w, http.StatusBadRequest, "bad_request", "composite is not valid base64")
			return
		}
	case req.Prompt != "":
		provider := gen.ProviderGeminiImage
		if req.Provider == "dashscope" {
			provider = gen.ProviderDashScopeImage
		}
		composite, _, err = a.Shorts.GenerateComposite(r.Context(), provider, req.Prompt, nil)
		if err != nil {
			a.pipelineError(w, err)
			return
		}
	default:
		a.error(w, http.StatusBadRequest, "bad_request", "composite or prompt required")
		return
	}

	prompts := make(map[int]string, len(req.Prompts))
	for key, val := range req.Prompts {
		idx, err := strconv.Atoi(key)
		if err != nil {
			a.error(w, http.StatusBadRequest, "bad_request", fmt.Sprintf("prompt key %q is not a panel index", key))
			return
		}
		prompts[idx] = val
	}

	res, err := a.Shorts.Decompose(r.Context(), projectID, composite, pipeline.CompositeOptions{
		Layout:          layout,
		Mode:            mode,
		DurationSeconds: req.Duration,
		Prompts:         prompts,
	})
	if err != nil {
		a.pipelineError(w, err)
		return
	}
	a.json(w, http.StatusOK, res)
}

func (a *App) ScenesList(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "project_id")
	if projectID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "project_id required")
		return
	}
	scenes, err := a.Records.ScenesByProject(r.Context(), projectID)
	if err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to list scenes")
		return
	}
	a.json(w, http.StatusOK, map[string]any{"project_id": projectID, "scenes": scenes})
}

// PanelsDownload streams every stored panel of a project as a zip archive,
// ordered by scene index.
func (a *App) PanelsDownload(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "project_id")
	if projectID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "project_id required")
		return
	}
	scenes, err := a.Records.ScenesByProject(r.Context(), projectID)
	if err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to list scenes")
		return
	}
	if len(scenes) == 0 {
		a.error(w, http.StatusNotFound, "not_found", "no panels for project")
		return
	}

	seen := make(map[string]struct{})
	var assets []zip.Asset
	for _, sc := range scenes {
		urls := []string{sc.StartPanelPath}
		if sc.EndPanelPath != nil {
			urls = append(urls, *sc.EndPanelPath)
		}
		for _, url := range urls {
			if url == "" {
				continue
			}
			if _, ok := seen[url]; ok {
				continue
			}
			seen[url] = struct{}{}
			data, err := a.Blobs.Get(r.Context(), url)
			if err != nil {
				a.error(w, http.StatusInternalServerError, "internal", "failed to load panel")
				return
			}
			assets = append(assets, zip.Asset{
				Filename: path.Base(url),
				MIME:     "image/png",
				Data:     data,
			})
		}
	}

	archive := zip.ArchiveAssets(assets)
	if archive == nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to build archive")
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", projectID+"-panels.zip"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(archive)
}
