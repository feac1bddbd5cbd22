// Package handlers exposes the pipeline over HTTP. Handlers stay thin:
// decode, delegate to a pipeline service, map errors onto status codes.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sean-park-funda/thegrim-cms-sub003/internal/gen"
	"github.com/sean-park-funda/thegrim-cms-sub003/internal/grid"
	"github.com/sean-park-funda/thegrim-cms-sub003/internal/infra"
	"github.com/sean-park-funda/thegrim-cms-sub003/internal/infra/credentials"
	"github.com/sean-park-funda/thegrim-cms-sub003/internal/pipeline"
	"github.com/sean-park-funda/thegrim-cms-sub003/internal/storage"
)

type App struct {
	Storyboards *pipeline.StoryboardService
	Shorts      *pipeline.ShortsService
	Cast        *pipeline.CastService
	Records     storage.RecordStore
	Blobs       storage.BlobStore
	Credentials *credentials.Store
	Logger      infra.Logger
	// Providers lists the adapter keys this process was wired with,
	// surfaced by the health endpoint.
	Providers []string
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, errCode, message string) {
	a.json(w, code, map[string]string{"error": errCode, "message": message})
}

// pipelineError maps a pipeline failure onto an HTTP response. Generation
// failures keep their taxonomy kind so clients can tell a provider outage
// from a rejected request.
func (a *App) pipelineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, pipeline.ErrStoryboardUnusable):
		a.error(w, http.StatusUnprocessableEntity, "storyboard_unusable", err.Error())
	case errors.Is(err, grid.ErrDimension):
		a.error(w, http.StatusBadRequest, "bad_dimensions", err.Error())
	default:
		if genErr := gen.AsError(err); genErr != nil {
			switch genErr.Kind {
			case gen.KindTimeout, gen.KindExhausted:
				a.error(w, http.StatusGatewayTimeout, string(genErr.Kind), genErr.Message)
			case gen.KindTerminal:
				a.error(w, http.StatusBadGateway, string(genErr.Kind), genErr.Message)
			default:
				a.error(w, http.StatusBadGateway, string(genErr.Kind), genErr.Message)
			}
			return
		}
		a.error(w, http.StatusInternalServerError, "internal", err.Error())
	}
}
