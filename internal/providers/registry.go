// Package providers wires concrete provider clients into the adapter map
// consumed by the invoker.
package providers

import (
	"fmt"
	"net/http"

	"github.com/sean-park-funda/thegrim-cms-sub003/internal/gen"
	"github.com/sean-park-funda/thegrim-cms-sub003/internal/infra"
	"github.com/sean-park-funda/thegrim-cms-sub003/internal/providers/dashscope"
	"github.com/sean-park-funda/thegrim-cms-sub003/internal/providers/gemini"
	"github.com/sean-park-funda/thegrim-cms-sub003/internal/providers/kling"
)

// NewAdapters builds the full provider set from configuration. One Gemini
// client backs both the text and the primary image provider.
func NewAdapters(cfg *infra.Config, logger *infra.Logger, httpClient *http.Client) (map[gen.Provider]gen.Adapter, error) {
	geminiClient, err := gemini.NewClient(gemini.Options{
		APIKey:     cfg.GeminiAPIKey,
		BaseURL:    cfg.GeminiBaseURL,
		TextModel:  cfg.GeminiTextModel,
		ImageModel: cfg.GeminiImgModel,
		HTTPClient: httpClient,
		Logger:     logger,
	})
	if err != nil {
		return nil, fmt.Errorf("configure gemini: %w", err)
	}

	dashscopeClient, err := dashscope.NewClient(dashscope.Options{
		APIKey:     cfg.DashScopeAPIKey,
		BaseURL:    cfg.DashScopeBaseURL,
		Model:      cfg.DashScopeModel,
		HTTPClient: httpClient,
		Logger:     logger,
	})
	if err != nil {
		return nil, fmt.Errorf("configure dashscope: %w", err)
	}

	klingClient, err := kling.NewClient(kling.Options{
		APIKey:     cfg.VideoAPIKey,
		BaseURL:    cfg.VideoBaseURL,
		Model:      cfg.VideoModel,
		HTTPClient: httpClient,
		Logger:     logger,
	})
	if err != nil {
		return nil, fmt.Errorf("configure kling: %w", err)
	}

	return map[gen.Provider]gen.Adapter{
		gen.ProviderGeminiText:     geminiClient,
		gen.ProviderGeminiImage:    geminiClient,
		gen.ProviderDashScopeImage: dashscopeClient,
		gen.ProviderKlingVideo:     klingClient,
	}, nil
}
