package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sean-park-funda/thegrim-cms-sub003/internal/gen"
	"github.com/sean-park-funda/thegrim-cms-sub003/internal/grid"
	"github.com/sean-park-funda/thegrim-cms-sub003/internal/infra"
	"github.com/sean-park-funda/thegrim-cms-sub003/internal/scene"
	"github.com/sean-park-funda/thegrim-cms-sub003/internal/storage"
)

// ShortsService turns a composite panel image into stored panels and
// pending scene rows ready for video rendering.
type ShortsService struct {
	invoker    *gen.Invoker
	blobs      storage.BlobStore
	records    storage.RecordStore
	logger     infra.Logger
	timeout    time.Duration
	maxRetries int
}

func NewShortsService(invoker *gen.Invoker, blobs storage.BlobStore, records storage.RecordStore, logger infra.Logger, timeout time.Duration, maxRetries int) *ShortsService {
	return &ShortsService{
		invoker:    invoker,
		blobs:      blobs,
		records:    records,
		logger:     logger,
		timeout:    timeout,
		maxRetries: maxRetries,
	}
}

// CompositeOptions describe one decomposition request.
type CompositeOptions struct {
	Layout          grid.Layout
	Mode            scene.Mode
	DurationSeconds int
	// Prompts maps a panel index to the motion prompt for the scene that
	// starts on that panel. Missing entries leave the prompt empty.
	Prompts map[int]string
}

// ShortsResult reports what one composite produced.
type ShortsResult struct {
	PanelURLs []string              `json:"panelUrls"`
	Scenes    []scene.Scene         `json:"scenes"`
	Records   []storage.SceneRecord `json:"-"`
}

// GenerateComposite asks an image provider for a composite panel image. The
// reference parts, when present, anchor character appearance.
func (s *ShortsService) GenerateComposite(ctx context.Context, provider gen.Provider, prompt string, refs []gen.Part) ([]byte, string, error) {
	req := gen.Request{
		Provider:   provider,
		Modality:   gen.ModalityImage,
		Prompt:     prompt,
		Parts:      refs,
		Timeout:    s.timeout,
		MaxRetries: s.maxRetries,
		RequestID:  uuid.NewString(),
	}
	res, err := s.invoker.Invoke(ctx, req)
	if err != nil {
		return nil, "", fmt.Errorf("pipeline: composite generation: %w", err)
	}
	if len(res.Data) == 0 {
		return nil, "", errors.New("pipeline: composite response carried no image")
	}
	return res.Data, res.MIMEType, nil
}

// Decompose slices the composite, stores each panel, assembles scenes in the
// requested mode, and persists one pending row per scene. Panel URLs follow
// the panel's row-major index, so scene start/end indices map directly onto
// stored paths.
func (s *ShortsService) Decompose(ctx context.Context, projectID string, composite []byte, opts CompositeOptions) (*ShortsResult, error) {
	panels, err := grid.Decompose(composite, opts.Layout)
	if err != nil {
		return nil, err
	}

	// Regeneration replaces the whole scene set. A leftover row from a
	// previous layout or mode would otherwise stay pending and get rendered
	// under stale assumptions.
	if s.records != nil {
		if err := s.records.DeleteScenes(ctx, projectID); err != nil {
			return nil, fmt.Errorf("pipeline: discard previous scenes: %w", err)
		}
	}

	urls := make([]string, len(panels))
	for _, p := range panels {
		url, err := s.blobs.Put(ctx, p.Data, p.MIMEType)
		if err != nil {
			return nil, fmt.Errorf("pipeline: store panel %d: %w", p.Index, err)
		}
		urls[p.Index] = url
	}

	sceneOpts := scene.Options{Duration: opts.DurationSeconds}
	if opts.Prompts != nil {
		sceneOpts.PromptFor = func(startPanelIndex int) string {
			return opts.Prompts[startPanelIndex]
		}
	}
	scenes, err := scene.Assemble(panels, opts.Mode, sceneOpts)
	if err != nil {
		return nil, err
	}

	records := make([]storage.SceneRecord, 0, len(scenes))
	for _, sc := range scenes {
		rec := storage.SceneRecord{
			ProjectID:       projectID,
			SceneIndex:      sc.SceneIndex,
			StartPanelPath:  urls[sc.StartPanelIndex],
			DurationSeconds: sc.DurationSeconds,
			Status:          string(sc.Status),
		}
		if sc.EndPanelIndex != nil {
			end := urls[*sc.EndPanelIndex]
			rec.EndPanelPath = &end
		}
		if sc.Prompt != "" {
			prompt := sc.Prompt
			rec.VideoPrompt = &prompt
		}
		if s.records != nil {
			if err := s.records.UpsertScene(ctx, rec); err != nil {
				return nil, fmt.Errorf("pipeline: persist scene %d: %w", sc.SceneIndex, err)
			}
		}
		records = append(records, rec)
	}

	s.logger.Info().
		Str("projectId", projectID).
		Int("panels", len(panels)).
		Int("scenes", len(scenes)).
		Str("mode", string(opts.Mode)).
		Msg("composite decomposed")

	return &ShortsResult{PanelURLs: urls, Scenes: scenes, Records: records}, nil
}
