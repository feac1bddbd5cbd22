package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sean-park-funda/thegrim-cms-sub003/internal/gen"
	"github.com/sean-park-funda/thegrim-cms-sub003/internal/infra"
	"github.com/sean-park-funda/thegrim-cms-sub003/internal/scene"
	"github.com/sean-park-funda/thegrim-cms-sub003/internal/storage"
)

// SceneWorker drains pending scene rows and renders each into a video clip.
// One worker instance is expected per process; row claiming is serialized
// through the status column.
type SceneWorker struct {
	invoker    *gen.Invoker
	blobs      storage.BlobStore
	records    storage.RecordStore
	logger     infra.Logger
	timeout    time.Duration
	maxRetries int
	batchSize  int
}

func NewSceneWorker(invoker *gen.Invoker, blobs storage.BlobStore, records storage.RecordStore, logger infra.Logger, timeout time.Duration, maxRetries, batchSize int) *SceneWorker {
	if batchSize <= 0 {
		batchSize = 5
	}
	return &SceneWorker{
		invoker:    invoker,
		blobs:      blobs,
		records:    records,
		logger:     logger,
		timeout:    timeout,
		maxRetries: maxRetries,
		batchSize:  batchSize,
	}
}

// Run polls for pending scenes until the context is cancelled.
func (w *SceneWorker) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if n, err := w.ProcessPending(ctx); err != nil {
			w.logger.Error().Err(err).Msg("scene worker pass failed")
		} else if n > 0 {
			w.logger.Info().Int("processed", n).Msg("scene worker pass complete")
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// ProcessPending renders up to batchSize pending scenes and returns how many
// it attempted. A scene failure marks that row as errored and does not stop
// the pass.
func (w *SceneWorker) ProcessPending(ctx context.Context) (int, error) {
	pending, err := w.records.PendingScenes(ctx, w.batchSize)
	if err != nil {
		return 0, fmt.Errorf("pipeline: list pending scenes: %w", err)
	}

	for _, rec := range pending {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		if err := w.renderScene(ctx, rec); err != nil {
			msg := err.Error()
			w.logger.Error().
				Err(err).
				Str("projectId", rec.ProjectID).
				Int("sceneIndex", rec.SceneIndex).
				Msg("scene render failed")
			if uerr := w.records.UpdateSceneStatus(ctx, rec.ProjectID, rec.SceneIndex, string(scene.StatusError), &msg, nil); uerr != nil {
				w.logger.Error().Err(uerr).Msg("mark scene errored")
			}
		}
	}
	return len(pending), nil
}

func (w *SceneWorker) renderScene(ctx context.Context, rec storage.SceneRecord) error {
	if err := w.records.UpdateSceneStatus(ctx, rec.ProjectID, rec.SceneIndex, string(scene.StatusGenerating), nil, nil); err != nil {
		return fmt.Errorf("claim scene: %w", err)
	}

	parts, err := w.frameParts(ctx, rec)
	if err != nil {
		return err
	}

	prompt := ""
	if rec.VideoPrompt != nil {
		prompt = *rec.VideoPrompt
	}
	req := gen.Request{
		Provider: gen.ProviderKlingVideo,
		Modality: gen.ModalityVideo,
		Prompt:   prompt,
		Parts:    parts,
		Config: map[string]any{
			"duration": rec.DurationSeconds,
		},
		Timeout:    w.timeout,
		MaxRetries: w.maxRetries,
		RequestID:  uuid.NewString(),
	}
	res, err := w.invoker.Invoke(ctx, req)
	if err != nil {
		return err
	}

	videoURL, err := w.blobs.Put(ctx, res.Data, res.MIMEType)
	if err != nil {
		return fmt.Errorf("store video: %w", err)
	}
	return w.records.UpdateSceneStatus(ctx, rec.ProjectID, rec.SceneIndex, string(scene.StatusCompleted), nil, &videoURL)
}

// frameParts loads the start frame, and the end frame when the scene spans a
// panel pair, as inline request parts in that order.
func (w *SceneWorker) frameParts(ctx context.Context, rec storage.SceneRecord) ([]gen.Part, error) {
	start, err := w.blobs.Get(ctx, rec.StartPanelPath)
	if err != nil {
		return nil, fmt.Errorf("fetch start frame: %w", err)
	}
	parts := []gen.Part{{InlineData: &gen.InlineData{MIMEType: "image/png", Data: start}}}

	if rec.EndPanelPath != nil && *rec.EndPanelPath != "" {
		end, err := w.blobs.Get(ctx, *rec.EndPanelPath)
		if err != nil {
			return nil, fmt.Errorf("fetch end frame: %w", err)
		}
		parts = append(parts, gen.Part{InlineData: &gen.InlineData{MIMEType: "image/png", Data: end}})
	}
	return parts, nil
}
