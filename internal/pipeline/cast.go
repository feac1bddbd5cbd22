package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sean-park-funda/thegrim-cms-sub003/internal/batch"
	"github.com/sean-park-funda/thegrim-cms-sub003/internal/extract"
	"github.com/sean-park-funda/thegrim-cms-sub003/internal/gen"
	"github.com/sean-park-funda/thegrim-cms-sub003/internal/infra"
	"github.com/sean-park-funda/thegrim-cms-sub003/internal/storage"
)

// CastService generates one portrait per storyboard character, fanning out
// across a bounded worker pool with per-character failure isolation.
type CastService struct {
	invoker    *gen.Invoker
	blobs      storage.BlobStore
	logger     infra.Logger
	refs       *batch.RefCache
	provider   gen.Provider
	timeout    time.Duration
	maxRetries int
	workers    int
}

func NewCastService(invoker *gen.Invoker, blobs storage.BlobStore, logger infra.Logger, provider gen.Provider, timeout time.Duration, maxRetries, workers int) *CastService {
	return &CastService{
		invoker:    invoker,
		blobs:      blobs,
		logger:     logger,
		refs:       batch.NewRefCache(),
		provider:   provider,
		timeout:    timeout,
		maxRetries: maxRetries,
		workers:    workers,
	}
}

// CastImage is one produced portrait.
type CastImage struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// CastResult pairs the batch report with the portraits that succeeded.
type CastResult struct {
	Images []CastImage  `json:"images"`
	Report batch.Report `json:"report"`
}

// GenerateCast produces a portrait for every character that has a
// description. Characters without one are skipped. Shared style reference
// images are fetched once and reused across all workers.
func (s *CastService) GenerateCast(ctx context.Context, characters []extract.Character, styleRefURLs []string) (*CastResult, error) {
	if len(characters) == 0 {
		return nil, errors.New("pipeline: no characters to render")
	}

	var mu sync.Mutex
	images := make([]CastImage, 0, len(characters))

	tasks := make([]batch.Task, 0, len(characters))
	for _, ch := range characters {
		ch := ch
		tasks = append(tasks, batch.Task{
			Key:  ch.Name,
			Skip: ch.Description == "",
			Run: func(ctx context.Context) error {
				refs, err := s.styleRefs(ctx, styleRefURLs)
				if err != nil {
					return err
				}
				url, err := s.renderPortrait(ctx, ch, refs)
				if err != nil {
					return err
				}
				mu.Lock()
				images = append(images, CastImage{Name: ch.Name, URL: url})
				mu.Unlock()
				return nil
			},
		})
	}

	report := batch.Run(ctx, s.logger, s.workers, tasks)
	return &CastResult{Images: images, Report: report}, nil
}

func (s *CastService) renderPortrait(ctx context.Context, ch extract.Character, refs []gen.Part) (string, error) {
	prompt := fmt.Sprintf("Full-body character portrait of %s. %s. Clean background, consistent webtoon style.", ch.Name, ch.Description)
	req := gen.Request{
		Provider:   s.provider,
		Modality:   gen.ModalityImage,
		Prompt:     prompt,
		Parts:      refs,
		Timeout:    s.timeout,
		MaxRetries: s.maxRetries,
		RequestID:  uuid.NewString(),
	}
	res, err := s.invoker.Invoke(ctx, req)
	if err != nil {
		return "", err
	}
	if len(res.Data) == 0 {
		return "", errors.New("portrait response carried no image")
	}
	return s.blobs.Put(ctx, res.Data, res.MIMEType)
}

// styleRefs resolves the shared reference images through the populate-once
// cache, so concurrent portrait tasks trigger at most one fetch per URL.
func (s *CastService) styleRefs(ctx context.Context, urls []string) ([]gen.Part, error) {
	if len(urls) == 0 {
		return nil, nil
	}
	parts := make([]gen.Part, 0, len(urls))
	for _, url := range urls {
		data, err := s.refs.Get(ctx, url, func(ctx context.Context) ([]byte, error) {
			return s.blobs.Get(ctx, url)
		})
		if err != nil {
			return nil, fmt.Errorf("fetch reference %s: %w", url, err)
		}
		parts = append(parts, gen.Part{InlineData: &gen.InlineData{
			MIMEType: "image/png",
			Data:     data,
		}})
	}
	return parts, nil
}
