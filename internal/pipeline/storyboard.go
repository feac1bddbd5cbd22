// Package pipeline composes the generation primitives into the product
// flows: storyboard drafting, panel decomposition into scenes, cast image
// fan-out, and background video rendering.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sean-park-funda/thegrim-cms-sub003/internal/extract"
	"github.com/sean-park-funda/thegrim-cms-sub003/internal/gen"
	"github.com/sean-park-funda/thegrim-cms-sub003/internal/infra"
	"github.com/sean-park-funda/thegrim-cms-sub003/internal/storage"
)

// ErrStoryboardUnusable reports that the model output could not be turned
// into a storyboard with at least one valid cut.
var ErrStoryboardUnusable = errors.New("pipeline: storyboard output unusable")

const storyboardInstructions = `You are a webtoon storyboard writer.
Respond with a single JSON object and nothing else, shaped as:
{"cuts":[{"cutNumber":1,"title":"...","background":"...","description":"...","dialogue":"...","charactersInCut":["..."]}],"characters":[{"name":"...","description":"..."}]}
Cut numbers start at 1 and increase by one.`

// StoryboardResult carries the parsed storyboard together with the
// validation warnings and the raw parse document for diagnostics.
type StoryboardResult struct {
	Storyboard *extract.Storyboard
	Warnings   []extract.StoryboardWarning
	Document   extract.Document
	Attempt    int
}

// StoryboardService turns an episode synopsis into a persisted storyboard.
type StoryboardService struct {
	invoker    *gen.Invoker
	records    storage.RecordStore
	logger     infra.Logger
	timeout    time.Duration
	maxRetries int
}

func NewStoryboardService(invoker *gen.Invoker, records storage.RecordStore, logger infra.Logger, timeout time.Duration, maxRetries int) *StoryboardService {
	return &StoryboardService{
		invoker:    invoker,
		records:    records,
		logger:     logger,
		timeout:    timeout,
		maxRetries: maxRetries,
	}
}

// Generate asks the text model for a storyboard, validates it, and persists
// the result keyed by episode. Parse failures are persisted too so the
// operator can inspect what the model produced.
func (s *StoryboardService) Generate(ctx context.Context, episodeID, synopsis string) (*StoryboardResult, error) {
	synopsis = strings.TrimSpace(synopsis)
	if synopsis == "" {
		return nil, errors.New("pipeline: synopsis is required")
	}

	req := gen.Request{
		Provider: gen.ProviderGeminiText,
		Modality: gen.ModalityText,
		Prompt:   storyboardInstructions + "\n\nEpisode synopsis:\n" + synopsis,
		Config: map[string]any{
			"responseMimeType": "application/json",
		},
		Timeout:    s.timeout,
		MaxRetries: s.maxRetries,
		RequestID:  uuid.NewString(),
	}
	res, err := s.invoker.Invoke(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("pipeline: storyboard generation: %w", err)
	}

	sb, warnings, doc, parseErr := extract.ParseStoryboard(res.Text)
	if parseErr != nil {
		if s.records != nil {
			if perr := s.records.UpsertStoryboard(ctx, episodeID, map[string]string{"raw": doc.RawText}, string(extract.StatusFailed)); perr != nil {
				s.logger.Warn().Err(perr).Str("episodeId", episodeID).Msg("persist failed storyboard")
			}
		}
		return nil, fmt.Errorf("%w: %s", ErrStoryboardUnusable, doc.Detail)
	}

	for _, w := range warnings {
		s.logger.Warn().
			Str("episodeId", episodeID).
			Str("field", w.Field).
			Int("index", w.Index).
			Msg(w.Reason)
	}

	if s.records != nil {
		if err := s.records.UpsertStoryboard(ctx, episodeID, sb, string(doc.Status)); err != nil {
			return nil, fmt.Errorf("pipeline: persist storyboard: %w", err)
		}
	}
	return &StoryboardResult{
		Storyboard: sb,
		Warnings:   warnings,
		Document:   doc,
		Attempt:    res.Attempt,
	}, nil
}
