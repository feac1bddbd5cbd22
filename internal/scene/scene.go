// Package scene converts an ordered panel sequence into video scene
// descriptors under one of two segmentation policies.
package scene

import (
	"fmt"

	"github.com/sean-park-funda/thegrim-cms-sub003/internal/grid"
)

// Mode selects how panels map to scenes. The mode is chosen once per project
// at generation time; switching modes means discarding and regenerating
// every scene, there is no incremental migration.
type Mode string

const (
	// ModePerCut treats each panel as an independent single-frame scene.
	ModePerCut Mode = "per-cut"
	// ModeCutToCut pairs consecutive panels as motion start/end frames.
	ModeCutToCut Mode = "cut-to-cut"
)

// Status tracks a scene through video generation.
type Status string

const (
	StatusPending    Status = "pending"
	StatusGenerating Status = "generating"
	StatusCompleted  Status = "completed"
	StatusError      Status = "error"
)

// DefaultDurationSeconds is assigned when the caller supplies no duration.
const DefaultDurationSeconds = 4

// supportedDurations is the discrete set the video provider accepts.
var supportedDurations = []int{2, 4, 6, 8}

// Scene is one unit of video generation work, referencing one or two panels
// as start/end frames.
type Scene struct {
	SceneIndex      int
	StartPanelIndex int
	EndPanelIndex   *int
	DurationSeconds int
	Prompt          string
	Status          Status
}

// Options tune assembly. A zero Duration means DefaultDurationSeconds.
// PromptFor, when set, supplies the motion prompt for the scene covering the
// given start panel.
type Options struct {
	Duration  int
	PromptFor func(startPanelIndex int) string
}

// ParseMode validates a wire-format mode string.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModePerCut:
		return ModePerCut, nil
	case ModeCutToCut:
		return ModeCutToCut, nil
	default:
		return "", fmt.Errorf("scene: unsupported mode %q", s)
	}
}

// Assemble builds the scene sequence for the given panels. Per-cut yields
// one scene per panel with no end frame; cut-to-cut yields one scene per
// consecutive panel pair, so len(panels)-1 scenes. Scene indices are
// contiguous from zero and every scene starts pending.
func Assemble(panels []grid.Panel, mode Mode, opts Options) ([]Scene, error) {
	duration, err := normalizeDuration(opts.Duration)
	if err != nil {
		return nil, err
	}

	switch mode {
	case ModePerCut:
		if len(panels) == 0 {
			return nil, fmt.Errorf("scene: per-cut needs at least one panel")
		}
		scenes := make([]Scene, 0, len(panels))
		for i, p := range panels {
			scenes = append(scenes, Scene{
				SceneIndex:      i,
				StartPanelIndex: p.Index,
				DurationSeconds: duration,
				Prompt:          promptFor(opts, p.Index),
				Status:          StatusPending,
			})
		}
		return scenes, nil

	case ModeCutToCut:
		if len(panels) < 2 {
			return nil, fmt.Errorf("scene: cut-to-cut needs at least two panels, got %d", len(panels))
		}
		scenes := make([]Scene, 0, len(panels)-1)
		for i := 0; i < len(panels)-1; i++ {
			end := panels[i+1].Index
			scenes = append(scenes, Scene{
				SceneIndex:      i,
				StartPanelIndex: panels[i].Index,
				EndPanelIndex:   &end,
				DurationSeconds: duration,
				Prompt:          promptFor(opts, panels[i].Index),
				Status:          StatusPending,
			})
		}
		return scenes, nil

	default:
		return nil, fmt.Errorf("scene: unsupported mode %q", mode)
	}
}

func promptFor(opts Options, startPanelIndex int) string {
	if opts.PromptFor == nil {
		return ""
	}
	return opts.PromptFor(startPanelIndex)
}

func normalizeDuration(d int) (int, error) {
	if d == 0 {
		return DefaultDurationSeconds, nil
	}
	for _, allowed := range supportedDurations {
		if d == allowed {
			return d, nil
		}
	}
	return 0, fmt.Errorf("scene: duration %ds not in supported set %v", d, supportedDurations)
}
