package scene

import (
	"strings"
	"testing"

	"github.com/sean-park-funda/thegrim-cms-sub003/internal/grid"
)

func panels(n int) []grid.Panel {
	out := make([]grid.Panel, n)
	cols := 2
	if n > 4 {
		cols = 3
	}
	for i := range out {
		out[i] = grid.Panel{Index: i, Row: i / cols, Col: i % cols}
	}
	return out
}

func TestAssemblePerCut(t *testing.T) {
	scenes, err := Assemble(panels(4), ModePerCut, Options{})
	if err != nil {
		t.Fatalf("Assemble returned error: %v", err)
	}
	if len(scenes) != 4 {
		t.Fatalf("scenes = %d, want panel count 4", len(scenes))
	}
	for i, s := range scenes {
		if s.SceneIndex != i {
			t.Fatalf("scenes[%d].SceneIndex = %d, want contiguous", i, s.SceneIndex)
		}
		if s.StartPanelIndex != i || s.EndPanelIndex != nil {
			t.Fatalf("scenes[%d] = start %d end %v, want start %d end nil", i, s.StartPanelIndex, s.EndPanelIndex, i)
		}
		if s.DurationSeconds != DefaultDurationSeconds {
			t.Fatalf("scenes[%d].DurationSeconds = %d, want default %d", i, s.DurationSeconds, DefaultDurationSeconds)
		}
		if s.Status != StatusPending {
			t.Fatalf("scenes[%d].Status = %q, want pending", i, s.Status)
		}
	}
}

func TestAssembleCutToCutPairs(t *testing.T) {
	scenes, err := Assemble(panels(4), ModeCutToCut, Options{})
	if err != nil {
		t.Fatalf("Assemble returned error: %v", err)
	}
	wantPairs := [][2]int{{0, 1}, {1, 2}, {2, 3}}
	if len(scenes) != len(wantPairs) {
		t.Fatalf("scenes = %d, want %d", len(scenes), len(wantPairs))
	}
	for i, s := range scenes {
		if s.StartPanelIndex != wantPairs[i][0] || s.EndPanelIndex == nil || *s.EndPanelIndex != wantPairs[i][1] {
			t.Fatalf("scenes[%d] = (%d,%v), want %v", i, s.StartPanelIndex, s.EndPanelIndex, wantPairs[i])
		}
	}
}

func TestAssembleCutToCut3x3(t *testing.T) {
	scenes, err := Assemble(panels(9), ModeCutToCut, Options{})
	if err != nil {
		t.Fatalf("Assemble returned error: %v", err)
	}
	if len(scenes) != 8 {
		t.Fatalf("scenes = %d, want panelCount-1 = 8", len(scenes))
	}
}

func TestAssembleDuration(t *testing.T) {
	scenes, err := Assemble(panels(4), ModePerCut, Options{Duration: 8})
	if err != nil {
		t.Fatalf("Assemble returned error: %v", err)
	}
	if scenes[0].DurationSeconds != 8 {
		t.Fatalf("DurationSeconds = %d, want 8", scenes[0].DurationSeconds)
	}
	if _, err := Assemble(panels(4), ModePerCut, Options{Duration: 7}); err == nil {
		t.Fatal("Assemble accepted unsupported duration")
	}
}

func TestAssemblePrompts(t *testing.T) {
	scenes, err := Assemble(panels(4), ModeCutToCut, Options{
		PromptFor: func(start int) string { return "motion from panel" },
	})
	if err != nil {
		t.Fatalf("Assemble returned error: %v", err)
	}
	for i, s := range scenes {
		if !strings.Contains(s.Prompt, "motion") {
			t.Fatalf("scenes[%d].Prompt = %q, want prompt applied", i, s.Prompt)
		}
	}
}

func TestAssembleRejectsDegenerateInput(t *testing.T) {
	if _, err := Assemble(nil, ModePerCut, Options{}); err == nil {
		t.Fatal("per-cut accepted zero panels")
	}
	if _, err := Assemble(panels(1), ModeCutToCut, Options{}); err == nil {
		t.Fatal("cut-to-cut accepted a single panel")
	}
	if _, err := Assemble(panels(4), Mode("freeform"), Options{}); err == nil {
		t.Fatal("unknown mode accepted")
	}
}
