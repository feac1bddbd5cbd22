package extract

import (
	"errors"
	"testing"
)

func TestParseStoryboardValid(t *testing.T) {
	raw := "```json\n" + `{
	  "cuts": [
	    {"cutNumber": 1, "title": "Rooftop", "background": "city dusk", "description": "Mina waits alone", "charactersInCut": ["mina"]},
	    {"cutNumber": 2, "title": "", "background": "stairwell", "description": "Jun runs up", "dialogue": "Wait!", "charactersInCut": ["JUN"]}
	  ],
	  "characters": [
	    {"name": "mina", "description": "protagonist"},
	    {"name": "Jun", "description": "childhood friend"}
	  ]
	}` + "\n```"

	sb, warnings, doc, err := ParseStoryboard(raw)
	if err != nil {
		t.Fatalf("ParseStoryboard returned error: %v", err)
	}
	if doc.Status != StatusOK {
		t.Fatalf("Status = %q, want %q", doc.Status, StatusOK)
	}
	if len(sb.Cuts) != 2 {
		t.Fatalf("cuts = %d, want 2", len(sb.Cuts))
	}
	if sb.Cuts[1].Title != "Cut 2" {
		t.Fatalf("Title = %q, want defaulted %q", sb.Cuts[1].Title, "Cut 2")
	}
	if sb.Characters[0].Name != "Mina" || sb.Cuts[1].CharactersInCut[0] != "Jun" {
		t.Fatalf("names not normalized: %+v", sb.Characters)
	}
	if len(warnings) != 1 {
		t.Fatalf("warnings = %v, want one defaulted-title warning", warnings)
	}
}

func TestParseStoryboardDropsCutsMissingIdentity(t *testing.T) {
	raw := `{
	  "cuts": [
	    {"title": "no number", "description": "dropped"},
	    {"cutNumber": 3, "description": "kept"}
	  ],
	  "characters": [{"description": "nameless, dropped"}]
	}`
	sb, warnings, _, err := ParseStoryboard(raw)
	if err != nil {
		t.Fatalf("ParseStoryboard returned error: %v", err)
	}
	if len(sb.Cuts) != 1 || sb.Cuts[0].CutNumber != 3 {
		t.Fatalf("cuts = %+v, want only cutNumber 3", sb.Cuts)
	}
	if len(sb.Characters) != 0 {
		t.Fatalf("characters = %+v, want nameless entry dropped", sb.Characters)
	}
	if len(warnings) != 2 {
		t.Fatalf("warnings = %v, want 2", warnings)
	}
}

func TestParseStoryboardFailsWhenNoValidCuts(t *testing.T) {
	raw := `{"cuts": [{"title": "no identity"}], "characters": []}`
	_, _, doc, err := ParseStoryboard(raw)
	if !errors.Is(err, ErrNoValidCuts) {
		t.Fatalf("err = %v, want ErrNoValidCuts", err)
	}
	if doc.Status != StatusFailed {
		t.Fatalf("Status = %q, want %q", doc.Status, StatusFailed)
	}
}

func TestParseStoryboardUnparsableSurfacesError(t *testing.T) {
	_, _, doc, err := ParseStoryboard("the model rambled with no JSON")
	if !errors.Is(err, ErrUnparsable) {
		t.Fatalf("err = %v, want ErrUnparsable", err)
	}
	if doc.Status != StatusFailed {
		t.Fatalf("Status = %q, want %q", doc.Status, StatusFailed)
	}
}

func TestParseStoryboardRepairedTruncation(t *testing.T) {
	raw := "```json\n" + `{"cuts":[{"cutNumber":1,"title":"Dawn","background":"harbor","description": "fog rolls over the`
	sb, _, doc, err := ParseStoryboard(raw)
	if err != nil {
		t.Fatalf("ParseStoryboard returned error: %v", err)
	}
	if doc.Status != StatusRepaired {
		t.Fatalf("Status = %q, want %q", doc.Status, StatusRepaired)
	}
	if sb.Cuts[0].Description != "fog rolls over the" {
		t.Fatalf("description = %q, want text up to the truncation point", sb.Cuts[0].Description)
	}
}

func TestParseStoryboardDeduplicatesCharacters(t *testing.T) {
	raw := `{
	  "cuts": [{"cutNumber": 1, "description": "x"}],
	  "characters": [{"name": "Mina"}, {"name": "MINA", "description": "dup"}]
	}`
	sb, warnings, _, err := ParseStoryboard(raw)
	if err != nil {
		t.Fatalf("ParseStoryboard returned error: %v", err)
	}
	if len(sb.Characters) != 1 {
		t.Fatalf("characters = %+v, want duplicates collapsed", sb.Characters)
	}
	if len(warnings) != 1 {
		t.Fatalf("warnings = %v, want duplicate warning", warnings)
	}
}
