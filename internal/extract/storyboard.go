package extract

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Storyboard is the structured contract produced by the text model for one
// episode. It is persisted verbatim into the record store's JSON column.
type Storyboard struct {
	Cuts       []Cut       `json:"cuts"`
	Characters []Character `json:"characters"`
}

// Cut is one storyboard beat. CutNumber is the required identity field; a
// cut arriving without it is dropped, not repaired.
type Cut struct {
	CutNumber       int      `json:"cutNumber"`
	Title           string   `json:"title"`
	Background      string   `json:"background"`
	Description     string   `json:"description"`
	Dialogue        string   `json:"dialogue,omitempty"`
	CharactersInCut []string `json:"charactersInCut"`
}

// Character is a cast member referenced by cuts. Name is required identity.
type Character struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ErrNoValidCuts is returned when schema validation drops every cut. A
// partially valid document survives; an empty one does not.
var ErrNoValidCuts = errors.New("extract: storyboard has no valid cuts")

// ErrUnparsable is returned when both the parse and the repair pass failed.
// The caller surfaces this to the user verbatim; nothing is defaulted.
var ErrUnparsable = errors.New("extract: could not parse model output")

var titleCaser = cases.Title(language.Und)

// StoryboardWarning records one item dropped or defaulted during validation.
type StoryboardWarning struct {
	Field  string
	Index  int
	Reason string
}

func (w StoryboardWarning) String() string {
	return fmt.Sprintf("%s[%d]: %s", w.Field, w.Index, w.Reason)
}

// ParseStoryboard extracts and validates a storyboard from raw model text.
// The returned Document carries provenance for logging regardless of the
// outcome. The storyboard is non-nil only on success.
func ParseStoryboard(raw string) (*Storyboard, []StoryboardWarning, Document, error) {
	parsed, doc := Parse[Storyboard](raw, "description", "dialogue", "background")
	if doc.Failed() {
		return nil, nil, doc, fmt.Errorf("%w: %s", ErrUnparsable, doc.Detail)
	}

	validated, warnings := validateStoryboard(parsed)
	if len(validated.Cuts) == 0 {
		doc.Status = StatusFailed
		doc.Detail = "all cuts dropped during validation"
		return nil, warnings, doc, ErrNoValidCuts
	}
	return validated, warnings, doc, nil
}

// validateStoryboard applies the total field classification: cutNumber and
// character name are required identity, title defaults from the cut number,
// everything else passes through trimmed.
func validateStoryboard(sb Storyboard) (*Storyboard, []StoryboardWarning) {
	var warnings []StoryboardWarning
	out := &Storyboard{}

	for i, cut := range sb.Cuts {
		if cut.CutNumber <= 0 {
			warnings = append(warnings, StoryboardWarning{Field: "cuts", Index: i, Reason: "missing cutNumber"})
			continue
		}
		cut.Title = strings.TrimSpace(cut.Title)
		if cut.Title == "" {
			cut.Title = fmt.Sprintf("Cut %d", cut.CutNumber)
			warnings = append(warnings, StoryboardWarning{Field: "cuts", Index: i, Reason: "defaulted title"})
		}
		cut.Background = strings.TrimSpace(cut.Background)
		cut.Description = strings.TrimSpace(cut.Description)
		cut.Dialogue = strings.TrimSpace(cut.Dialogue)
		cut.CharactersInCut = normalizeNames(cut.CharactersInCut)
		out.Cuts = append(out.Cuts, cut)
	}

	seen := make(map[string]struct{})
	for i, ch := range sb.Characters {
		name := normalizeName(ch.Name)
		if name == "" {
			warnings = append(warnings, StoryboardWarning{Field: "characters", Index: i, Reason: "missing name"})
			continue
		}
		key := strings.ToLower(name)
		if _, ok := seen[key]; ok {
			warnings = append(warnings, StoryboardWarning{Field: "characters", Index: i, Reason: "duplicate name"})
			continue
		}
		seen[key] = struct{}{}
		out.Characters = append(out.Characters, Character{
			Name:        name,
			Description: strings.TrimSpace(ch.Description),
		})
	}

	return out, warnings
}

func normalizeNames(names []string) []string {
	var out []string
	for _, n := range names {
		if normalized := normalizeName(n); normalized != "" {
			out = append(out, normalized)
		}
	}
	return out
}

// normalizeName trims and title-cases a character name so the same cast
// member referenced as "mina" and "MINA" resolves to one reference image.
func normalizeName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	return titleCaser.String(strings.ToLower(name))
}
