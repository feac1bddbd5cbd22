// Package extract recovers well-formed domain objects from free-form model
// output. Model text arrives fenced, prefixed, or occasionally truncated
// mid-string; this package cleans it, parses it, and applies at most one
// targeted repair before giving up.
package extract

import (
	"encoding/json"
	"strings"
)

// ParseStatus reports how a document was recovered.
type ParseStatus string

const (
	StatusOK       ParseStatus = "ok"
	StatusRepaired ParseStatus = "repaired"
	StatusFailed   ParseStatus = "failed"
)

const previewLimit = 160

// Document records the provenance of one extraction. ParsedText is populated
// only when Status is ok or repaired, and holds the exact text that parsed.
type Document struct {
	RawText     string
	CleanedText string
	ParsedText  string
	Status      ParseStatus
	Detail      string
}

// Failed reports whether the extraction produced nothing usable.
func (d Document) Failed() bool {
	return d.Status == StatusFailed
}

// Parse cleans raw model text and unmarshals it into T. When the first parse
// fails on a truncated input, the tail is repaired once (guided by the field
// keys most likely to be cut off) and parsing is retried exactly once. Parse
// never returns an error; all failure is reported through the Document.
func Parse[T any](raw string, truncatableKeys ...string) (T, Document) {
	var out T
	doc := Document{RawText: raw}

	cleaned := Clean(raw)
	doc.CleanedText = cleaned
	if cleaned == "" {
		doc.Status = StatusFailed
		doc.Detail = "cleaned text is empty"
		return out, doc
	}

	firstErr := json.Unmarshal([]byte(cleaned), &out)
	if firstErr == nil {
		doc.ParsedText = cleaned
		doc.Status = StatusOK
		return out, doc
	}

	if truncatedInput(firstErr) {
		if repaired, ok := RepairTruncated(cleaned, truncatableKeys); ok {
			var repairedOut T
			if err := json.Unmarshal([]byte(repaired), &repairedOut); err == nil {
				doc.ParsedText = repaired
				doc.Status = StatusRepaired
				return repairedOut, doc
			}
		}
	}

	var zero T
	doc.Status = StatusFailed
	doc.Detail = firstErr.Error() + "; text: " + preview(cleaned)
	return zero, doc
}

// Clean strips markdown fences and slices the text down to its outermost
// JSON object boundaries. Text without fences or braces passes through
// unchanged apart from whitespace trimming.
func Clean(raw string) string {
	text := stripFences(strings.TrimSpace(raw))
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}
	return strings.TrimSpace(text)
}

// stripFences takes the substring between the first and last triple-backtick
// markers and drops an optional leading language tag. Models emit the tag in
// several broken shapes ("json", "JSON", "json:json"), all of which are
// treated as noise.
func stripFences(text string) string {
	first := strings.Index(text, "```")
	if first < 0 {
		return text
	}
	inner := text[first+3:]
	if last := strings.LastIndex(inner, "```"); last >= 0 {
		inner = inner[:last]
	}
	inner = strings.TrimSpace(inner)

	if nl := strings.IndexByte(inner, '\n'); nl >= 0 {
		if isLanguageTag(inner[:nl]) {
			inner = strings.TrimSpace(inner[nl+1:])
		}
	}
	// Tag glued straight onto the payload, e.g. "json{...}".
	lowered := strings.ToLower(inner)
	for _, tag := range []string{"json:json", "json"} {
		if strings.HasPrefix(lowered, tag) {
			inner = strings.TrimSpace(inner[len(tag):])
			break
		}
	}
	return inner
}

func isLanguageTag(line string) bool {
	line = strings.TrimSpace(strings.ToLower(line))
	if line == "" {
		return true
	}
	if len(line) > 16 {
		return false
	}
	for _, r := range line {
		if (r < 'a' || r > 'z') && r != ':' {
			return false
		}
	}
	return true
}

// truncatedInput reports whether err is the unterminated-input class of JSON
// parse failure that the repair pass targets.
func truncatedInput(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "unexpected end of JSON input") ||
		strings.Contains(msg, "unexpected EOF")
}

func preview(text string) string {
	if len(text) <= previewLimit {
		return text
	}
	return text[:previewLimit] + "..."
}
