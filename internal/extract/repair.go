package extract

import (
	"strings"
)

// RepairTruncated re-closes a JSON document that was cut off inside a string
// value. keys lists the field names whose values are long free text and
// therefore the plausible truncation sites (for storyboards, "description").
// The last such key in the text is assumed to own the unterminated value.
//
// The scan is an explicit state machine over the tail rather than a regex
// chain: everything after the value's opening quote is treated as the
// truncated value, trailing separator junk is trimmed, the string is
// re-closed, and any brackets still open at that point are closed in order.
// Repair refuses (returns false) when the tail already contains a closing
// quote, since the truncation must then be somewhere this pass cannot reason
// about.
func RepairTruncated(text string, keys []string) (string, bool) {
	if len(keys) == 0 {
		keys = []string{"description"}
	}

	keyPos, key := -1, ""
	for _, k := range keys {
		if p := strings.LastIndex(text, `"`+k+`"`); p > keyPos {
			keyPos, key = p, k
		}
	}
	if keyPos < 0 {
		return "", false
	}

	// Walk key -> colon -> opening quote of the value.
	pos := keyPos + len(key) + 2
	pos = skipSpace(text, pos)
	if pos >= len(text) || text[pos] != ':' {
		return "", false
	}
	pos = skipSpace(text, pos+1)
	if pos >= len(text) || text[pos] != '"' {
		return "", false
	}
	openQuote := pos

	// The tail after the opening quote must still be inside the string. An
	// unescaped quote out there means the value terminated normally and the
	// defect is elsewhere.
	tail := text[openQuote+1:]
	escaped := false
	for i := 0; i < len(tail); i++ {
		if escaped {
			escaped = false
			continue
		}
		switch tail[i] {
		case '\\':
			escaped = true
		case '"':
			return "", false
		}
	}
	if escaped {
		// Cut off mid-escape; drop the dangling backslash.
		tail = tail[:len(tail)-1]
	}

	tail = strings.TrimRight(tail, " \t\r\n,}]")
	rebuilt := text[:openQuote+1] + tail + `"`
	return rebuilt + closersFor(rebuilt), true
}

// closersFor scans doc outside of any repair assumptions and returns the
// closing brackets needed to balance it, innermost first.
func closersFor(doc string) string {
	var stack []byte
	inString := false
	escaped := false
	for i := 0; i < len(doc); i++ {
		c := doc[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{', '[':
			stack = append(stack, c)
		case '}':
			if n := len(stack); n > 0 && stack[n-1] == '{' {
				stack = stack[:n-1]
			}
		case ']':
			if n := len(stack); n > 0 && stack[n-1] == '[' {
				stack = stack[:n-1]
			}
		}
	}

	closers := make([]byte, 0, len(stack))
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i] == '{' {
			closers = append(closers, '}')
		} else {
			closers = append(closers, ']')
		}
	}
	return string(closers)
}

func skipSpace(s string, pos int) int {
	for pos < len(s) {
		switch s[pos] {
		case ' ', '\t', '\r', '\n':
			pos++
		default:
			return pos
		}
	}
	return pos
}
