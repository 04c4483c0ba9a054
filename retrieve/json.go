package retrieve

import (
	"encoding/json"
	"strings"
)

// extractJSON parses a model response into v, tolerating the formatting
// slop local models produce: markdown code fences, prose before or after
// the object, and unquoted keys.
func extractJSON(text string, v any) error {
	s := strings.TrimSpace(text)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)

	if err := json.Unmarshal([]byte(repairJSON(s)), v); err == nil {
		return nil
	}

	// Fall back to the outermost brace pair.
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end <= start {
		return json.Unmarshal([]byte(s), v)
	}
	return json.Unmarshal([]byte(repairJSON(s[start:end+1])), v)
}

// repairJSON fixes the most common formatting defect in model JSON output:
// a missing opening quote before an object key, as in `, type":`.
func repairJSON(s string) string {
	src := []rune(s)
	fixed := make([]rune, 0, len(src)+16)

	i := 0
	for i < len(src) {
		ch := src[i]
		if ch != '{' && ch != ',' {
			fixed = append(fixed, ch)
			i++
			continue
		}

		fixed = append(fixed, ch)
		i++
		for i < len(src) && (src[i] == ' ' || src[i] == '\n' || src[i] == '\t') {
			fixed = append(fixed, src[i])
			i++
		}

		if i >= len(src) || src[i] == '"' || !isLetter(src[i]) {
			continue
		}

		keyStart := i
		for i < len(src) && (isLetter(src[i]) || src[i] == '_' || src[i] == ' ') {
			i++
		}

		if i+1 < len(src) && src[i] == '"' && src[i+1] == ':' {
			// Unquoted key with a closing quote already present.
			fixed = append(fixed, '"')
			fixed = append(fixed, src[keyStart:i]...)
			continue
		}
		fixed = append(fixed, src[keyStart:i]...)
	}

	return string(fixed)
}

func isLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}
