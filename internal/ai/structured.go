package ai

import (
	"encoding/json"
	"strings"
)

// stripFences removes incidental markdown code fences that models wrap
// around JSON payloads.
func stripFences(content string) string {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	return strings.TrimSpace(content)
}

// decodeStructured strips fences and decodes content into dest. If the
// whole payload does not decode, it falls back to the outermost JSON
// object or array embedded in the text before giving up.
func decodeStructured(provider, content string, dest interface{}) error {
	cleaned := stripFences(content)

	err := json.Unmarshal([]byte(cleaned), dest)
	if err == nil {
		return nil
	}

	for _, pair := range [][2]string{{"{", "}"}, {"[", "]"}} {
		start := strings.Index(cleaned, pair[0])
		end := strings.LastIndex(cleaned, pair[1])
		if start >= 0 && end > start {
			if json.Unmarshal([]byte(cleaned[start:end+1]), dest) == nil {
				return nil
			}
		}
	}

	return &ParseError{Provider: provider, Raw: content, Err: err}
}

// structuredPrompt appends the JSON-only instruction shared by backends
// without a native JSON response mode.
func structuredPrompt(prompt string) string {
	var b strings.Builder
	b.WriteString(prompt)
	b.WriteString("\n\nCRITICAL: Respond with valid JSON only. No preamble, no markdown, no backticks.\n")
	return b.String()
}
