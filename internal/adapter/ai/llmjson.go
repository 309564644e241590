// Package ai provides the LLM client adapters and the response-repair
// utilities shared by every component that parses JSON-shaped LLM replies.
package ai

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/codesage-ai/interview-server/internal/domain"
)

var (
	trailingCommaRe = regexp.MustCompile(`,(\s*[}\]])`)
	fenceOpenRe     = regexp.MustCompile("(?m)^```(?:json)?\\s*")
	fenceCloseRe    = regexp.MustCompile("(?m)```\\s*$")
)

// ParseLLMJSON decodes a JSON object out of a raw LLM reply into v.
// Models wrap JSON in markdown fences, prepend prose, or emit smart quotes;
// parsing runs three layers, first success wins:
//
//  1. direct unmarshal of the trimmed reply
//  2. largest balanced brace-delimited substring, fences and smart quotes
//     stripped
//  3. trim to first '{' / last '}' and repair trailing commas
//
// On failure the error wraps domain.ErrSchemaInvalid.
func ParseLLMJSON(raw string, v any) error {
	trimmed := strings.TrimSpace(raw)
	if err := json.Unmarshal([]byte(trimmed), v); err == nil {
		return nil
	}

	candidate := repairJSON(extractJSONObject(trimmed))
	if err := json.Unmarshal([]byte(candidate), v); err == nil {
		return nil
	}

	cleaned := trimmed
	if i := strings.Index(cleaned, "{"); i >= 0 {
		cleaned = cleaned[i:]
	}
	if i := strings.LastIndex(cleaned, "}"); i >= 0 {
		cleaned = cleaned[:i+1]
	}
	cleaned = repairJSON(cleaned)
	if err := json.Unmarshal([]byte(cleaned), v); err != nil {
		return fmt.Errorf("op=ai.ParseLLMJSON: %w: %v", domain.ErrSchemaInvalid, err)
	}
	return nil
}

// extractJSONObject returns the largest balanced {...} substring, or the
// input unchanged when no balanced object is found.
func extractJSONObject(s string) string {
	best := ""
	for start := 0; start < len(s); start++ {
		if s[start] != '{' {
			continue
		}
		depth := 0
		inString := false
		escaped := false
		for i := start; i < len(s); i++ {
			ch := s[i]
			if inString {
				switch {
				case escaped:
					escaped = false
				case ch == '\\':
					escaped = true
				case ch == '"':
					inString = false
				}
				continue
			}
			switch ch {
			case '"':
				inString = true
			case '{':
				depth++
			case '}':
				depth--
				if depth == 0 {
					if i+1-start > len(best) {
						best = s[start : i+1]
					}
					i = len(s)
				}
			}
		}
	}
	if best == "" {
		return s
	}
	return best
}

// repairJSON fixes the formatting issues models most often introduce:
// markdown fences, smart quotes and apostrophes, trailing commas.
func repairJSON(s string) string {
	s = fenceOpenRe.ReplaceAllString(s, "")
	s = fenceCloseRe.ReplaceAllString(s, "")
	s = strings.NewReplacer(
		"“", `"`, "”", `"`,
		"‘", "'", "’", "'",
	).Replace(s)
	s = trailingCommaRe.ReplaceAllString(s, "$1")
	return strings.TrimSpace(s)
}
