package llm

import (
	"regexp"
	"strings"
)

// Pre-compiled patterns for JSON extraction from model responses.
var (
	// jsonBlockPattern matches JSON inside markdown code blocks: ```json { ... } ```
	jsonBlockPattern = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(\\{.*\\})\\s*```")
	// jsonObjectPattern matches any JSON object (greedy fallback).
	jsonObjectPattern = regexp.MustCompile(`(?s)\{[\s\S]*\}`)
	// trailingCommaPattern matches trailing commas before ] or }.
	trailingCommaPattern = regexp.MustCompile(`,\s*([}\]])`)
)

// ExtractJSON extracts a JSON object from a model response string. It handles
// markdown code fences, JavaScript-style comments, and trailing commas, all
// of which models produce even when asked for pure JSON.
func ExtractJSON(content string) string {
	raw := extractRawJSON(content)
	if raw == "" {
		return ""
	}
	return cleanJSON(raw)
}

func extractRawJSON(content string) string {
	if matches := jsonBlockPattern.FindStringSubmatch(content); len(matches) > 1 {
		return matches[1]
	}
	if match := jsonObjectPattern.FindString(content); match != "" {
		return match
	}
	return ""
}

// cleanJSON strips // comments outside string values and trailing commas.
func cleanJSON(raw string) string {
	lines := strings.Split(raw, "\n")
	cleaned := make([]string, 0, len(lines))
	for _, line := range lines {
		cleaned = append(cleaned, stripLineComment(line))
	}
	result := strings.Join(cleaned, "\n")
	return trailingCommaPattern.ReplaceAllString(result, "$1")
}

// stripLineComment removes a // comment from a JSON line, respecting string
// values so URLs like "http://example.com" survive.
func stripLineComment(line string) string {
	if !strings.Contains(line, "//") {
		return line
	}

	inString := false
	escaped := false
	for i := 0; i < len(line); i++ {
		ch := line[i]
		if escaped {
			escaped = false
			continue
		}
		if ch == '\\' && inString {
			escaped = true
			continue
		}
		if ch == '"' {
			inString = !inString
			continue
		}
		if !inString && ch == '/' && i+1 < len(line) && line[i+1] == '/' {
			return strings.TrimRight(line[:i], " \t")
		}
	}
	return line
}
