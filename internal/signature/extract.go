package signature

import "strings"

// ExtractJSON pulls a JSON payload out of a response that may wrap it in
// markdown or surrounding prose, trying progressively looser strategies:
//
//  1. A ```json fenced block.
//  2. Any fenced code block (skipping a language identifier line).
//  3. The substring between the first '{' and the last '}'.
//  4. The response verbatim, unmodified.
func ExtractJSON(response string) string {
	if s, ok := extractFencedJSON(response); ok {
		return s
	}
	if s, ok := extractFencedAny(response); ok {
		return s
	}
	if s, ok := extractRawBraces(response); ok {
		return s
	}
	return response
}

func extractFencedJSON(response string) (string, bool) {
	start := strings.Index(response, "```json")
	if start == -1 {
		return "", false
	}
	contentStart := start + len("```json")
	end := strings.Index(response[contentStart:], "```")
	if end == -1 {
		return "", false
	}
	return strings.TrimSpace(response[contentStart : contentStart+end]), true
}

func extractFencedAny(response string) (string, bool) {
	start := strings.Index(response, "```")
	if start == -1 {
		return "", false
	}
	contentStart := start + 3
	if nl := strings.Index(response[contentStart:], "\n"); nl != -1 {
		contentStart += nl + 1
	}
	end := strings.Index(response[contentStart:], "```")
	if end == -1 {
		return "", false
	}
	return strings.TrimSpace(response[contentStart : contentStart+end]), true
}

func extractRawBraces(response string) (string, bool) {
	start := strings.Index(response, "{")
	if start == -1 {
		return "", false
	}
	end := strings.LastIndex(response, "}")
	if end == -1 || end <= start {
		return "", false
	}
	return response[start : end+1], true
}
