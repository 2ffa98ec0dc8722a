package llm

import (
	"regexp"
	"strings"
)

// thinkTagPattern matches <think>...</think> blocks that reasoning models
// emit ahead of (and occasionally inside) their answer.
var thinkTagPattern = regexp.MustCompile(`(?s)<think>.*?</think>`)

// thinkContentPattern extracts the content inside <think>...</think> tags.
var thinkContentPattern = regexp.MustCompile(`(?s)<think>(.*?)</think>`)

// StripThinking removes every reasoning block and trims the remainder.
func StripThinking(response string) string {
	return strings.TrimSpace(thinkTagPattern.ReplaceAllString(response, ""))
}

// ExtractThinking returns the content of the first reasoning block, or "".
func ExtractThinking(response string) string {
	matches := thinkContentPattern.FindStringSubmatch(response)
	if len(matches) >= 2 {
		return strings.TrimSpace(matches[1])
	}
	return ""
}
