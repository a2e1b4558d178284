package services

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// SuggestionDelimiter separates the three questions in the provider's output
// and in the response body of the suggestions endpoint.
const SuggestionDelimiter = "||"

const (
	suggestionCount   = 3
	maxQuestionLength = 200
)

// Providers often wrap their answer in a fenced block even when told not to;
// only the innermost fenced content is kept.
var fencedBlockRegex = regexp.MustCompile("(?s)```.*?\\n(.*?)```")

// fallbackSuggestions is the canonical fallback set, returned whenever the
// provider's output cannot be trusted.
var fallbackSuggestions = [suggestionCount]string{
	"What's your favorite movie?",
	"Do you have any pets?",
	"What's your dream job?",
}

// FallbackSuggestions returns a fresh copy of the fixed fallback set.
func FallbackSuggestions() []string {
	out := make([]string, suggestionCount)
	copy(out, fallbackSuggestions[:])
	return out
}

// FormatSuggestions parses raw provider output into exactly three candidate
// questions. It strips code fencing, splits on the delimiter and validates
// the segments; any violation degrades to the fixed fallback set instead of
// an error, so the caller always receives three usable questions.
func FormatSuggestions(raw string) []string {
	text := raw
	if m := fencedBlockRegex.FindStringSubmatch(text); m != nil {
		text = m[1]
	}
	text = strings.TrimSpace(text)

	if !strings.Contains(text, SuggestionDelimiter) {
		return FallbackSuggestions()
	}

	segments := strings.Split(text, SuggestionDelimiter)
	if len(segments) != suggestionCount {
		return FallbackSuggestions()
	}

	questions := make([]string, 0, suggestionCount)
	seen := make(map[string]bool, suggestionCount)
	for _, segment := range segments {
		question := strings.TrimSpace(segment)
		if question == "" || utf8.RuneCountInString(question) > maxQuestionLength {
			return FallbackSuggestions()
		}
		key := strings.ToLower(question)
		if seen[key] {
			return FallbackSuggestions()
		}
		seen[key] = true
		questions = append(questions, question)
	}
	return questions
}
