package services

import (
	"context"
	"errors"
	"log"
	"time"

	"whisperbox/pkg/openrouter"
)

// suggestionPrompt is the fixed instruction sent to the provider. The format
// contract (three questions, '||'-separated, no markdown) is what
// FormatSuggestions expects to parse.
const suggestionPrompt = `Create a list of three open-ended and engaging questions formatted as a single string. Each question should be separated by '||'. These questions are for an anonymous social messaging platform, like Qooh.me, and should be suitable for a diverse audience. Avoid personal or sensitive topics, focusing instead on universal themes that encourage friendly interaction. For example, your output should be structured like this: 'What's a hobby you've recently started?||If you could have dinner with any historical figure, who would it be?||What's a simple thing that makes you happy?'. Ensure the questions are intriguing, foster curiosity, and contribute to a positive and welcoming conversational environment. Do not use markdown formatting in your answer.`

// SuggestionProvider is the external text-generation dependency.
type SuggestionProvider interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// SuggestionService fetches conversation-starter questions from the provider.
// One call per invocation, no retries: an interactive page is waiting, so a
// bounded single attempt beats a slow retry loop. The service holds no
// mutable state and is safe for concurrent use.
type SuggestionService struct {
	provider SuggestionProvider
	timeout  time.Duration
}

// NewSuggestionService creates a new SuggestionService.
func NewSuggestionService(provider SuggestionProvider, timeout time.Duration) *SuggestionService {
	if timeout <= 0 {
		timeout = openrouter.DefaultTimeout
	}
	return &SuggestionService{
		provider: provider,
		timeout:  timeout,
	}
}

// FetchSuggestions returns exactly three valid questions, falling back to
// the fixed set whenever the provider fails or answers garbage. When the
// provider responded with a non-2xx status the raw payload is returned
// alongside the fallback so the HTTP layer can pass it through unmodified;
// timeouts and network errors are logged and fully absorbed.
func (s *SuggestionService) FetchSuggestions(ctx context.Context) ([]string, *openrouter.StatusError) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	raw, err := s.provider.Complete(ctx, suggestionPrompt)
	if err != nil {
		var statusErr *openrouter.StatusError
		if errors.As(err, &statusErr) {
			log.Printf("Suggestion provider rejected request with status %d", statusErr.Status)
			return FallbackSuggestions(), statusErr
		}
		log.Printf("Suggestion provider unreachable, using fallback set: %v", err)
		return FallbackSuggestions(), nil
	}

	// Malformed-but-successful output is the formatter's problem; it
	// degrades to the same fallback on its own.
	return FormatSuggestions(raw), nil
}
