package handlers

import (
	"strings"

	"whisperbox/internal/services"

	"github.com/gofiber/fiber/v2"
)

// SuggestionHandler handles HTTP requests for suggested questions.
type SuggestionHandler struct {
	service *services.SuggestionService
}

// NewSuggestionHandler creates a new SuggestionHandler.
func NewSuggestionHandler(service *services.SuggestionService) *SuggestionHandler {
	return &SuggestionHandler{
		service: service,
	}
}

// RegisterRoutes registers the suggestion routes with the Fiber app.
func (h *SuggestionHandler) RegisterRoutes(router fiber.Router) {
	router.Post("/suggestions", h.HandleSuggestions)
}

// HandleSuggestions returns three suggested questions as a single
// '||'-joined string. When the provider answered with an error status and a
// payload, the status and raw payload are passed through unmodified;
// anything else (timeouts, malformed output) degrades to the fallback set
// with a 200.
func (h *SuggestionHandler) HandleSuggestions(c *fiber.Ctx) error {
	questions, providerErr := h.service.FetchSuggestions(c.UserContext())
	if providerErr != nil && len(providerErr.Body) > 0 {
		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		return c.Status(providerErr.Status).Send(providerErr.Body)
	}
	return c.SendString(strings.Join(questions, services.SuggestionDelimiter))
}
