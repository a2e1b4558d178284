package handlers

import (
	"errors"
	"log"

	"whisperbox/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// MessageHandler handles HTTP requests for anonymous message submission and
// the owner's inbox.
type MessageHandler struct {
	service  *services.MessageService
	validate *validator.Validate
}

// NewMessageHandler creates a new MessageHandler.
func NewMessageHandler(service *services.MessageService) *MessageHandler {
	return &MessageHandler{
		service:  service,
		validate: validator.New(),
	}
}

// RegisterRoutes registers the public (anonymous sender) routes.
func (h *MessageHandler) RegisterRoutes(router fiber.Router) {
	router.Post("/messages", h.HandleSendMessage)
}

// RegisterOwnerRoutes registers the JWT-protected inbox routes.
func (h *MessageHandler) RegisterOwnerRoutes(router fiber.Router) {
	router.Get("/messages", h.HandleGetMessages)
	router.Delete("/messages/:id", h.HandleDeleteMessage)
	router.Get("/accept-messages", h.HandleGetAcceptMessages)
	router.Patch("/accept-messages", h.HandleSetAcceptMessages)
}

// SendMessageRequest represents the request body for an anonymous message.
type SendMessageRequest struct {
	Username string `json:"username" validate:"required"`
	Content  string `json:"content" validate:"required"`
}

// HandleSendMessage accepts an anonymous message for a recipient. Every
// rejection carries a specific, sender-actionable reason.
func (h *MessageHandler) HandleSendMessage(c *fiber.Ctx) error {
	var req SendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing send-message request body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}

	if err := h.validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Validation failed",
			"error":   err.Error(),
		})
	}

	messageID, err := h.service.Submit(req.Username, req.Content)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidContent):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"message": "Message must be between 10 and 300 characters",
			})
		case errors.Is(err, services.ErrRecipientNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"message": "Recipient not found",
			})
		case errors.Is(err, services.ErrRecipientNotAccepting):
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"message": "User is not accepting messages",
			})
		default:
			log.Printf("Error submitting message to %s: %v", req.Username, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"message": "Could not send message, please try again",
			})
		}
	}

	return c.JSON(fiber.Map{
		"message": "Message sent successfully",
		"id":      messageID,
	})
}

// HandleGetMessages returns the authenticated owner's inbox, newest first.
func (h *MessageHandler) HandleGetMessages(c *fiber.Ctx) error {
	userID, ok := c.Locals("user_id").(string)
	if !ok || userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"message": "Not authenticated",
		})
	}

	messages, err := h.service.ListMessages(userID)
	if err != nil {
		log.Printf("Error listing messages for user %s: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not retrieve messages",
		})
	}
	return c.JSON(fiber.Map{
		"messages": messages,
	})
}

// HandleDeleteMessage removes a single message from the owner's inbox.
func (h *MessageHandler) HandleDeleteMessage(c *fiber.Ctx) error {
	userID, ok := c.Locals("user_id").(string)
	if !ok || userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"message": "Not authenticated",
		})
	}

	messageID := c.Params("id")
	if err := h.service.DeleteMessage(userID, messageID); err != nil {
		log.Printf("Error deleting message %s for user %s: %v", messageID, userID, err)
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"message": "Message not found",
		})
	}
	return c.JSON(fiber.Map{
		"message": "Message deleted",
	})
}

// HandleGetAcceptMessages reports the owner's current accept-flag.
func (h *MessageHandler) HandleGetAcceptMessages(c *fiber.Ctx) error {
	userID, ok := c.Locals("user_id").(string)
	if !ok || userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"message": "Not authenticated",
		})
	}

	accepting, err := h.service.IsAcceptingMessages(userID)
	if err != nil {
		log.Printf("Error loading accept-flag for user %s: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not load message settings",
		})
	}
	return c.JSON(fiber.Map{
		"isAcceptingMessages": accepting,
	})
}

// AcceptMessagesRequest represents the accept-flag toggle body.
type AcceptMessagesRequest struct {
	AcceptMessages *bool `json:"acceptMessages" validate:"required"`
}

// HandleSetAcceptMessages toggles whether the owner receives new messages.
func (h *MessageHandler) HandleSetAcceptMessages(c *fiber.Ctx) error {
	userID, ok := c.Locals("user_id").(string)
	if !ok || userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"message": "Not authenticated",
		})
	}

	var req AcceptMessagesRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}
	if err := h.validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Validation failed",
			"error":   err.Error(),
		})
	}

	if err := h.service.SetAcceptingMessages(userID, *req.AcceptMessages); err != nil {
		log.Printf("Error updating accept-flag for user %s: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not update message settings",
		})
	}
	return c.JSON(fiber.Map{
		"message":             "Message settings updated",
		"isAcceptingMessages": *req.AcceptMessages,
	})
}
