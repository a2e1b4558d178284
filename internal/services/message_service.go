package services

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"unicode/utf8"

	"whisperbox/internal/models"
	"whisperbox/internal/repositories"
	"whisperbox/pkg/rabbitmq"
)

const (
	minContentLength = 10
	maxContentLength = 300
)

// MessageService handles anonymous message submission and the owner-side
// inbox operations. Submission is the only state-mutating path in the core.
type MessageService struct {
	userRepo repositories.UserRepository
	mqClient *rabbitmq.Client // nil when no broker is configured
}

// NewMessageService creates a new MessageService.
func NewMessageService(userRepo repositories.UserRepository, mqClient *rabbitmq.Client) *MessageService {
	return &MessageService{
		userRepo: userRepo,
		mqClient: mqClient,
	}
}

// Submit validates the content, resolves the recipient and appends the
// message. The accept-flag is re-checked by the repository at the moment of
// the append, inside the same atomic step as the insert. Returns the new
// message's ID on success.
func (s *MessageService) Submit(recipientUsername, content string) (string, error) {
	trimmed := strings.TrimSpace(content)
	if n := utf8.RuneCountInString(trimmed); n < minContentLength || n > maxContentLength {
		return "", fmt.Errorf("content is %d characters after trimming: %w", n, ErrInvalidContent)
	}

	msg, err := s.userRepo.AppendMessage(recipientUsername, trimmed)
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrUserNotFound):
			return "", fmt.Errorf("%s: %w", recipientUsername, ErrRecipientNotFound)
		case errors.Is(err, repositories.ErrNotAccepting):
			return "", fmt.Errorf("%s: %w", recipientUsername, ErrRecipientNotAccepting)
		default:
			return "", fmt.Errorf("directory error while submitting message: %w", err)
		}
	}

	// Notify the external notification worker. Best effort: a broker
	// hiccup must never fail a submission that already persisted.
	if s.mqClient != nil {
		event := map[string]interface{}{
			"messageID": msg.ID,
			"username":  recipientUsername,
			"createdAt": msg.CreatedAt,
		}
		if err := s.mqClient.PublishEvent("message.received", event); err != nil {
			log.Printf("Warning: Failed to publish message.received event for %s: %v", msg.ID, err)
		}
	} else {
		log.Println("RabbitMQ client is not initialized. Skipping message event publication.")
	}

	return msg.ID, nil
}

// ListMessages returns the owner's inbox, newest first.
func (s *MessageService) ListMessages(userID string) ([]models.Message, error) {
	messages, err := s.userRepo.GetMessages(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return messages, nil
}

// DeleteMessage removes a single message from the owner's inbox.
func (s *MessageService) DeleteMessage(userID, messageID string) error {
	if err := s.userRepo.DeleteMessage(userID, messageID); err != nil {
		return fmt.Errorf("failed to delete message %s: %w", messageID, err)
	}
	return nil
}

// IsAcceptingMessages reports the owner's current accept-flag.
func (s *MessageService) IsAcceptingMessages(userID string) (bool, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return false, fmt.Errorf("failed to load accept-flag: %w", err)
	}
	return user.IsAcceptingMessages, nil
}

// SetAcceptingMessages toggles whether the owner receives new messages.
func (s *MessageService) SetAcceptingMessages(userID string, accepting bool) error {
	if err := s.userRepo.SetAcceptingMessages(userID, accepting); err != nil {
		return fmt.Errorf("failed to update accept-flag: %w", err)
	}
	return nil
}
