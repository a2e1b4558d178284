package repositories

import (
	"errors"

	"whisperbox/internal/models"
)

// Sentinel errors returned (possibly wrapped) by UserRepository
// implementations so callers can branch with errors.Is.
var (
	// ErrUserNotFound is returned when no user matches the lookup key.
	ErrUserNotFound = errors.New("user not found")
	// ErrNotAccepting is returned by AppendMessage when the recipient has
	// toggled message acceptance off.
	ErrNotAccepting = errors.New("user is not accepting messages")
	// ErrMessageNotFound is returned when a message id does not exist in
	// the given user's inbox.
	ErrMessageNotFound = errors.New("message not found")
)

// UserRepository defines the interface for the user directory: the store of
// registered users and their owned message collections.
type UserRepository interface {
	Create(user *models.User) error
	GetByUsername(username string) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	GetByID(id string) (*models.User, error)

	// UsernameExists reports whether the username is present in the
	// directory without loading the full record.
	UsernameExists(username string) (bool, error)

	// Update persists changes to an existing user record.
	Update(user *models.User) error

	// SetAcceptingMessages flips the accept-flag for the given user.
	SetAcceptingMessages(userID string, accepting bool) error

	// AppendMessage resolves the recipient by username, checks the
	// accept-flag and appends a new message in a single atomic step: no
	// message may be appended once a toggle to false has taken effect.
	// Returns ErrUserNotFound or ErrNotAccepting (wrapped) on rejection.
	AppendMessage(username, content string) (*models.Message, error)

	// GetMessages returns the user's messages, newest first.
	GetMessages(userID string) ([]models.Message, error)

	// DeleteMessage removes a single message from the user's inbox.
	DeleteMessage(userID, messageID string) error
}
