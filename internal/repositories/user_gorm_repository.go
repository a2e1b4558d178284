package repositories

import (
	"errors"
	"fmt"
	"time"

	"whisperbox/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMUserRepository is a GORM implementation of UserRepository.
type GORMUserRepository struct {
	db *gorm.DB
}

// NewGORMUserRepository creates a new instance of GORMUserRepository.
func NewGORMUserRepository(db *gorm.DB) *GORMUserRepository {
	return &GORMUserRepository{
		db: db,
	}
}

// Create creates a new user in the database.
func (r *GORMUserRepository) Create(user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if err := r.db.Create(user).Error; err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetByUsername retrieves a user by their username from the database.
func (r *GORMUserRepository) GetByUsername(username string) (*models.User, error) {
	var user models.User
	if err := r.db.First(&user, "username = ?", username).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user with username %s: %w", username, ErrUserNotFound)
		}
		return nil, fmt.Errorf("failed to get user by username %s: %w", username, err)
	}
	return &user, nil
}

// GetByEmail retrieves a user by their email from the database.
func (r *GORMUserRepository) GetByEmail(email string) (*models.User, error) {
	var user models.User
	if err := r.db.First(&user, "email = ?", email).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user with email %s: %w", email, ErrUserNotFound)
		}
		return nil, fmt.Errorf("failed to get user by email %s: %w", email, err)
	}
	return &user, nil
}

// GetByID retrieves a user by their ID from the database.
func (r *GORMUserRepository) GetByID(id string) (*models.User, error) {
	var user models.User
	if err := r.db.First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user with ID %s: %w", id, ErrUserNotFound)
		}
		return nil, fmt.Errorf("failed to get user by ID %s: %w", id, err)
	}
	return &user, nil
}

// UsernameExists reports whether a user with the given username exists.
func (r *GORMUserRepository) UsernameExists(username string) (bool, error) {
	var count int64
	if err := r.db.Model(&models.User{}).Where("username = ?", username).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check username %s: %w", username, err)
	}
	return count > 0, nil
}

// Update persists changes to an existing user record.
func (r *GORMUserRepository) Update(user *models.User) error {
	if err := r.db.Save(user).Error; err != nil {
		return fmt.Errorf("failed to update user %s: %w", user.ID, err)
	}
	return nil
}

// SetAcceptingMessages flips the accept-flag for the given user. A column
// update is used so that a toggle to false is not dropped as a zero value.
func (r *GORMUserRepository) SetAcceptingMessages(userID string, accepting bool) error {
	res := r.db.Model(&models.User{}).Where("id = ?", userID).Update("is_accepting_messages", accepting)
	if res.Error != nil {
		return fmt.Errorf("failed to update accept-flag for user %s: %w", userID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("user with ID %s: %w", userID, ErrUserNotFound)
	}
	return nil
}

// AppendMessage resolves the recipient, re-checks the accept-flag and
// inserts the new message inside one transaction. The flag is read
// immediately before the insert with no intervening work, so a toggle to
// false that has committed can never be followed by a new append.
func (r *GORMUserRepository) AppendMessage(username, content string) (*models.Message, error) {
	var msg *models.Message
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, "username = ?", username).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("recipient %s: %w", username, ErrUserNotFound)
			}
			return fmt.Errorf("failed to resolve recipient %s: %w", username, err)
		}
		if !user.IsAcceptingMessages {
			return fmt.Errorf("recipient %s: %w", username, ErrNotAccepting)
		}
		msg = &models.Message{
			ID:        uuid.New().String(),
			UserID:    user.ID,
			Content:   content,
			CreatedAt: time.Now(),
		}
		if err := tx.Create(msg).Error; err != nil {
			return fmt.Errorf("failed to append message for %s: %w", username, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// GetMessages returns the user's messages, newest first.
func (r *GORMUserRepository) GetMessages(userID string) ([]models.Message, error) {
	var messages []models.Message
	if err := r.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&messages).Error; err != nil {
		return nil, fmt.Errorf("failed to load messages for user %s: %w", userID, err)
	}
	return messages, nil
}

// DeleteMessage removes a single message from the user's inbox.
func (r *GORMUserRepository) DeleteMessage(userID, messageID string) error {
	res := r.db.Where("id = ? AND user_id = ?", messageID, userID).Delete(&models.Message{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete message %s: %w", messageID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("message with ID %s: %w", messageID, ErrMessageNotFound)
	}
	return nil
}
