package repositories

import (
	"fmt"
	"sync"
	"time"

	"whisperbox/internal/models"

	"github.com/google/uuid"
)

// MemoryUserRepository is an in-memory implementation of UserRepository.
// It backs the no-database mode and the test suite. All operations hold the
// mutex for their full duration, so the accept-flag check and the append in
// AppendMessage are a single atomic step.
type MemoryUserRepository struct {
	users    map[string]*models.User     // keyed by user ID
	messages map[string][]models.Message // keyed by user ID, newest first
	byName   map[string]string           // username -> user ID
	mu       sync.RWMutex
}

// NewMemoryUserRepository creates a new instance of MemoryUserRepository.
func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{
		users:    make(map[string]*models.User),
		messages: make(map[string][]models.Message),
		byName:   make(map[string]string),
	}
}

// Create adds a new user.
func (r *MemoryUserRepository) Create(user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if _, taken := r.byName[user.Username]; taken {
		return fmt.Errorf("username %s already exists", user.Username)
	}
	u := *user
	r.users[u.ID] = &u
	r.byName[u.Username] = u.ID
	return nil
}

// GetByUsername returns a user by their username.
func (r *MemoryUserRepository) GetByUsername(username string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byName[username]
	if !ok {
		return nil, fmt.Errorf("user with username %s: %w", username, ErrUserNotFound)
	}
	u := *r.users[id]
	return &u, nil
}

// GetByEmail returns a user by their email.
func (r *MemoryUserRepository) GetByEmail(email string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, user := range r.users {
		if user.Email == email {
			u := *user
			return &u, nil
		}
	}
	return nil, fmt.Errorf("user with email %s: %w", email, ErrUserNotFound)
}

// GetByID returns a user by their ID.
func (r *MemoryUserRepository) GetByID(id string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[id]
	if !ok {
		return nil, fmt.Errorf("user with ID %s: %w", id, ErrUserNotFound)
	}
	u := *user
	return &u, nil
}

// UsernameExists reports whether the username is present.
func (r *MemoryUserRepository) UsernameExists(username string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.byName[username]
	return ok, nil
}

// Update replaces an existing user record.
func (r *MemoryUserRepository) Update(user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	old, ok := r.users[user.ID]
	if !ok {
		return fmt.Errorf("user with ID %s: %w", user.ID, ErrUserNotFound)
	}
	if old.Username != user.Username {
		delete(r.byName, old.Username)
		r.byName[user.Username] = user.ID
	}
	u := *user
	r.users[u.ID] = &u
	return nil
}

// SetAcceptingMessages flips the accept-flag for the given user.
func (r *MemoryUserRepository) SetAcceptingMessages(userID string, accepting bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[userID]
	if !ok {
		return fmt.Errorf("user with ID %s: %w", userID, ErrUserNotFound)
	}
	user.IsAcceptingMessages = accepting
	return nil
}

// AppendMessage checks the accept-flag and prepends the new message under a
// single lock acquisition.
func (r *MemoryUserRepository) AppendMessage(username, content string) (*models.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.byName[username]
	if !ok {
		return nil, fmt.Errorf("recipient %s: %w", username, ErrUserNotFound)
	}
	user := r.users[id]
	if !user.IsAcceptingMessages {
		return nil, fmt.Errorf("recipient %s: %w", username, ErrNotAccepting)
	}
	msg := models.Message{
		ID:        uuid.New().String(),
		UserID:    user.ID,
		Content:   content,
		CreatedAt: time.Now(),
	}
	r.messages[user.ID] = append([]models.Message{msg}, r.messages[user.ID]...)
	return &msg, nil
}

// GetMessages returns the user's messages, newest first.
func (r *MemoryUserRepository) GetMessages(userID string) ([]models.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.users[userID]; !ok {
		return nil, fmt.Errorf("user with ID %s: %w", userID, ErrUserNotFound)
	}
	out := make([]models.Message, len(r.messages[userID]))
	copy(out, r.messages[userID])
	return out, nil
}

// DeleteMessage removes a single message from the user's inbox.
func (r *MemoryUserRepository) DeleteMessage(userID, messageID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	inbox := r.messages[userID]
	for i, msg := range inbox {
		if msg.ID == messageID {
			r.messages[userID] = append(inbox[:i:i], inbox[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("message with ID %s: %w", messageID, ErrMessageNotFound)
}
