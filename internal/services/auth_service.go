package services

import (
	"errors"
	"fmt"
	"log"
	"math/rand"
	"time"

	"whisperbox/internal/models"
	"whisperbox/internal/repositories"
	"whisperbox/pkg/rabbitmq"

	"github.com/dgrijalva/jwt-go"
	"golang.org/x/crypto/bcrypt"
)

const verifyCodeTTL = time.Hour

// AuthService handles registration, verification and login. Credential
// mechanics stop here: delivering the verification email is the notification
// worker's job, triggered by the published event.
type AuthService struct {
	userRepo   repositories.UserRepository
	mqClient   *rabbitmq.Client // nil when no broker is configured
	jwtSecret  []byte
	tokenDurat time.Duration // Duration for which JWT is valid
}

// NewAuthService creates a new AuthService.
func NewAuthService(userRepo repositories.UserRepository, mqClient *rabbitmq.Client, jwtSecret string) *AuthService {
	return &AuthService{
		userRepo:   userRepo,
		mqClient:   mqClient,
		jwtSecret:  []byte(jwtSecret),
		tokenDurat: 24 * time.Hour, // Token valid for 24 hours
	}
}

// RegisterUser registers a new unverified user, hashes their password,
// stores a one-time verification code and publishes a user.registered event
// for the external mailer.
func (s *AuthService) RegisterUser(user *models.User) error {
	if !ValidUsername(user.Username) {
		return ErrInvalidUsername
	}

	// Check if username or email already exists
	if existingUser, err := s.userRepo.GetByUsername(user.Username); err == nil && existingUser != nil {
		return fmt.Errorf("username %q: %w", user.Username, ErrUsernameTaken)
	}
	if existingUser, err := s.userRepo.GetByEmail(user.Email); err == nil && existingUser != nil {
		return fmt.Errorf("email %q: %w", user.Email, ErrEmailTaken)
	}

	// Hash the password
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(user.Password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	user.Password = string(hashedPassword) // Store the hashed password

	user.IsVerified = false
	user.IsAcceptingMessages = true
	user.VerifyCode = fmt.Sprintf("%06d", rand.Intn(900000)+100000)
	user.VerifyCodeExpiry = time.Now().Add(verifyCodeTTL)

	if err := s.userRepo.Create(user); err != nil {
		return fmt.Errorf("failed to register user: %w", err)
	}

	if s.mqClient != nil {
		event := map[string]interface{}{
			"userID":     user.ID,
			"username":   user.Username,
			"email":      user.Email,
			"verifyCode": user.VerifyCode,
		}
		if err := s.mqClient.PublishEvent("user.registered", event); err != nil {
			log.Printf("Warning: Failed to publish user.registered event for %s: %v", user.Username, err)
		}
	} else {
		log.Println("RabbitMQ client is not initialized. Skipping registration event publication.")
	}

	return nil
}

// VerifyUser checks the one-time code and marks the account verified.
func (s *AuthService) VerifyUser(username, code string) error {
	user, err := s.userRepo.GetByUsername(username)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return fmt.Errorf("%s: %w", username, ErrAccountNotFound)
		}
		return fmt.Errorf("failed to load user for verification: %w", err)
	}

	if user.IsVerified {
		return nil // Already verified, nothing to do
	}
	if time.Now().After(user.VerifyCodeExpiry) {
		return ErrCodeExpired
	}
	if user.VerifyCode != code {
		return ErrInvalidCode
	}

	user.IsVerified = true
	if err := s.userRepo.Update(user); err != nil {
		return fmt.Errorf("failed to mark user verified: %w", err)
	}
	return nil
}

// LoginUser authenticates a verified user and returns a JWT token.
func (s *AuthService) LoginUser(username, password string) (string, error) {
	user, err := s.userRepo.GetByUsername(username)
	if err != nil {
		// It's good practice not to reveal if the username exists or not for security
		return "", fmt.Errorf("invalid credentials")
	}

	// Compare the provided password with the hashed password
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return "", fmt.Errorf("invalid credentials")
	}

	if !user.IsVerified {
		return "", ErrNotVerified
	}

	// Generate JWT token
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":  user.ID,
		"username": user.Username,
		"exp":      time.Now().Add(s.tokenDurat).Unix(), // Token expiration time
		"iat":      time.Now().Unix(),                   // Issued at time
	})

	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	return tokenString, nil
}

// ValidateToken parses and validates a JWT token, returning the claims if valid.
func (s *AuthService) ValidateToken(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		// Validate the alg is what we expect:
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})

	if err != nil {
		log.Printf("Token validation error: %v", err)
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, fmt.Errorf("invalid token")
}
