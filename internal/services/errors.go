package services

import "errors"

// Errors surfaced to the HTTP layer. Submission failures are specific and
// user-actionable; directory failures stay generic with the cause logged.
var (
	ErrInvalidContent        = errors.New("message content must be between 10 and 300 characters")
	ErrRecipientNotFound     = errors.New("recipient not found")
	ErrRecipientNotAccepting = errors.New("recipient is not accepting messages")

	ErrUsernameTaken   = errors.New("username already taken")
	ErrEmailTaken      = errors.New("email already registered")
	ErrInvalidUsername = errors.New("username must be 3-20 characters using letters, numbers or underscores")
	ErrInvalidCode     = errors.New("incorrect verification code")
	ErrCodeExpired     = errors.New("verification code has expired")
	ErrAccountNotFound = errors.New("account not found")
	ErrNotVerified     = errors.New("account is not verified")
)
