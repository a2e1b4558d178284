package models

import (
	"time"

	"gorm.io/gorm"
)

// User represents a registered owner of a shareable anonymous inbox.
type User struct {
	ID       string `json:"id" gorm:"primaryKey;type:varchar(36)" validate:"omitempty,uuid"`
	Username string `json:"username" gorm:"uniqueIndex;type:varchar(20)" validate:"required,min=3,max=20"`
	Email    string `json:"email" gorm:"uniqueIndex;type:varchar(255)" validate:"required,email"`
	Password string `gorm:"type:varchar(255)" validate:"required,min=6"` // No json tag for security

	// Verification state. The code itself is delivered by an external
	// mailer; this service only stores and checks it.
	IsVerified       bool      `json:"isVerified" gorm:"default:false"`
	VerifyCode       string    `json:"-" gorm:"type:varchar(6)"`
	VerifyCodeExpiry time.Time `json:"-"`

	// IsAcceptingMessages gates new submissions. It must be re-read at the
	// moment of each submission, never cached from an earlier lookup.
	IsAcceptingMessages bool `json:"isAcceptingMessages" gorm:"default:true"`

	// Messages are owned by the user; deleting the user deletes them.
	Messages []Message `json:"-" gorm:"constraint:OnDelete:CASCADE"`

	gorm.Model // Embed gorm.Model for CreatedAt, UpdatedAt, DeletedAt
}
