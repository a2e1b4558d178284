package models

import "time"

// Message is a single anonymous message delivered to a user's inbox.
// Messages are immutable after creation and are only ever removed by an
// explicit action of the owning user.
type Message struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID    string    `json:"-" gorm:"index;type:varchar(36)"`
	Content   string    `json:"content" gorm:"type:varchar(300)" validate:"required,min=10,max=300"`
	CreatedAt time.Time `json:"createdAt"`
}
