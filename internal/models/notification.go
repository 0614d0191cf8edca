package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Notification is the persisted form of a drive event, written by the
// database notification sink.
type Notification struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	RecipientID uuid.UUID `json:"recipientId" gorm:"type:uuid;index;not null"`
	Type        string    `json:"type" gorm:"type:varchar(32);not null"`
	Title       string    `json:"title" gorm:"not null"`
	Message     string    `json:"message" gorm:"type:text;not null"`
	Link        string    `json:"link,omitempty"`
	Metadata    string    `json:"metadata" gorm:"type:text"` // JSON object
	Read        bool      `json:"read" gorm:"not null"`
	CreatedAt   time.Time `json:"createdAt" gorm:"autoCreateTime"`
}

func (n *Notification) BeforeCreate(*gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}
