package model

import (
	"time"

	"gorm.io/datatypes"
)

type BookEventType string

const (
	BookCreated BookEventType = "created"
	BookUpdated BookEventType = "updated"
	BookDeleted BookEventType = "deleted"
)

// BookEvent records a mutation of the book collection. Events travel through
// the message queue and end up in the audit table. Changes holds the patched
// columns of an update.
type BookEvent struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	BookID     uint           `gorm:"not null;index" json:"book_id"`
	Type       BookEventType  `gorm:"size:16;not null" json:"type"`
	Actor      string         `gorm:"size:50;not null" json:"actor"`
	Changes    datatypes.JSON `json:"changes,omitempty"`
	OccurredAt time.Time      `gorm:"not null;index" json:"occurred_at"`
}
