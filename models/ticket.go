package models

import "time"

// TicketUserTextIndex is the unique index that allows one ticket per user and text.
const TicketUserTextIndex = "idx_ticket_user_text"

// Ticket is an emotion label a user submitted for a text. Emotion is stored 1-based.
type Ticket struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"index:idx_ticket_user_text,unique;not null" json:"user"`
	TextID    uint      `gorm:"index:idx_ticket_user_text,unique;index;not null" json:"text"`
	Emotion   int       `gorm:"not null" json:"emotion"`
	CreatedAt time.Time `json:"created_at"`
}
