package models

import "time"

// Text is an item of the annotation catalog. Rows are immutable once imported.
type Text struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Text      string    `gorm:"type:text;not null" json:"text"`
	File      int       `gorm:"index;not null;default:0" json:"file"`
	CreatedAt time.Time `json:"-"`
}
