package models

import "time"

const (
	StreakInactive = 0
	StreakActive   = 1
)

// ActivityStreak counts the consecutive days a user submitted tickets.
// A lapsed streak keeps its row with Status set to StreakInactive.
type ActivityStreak struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      uint      `gorm:"index:idx_streak_user_status;not null" json:"user"`
	Status      int       `gorm:"index:idx_streak_user_status;not null;default:1" json:"status"`
	Count       int       `gorm:"not null;default:1" json:"count"`
	LastUpdated time.Time `gorm:"type:date;not null" json:"last_updated"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewActivityStreak starts an active streak of one day.
func NewActivityStreak(userID uint, day time.Time) *ActivityStreak {
	return &ActivityStreak{
		UserID:      userID,
		Status:      StreakActive,
		Count:       1,
		LastUpdated: StartOfDay(day),
	}
}

// Advance applies a submission made on day to the streak and reports whether
// the streak is still alive. Same-day submissions leave it untouched, a
// submission on the following day extends it, and anything later marks it
// inactive so the caller can start a new one.
func (s *ActivityStreak) Advance(day time.Time) bool {
	today := StartOfDay(day)
	last := StartOfDay(s.LastUpdated.In(today.Location()))

	switch {
	case !today.After(last):
		return true
	case isSameDay(last, today.AddDate(0, 0, -1)):
		s.Count++
		s.LastUpdated = today
		return true
	default:
		s.Status = StreakInactive
		return false
	}
}

// StartOfDay returns local midnight of t's calendar day.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func isSameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}
