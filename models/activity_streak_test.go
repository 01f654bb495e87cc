package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func day(y int, m time.Month, d, hour int) time.Time {
	return time.Date(y, m, d, hour, 0, 0, 0, time.UTC)
}

func TestActivityStreakAdvance(t *testing.T) {
	tests := []struct {
		name       string
		last       time.Time
		count      int
		now        time.Time
		wantAlive  bool
		wantCount  int
		wantStatus int
		wantLast   time.Time
	}{
		{
			name:       "same day keeps count",
			last:       day(2026, 3, 10, 0),
			count:      4,
			now:        day(2026, 3, 10, 23),
			wantAlive:  true,
			wantCount:  4,
			wantStatus: StreakActive,
			wantLast:   day(2026, 3, 10, 0),
		},
		{
			name:       "next day extends",
			last:       day(2026, 3, 10, 0),
			count:      4,
			now:        day(2026, 3, 11, 1),
			wantAlive:  true,
			wantCount:  5,
			wantStatus: StreakActive,
			wantLast:   day(2026, 3, 11, 0),
		},
		{
			name:       "next day across year boundary",
			last:       day(2025, 12, 31, 0),
			count:      1,
			now:        day(2026, 1, 1, 8),
			wantAlive:  true,
			wantCount:  2,
			wantStatus: StreakActive,
			wantLast:   day(2026, 1, 1, 0),
		},
		{
			name:       "gap lapses",
			last:       day(2026, 3, 10, 0),
			count:      4,
			now:        day(2026, 3, 12, 9),
			wantAlive:  false,
			wantCount:  4,
			wantStatus: StreakInactive,
			wantLast:   day(2026, 3, 10, 0),
		},
		{
			name:       "clock behind last update is a no-op",
			last:       day(2026, 3, 10, 0),
			count:      2,
			now:        day(2026, 3, 9, 12),
			wantAlive:  true,
			wantCount:  2,
			wantStatus: StreakActive,
			wantLast:   day(2026, 3, 10, 0),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &ActivityStreak{UserID: 1, Status: StreakActive, Count: tt.count, LastUpdated: tt.last}
			alive := s.Advance(tt.now)
			assert.Equal(t, tt.wantAlive, alive)
			assert.Equal(t, tt.wantCount, s.Count)
			assert.Equal(t, tt.wantStatus, s.Status)
			assert.True(t, tt.wantLast.Equal(s.LastUpdated), "last updated = %v", s.LastUpdated)
		})
	}
}

func TestNewActivityStreak(t *testing.T) {
	s := NewActivityStreak(7, day(2026, 3, 10, 15))
	assert.Equal(t, uint(7), s.UserID)
	assert.Equal(t, StreakActive, s.Status)
	assert.Equal(t, 1, s.Count)
	assert.True(t, day(2026, 3, 10, 0).Equal(s.LastUpdated))
}
