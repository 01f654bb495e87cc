package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/emoticket/models"
)

func TestImportSanitizesAndSkipsBlank(t *testing.T) {
	db := setupTestDB(t)
	catalog := NewCatalogService(db, time.Minute)

	created, err := catalog.Import(context.Background(), []TextInput{
		{Text: "<p>I can't believe it</p>", File: 4},
		{Text: "   ", File: 4},
		{Text: "<img src=x onerror=alert(1)>", File: 4},
		{Text: "plain", File: 5},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, created)

	var texts []models.Text
	require.NoError(t, db.Order("id").Find(&texts).Error)
	require.Len(t, texts, 2)
	assert.Equal(t, "I can't believe it", texts[0].Text)
	assert.Equal(t, 4, texts[0].File)
	assert.Equal(t, "plain", texts[1].Text)

	_, err = catalog.Import(context.Background(), []TextInput{{Text: "<br>"}})
	assert.ErrorIs(t, err, ErrEmptyImport)
}

func TestStreakView(t *testing.T) {
	db := setupTestDB(t)
	catalog := NewCatalogService(db, time.Minute)

	view, err := catalog.Streak(context.Background(), 7)
	require.NoError(t, err)
	assert.False(t, view.Active)
	assert.Zero(t, view.Count)
	assert.Nil(t, view.LastUpdated)

	lapsed := models.NewActivityStreak(7, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	lapsed.Status = models.StreakInactive
	lapsed.Count = 9
	require.NoError(t, db.Create(lapsed).Error)
	active := models.NewActivityStreak(7, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC))
	active.Count = 3
	require.NoError(t, db.Create(active).Error)

	view, err = catalog.Streak(context.Background(), 7)
	require.NoError(t, err)
	assert.True(t, view.Active)
	assert.Equal(t, 3, view.Count)
	require.NotNil(t, view.LastUpdated)
}

func TestStats(t *testing.T) {
	db := setupTestDB(t)
	seedTexts(t, db, 1, 2, 3, 4)
	// never assigned, so never remaining
	require.NoError(t, db.Create(&models.Text{ID: 5, Text: ""}).Error)
	require.NoError(t, db.Create(&models.Ticket{UserID: 7, TextID: 1, Emotion: 3}).Error)
	require.NoError(t, db.Create(&models.Ticket{UserID: 7, TextID: 2, Emotion: 3}).Error)
	require.NoError(t, db.Create(&models.Ticket{UserID: 7, TextID: 3, Emotion: 1}).Error)
	require.NoError(t, db.Create(&models.Ticket{UserID: 8, TextID: 1, Emotion: 2}).Error)

	stats, err := NewCatalogService(db, time.Minute).Stats(context.Background(), 7)
	require.NoError(t, err)

	assert.Equal(t, int64(4), stats.TextCount)
	assert.Equal(t, int64(4), stats.TicketCount)
	assert.Equal(t, int64(3), stats.Annotated)
	assert.Equal(t, int64(1), stats.Remaining)
	assert.Equal(t, map[string]int64{"3": 2, "1": 1}, stats.Emotions)
}
