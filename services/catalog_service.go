package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"gorm.io/gorm"

	"github.com/cppla/emoticket/models"
	"github.com/cppla/emoticket/utils"
)

const statsCachePrefix = "cache:stats:"

// ErrEmptyImport is returned when an import batch has no usable texts.
var ErrEmptyImport = errors.New("no texts to import")

// TextInput is one item of an import batch.
type TextInput struct {
	Text string `json:"text"`
	File int    `json:"file"`
}

// StreakView is the caller's current streak.
type StreakView struct {
	Active      bool       `json:"active"`
	Count       int        `json:"count"`
	LastUpdated *time.Time `json:"last_updated"`
}

// Stats summarizes annotation progress for one user.
type Stats struct {
	TextCount   int64            `json:"text_count"`
	TicketCount int64            `json:"ticket_count"`
	Annotated   int64            `json:"annotated"`
	Remaining   int64            `json:"remaining"`
	Emotions    map[string]int64 `json:"emotions"`
}

type globalCounts struct {
	TextCount   int64 `json:"text_count"`
	TicketCount int64 `json:"ticket_count"`
}

// CatalogService manages the text catalog and read-only progress views.
type CatalogService struct {
	db       *gorm.DB
	cacheTTL time.Duration
}

// NewCatalogService creates a CatalogService.
func NewCatalogService(db *gorm.DB, cacheTTL time.Duration) *CatalogService {
	return &CatalogService{db: db, cacheTTL: cacheTTL}
}

// Import stores sanitized texts and returns how many were created. Blank
// items are skipped.
func (c *CatalogService) Import(ctx context.Context, items []TextInput) (int, error) {
	texts := make([]models.Text, 0, len(items))
	for _, it := range items {
		clean := utils.SanitizeText(it.Text)
		if clean == "" {
			continue
		}
		texts = append(texts, models.Text{Text: clean, File: it.File})
	}
	if len(texts) == 0 {
		return 0, ErrEmptyImport
	}

	if err := c.db.WithContext(ctx).CreateInBatches(&texts, 200).Error; err != nil {
		return 0, fmt.Errorf("import texts: %w", err)
	}
	utils.InvalidateByPrefix(statsCachePrefix)
	return len(texts), nil
}

// Streak returns the user's active streak, or an inactive zero view.
func (c *CatalogService) Streak(ctx context.Context, userID uint) (StreakView, error) {
	var streak models.ActivityStreak
	err := c.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, models.StreakActive).
		Order("id DESC").
		First(&streak).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return StreakView{}, nil
	}
	if err != nil {
		return StreakView{}, fmt.Errorf("load streak: %w", err)
	}
	last := streak.LastUpdated
	return StreakView{Active: true, Count: streak.Count, LastUpdated: &last}, nil
}

// Stats returns catalog totals and the user's progress through the catalog.
func (c *CatalogService) Stats(ctx context.Context, userID uint) (Stats, error) {
	db := c.db.WithContext(ctx)

	global, err := c.globalCounts(db)
	if err != nil {
		return Stats{}, err
	}

	var annotated int64
	if err := db.Model(&models.Ticket{}).Where("user_id = ?", userID).Count(&annotated).Error; err != nil {
		return Stats{}, fmt.Errorf("count user tickets: %w", err)
	}

	// same filter as TicketService.Assign
	marked := db.Model(&models.Ticket{}).Select("text_id").Where("user_id = ?", userID)
	var remaining int64
	if err := db.Model(&models.Text{}).
		Where("id NOT IN (?)", marked).
		Where("text <> ''").
		Count(&remaining).Error; err != nil {
		return Stats{}, fmt.Errorf("count remaining texts: %w", err)
	}

	var rows []struct {
		Emotion int
		Total   int64
	}
	if err := db.Model(&models.Ticket{}).
		Select("emotion, COUNT(*) AS total").
		Where("user_id = ?", userID).
		Group("emotion").
		Scan(&rows).Error; err != nil {
		return Stats{}, fmt.Errorf("count emotions: %w", err)
	}
	emotions := make(map[string]int64, len(rows))
	for _, r := range rows {
		emotions[strconv.Itoa(r.Emotion)] = r.Total
	}

	return Stats{
		TextCount:   global.TextCount,
		TicketCount: global.TicketCount,
		Annotated:   annotated,
		Remaining:   remaining,
		Emotions:    emotions,
	}, nil
}

func (c *CatalogService) globalCounts(db *gorm.DB) (globalCounts, error) {
	key := statsCachePrefix + "global"
	var g globalCounts
	if utils.CacheGetJSON(key, &g) {
		return g, nil
	}
	if err := db.Model(&models.Text{}).Where("text <> ''").Count(&g.TextCount).Error; err != nil {
		return g, fmt.Errorf("count texts: %w", err)
	}
	if err := db.Model(&models.Ticket{}).Count(&g.TicketCount).Error; err != nil {
		return g, fmt.Errorf("count tickets: %w", err)
	}
	utils.CacheSetJSON(key, g, c.cacheTTL)
	return g, nil
}
