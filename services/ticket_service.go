package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cppla/emoticket/models"
	"github.com/cppla/emoticket/utils"
)

var (
	// ErrNoTextsLeft means the user has annotated every text in the catalog.
	ErrNoTextsLeft = errors.New("no texts left to annotate")
	// ErrSecretMismatch covers both a bad verification token and a payload user
	// that differs from the authenticated caller.
	ErrSecretMismatch = errors.New("secret invalid or request did not originate from the expected client")
	// ErrInvalidEmotion is returned for emotion indexes outside [0, MaxEmotion].
	ErrInvalidEmotion = errors.New("invalid emotion")
	// ErrUnknownText is returned when the submitted text id is not in the catalog.
	ErrUnknownText = errors.New("unknown text")
	// ErrDuplicateTicket is returned when the user already labelled the text.
	ErrDuplicateTicket = errors.New("text already annotated")
	// ErrSubmissionInProgress is returned while another submission of the same user holds the lock.
	ErrSubmissionInProgress = errors.New("submission in progress")
)

// MaxEmotion is the largest accepted emotion index; the stored value is one higher.
const MaxEmotion = math.MaxInt32 - 1

// Assignment is the payload handed to a user for annotation.
type Assignment struct {
	ID     uint   `json:"id"`
	Text   string `json:"text"`
	File   int    `json:"file"`
	User   uint   `json:"user"`
	Secret string `json:"secret"`
}

// Submission is a user's label for an assigned text. Emotion is 0-based.
type Submission struct {
	Text    uint
	Emotion int
	User    uint
	Secret  string
}

// TicketService hands out texts and records the labels users submit for them.
type TicketService struct {
	db      *gorm.DB
	secret  string
	lockTTL time.Duration
	now     func() time.Time
}

// NewTicketService creates a TicketService. secret is the process-wide ticket
// secret and must not change for the lifetime of the service.
func NewTicketService(db *gorm.DB, secret string, lockTTL time.Duration) *TicketService {
	return &TicketService{
		db:      db,
		secret:  secret,
		lockTTL: lockTTL,
		now:     time.Now,
	}
}

// WithClock overrides the time source used for streak days.
func (s *TicketService) WithClock(now func() time.Time) *TicketService {
	s.now = now
	return s
}

// Assign picks a random text the user has not annotated yet.
func (s *TicketService) Assign(ctx context.Context, userID uint) (*Assignment, error) {
	db := s.db.WithContext(ctx)
	marked := db.Model(&models.Ticket{}).Select("text_id").Where("user_id = ?", userID)

	var text models.Text
	err := db.Where("id NOT IN (?)", marked).
		Where("text <> ''").
		Order(randomOrder(db)).
		Take(&text).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNoTextsLeft
	}
	if err != nil {
		return nil, fmt.Errorf("select unmarked text: %w", err)
	}

	secret, err := utils.HashSecret(s.secret)
	if err != nil {
		return nil, fmt.Errorf("hash ticket secret: %w", err)
	}

	return &Assignment{
		ID:     text.ID,
		Text:   text.Text,
		File:   text.File,
		User:   userID,
		Secret: secret,
	}, nil
}

// Submit validates a submission from callerID and stores the ticket together
// with the streak update in one transaction.
func (s *TicketService) Submit(ctx context.Context, callerID uint, sub Submission) error {
	if callerID != sub.User || !utils.CheckSecret(sub.Secret, s.secret) {
		return ErrSecretMismatch
	}
	if sub.Emotion < 0 || sub.Emotion > MaxEmotion {
		return ErrInvalidEmotion
	}

	release, ok := utils.AcquireSubmitLock(callerID, s.lockTTL)
	if !ok {
		return ErrSubmissionInProgress
	}
	defer release()

	today := s.now()
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var known int64
		if err := tx.Model(&models.Text{}).Where("id = ?", sub.Text).Count(&known).Error; err != nil {
			return fmt.Errorf("lookup text: %w", err)
		}
		if known == 0 {
			return ErrUnknownText
		}

		var existing int64
		if err := tx.Model(&models.Ticket{}).
			Where("user_id = ? AND text_id = ?", callerID, sub.Text).
			Count(&existing).Error; err != nil {
			return fmt.Errorf("lookup ticket: %w", err)
		}
		if existing > 0 {
			return ErrDuplicateTicket
		}

		ticket := models.Ticket{UserID: callerID, TextID: sub.Text, Emotion: sub.Emotion + 1}
		if err := tx.Create(&ticket).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrDuplicateTicket
			}
			return fmt.Errorf("create ticket: %w", err)
		}

		return touchStreak(tx, callerID, today)
	})
}

// touchStreak extends the user's active streak or starts a new one.
func touchStreak(tx *gorm.DB, userID uint, today time.Time) error {
	var streak models.ActivityStreak
	err := lockForUpdate(tx).
		Where("user_id = ? AND status = ?", userID, models.StreakActive).
		Order("id DESC").
		First(&streak).Error

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		// first submission ever, or every earlier streak lapsed
	case err != nil:
		return fmt.Errorf("load streak: %w", err)
	default:
		before := streak.Count
		if streak.Advance(today) {
			if streak.Count == before {
				return nil
			}
			if err := tx.Model(&streak).Updates(map[string]interface{}{
				"count":        streak.Count,
				"last_updated": streak.LastUpdated,
			}).Error; err != nil {
				return fmt.Errorf("extend streak: %w", err)
			}
			return nil
		}
		if err := tx.Model(&streak).Update("status", models.StreakInactive).Error; err != nil {
			return fmt.Errorf("close streak: %w", err)
		}
	}

	if err := tx.Create(models.NewActivityStreak(userID, today)).Error; err != nil {
		return fmt.Errorf("create streak: %w", err)
	}
	return nil
}

// lockForUpdate adds SELECT ... FOR UPDATE where the dialect supports it.
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

func randomOrder(db *gorm.DB) string {
	if db.Dialector.Name() == "mysql" {
		return "RAND()"
	}
	return "RANDOM()"
}
