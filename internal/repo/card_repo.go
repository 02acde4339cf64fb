// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for review cards.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations. Writes
// that participate in a submission commit take the transaction handle.
//
// Error semantics:
//   - Missing rows return ErrNotFound.
//   - InsertCard returns ErrConflict when the (user, item) row already exists.
//   - UpdateCardCAS returns ErrConflict when the expected version is stale.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/Mts-Potter/literary-forge/internal/domain"
	"github.com/Mts-Potter/literary-forge/internal/srs"
)

// DueQuery narrows GetDueCards.
type DueQuery struct {
	UserID     string
	Now        time.Time
	Limit      int
	ExcludeIDs []string
	Collection string // empty means all collections
}

// GetCard fetches the card for (userID, itemID) or ErrNotFound.
func GetCard(ctx context.Context, db *gorm.DB, userID, itemID string) (*domain.Card, error) {
	var c domain.Card
	if err := db.WithContext(ctx).
		Where("user_id = ? AND item_id = ?", userID, itemID).
		First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// GetDueCards returns the user's cards with due <= now, earliest first,
// skipping excluded items and items outside the collection filter.
func GetDueCards(ctx context.Context, db *gorm.DB, q DueQuery) ([]domain.Card, error) {
	tx := db.WithContext(ctx).
		Model(&domain.Card{}).
		Select("cards.*").
		Where("cards.user_id = ? AND cards.due <= ?", q.UserID, q.Now)
	if len(q.ExcludeIDs) > 0 {
		tx = tx.Where("cards.item_id NOT IN ?", q.ExcludeIDs)
	}
	if q.Collection != "" {
		tx = tx.Joins("JOIN items ON items.id = cards.item_id").
			Where("items.collection_id = ?", q.Collection)
	}
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}

	var out []domain.Card
	err := tx.Order("cards.due ASC").Order("cards.item_id ASC").Find(&out).Error
	return out, err
}

// GetAttemptedItemIDs returns the ids of all items the user has a card for.
func GetAttemptedItemIDs(ctx context.Context, db *gorm.DB, userID string) ([]string, error) {
	var ids []string
	err := db.WithContext(ctx).
		Model(&domain.Card{}).
		Where("user_id = ?", userID).
		Order("item_id ASC").
		Pluck("item_id", &ids).Error
	return ids, err
}

// InsertCard creates the first card row for a (user, item) pair.
func InsertCard(ctx context.Context, db *gorm.DB, c *domain.Card) error {
	if err := db.WithContext(ctx).Create(c).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return err
	}
	return nil
}

// UpdateCardCAS overwrites the scheduling columns of c only if the stored
// version still equals expected, then bumps the version.
func UpdateCardCAS(ctx context.Context, db *gorm.DB, c *domain.Card, expected int64) error {
	now := time.Now().UTC()
	res := db.WithContext(ctx).
		Model(&domain.Card{}).
		Where("user_id = ? AND item_id = ? AND version = ?", c.UserID, c.ItemID, expected).
		Updates(map[string]any{
			"state":              c.State,
			"difficulty":         c.Difficulty,
			"stability":          c.Stability,
			"due":                c.Due,
			"elapsed_days":       c.ElapsedDays,
			"scheduled_days":     c.ScheduledDays,
			"reps":               c.Reps,
			"lapses":             c.Lapses,
			"last_review":        c.LastReview,
			"last_submission_id": c.LastSubmissionID,
			"version":            expected + 1,
			"updated_at":         now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrConflict
	}
	c.Version = expected + 1
	c.UpdatedAt = now
	return nil
}

// CountCards returns the number of cards the user owns.
func CountCards(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	var n int64
	err := db.WithContext(ctx).Model(&domain.Card{}).Where("user_id = ?", userID).Count(&n).Error
	return n, err
}

// ListCardsPage returns a page of the user's cards ordered by due date.
func ListCardsPage(ctx context.Context, db *gorm.DB, userID string, offset, limit int) ([]domain.Card, error) {
	var out []domain.Card
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("due ASC").Order("item_id ASC").
		Offset(offset).Limit(limit).
		Find(&out).Error
	return out, err
}

// CountDueCards returns how many of the user's cards are due at now.
func CountDueCards(ctx context.Context, db *gorm.DB, userID string, now time.Time) (int64, error) {
	var n int64
	err := db.WithContext(ctx).Model(&domain.Card{}).
		Where("user_id = ? AND due <= ?", userID, now).
		Count(&n).Error
	return n, err
}

// CardStateCounts returns the number of cards per state for a user.
func CardStateCounts(ctx context.Context, db *gorm.DB, userID string) (map[srs.State]int64, error) {
	var rows []struct {
		State srs.State
		N     int64
	}
	if err := db.WithContext(ctx).Model(&domain.Card{}).
		Select("state, COUNT(*) AS n").
		Where("user_id = ?", userID).
		Group("state").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[srs.State]int64, len(rows))
	for _, r := range rows {
		out[r.State] = r.N
	}
	return out, nil
}
