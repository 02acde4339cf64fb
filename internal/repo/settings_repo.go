package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Mts-Potter/literary-forge/internal/domain"
)

// GetSettings returns the user's settings, or defaults when none are stored.
func GetSettings(ctx context.Context, db *gorm.DB, userID string) (*domain.UserSettings, error) {
	var s domain.UserSettings
	err := db.WithContext(ctx).Where("user_id = ?", userID).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &domain.UserSettings{UserID: userID, Mode: domain.ModeSpaced}, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// UpsertSettings stores the user's study mode.
func UpsertSettings(ctx context.Context, db *gorm.DB, userID, mode string) (*domain.UserSettings, error) {
	s := &domain.UserSettings{UserID: userID, Mode: mode, UpdatedAt: time.Now().UTC()}
	err := db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"mode", "updated_at"}),
	}).Create(s).Error
	if err != nil {
		return nil, err
	}
	return s, nil
}
