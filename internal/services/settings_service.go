package services

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/Mts-Potter/literary-forge/internal/domain"
	"github.com/Mts-Potter/literary-forge/internal/repo"
)

// SettingsService reads and updates per-user study preferences.
type SettingsService struct {
	DB *gorm.DB
}

// Get returns the user's settings, defaulting to spaced mode.
func (s *SettingsService) Get(ctx context.Context, userID string) (*domain.UserSettings, error) {
	st, err := repo.GetSettings(ctx, s.DB, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: load settings: %v", ErrPersistence, err)
	}
	return st, nil
}

// SetMode switches the user's study mode. Unknown modes return ErrValidation.
func (s *SettingsService) SetMode(ctx context.Context, userID, mode string) (*domain.UserSettings, error) {
	mode = strings.ToLower(strings.TrimSpace(mode))
	if mode != domain.ModeSpaced && mode != domain.ModeLinear {
		return nil, fmt.Errorf("%w: mode must be %q or %q", ErrValidation, domain.ModeSpaced, domain.ModeLinear)
	}
	st, err := repo.UpsertSettings(ctx, s.DB, userID, mode)
	if err != nil {
		return nil, fmt.Errorf("%w: save settings: %v", ErrPersistence, err)
	}
	return st, nil
}
