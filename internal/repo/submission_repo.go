package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/Mts-Potter/literary-forge/internal/domain"
)

// GetSubmissionByToken returns the submission the user made with token,
// regardless of age, or ErrNotFound.
func GetSubmissionByToken(ctx context.Context, db *gorm.DB, userID, token string) (*domain.Submission, error) {
	var s domain.Submission
	if err := db.WithContext(ctx).
		Where("user_id = ? AND idempotency_token = ?", userID, token).
		First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// FindRecentSubmission returns the newest submission by userID with the
// given content fingerprint created at or after since, or ErrNotFound.
func FindRecentSubmission(ctx context.Context, db *gorm.DB, userID, fingerprint string, since time.Time) (*domain.Submission, error) {
	var s domain.Submission
	if err := db.WithContext(ctx).
		Where("fingerprint = ? AND user_id = ? AND created_at >= ?", fingerprint, userID, since).
		Order("created_at DESC").
		First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// CreateSubmission appends a submission record. A reused (user, token)
// pair returns ErrDuplicate.
func CreateSubmission(ctx context.Context, db *gorm.DB, s *domain.Submission) error {
	if err := db.WithContext(ctx).Create(s).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// CountSubmissions returns the number of submissions by a user.
func CountSubmissions(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	var n int64
	err := db.WithContext(ctx).Model(&domain.Submission{}).Where("user_id = ?", userID).Count(&n).Error
	return n, err
}

// ListSubmissionsPage returns a page of the user's submissions, newest first.
func ListSubmissionsPage(ctx context.Context, db *gorm.DB, userID string, offset, limit int) ([]domain.Submission, error) {
	var out []domain.Submission
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").Order("id DESC").
		Offset(offset).Limit(limit).
		Find(&out).Error
	return out, err
}
