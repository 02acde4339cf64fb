package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Mts-Potter/literary-forge/internal/domain"
)

// QuotaDay formats t as the UTC day bucket used by quota_usage.
func QuotaDay(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// QuotaCount returns the units consumed by key on day (0 if none).
func QuotaCount(ctx context.Context, db *gorm.DB, key, day string) (int, error) {
	var u domain.QuotaUsage
	err := db.WithContext(ctx).Where("key = ? AND day = ?", key, day).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return u.Count, nil
}

// IncrementQuota adds one unit for key on day, creating the row if needed.
func IncrementQuota(ctx context.Context, db *gorm.DB, key, day string, now time.Time) error {
	u := &domain.QuotaUsage{Key: key, Day: day, Count: 1, Seen: now.UTC()}
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "key"}, {Name: "day"}},
		DoUpdates: clause.Assignments(map[string]any{
			"count": gorm.Expr("quota_usage.count + 1"),
			"seen":  now.UTC(),
		}),
	}).Create(u).Error
}

// PurgeQuotaBefore deletes usage rows for days strictly before day and
// returns the number of rows removed.
func PurgeQuotaBefore(ctx context.Context, db *gorm.DB, day string) (int64, error) {
	res := db.WithContext(ctx).Where("day < ?", day).Delete(&domain.QuotaUsage{})
	return res.RowsAffected, res.Error
}
