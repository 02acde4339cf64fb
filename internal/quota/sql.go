package quota

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/Mts-Potter/literary-forge/internal/repo"
)

// SQLStore keeps daily counters in the quota_usage table.
type SQLStore struct {
	DB    *gorm.DB
	Limit int
	Now   func() time.Time
}

// NewSQLStore returns a SQLStore allowing limit submissions per key per day.
func NewSQLStore(db *gorm.DB, limit int) *SQLStore {
	return &SQLStore{DB: db, Limit: limit, Now: time.Now}
}

func (s *SQLStore) Check(ctx context.Context, key string) (bool, error) {
	n, err := repo.QuotaCount(ctx, s.DB, key, repo.QuotaDay(s.Now()))
	if err != nil {
		return false, fmt.Errorf("quota check: %w", err)
	}
	return n < s.Limit, nil
}

func (s *SQLStore) Consume(ctx context.Context, key string) error {
	now := s.Now()
	if err := repo.IncrementQuota(ctx, s.DB, key, repo.QuotaDay(now), now); err != nil {
		return fmt.Errorf("quota consume: %w", err)
	}
	return nil
}

// Purge removes usage rows older than the current day.
func (s *SQLStore) Purge(ctx context.Context) (int64, error) {
	return repo.PurgeQuotaBefore(ctx, s.DB, repo.QuotaDay(s.Now()))
}
