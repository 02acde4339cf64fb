package repo

import (
	"context"
	"testing"
	"time"

	"github.com/Mts-Potter/literary-forge/internal/domain"
)

func TestSettings_DefaultAndUpsert(t *testing.T) {
	db := newTestDB(t, &domain.UserSettings{})
	ctx := context.Background()

	s, err := GetSettings(ctx, db, "u1")
	if err != nil || s.Mode != domain.ModeSpaced {
		t.Fatalf("default settings = %+v, %v", s, err)
	}
	if _, err := UpsertSettings(ctx, db, "u1", domain.ModeLinear); err != nil {
		t.Fatalf("UpsertSettings: %v", err)
	}
	if _, err := UpsertSettings(ctx, db, "u1", domain.ModeLinear); err != nil {
		t.Fatalf("UpsertSettings twice: %v", err)
	}
	s, err = GetSettings(ctx, db, "u1")
	if err != nil || s.Mode != domain.ModeLinear {
		t.Fatalf("stored settings = %+v, %v", s, err)
	}
}

func TestQuota_IncrementCountAndPurge(t *testing.T) {
	db := newTestDB(t, &domain.QuotaUsage{})
	ctx := context.Background()
	now := time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC)
	today := QuotaDay(now)
	yesterday := QuotaDay(now.Add(-24 * time.Hour))

	if today != "2025-06-02" {
		t.Fatalf("QuotaDay = %q", today)
	}
	for i := 0; i < 3; i++ {
		if err := IncrementQuota(ctx, db, "user:u1", today, now); err != nil {
			t.Fatalf("IncrementQuota: %v", err)
		}
	}
	if err := IncrementQuota(ctx, db, "user:u1", yesterday, now); err != nil {
		t.Fatalf("IncrementQuota yesterday: %v", err)
	}

	n, err := QuotaCount(ctx, db, "user:u1", today)
	if err != nil || n != 3 {
		t.Fatalf("QuotaCount = %d, %v", n, err)
	}
	if n, err := QuotaCount(ctx, db, "ip:1.2.3.4", today); err != nil || n != 0 {
		t.Fatalf("QuotaCount unknown key = %d, %v", n, err)
	}

	removed, err := PurgeQuotaBefore(ctx, db, today)
	if err != nil || removed != 1 {
		t.Fatalf("PurgeQuotaBefore = %d, %v", removed, err)
	}
}
