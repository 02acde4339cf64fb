package quota

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	sqlite "github.com/glebarez/sqlite"
	goredis "github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Mts-Potter/literary-forge/internal/domain"
)

func newSQLStore(t *testing.T, limit int, now time.Time) *SQLStore {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&domain.QuotaUsage{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	s := NewSQLStore(db, limit)
	s.Now = func() time.Time { return now }
	return s
}

func newRedisTestStore(t *testing.T, limit int, now time.Time) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	s := newRedisStore(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}), limit)
	s.now = func() time.Time { return now }
	t.Cleanup(func() { _ = s.Close() })
	return s, mr
}

// exerciseLimit consumes up to the limit and checks the boundary.
func exerciseLimit(t *testing.T, svc Service, limit int) {
	t.Helper()
	ctx := context.Background()
	key := UserKey("u1")
	for i := 0; i < limit; i++ {
		ok, err := svc.Check(ctx, key)
		if err != nil || !ok {
			t.Fatalf("check %d: ok=%v err=%v", i, ok, err)
		}
		if err := svc.Consume(ctx, key); err != nil {
			t.Fatalf("consume %d: %v", i, err)
		}
	}
	ok, err := svc.Check(ctx, key)
	if err != nil || ok {
		t.Fatalf("expected limit reached, ok=%v err=%v", ok, err)
	}
	if ok, _ := svc.Check(ctx, IPKey("10.0.0.1")); !ok {
		t.Fatal("other keys must be unaffected")
	}
}

var now = time.Date(2025, 6, 1, 23, 30, 0, 0, time.UTC)

func TestSQLStore_Limit(t *testing.T) {
	exerciseLimit(t, newSQLStore(t, 3, now), 3)
}

func TestSQLStore_CheckDoesNotConsume(t *testing.T) {
	s := newSQLStore(t, 1, now)
	for i := 0; i < 5; i++ {
		if ok, err := s.Check(context.Background(), "user:u1"); err != nil || !ok {
			t.Fatalf("check %d: ok=%v err=%v", i, ok, err)
		}
	}
}

func TestSQLStore_RollsOverAtUTCMidnight(t *testing.T) {
	s := newSQLStore(t, 1, now)
	ctx := context.Background()
	if err := s.Consume(ctx, "user:u1"); err != nil {
		t.Fatalf("consume: %v", err)
	}
	if ok, _ := s.Check(ctx, "user:u1"); ok {
		t.Fatal("expected limit reached today")
	}
	s.Now = func() time.Time { return now.Add(time.Hour) }
	if ok, _ := s.Check(ctx, "user:u1"); !ok {
		t.Fatal("expected fresh allowance on the next UTC day")
	}
	n, err := s.Purge(ctx)
	if err != nil || n != 1 {
		t.Fatalf("Purge = %d, %v", n, err)
	}
}

func TestRedisStore_Limit(t *testing.T) {
	s, _ := newRedisTestStore(t, 2, now)
	exerciseLimit(t, s, 2)
}

func TestRedisStore_SetsExpiry(t *testing.T) {
	s, mr := newRedisTestStore(t, 5, now)
	if err := s.Consume(context.Background(), "user:u1"); err != nil {
		t.Fatalf("consume: %v", err)
	}
	key := "quota:user:u1:2025-06-01"
	if got, err := mr.Get(key); err != nil || got != "1" {
		t.Fatalf("counter = %q, %v", got, err)
	}
	if ttl := mr.TTL(key); ttl != keyTTL {
		t.Fatalf("ttl = %v, want %v", ttl, keyTTL)
	}
}

func TestRedisStore_Unreachable(t *testing.T) {
	s, mr := newRedisTestStore(t, 5, now)
	mr.Close()
	if _, err := s.Check(context.Background(), "user:u1"); err == nil {
		t.Fatal("expected error when redis is down")
	}
}

func TestUnlimited(t *testing.T) {
	var svc Service = Unlimited{}
	for i := 0; i < 100; i++ {
		if err := svc.Consume(context.Background(), "k"); err != nil {
			t.Fatal(err)
		}
	}
	if ok, err := svc.Check(context.Background(), "k"); !ok || err != nil {
		t.Fatalf("Unlimited.Check = %v, %v", ok, err)
	}
}
