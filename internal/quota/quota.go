// Package quota enforces a daily grading allowance per caller. Keys are
// "user:<id>" for authenticated callers and "ip:<addr>" otherwise; usage
// buckets roll over at 00:00 UTC.
//
// Check never consumes. Consume is called only after a grading round-trip
// has been committed, so failed or replayed submissions are free.
package quota

import (
	"context"
	"time"
)

// Service is the quota contract used by the submission pipeline.
type Service interface {
	// Check reports whether key may perform one more graded submission today.
	Check(ctx context.Context, key string) (bool, error)
	// Consume records one graded submission for key.
	Consume(ctx context.Context, key string) error
}

// UserKey returns the quota key for an authenticated user.
func UserKey(userID string) string { return "user:" + userID }

// IPKey returns the quota key for an anonymous caller.
func IPKey(addr string) string { return "ip:" + addr }

// Unlimited never refuses and records nothing.
type Unlimited struct{}

func (Unlimited) Check(context.Context, string) (bool, error) { return true, nil }
func (Unlimited) Consume(context.Context, string) error { return nil }

func day(t time.Time) string { return t.UTC().Format("2006-01-02") }
