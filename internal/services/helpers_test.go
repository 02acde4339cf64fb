package services

import (
	"context"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/Mts-Potter/literary-forge/internal/domain"
	"github.com/Mts-Potter/literary-forge/internal/grading"
	"github.com/Mts-Potter/literary-forge/internal/repo"
	"github.com/Mts-Potter/literary-forge/internal/retry"
	"github.com/Mts-Potter/literary-forge/internal/srs"
)

var t0 = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

// newServiceDB opens a migrated temp-file SQLite database with the same
// settings the server uses (single connection, WAL).
func newServiceDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := repo.OpenSQLite(filepath.Join(t.TempDir(), "forge.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func seedItem(t *testing.T, db *gorm.DB, id, collection string, created time.Time) {
	t.Helper()
	err := repo.CreateItem(context.Background(), db, &domain.Item{
		ID:           id,
		CollectionID: collection,
		Title:        "Passage " + id,
		Content:      "It was the best of times. It was the worst of times.",
		CreatedAt:    created,
	})
	if err != nil {
		t.Fatalf("seed item %s: %v", id, err)
	}
}

func seedDueCard(t *testing.T, db *gorm.DB, user, item string, due time.Time) {
	t.Helper()
	last := due.Add(-72 * time.Hour)
	err := repo.InsertCard(context.Background(), db, &domain.Card{
		UserID: user, ItemID: item, State: srs.Review,
		Difficulty: 5, Stability: 3, Due: due, Reps: 2, LastReview: &last,
	})
	if err != nil {
		t.Fatalf("seed card %s/%s: %v", user, item, err)
	}
}

func noFuzzScheduler(t *testing.T) *srs.Scheduler {
	t.Helper()
	s, err := srs.NewScheduler(srs.Config{DisableFuzz: true})
	if err != nil {
		t.Fatalf("scheduler: %v", err)
	}
	return s
}

// gradeStep is one scripted grader response.
type gradeStep struct {
	res grading.Result
	err error
}

// fakeGrader replays scripted steps; the last step repeats. With block set
// it waits for ctx to end.
type fakeGrader struct {
	mu    sync.Mutex
	steps []gradeStep
	calls int
	block bool
}

func okResult(accuracy float64) grading.Result {
	return grading.Result{
		Accuracy:  accuracy,
		SubScores: domain.SubScores{Structure: accuracy, Vocabulary: accuracy, Rhythm: accuracy, Tone: accuracy},
		Feedback:  "feedback",
	}
}

func (f *fakeGrader) Grade(ctx context.Context, _ grading.Request) (grading.Result, error) {
	f.mu.Lock()
	i := f.calls
	f.calls++
	f.mu.Unlock()

	if f.block {
		<-ctx.Done()
		return grading.Result{}, ctx.Err()
	}
	if len(f.steps) == 0 {
		return okResult(85), nil
	}
	if i >= len(f.steps) {
		i = len(f.steps) - 1
	}
	return f.steps[i].res, f.steps[i].err
}

func (f *fakeGrader) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeQuota counts consumption against a fixed allowance.
type fakeQuota struct {
	limit    int64
	checkErr error
	consumed atomic.Int64
}

func (q *fakeQuota) Check(context.Context, string) (bool, error) {
	if q.checkErr != nil {
		return false, q.checkErr
	}
	return q.limit <= 0 || q.consumed.Load() < q.limit, nil
}

func (q *fakeQuota) Consume(context.Context, string) error {
	q.consumed.Add(1)
	return nil
}

// newSubmissionFixture wires a SubmissionService over a fresh database with
// one item "i1" and a fixed clock.
func newSubmissionFixture(t *testing.T, g *fakeGrader, q *fakeQuota) (*SubmissionService, *gorm.DB, *time.Time) {
	t.Helper()
	db := newServiceDB(t)
	seedItem(t, db, "i1", "book1", t0.Add(-time.Hour))

	now := t0
	svc := NewSubmissionService(db, g, q, noFuzzScheduler(t))
	svc.Retry = retry.Policy{MaxAttempts: 3, BaseDelay: time.Millisecond}
	svc.Now = func() time.Time { return now }
	return svc, db, &now
}

func input(token, text string) SubmitInput {
	return SubmitInput{UserID: "u1", ItemID: "i1", CandidateText: text, Token: token}
}
