// Package services – ProgressService
//
// This file implements read-only progress views: the paginated card list,
// the dashboard summary and the submission history. Pagination follows the
// same defaults everywhere (page 1, 20 per page).
package services

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/Mts-Potter/literary-forge/internal/domain"
	"github.com/Mts-Potter/literary-forge/internal/repo"
	"github.com/Mts-Potter/literary-forge/internal/srs"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Summary is the dashboard view of a user's progress.
type Summary struct {
	States       map[string]int64 `json:"states"`
	DueNow       int64            `json:"due_now"`
	TotalCards   int64            `json:"total_cards"`
	TotalReviews int64            `json:"total_reviews"`
	LibrarySize  int64            `json:"library_size"`
}

// ProgressService exposes read models over cards and submissions.
type ProgressService struct {
	DB  *gorm.DB
	Now func() time.Time
}

func paginate(page, pageSize int) (offset, limit int) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	return (page - 1) * pageSize, pageSize
}

// ListCards returns a page of the user's cards ordered by due date, plus
// the total count.
func (s *ProgressService) ListCards(ctx context.Context, userID string, page, pageSize int) ([]domain.Card, int64, error) {
	tr := otel.Tracer("services/ProgressService")
	ctx, span := tr.Start(ctx, "ListCards",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	offset, limit := paginate(page, pageSize)
	total, err := repo.CountCards(ctx, s.DB, userID)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: count cards: %v", ErrPersistence, err)
	}
	if total == 0 {
		return []domain.Card{}, 0, nil
	}
	cards, err := repo.ListCardsPage(ctx, s.DB, userID, offset, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: list cards: %v", ErrPersistence, err)
	}
	return cards, total, nil
}

// CardsVersion returns the card count and newest update time, used to
// derive a cache validator for the card list.
func (s *ProgressService) CardsVersion(ctx context.Context, userID string) (int64, *time.Time, error) {
	n, at, err := repo.CardsStats(ctx, s.DB, userID)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: card stats: %v", ErrPersistence, err)
	}
	return n, at, nil
}

// Summary aggregates state counts, due cards and review totals.
func (s *ProgressService) Summary(ctx context.Context, userID string) (*Summary, error) {
	tr := otel.Tracer("services/ProgressService")
	ctx, span := tr.Start(ctx, "Summary", trace.WithAttributes(attribute.String("user.id", userID)))
	defer span.End()

	counts, err := repo.CardStateCounts(ctx, s.DB, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: state counts: %v", ErrPersistence, err)
	}
	out := &Summary{States: make(map[string]int64, 4)}
	for _, st := range []srs.State{srs.New, srs.Learning, srs.Review, srs.Relearning} {
		out.States[st.String()] = counts[st]
		out.TotalCards += counts[st]
	}

	now := time.Now().UTC()
	if s.Now != nil {
		now = s.Now().UTC()
	}
	if out.DueNow, err = repo.CountDueCards(ctx, s.DB, userID, now); err != nil {
		return nil, fmt.Errorf("%w: due count: %v", ErrPersistence, err)
	}
	if out.TotalReviews, err = repo.CountSubmissions(ctx, s.DB, userID); err != nil {
		return nil, fmt.Errorf("%w: review count: %v", ErrPersistence, err)
	}
	if out.LibrarySize, err = repo.CountItems(ctx, s.DB, ""); err != nil {
		return nil, fmt.Errorf("%w: library size: %v", ErrPersistence, err)
	}
	return out, nil
}

// ListSubmissions returns a page of the user's submission history, newest
// first, plus the total count.
func (s *ProgressService) ListSubmissions(ctx context.Context, userID string, page, pageSize int) ([]domain.Submission, int64, error) {
	tr := otel.Tracer("services/ProgressService")
	ctx, span := tr.Start(ctx, "ListSubmissions",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	offset, limit := paginate(page, pageSize)
	total, err := repo.CountSubmissions(ctx, s.DB, userID)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: count submissions: %v", ErrPersistence, err)
	}
	if total == 0 {
		return []domain.Submission{}, 0, nil
	}
	subs, err := repo.ListSubmissionsPage(ctx, s.DB, userID, offset, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: list submissions: %v", ErrPersistence, err)
	}
	return subs, total, nil
}

// SubmissionsVersion returns the submission count and newest creation time.
func (s *ProgressService) SubmissionsVersion(ctx context.Context, userID string) (int64, *time.Time, error) {
	n, at, err := repo.SubmissionsStats(ctx, s.DB, userID)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: submission stats: %v", ErrPersistence, err)
	}
	return n, at, nil
}
