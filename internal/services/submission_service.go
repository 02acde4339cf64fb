// Package services – SubmissionService
//
// This file implements the submission pipeline: validate, deduplicate, grade
// with retry, map the score to a grade, reschedule the card, and commit the
// card together with an append-only submission record exactly once.
//
// Duplicate protection is layered:
//   - (user, idempotency token) is unique; a reused token replays the stored
//     result regardless of age.
//   - A submission with the same content fingerprint inside DedupWindow
//     replays the stored result.
//   - The card row is updated with a compare-and-set on its version, so a
//     concurrent loser re-resolves the winner instead of double-applying.
//
// Cancellation before commit is reported as OutcomeCancelled with no state
// touched. Once the commit starts it runs to completion.
package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/unicode/norm"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/Mts-Potter/literary-forge/internal/domain"
	"github.com/Mts-Potter/literary-forge/internal/grading"
	"github.com/Mts-Potter/literary-forge/internal/quota"
	"github.com/Mts-Potter/literary-forge/internal/repo"
	"github.com/Mts-Potter/literary-forge/internal/retry"
	"github.com/Mts-Potter/literary-forge/internal/srs"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultMaxTextRunes = 10000
	defaultDedupWindow  = 60 * time.Second
	maxCommitAttempts   = 3
)

var tokenRE = regexp.MustCompile(`^[A-Za-z0-9._~:-]{1,200}$`)

// errLostRace marks a commit that applied nothing because a concurrent
// submission got there first.
var errLostRace = errors.New("lost commit race")

// Outcome tells the caller how a Submit call was resolved.
type Outcome string

const (
	OutcomeGraded    Outcome = "graded"
	OutcomeReplayed  Outcome = "replayed"
	OutcomeCancelled Outcome = "cancelled"
)

// SubmitInput is one graded attempt.
type SubmitInput struct {
	UserID        string
	ItemID        string
	CandidateText string
	Token         string
	QuotaKey      string // defaults to quota.UserKey(UserID)
}

// ScheduleInfo is the scheduling part of a submission result.
type ScheduleInfo struct {
	Grade          srs.Grade `json:"grade"`
	NextReviewDate time.Time `json:"next_review_date"`
	IntervalDays   int       `json:"interval_days"`
	Message        string    `json:"message"`
}

// SubmitResult is returned for graded and replayed submissions. A cancelled
// submission carries only the Outcome.
type SubmitResult struct {
	Outcome      Outcome          `json:"outcome"`
	SubmissionID string           `json:"submission_id,omitempty"`
	Accuracy     float64          `json:"accuracy"`
	SubScores    domain.SubScores `json:"sub_scores"`
	Feedback     string           `json:"feedback"`
	Suggestions  []string         `json:"suggestions,omitempty"`
	Schedule     ScheduleInfo     `json:"schedule"`
}

// SubmissionService coordinates grading and the atomic review commit.
type SubmissionService struct {
	DB        *gorm.DB
	Grader    grading.Grader
	Quota     quota.Service
	Scheduler *srs.Scheduler
	Retry     retry.Policy

	DedupWindow  time.Duration
	MaxTextRunes int

	Now   func() time.Time
	NewID func() string
}

// NewSubmissionService wires a SubmissionService with default limits.
func NewSubmissionService(db *gorm.DB, g grading.Grader, q quota.Service, sched *srs.Scheduler) *SubmissionService {
	return &SubmissionService{
		DB:           db,
		Grader:       g,
		Quota:        q,
		Scheduler:    sched,
		Retry:        retry.DefaultPolicy(),
		DedupWindow:  defaultDedupWindow,
		MaxTextRunes: defaultMaxTextRunes,
		Now:          time.Now,
		NewID:        uuid.NewString,
	}
}

// Fingerprint identifies a (user, item, text) triple. Text is trimmed and
// NFC-normalized so visually identical input maps to the same value.
func Fingerprint(userID, itemID, text string) string {
	h := sha256.New()
	h.Write([]byte(userID))
	h.Write([]byte{0})
	h.Write([]byte(itemID))
	h.Write([]byte{0})
	h.Write([]byte(norm.NFC.String(strings.TrimSpace(text))))
	return hex.EncodeToString(h.Sum(nil))
}

// Submit grades an attempt and commits the resulting schedule exactly once.
func (s *SubmissionService) Submit(ctx context.Context, in SubmitInput) (res *SubmitResult, err error) {
	tr := otel.Tracer("services/SubmissionService")
	ctx, span := tr.Start(ctx, "Submit",
		trace.WithAttributes(
			attribute.String("user.id", in.UserID),
			attribute.String("item.id", in.ItemID),
		),
	)
	defer func() {
		outcome := "failed"
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else if res != nil {
			outcome = string(res.Outcome)
		}
		span.SetAttributes(attribute.String("outcome", outcome))
		submissionsTotal.WithLabelValues(outcome).Inc()
		span.End()
	}()

	if err := s.validate(in); err != nil {
		return nil, err
	}
	lg := logFrom(ctx).With().Str("user_id", in.UserID).Str("item_id", in.ItemID).Logger()
	fp := Fingerprint(in.UserID, in.ItemID, in.CandidateText)

	// 1. Idempotency.
	prior, err := s.findPrior(ctx, s.DB, in, fp)
	if err != nil {
		return s.cancelledOr(ctx, err)
	}
	if prior != nil {
		lg.Debug().Str("submission_id", prior.ID).Msg("submission replayed")
		return replayResult(prior), nil
	}

	// 2. Load item and card concurrently.
	item, card, err := s.load(ctx, in)
	if err != nil {
		return s.cancelledOr(ctx, err)
	}

	// Quota is checked, not consumed, before spending a grader call.
	key := in.QuotaKey
	if key == "" {
		key = quota.UserKey(in.UserID)
	}
	if s.Quota != nil {
		ok, qerr := s.Quota.Check(ctx, key)
		switch {
		case qerr != nil && ctx.Err() != nil:
			return s.cancelled(ctx)
		case qerr != nil:
			lg.Warn().Err(qerr).Msg("quota check failed; allowing submission")
		case !ok:
			return nil, ErrQuotaExceeded
		}
	}

	// 3. Grade with retry.
	graded, err := s.grade(ctx, item, in.CandidateText)
	if err != nil {
		return s.cancelledOr(ctx, err)
	}
	grade, err := srs.MapToGrade(graded.Accuracy)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGraderFormat, err)
	}

	// 4. Commit. Nothing is written once the caller has gone away.
	if ctx.Err() != nil {
		return s.cancelled(ctx)
	}
	commitCtx := context.WithoutCancel(ctx)
	res, err = s.commit(commitCtx, in, fp, card, graded, grade)
	if err != nil {
		if errors.Is(err, ErrValidation) {
			return nil, err
		}
		lg.Error().Err(err).Msg("submission commit failed")
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	// 5. Consume quota for newly graded work only.
	if res.Outcome == OutcomeGraded && s.Quota != nil {
		if qerr := s.Quota.Consume(commitCtx, key); qerr != nil {
			lg.Warn().Err(qerr).Str("quota_key", key).Msg("quota consume failed")
		}
	}

	lg.Info().
		Str("outcome", string(res.Outcome)).
		Str("grade", res.Schedule.Grade.String()).
		Int("interval_days", res.Schedule.IntervalDays).
		Msg("submission committed")
	return res, nil
}

func (s *SubmissionService) validate(in SubmitInput) error {
	if strings.TrimSpace(in.UserID) == "" {
		return fmt.Errorf("%w: user id is required", ErrValidation)
	}
	if strings.TrimSpace(in.ItemID) == "" {
		return fmt.Errorf("%w: item_id is required", ErrValidation)
	}
	if strings.TrimSpace(in.CandidateText) == "" {
		return fmt.Errorf("%w: candidate_text is empty", ErrValidation)
	}
	limit := s.MaxTextRunes
	if limit <= 0 {
		limit = defaultMaxTextRunes
	}
	if utf8.RuneCountInString(in.CandidateText) > limit {
		return fmt.Errorf("%w: candidate_text exceeds %d characters", ErrValidation, limit)
	}
	if !tokenRE.MatchString(in.Token) {
		return fmt.Errorf("%w: malformed idempotency token", ErrValidation)
	}
	return nil
}

// findPrior returns the submission that already answers in, if any. A token
// reused for different content is a validation error.
func (s *SubmissionService) findPrior(ctx context.Context, db *gorm.DB, in SubmitInput, fp string) (*domain.Submission, error) {
	sub, err := repo.GetSubmissionByToken(ctx, db, in.UserID, in.Token)
	switch {
	case err == nil:
		if sub.ItemID != in.ItemID || sub.Fingerprint != fp {
			return nil, fmt.Errorf("%w: idempotency token already used for a different submission", ErrValidation)
		}
		return sub, nil
	case !errors.Is(err, repo.ErrNotFound):
		return nil, fmt.Errorf("%w: token lookup: %v", ErrPersistence, err)
	}

	sub, err = repo.FindRecentSubmission(ctx, db, in.UserID, fp, s.now().Add(-s.dedupWindow()))
	switch {
	case err == nil:
		return sub, nil
	case errors.Is(err, repo.ErrNotFound):
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: fingerprint lookup: %v", ErrPersistence, err)
	}
}

func (s *SubmissionService) load(ctx context.Context, in SubmitInput) (*domain.Item, *domain.Card, error) {
	var (
		item *domain.Item
		card *domain.Card
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		it, err := repo.GetItem(gctx, s.DB, in.ItemID)
		if errors.Is(err, repo.ErrNotFound) {
			return ErrItemNotFound
		}
		if err != nil {
			return fmt.Errorf("%w: load item: %v", ErrPersistence, err)
		}
		item = it
		return nil
	})
	g.Go(func() error {
		c, err := repo.GetCard(gctx, s.DB, in.UserID, in.ItemID)
		if errors.Is(err, repo.ErrNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w: load card: %v", ErrPersistence, err)
		}
		card = c
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return item, card, nil
}

func (s *SubmissionService) grade(ctx context.Context, item *domain.Item, text string) (grading.Result, error) {
	req := grading.Request{
		OriginalText:  item.Content,
		CandidateText: text,
		Metrics:       item.Metrics.Data(),
	}

	pol := s.Retry
	pol.Retryable = grading.IsTransient
	pol.OnRetry = func(err error, d time.Duration) {
		logFrom(ctx).Warn().Err(err).Dur("backoff", d).Str("item_id", item.ID).Msg("grader call failed; retrying")
	}

	res, err := retry.Do(ctx, pol, func(ctx context.Context) (grading.Result, error) {
		r, err := s.Grader.Grade(ctx, req)
		switch {
		case err == nil:
			graderCalls.WithLabelValues("ok").Inc()
		case errors.Is(err, grading.ErrFormat):
			graderCalls.WithLabelValues("format").Inc()
		case errors.Is(err, grading.ErrRejected):
			graderCalls.WithLabelValues("rejected").Inc()
		case ctx.Err() != nil:
			graderCalls.WithLabelValues("cancelled").Inc()
		default:
			graderCalls.WithLabelValues("unavailable").Inc()
		}
		return r, err
	})
	if err != nil {
		if ctx.Err() != nil {
			return grading.Result{}, ctx.Err()
		}
		if errors.Is(err, grading.ErrFormat) {
			return grading.Result{}, fmt.Errorf("%w: %v", ErrGraderFormat, err)
		}
		return grading.Result{}, fmt.Errorf("%w: %v", ErrGraderUnavailable, err)
	}
	if err := res.Validate(); err != nil {
		return grading.Result{}, fmt.Errorf("%w: %v", ErrGraderFormat, err)
	}
	return res, nil
}

// commit schedules and persists the review. When a concurrent submission
// wins, its result is replayed if it answers the same request; otherwise the
// card is reloaded and rescheduled.
func (s *SubmissionService) commit(ctx context.Context, in SubmitInput, fp string, card *domain.Card, graded grading.Result, grade srs.Grade) (*SubmitResult, error) {
	for attempt := 1; attempt <= maxCommitAttempts; attempt++ {
		now := s.now()
		base := srs.NewCard()
		if card != nil {
			base = card.SRS()
		}
		sched, err := s.Scheduler.Schedule(base, grade, now)
		if err != nil {
			return nil, fmt.Errorf("schedule: %w", err)
		}

		sub := &domain.Submission{
			ID:               s.newID(),
			UserID:           in.UserID,
			IdempotencyToken: in.Token,
			ItemID:           in.ItemID,
			CandidateText:    in.CandidateText,
			Fingerprint:      fp,
			AccuracyScore:    graded.Accuracy,
			SubScores:        datatypes.NewJSONType(graded.SubScores),
			FeedbackText:     graded.Feedback,
			Suggestions:      datatypes.JSONSlice[string](graded.Suggestions),
			Grade:            grade,
			NextReview:       sched.Due,
			IntervalDays:     sched.IntervalDays,
			CreatedAt:        now,
		}

		err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if _, err := repo.FindRecentSubmission(ctx, tx, in.UserID, fp, now.Add(-s.dedupWindow())); err == nil {
				return errLostRace
			} else if !errors.Is(err, repo.ErrNotFound) {
				return err
			}

			row := domain.Card{UserID: in.UserID, ItemID: in.ItemID}
			if card != nil {
				row = *card
			}
			row.Apply(sched.Card)
			row.LastSubmissionID = sub.ID

			if card == nil {
				if err := repo.InsertCard(ctx, tx, &row); err != nil {
					if errors.Is(err, repo.ErrConflict) {
						return errLostRace
					}
					return err
				}
			} else if err := repo.UpdateCardCAS(ctx, tx, &row, card.Version); err != nil {
				if errors.Is(err, repo.ErrConflict) {
					return errLostRace
				}
				return err
			}

			if err := repo.CreateSubmission(ctx, tx, sub); err != nil {
				if errors.Is(err, repo.ErrDuplicate) {
					return errLostRace
				}
				return err
			}
			return nil
		})
		if err == nil {
			return gradedResult(sub), nil
		}
		if !errors.Is(err, errLostRace) {
			return nil, err
		}
		commitConflicts.Inc()

		prior, perr := s.findPrior(ctx, s.DB, in, fp)
		if perr != nil {
			return nil, perr
		}
		if prior != nil {
			return replayResult(prior), nil
		}
		card, err = repo.GetCard(ctx, s.DB, in.UserID, in.ItemID)
		if errors.Is(err, repo.ErrNotFound) {
			card = nil
		} else if err != nil {
			return nil, fmt.Errorf("reload card: %w", err)
		}
	}
	return nil, fmt.Errorf("commit gave up after %d conflicting attempts", maxCommitAttempts)
}

// cancelledOr turns an error caused by ctx ending into OutcomeCancelled.
func (s *SubmissionService) cancelledOr(ctx context.Context, err error) (*SubmitResult, error) {
	if ctx.Err() != nil {
		return s.cancelled(ctx)
	}
	return nil, err
}

func (s *SubmissionService) cancelled(ctx context.Context) (*SubmitResult, error) {
	logFrom(ctx).Debug().Err(ctx.Err()).Msg("submission cancelled before commit")
	return &SubmitResult{Outcome: OutcomeCancelled}, nil
}

func (s *SubmissionService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *SubmissionService) newID() string {
	if s.NewID != nil {
		return s.NewID()
	}
	return uuid.NewString()
}

func (s *SubmissionService) dedupWindow() time.Duration {
	if s.DedupWindow > 0 {
		return s.DedupWindow
	}
	return defaultDedupWindow
}

func gradedResult(sub *domain.Submission) *SubmitResult {
	r := resultFrom(sub)
	r.Outcome = OutcomeGraded
	return r
}

func replayResult(sub *domain.Submission) *SubmitResult {
	r := resultFrom(sub)
	r.Outcome = OutcomeReplayed
	return r
}

func resultFrom(sub *domain.Submission) *SubmitResult {
	return &SubmitResult{
		SubmissionID: sub.ID,
		Accuracy:     sub.AccuracyScore,
		SubScores:    sub.SubScores.Data(),
		Feedback:     sub.FeedbackText,
		Suggestions:  []string(sub.Suggestions),
		Schedule: ScheduleInfo{
			Grade:          sub.Grade,
			NextReviewDate: sub.NextReview.UTC(),
			IntervalDays:   sub.IntervalDays,
			Message:        ScheduleMessage(sub.Grade, sub.IntervalDays),
		},
	}
}

// ScheduleMessage renders a short learner-facing summary of a schedule.
func ScheduleMessage(g srs.Grade, intervalDays int) string {
	var head string
	switch g {
	case srs.Again:
		head = "Not there yet"
	case srs.Hard:
		head = "Close, with noticeable gaps"
	case srs.Good:
		head = "Good imitation"
	case srs.Easy:
		head = "Excellent imitation"
	default:
		head = "Reviewed"
	}
	switch intervalDays {
	case 0:
		return head + ". Review again today."
	case 1:
		return head + ". Review again tomorrow."
	default:
		return fmt.Sprintf("%s. Next review in %d days.", head, intervalDays)
	}
}
