// Package handlers exposes the training API:
//   - POST /train/submit       (grade an imitation, schedule the next review)
//   - GET  /train/next         (pick the next passage to practise)
//   - GET  /settings, PUT /settings
//   - GET  /progress, /progress/summary, /submissions
//
// Handlers are transport-thin: they bind input, call application services
// and translate results into HTTP responses.
package handlers

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Mts-Potter/literary-forge/internal/domain"
	"github.com/Mts-Potter/literary-forge/internal/http/middleware"
	"github.com/Mts-Potter/literary-forge/internal/services"
)

// Submitter grades and commits a submission.
type Submitter interface {
	Submit(ctx context.Context, in services.SubmitInput) (*services.SubmitResult, error)
}

// Selector picks the next passage for a user.
type Selector interface {
	Next(ctx context.Context, userID string, q services.NextQuery) (*services.Selection, error)
}

// SettingsStore reads and updates the user's study mode.
type SettingsStore interface {
	Get(ctx context.Context, userID string) (*domain.UserSettings, error)
	SetMode(ctx context.Context, userID, mode string) (*domain.UserSettings, error)
}

// ProgressReader serves the read-only progress views. The Version methods
// return a collection's size and newest timestamp for ETag computation.
type ProgressReader interface {
	ListCards(ctx context.Context, userID string, page, pageSize int) ([]domain.Card, int64, error)
	CardsVersion(ctx context.Context, userID string) (int64, *time.Time, error)
	Summary(ctx context.Context, userID string) (*services.Summary, error)
	ListSubmissions(ctx context.Context, userID string, page, pageSize int) ([]domain.Submission, int64, error)
	SubmissionsVersion(ctx context.Context, userID string) (int64, *time.Time, error)
}

// Handlers groups the API endpoints.
type Handlers struct {
	submit   Submitter
	selector Selector
	settings SettingsStore
	progress ProgressReader
}

// New constructs Handlers bound to the given services.
func New(submit Submitter, selector Selector, settings SettingsStore, progress ProgressReader) *Handlers {
	return &Handlers{submit: submit, selector: selector, settings: settings, progress: progress}
}

// userID returns the caller set by the auth middleware. Routes are mounted
// behind Authenticator, so an empty value only occurs in misconfigured tests.
func userID(c *gin.Context) string {
	return middleware.UserID(c)
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}
