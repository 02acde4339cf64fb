package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Mts-Potter/literary-forge/internal/domain"
	"github.com/Mts-Potter/literary-forge/internal/utils"
)

// ListCardsResponse wraps a page of cards and pagination information.
type ListCardsResponse struct {
	Cards      []domain.Card `json:"cards"`
	Pagination Pagination    `json:"pagination"`
}

// ListSubmissionsResponse wraps a page of submissions and pagination information.
type ListSubmissionsResponse struct {
	Submissions []domain.Submission `json:"submissions"`
	Pagination  Pagination          `json:"pagination"`
}

func pagination(page, pageSize int, total int64) Pagination {
	totalPages := utils.TotalPages(total, pageSize)
	return Pagination{
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
	}
}

// ListProgress returns a page of the caller's cards ordered by due date.
// Supports a weak ETag via If-None-Match and may return 304.
func (h *Handlers) ListProgress(c *gin.Context) {
	ctx := c.Request.Context()
	uid := userID(c)
	page, pageSize := utils.ClampPage(c.Query("page"), c.Query("page_size"))

	// ETag is best effort; a stats failure just skips the pre-check.
	if count, newest, err := h.progress.CardsVersion(ctx, uid); err == nil {
		if notModified(c, weakETag("cards", uid, count, newest)) {
			return
		}
	}

	cards, total, err := h.progress.ListCards(ctx, uid, page, pageSize)
	if err != nil {
		failFor(c, err)
		return
	}
	if cards == nil {
		cards = []domain.Card{}
	}
	ok(c, http.StatusOK, ListCardsResponse{Cards: cards, Pagination: pagination(page, pageSize, total)})
}

// ProgressSummary returns counts per learning state, cards due now and
// total reviews.
func (h *Handlers) ProgressSummary(c *gin.Context) {
	sum, err := h.progress.Summary(c.Request.Context(), userID(c))
	if err != nil {
		failFor(c, err)
		return
	}
	ok(c, http.StatusOK, sum)
}

// ListSubmissions returns the caller's submission history, newest first.
// Supports a weak ETag via If-None-Match and may return 304.
func (h *Handlers) ListSubmissions(c *gin.Context) {
	ctx := c.Request.Context()
	uid := userID(c)
	page, pageSize := utils.ClampPage(c.Query("page"), c.Query("page_size"))

	if count, newest, err := h.progress.SubmissionsVersion(ctx, uid); err == nil {
		if notModified(c, weakETag("submissions", uid, count, newest)) {
			return
		}
	}

	subs, total, err := h.progress.ListSubmissions(ctx, uid, page, pageSize)
	if err != nil {
		failFor(c, err)
		return
	}
	if subs == nil {
		subs = []domain.Submission{}
	}
	ok(c, http.StatusOK, ListSubmissionsResponse{Submissions: subs, Pagination: pagination(page, pageSize, total)})
}
