package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Mts-Potter/literary-forge/internal/http/middleware"
	"github.com/Mts-Potter/literary-forge/internal/services"
	"github.com/Mts-Potter/literary-forge/internal/utils"
)

// maxExcludeIDs bounds the exclude list accepted by GET /train/next.
const maxExcludeIDs = 200

// SubmitRequest is the JSON payload for POST /train/submit. The token may
// instead be sent in the Idempotency-Key header.
type SubmitRequest struct {
	ItemID           string `json:"item_id"`
	CandidateText    string `json:"candidate_text"`
	IdempotencyToken string `json:"idempotency_token"`
}

// Submit grades an imitation and schedules the passage's next review.
//
//	200 graded or replayed result
//	400 validation_failed | bad_request
//	404 item_not_found
//	429 quota_exceeded
//	503 grader_unavailable | grader_format
//	500 persistence_failed
//	499 (no body) when the client disconnects first, unless the commit failed
func (h *Handlers) Submit(c *gin.Context) {
	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	token := strings.TrimSpace(req.IdempotencyToken)
	if hdr, found := middleware.GetIdempotencyKey(c); found {
		if token != "" && token != hdr {
			fail(c, http.StatusBadRequest, ErrCodeValidation, "idempotency token in body and header differ")
			return
		}
		token = hdr
	}

	ctx := c.Request.Context()
	res, err := h.submit.Submit(ctx, services.SubmitInput{
		UserID:        userID(c),
		ItemID:        strings.TrimSpace(req.ItemID),
		CandidateText: req.CandidateText,
		Token:         token,
		QuotaKey:      middleware.ClientKey(c),
	})
	if err != nil {
		if ctx.Err() != nil && !errors.Is(err, services.ErrPersistence) {
			clientClosed(c)
			return
		}
		failFor(c, err)
		return
	}
	if res.Outcome == services.OutcomeCancelled {
		clientClosed(c)
		return
	}
	if middleware.IsReplay(c) && res.Outcome == services.OutcomeReplayed {
		c.Header("Idempotent-Replayed", "true")
	}
	ok(c, http.StatusOK, res)
}

// Next returns the passage to practise next, or a terminal status when the
// user has nothing due and nothing new.
//
// Query: exclude=<id>,<id>,... collection=<id>
func (h *Handlers) Next(c *gin.Context) {
	q := services.NextQuery{
		ExcludeIDs: utils.SplitCSV(c.Query("exclude"), maxExcludeIDs),
		Collection: strings.TrimSpace(c.Query("collection")),
	}
	sel, err := h.selector.Next(c.Request.Context(), userID(c), q)
	if err != nil {
		if c.Request.Context().Err() != nil {
			clientClosed(c)
			return
		}
		failFor(c, err)
		return
	}
	ok(c, http.StatusOK, sel)
}
