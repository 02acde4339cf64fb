package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// UpdateSettingsRequest is the JSON payload for PUT /settings.
type UpdateSettingsRequest struct {
	// Mode is "spaced" (due reviews first) or "linear" (library order).
	Mode string `json:"mode" binding:"required"`
}

// GetSettings returns the caller's study settings, defaults included.
func (h *Handlers) GetSettings(c *gin.Context) {
	s, err := h.settings.Get(c.Request.Context(), userID(c))
	if err != nil {
		failFor(c, err)
		return
	}
	ok(c, http.StatusOK, s)
}

// UpdateSettings changes the caller's study mode.
func (h *Handlers) UpdateSettings(c *gin.Context) {
	var req UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "mode is required")
		return
	}
	s, err := h.settings.SetMode(c.Request.Context(), userID(c), req.Mode)
	if err != nil {
		failFor(c, err)
		return
	}
	ok(c, http.StatusOK, s)
}
