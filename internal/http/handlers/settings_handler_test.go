package handlers

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/Mts-Potter/literary-forge/internal/domain"
	"github.com/Mts-Potter/literary-forge/internal/services"
)

func TestGetSettings_Default(t *testing.T) {
	h := newHarness(t)
	w := h.do(http.MethodGet, "/settings", nil, nil)
	requireStatus(t, w, http.StatusOK)
	got := decode[domain.UserSettings](t, w)
	if got.UserID != "u1" || got.Mode != domain.ModeSpaced {
		t.Fatalf("unexpected settings: %+v", got)
	}
}

func TestUpdateSettings(t *testing.T) {
	h := newHarness(t)
	w := h.do(http.MethodPut, "/settings", UpdateSettingsRequest{Mode: domain.ModeLinear}, nil)
	requireStatus(t, w, http.StatusOK)
	if got := decode[domain.UserSettings](t, w); got.Mode != domain.ModeLinear {
		t.Fatalf("mode = %q", got.Mode)
	}
	if h.settings.mode != domain.ModeLinear {
		t.Fatalf("service not updated: %q", h.settings.mode)
	}
}

func TestUpdateSettings_Errors(t *testing.T) {
	h := newHarness(t)

	w := h.do(http.MethodPut, "/settings", map[string]string{}, nil)
	requireStatus(t, w, http.StatusBadRequest)
	requireErrCode(t, w, ErrCodeBadRequest)

	h.settings.err = fmt.Errorf("%w: mode must be spaced or linear", services.ErrValidation)
	w = h.do(http.MethodPut, "/settings", UpdateSettingsRequest{Mode: "random"}, nil)
	requireStatus(t, w, http.StatusBadRequest)
	requireErrCode(t, w, ErrCodeValidation)

	h.settings.err = services.ErrPersistence
	w = h.do(http.MethodGet, "/settings", nil, nil)
	requireStatus(t, w, http.StatusInternalServerError)
	requireErrCode(t, w, ErrCodePersistence)
}
