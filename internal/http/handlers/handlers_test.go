package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Mts-Potter/literary-forge/internal/domain"
	"github.com/Mts-Potter/literary-forge/internal/http/middleware"
	"github.com/Mts-Potter/literary-forge/internal/services"
)

// ---- fakes ----

type fakeSubmitter struct {
	got services.SubmitInput
	res *services.SubmitResult
	err error
	// cancel, when set, runs before returning to simulate a disconnect.
	cancel func()
}

func (f *fakeSubmitter) Submit(_ context.Context, in services.SubmitInput) (*services.SubmitResult, error) {
	f.got = in
	if f.cancel != nil {
		f.cancel()
	}
	return f.res, f.err
}

type fakeSelector struct {
	gotUser string
	gotQ    services.NextQuery
	sel     *services.Selection
	err     error
}

func (f *fakeSelector) Next(_ context.Context, userID string, q services.NextQuery) (*services.Selection, error) {
	f.gotUser, f.gotQ = userID, q
	return f.sel, f.err
}

type fakeSettings struct {
	mode string
	err  error
}

func (f *fakeSettings) Get(_ context.Context, userID string) (*domain.UserSettings, error) {
	if f.err != nil {
		return nil, f.err
	}
	m := f.mode
	if m == "" {
		m = domain.ModeSpaced
	}
	return &domain.UserSettings{UserID: userID, Mode: m}, nil
}

func (f *fakeSettings) SetMode(_ context.Context, userID, mode string) (*domain.UserSettings, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mode = mode
	return &domain.UserSettings{UserID: userID, Mode: mode}, nil
}

type fakeProgress struct {
	cards      []domain.Card
	subs       []domain.Submission
	total      int64
	newest     *time.Time
	versionErr error
	listErr    error
	summary    *services.Summary
	gotPage    [2]int
	listCalls  int
}

func (f *fakeProgress) ListCards(_ context.Context, _ string, page, pageSize int) ([]domain.Card, int64, error) {
	f.gotPage = [2]int{page, pageSize}
	f.listCalls++
	return f.cards, f.total, f.listErr
}

func (f *fakeProgress) CardsVersion(context.Context, string) (int64, *time.Time, error) {
	return f.total, f.newest, f.versionErr
}

func (f *fakeProgress) Summary(context.Context, string) (*services.Summary, error) {
	return f.summary, f.listErr
}

func (f *fakeProgress) ListSubmissions(_ context.Context, _ string, page, pageSize int) ([]domain.Submission, int64, error) {
	f.gotPage = [2]int{page, pageSize}
	f.listCalls++
	return f.subs, f.total, f.listErr
}

func (f *fakeProgress) SubmissionsVersion(context.Context, string) (int64, *time.Time, error) {
	return f.total, f.newest, f.versionErr
}

// ---- harness ----

type harness struct {
	sub      *fakeSubmitter
	sel      *fakeSelector
	settings *fakeSettings
	progress *fakeProgress
	r        *gin.Engine
}

// newHarness mounts the handlers behind a stub that authenticates "u1" and
// the real idempotency validator.
func newHarness(t *testing.T) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)
	h := &harness{
		sub:      &fakeSubmitter{},
		sel:      &fakeSelector{},
		settings: &fakeSettings{},
		progress: &fakeProgress{},
	}
	hs := New(h.sub, h.sel, h.settings, h.progress)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("X-Request-ID", "rid-test")
		middleware.SetUserID(c, "u1")
		c.Next()
	})
	r.Use(middleware.IdempotencyValidator(middleware.IdempotencyOptions{}, nil))
	r.POST("/train/submit", hs.Submit)
	r.GET("/train/next", hs.Next)
	r.GET("/settings", hs.GetSettings)
	r.PUT("/settings", hs.UpdateSettings)
	r.GET("/progress", hs.ListProgress)
	r.GET("/progress/summary", hs.ProgressSummary)
	r.GET("/submissions", hs.ListSubmissions)
	h.r = r
	return h
}

func (h *harness) do(method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	var rd *bytes.Reader
	switch b := body.(type) {
	case nil:
		rd = bytes.NewReader(nil)
	case string:
		rd = bytes.NewReader([]byte(b))
	default:
		raw, _ := json.Marshal(b)
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return v
}

func requireStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	if w.Code != want {
		t.Fatalf("status = %d, want %d (body %s)", w.Code, want, w.Body.String())
	}
}

func requireErrCode(t *testing.T, w *httptest.ResponseRecorder, want string) {
	t.Helper()
	if got := decode[ErrorResponse](t, w); got.Code != want {
		t.Fatalf("code = %q, want %q", got.Code, want)
	}
}
