// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// CORS, security headers, authentication, idempotency, and rate limiting.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/Mts-Potter/literary-forge/internal/config"
	"github.com/Mts-Potter/literary-forge/internal/grading"
	"github.com/Mts-Potter/literary-forge/internal/http/handlers"
	"github.com/Mts-Potter/literary-forge/internal/http/middleware"
	"github.com/Mts-Potter/literary-forge/internal/quota"
	"github.com/Mts-Potter/literary-forge/internal/repo"
	"github.com/Mts-Potter/literary-forge/internal/retry"
	"github.com/Mts-Potter/literary-forge/internal/services"
	"github.com/Mts-Potter/literary-forge/internal/srs"
)

// maxBodyBytes caps request bodies. Candidate texts are bounded well below.
const maxBodyBytes = 1 << 20

// Deps are the long-lived collaborators the API is built from.
type Deps struct {
	DB        *gorm.DB
	Grader    grading.Grader
	Quota     quota.Service // nil disables quota enforcement
	Scheduler *srs.Scheduler
}

// submissionLookup reports whether the user already has a submission
// committed under key. It backs the idempotency validator.
func submissionLookup(db *gorm.DB) middleware.IdempotencyLookup {
	return func(ctx context.Context, userID, key string) (bool, error) {
		_, err := repo.GetSubmissionByToken(ctx, db, userID, key)
		switch {
		case err == nil:
			return true, nil
		case errors.Is(err, repo.ErrNotFound):
			return false, nil
		default:
			return false, err
		}
	}
}

// graderPolicy derives the grading retry policy from configuration.
func graderPolicy(gc config.GraderConfig) retry.Policy {
	p := retry.DefaultPolicy()
	if gc.MaxAttempts > 0 {
		p.MaxAttempts = gc.MaxAttempts
	}
	if gc.BaseDelay > 0 {
		p.BaseDelay = gc.BaseDelay
	}
	return p
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine and mounts the training API under cfg.APIBasePath.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with PII scrubbing
//  4. Recovery: capture panics after logger
//  5. Compression and body size limiter
//  6. Metrics
//  7. CORS and security headers
//
// API group only:
//  8. Authenticator: resolve the caller or 401
//  9. Idempotency validator (before rate limiter to allow bypass on replay)
//  10. Rate limiter (per user, bypass on replay)
func RegisterRoutes(r *gin.Engine, deps Deps, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging with redaction
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{"X-API-Key"},
	}))

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Compression and a global body size limit
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))
	r.Use(limitBody(maxBodyBytes))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 7) CORS posture (allow all if none configured) and security headers
	r.Use(corsMiddleware(cfg.CORS.AllowedOrigins)...)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		CacheControl: "private, no-cache",
		EnablePolicy: true,
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	// Dependency injection: services <- db/grader/quota/scheduler
	submitSvc := services.NewSubmissionService(deps.DB, deps.Grader, deps.Quota, deps.Scheduler)
	submitSvc.Retry = graderPolicy(cfg.Grader)
	if cfg.DedupWindow > 0 {
		submitSvc.DedupWindow = cfg.DedupWindow
	}
	h := handlers.New(
		submitSvc,
		services.NewSelectorService(deps.DB),
		&services.SettingsService{DB: deps.DB},
		&services.ProgressService{DB: deps.DB},
	)

	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())

	api := groupWithPrefix(r, cfg.APIBasePath)
	api.Use(
		middleware.Authenticator(middleware.AuthOptions{
			Secret:    []byte(cfg.Auth.JWTSecret),
			Issuer:    cfg.Auth.JWTIssuer,
			DevHeader: cfg.Auth.DevHeader,
		}),
		middleware.IdempotencyValidator(middleware.IdempotencyOptions{MaxLen: 200}, submissionLookup(deps.DB)),
		rl.Handler(),
	)
	{
		// Training
		api.POST("/train/submit", h.Submit)
		api.GET("/train/next", h.Next)

		// Settings
		api.GET("/settings", h.GetSettings)
		api.PUT("/settings", h.UpdateSettings)

		// Progress
		api.GET("/progress", h.ListProgress)
		api.GET("/progress/summary", h.ProgressSummary)
		api.GET("/submissions", h.ListSubmissions)
	}
}

// corsMiddleware returns the CORS chain. With no allowlist every origin is
// accepted without credentials; otherwise allowed origins are echoed back.
func corsMiddleware(origins []string) []gin.HandlerFunc {
	base := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.HeaderDevUser, middleware.HeaderIdempotencyKey},
		ExposeHeaders:    []string{"X-Request-ID", "ETag", "Retry-After", "Idempotent-Replayed"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}

	if len(origins) == 0 {
		base.AllowAllOrigins = true
		// Force ACAO: * even for requests without an Origin header.
		force := func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		}
		return []gin.HandlerFunc{force, cors.New(base)}
	}

	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		allowed[o] = struct{}{}
	}
	echo := func(c *gin.Context) {
		if origin := c.GetHeader("Origin"); origin != "" {
			if _, ok := allowed[origin]; ok {
				h := c.Writer.Header()
				h.Set("Access-Control-Allow-Origin", origin)
				h.Add("Vary", "Origin")
			}
		}
		c.Next()
	}
	base.AllowOrigins = origins
	return []gin.HandlerFunc{echo, cors.New(base)}
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
