// Command server runs the literary-forge training API.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/Mts-Potter/literary-forge/internal/config"
	"github.com/Mts-Potter/literary-forge/internal/grading"
	httpapi "github.com/Mts-Potter/literary-forge/internal/http"
	"github.com/Mts-Potter/literary-forge/internal/jobs"
	"github.com/Mts-Potter/literary-forge/internal/observability"
	"github.com/Mts-Potter/literary-forge/internal/quota"
	"github.com/Mts-Potter/literary-forge/internal/repo"
	"github.com/Mts-Potter/literary-forge/internal/srs"
	"github.com/Mts-Potter/literary-forge/internal/sysutil"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

const shutdownTimeout = 20 * time.Second

func main() {
	// A missing .env is fine; real deployments use the environment.
	_ = godotenv.Load()

	cfg := config.MustLoad()
	sysutil.SetupLogger(cfg.LogLevel, cfg.LogPretty, nil)

	if err := run(cfg); err != nil {
		log.Fatal().Err(err).Msg("server_exit")
	}
}

func run(cfg config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ver := sysutil.FirstNonEmpty(os.Getenv("APP_VERSION"), version)
	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, ver)
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTel(sctx); err != nil {
			log.Warn().Err(err).Msg("otel_shutdown")
		}
	}()

	db, err := repo.Open(repo.Options{
		Driver:  cfg.DBDriver,
		Path:    cfg.DBPath,
		DSN:     cfg.DBDSN,
		Tracing: cfg.OTEL.Enabled,
	})
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	sched, err := newScheduler(cfg.SRS)
	if err != nil {
		return err
	}

	runner := jobs.New()
	q, closeQuota, err := newQuota(ctx, cfg, db, runner)
	if err != nil {
		return err
	}
	defer closeQuota()

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	httpapi.RegisterRoutes(r, httpapi.Deps{
		DB:        db,
		Grader:    newGrader(cfg.Grader),
		Quota:     q,
		Scheduler: sched,
	}, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	runner.Start()
	defer runner.Stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("version", ver).Str("db", cfg.DBDriver).
			Str("grader", cfg.Grader.Backend).Str("quota", cfg.Quota.Backend).Msg("server_start")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info().Msg("server_shutdown")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func newGrader(gc config.GraderConfig) grading.Grader {
	if gc.Backend == "mock" {
		log.Warn().Msg("using offline mock grader")
		return grading.NewMock()
	}
	return grading.NewAnthropic(grading.AnthropicConfig{
		APIKey:    gc.APIKey,
		Model:     gc.Model,
		BaseURL:   gc.BaseURL,
		MaxTokens: int64(gc.MaxTokens),
		Timeout:   gc.Timeout,
	})
}

// newQuota builds the configured quota backend. A zero daily limit disables
// quota enforcement. The returned close func is always non-nil.
func newQuota(ctx context.Context, cfg config.Config, db *gorm.DB, runner *jobs.Runner) (quota.Service, func(), error) {
	noop := func() {}
	if cfg.Quota.DailyLimit == 0 {
		return quota.Unlimited{}, noop, nil
	}
	switch cfg.Quota.Backend {
	case "none":
		return quota.Unlimited{}, noop, nil
	case "redis":
		rs, err := quota.NewRedisStore(ctx, cfg.Quota.RedisAddr, cfg.Quota.RedisDB, cfg.Quota.DailyLimit)
		if err != nil {
			return nil, noop, fmt.Errorf("redis quota: %w", err)
		}
		return rs, func() { _ = rs.Close() }, nil
	default:
		ss := quota.NewSQLStore(db, cfg.Quota.DailyLimit)
		if err := runner.SchedulePurge("quota_purge", cfg.CleanupInterval, ss); err != nil {
			return nil, noop, err
		}
		return ss, noop, nil
	}
}

func newScheduler(sc config.SRSConfig) (*srs.Scheduler, error) {
	base := srs.Config{
		TargetRetention:    sc.TargetRetention,
		MaximumInterval:    sc.MaxIntervalDays,
		DisableFuzz:        !sc.EnableFuzz,
		GraduatingInterval: sc.GraduatingInterval,
	}
	if sc.ParamsFile != "" {
		var err error
		if base, err = srs.LoadConfigFile(sc.ParamsFile, base); err != nil {
			return nil, err
		}
		log.Info().Str("file", sc.ParamsFile).Msg("srs parameters loaded")
	}
	s, err := srs.NewScheduler(base)
	if err != nil {
		return nil, fmt.Errorf("srs: %w", err)
	}
	return s, nil
}
