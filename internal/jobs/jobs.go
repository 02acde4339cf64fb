// Package jobs runs periodic housekeeping alongside the HTTP server.
// Today that is the purge of quota counters from previous days.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog/log"
)

// purgeTimeout bounds one purge run.
const purgeTimeout = 30 * time.Second

// Purger deletes expired rows and reports how many were removed.
type Purger interface {
	Purge(ctx context.Context) (int64, error)
}

// Runner owns the background scheduler.
type Runner struct {
	scheduler *gocron.Scheduler
}

// New creates a Runner. Jobs run in UTC and never overlap themselves.
func New() *Runner {
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	return &Runner{scheduler: s}
}

// SchedulePurge runs p every interval, starting immediately once the runner
// is started. Failures are logged and retried on the next tick.
func (r *Runner) SchedulePurge(name string, every time.Duration, p Purger) error {
	if every <= 0 {
		return fmt.Errorf("jobs: %s interval must be positive", name)
	}
	_, err := r.scheduler.Every(every).Tag(name).Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), purgeTimeout)
		defer cancel()

		n, err := p.Purge(ctx)
		if err != nil {
			log.Warn().Err(err).Str("job", name).Msg("purge_failed")
			return
		}
		if n > 0 {
			log.Info().Str("job", name).Int64("rows", n).Msg("purge_done")
		}
	})
	if err != nil {
		return fmt.Errorf("jobs: schedule %s: %w", name, err)
	}
	return nil
}

// Start begins running all scheduled tasks in the background.
func (r *Runner) Start() {
	r.scheduler.StartAsync()
}

// Stop terminates all scheduled tasks and waits for running ones.
func (r *Runner) Stop() {
	r.scheduler.Stop()
}
