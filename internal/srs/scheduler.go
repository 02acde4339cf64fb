package srs

import (
	"fmt"
	"math/rand"
	"time"
)

const day = 24 * time.Hour

// Config configures a Scheduler.
// Zero values produce sensible defaults; see field comments.
type Config struct {
	Parameters         [21]float64 // zero → DefaultParameters
	TargetRetention    float64     // zero → 0.85
	MaximumInterval    int         // zero → 365 days
	DisableFuzz        bool        // zero false → fuzz enabled
	GraduatingInterval int         // zero → 3 days; Learning cards graduate at or above it
	RelearningInterval int         // zero → 1 day; interval after Again
}

// Result is the outcome of scheduling one graded attempt.
type Result struct {
	Card         Card      `json:"card"`
	Due          time.Time `json:"due"`
	IntervalDays int       `json:"interval_days"`
}

// Scheduler computes the next card state for a graded attempt.
// It holds no mutable state and is safe for concurrent use.
type Scheduler struct {
	algo               algo
	targetRetention    float64
	maximumInterval    int
	disableFuzz        bool
	graduatingInterval int
	relearningInterval int
}

// NewScheduler creates a Scheduler from the given config.
// Zero-value fields are filled with defaults; invalid values return an error.
func NewScheduler(cfg Config) (*Scheduler, error) {
	params := cfg.Parameters
	if params == [21]float64{} {
		params = DefaultParameters
	}
	if err := ValidateParameters(params); err != nil {
		return nil, err
	}

	tr := cfg.TargetRetention
	if tr == 0 {
		tr = 0.85
	}
	if tr <= 0 || tr >= 1 {
		return nil, fmt.Errorf("srs: target retention %f out of range (0, 1)", tr)
	}

	maxIvl := cfg.MaximumInterval
	if maxIvl == 0 {
		maxIvl = 365
	}
	if maxIvl < 1 {
		return nil, fmt.Errorf("srs: maximum interval %d must be positive", maxIvl)
	}

	grad := cfg.GraduatingInterval
	if grad == 0 {
		grad = 3
	}
	relearn := cfg.RelearningInterval
	if relearn == 0 {
		relearn = 1
	}
	if grad < 1 || relearn < 1 || relearn > maxIvl {
		return nil, fmt.Errorf("srs: graduating (%d) and relearning (%d) intervals must be in [1, %d]", grad, relearn, maxIvl)
	}

	return &Scheduler{
		algo:               newAlgo(params),
		targetRetention:    tr,
		maximumInterval:    maxIvl,
		disableFuzz:        cfg.DisableFuzz,
		graduatingInterval: grad,
		relearningInterval: relearn,
	}, nil
}

// Schedule applies grade to card at reviewTime and returns the new card
// together with its due date and interval. The input card is not mutated.
//
// Transitions:
//
//	New        → Learning (any grade)
//	Learning   → Learning on Again or while the interval is below the graduating interval
//	Learning   → Review once the interval reaches the graduating interval
//	Review     → Review on Hard/Good/Easy, Relearning on Again (lapses+1)
//	Relearning → Review on Hard/Good/Easy, Relearning on Again (lapses+1)
func (s *Scheduler) Schedule(card Card, grade Grade, reviewTime time.Time) (Result, error) {
	if !grade.IsValid() {
		return Result{}, fmt.Errorf("%w: %d", ErrInvalidGrade, int(grade))
	}
	if !card.State.IsValid() {
		return Result{}, fmt.Errorf("%w: %d", ErrInvalidState, int(card.State))
	}

	c := card.clone()

	var elapsedDays float64
	if c.LastReview != nil {
		elapsedDays = max(reviewTime.Sub(*c.LastReview).Hours()/24.0, 0)
	}

	s.updateMemory(&c, grade, elapsedDays)
	interval := s.transition(&c, grade)

	if !s.disableFuzz && c.State == Review {
		rng := rand.New(rand.NewSource(fuzzSeed(reviewTime, card)))
		interval = applyFuzz(interval, s.maximumInterval, rng)
	}

	due := reviewTime.Add(time.Duration(interval) * day)
	c.Reps++
	c.ElapsedDays = elapsedDays
	c.ScheduledDays = float64(interval)
	c.Due = &due
	c.LastReview = &reviewTime

	return Result{Card: c, Due: due, IntervalDays: interval}, nil
}

// Retrievability returns the predicted probability of recall at now.
// Returns 0 for cards that have never been graded.
func (s *Scheduler) Retrievability(card Card, now time.Time) float64 {
	if card.LastReview == nil || card.State == New {
		return 0
	}
	elapsed := max(now.Sub(*card.LastReview).Hours()/24.0, 0)
	return s.algo.retrievability(elapsed, card.Stability)
}

// updateMemory updates stability and difficulty for the graded attempt.
func (s *Scheduler) updateMemory(c *Card, grade Grade, elapsedDays float64) {
	if c.State == New || c.Stability <= 0 {
		c.Stability = s.algo.initStability(grade)
		c.Difficulty = s.algo.initDifficulty(grade, true)
		return
	}
	c.Stability = s.algo.nextStability(c.Difficulty, c.Stability, elapsedDays, grade)
	c.Difficulty = s.algo.nextDifficulty(c.Difficulty, grade)
}

// transition applies the state machine and returns the interval in days.
func (s *Scheduler) transition(c *Card, grade Grade) int {
	switch c.State {
	case New:
		c.State = Learning
		if grade == Again {
			return s.relearningInterval
		}
		return s.nextInterval(c.Stability)

	case Learning:
		if grade == Again {
			return s.relearningInterval
		}
		ivl := s.nextInterval(c.Stability)
		if ivl >= s.graduatingInterval {
			c.State = Review
		}
		return ivl

	case Review:
		if grade == Again {
			c.State = Relearning
			c.Lapses++
			return s.relearningInterval
		}
		return s.nextInterval(c.Stability)

	case Relearning:
		if grade == Again {
			c.Lapses++
			return s.relearningInterval
		}
		c.State = Review
		return s.nextInterval(c.Stability)

	default:
		panic(fmt.Sprintf("srs: unreachable state %v", c.State))
	}
}

func (s *Scheduler) nextInterval(stability float64) int {
	return s.algo.nextInterval(stability, s.targetRetention, s.maximumInterval)
}
