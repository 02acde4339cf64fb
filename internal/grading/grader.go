// Package grading scores a learner's stylistic imitation of a passage.
//
// A Grader returns an overall accuracy, four per-criterion sub-scores and
// qualitative feedback. Failures are classified so callers can decide what
// to retry:
//   - ErrUnavailable: transient (timeouts, network, 5xx, rate limiting).
//   - ErrRejected: the provider refused the request (4xx-class); permanent.
//   - ErrFormat: the provider answered but the payload is unusable.
package grading

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/Mts-Potter/literary-forge/internal/domain"
)

var (
	ErrUnavailable = errors.New("grading: grader unavailable")
	ErrRejected    = errors.New("grading: request rejected")
	ErrFormat      = errors.New("grading: malformed grader output")
)

// Request is one imitation to grade against its source passage.
type Request struct {
	OriginalText  string
	CandidateText string
	Metrics       domain.StyleMetrics
}

// Result is a grader's verdict.
type Result struct {
	Accuracy    float64          `json:"overall_accuracy"`
	SubScores   domain.SubScores `json:"scores"`
	Feedback    string           `json:"feedback"`
	Suggestions []string         `json:"suggestions,omitempty"`
}

// Grader scores imitations. Implementations must honor ctx cancellation and
// return it unwrapped (context.Canceled / context.DeadlineExceeded from the
// caller's ctx) so cancellation is distinguishable from provider failure.
type Grader interface {
	Grade(ctx context.Context, req Request) (Result, error)
}

// Validate checks that every score is within [0,100] and that feedback is
// present. Violations wrap ErrFormat.
func (r Result) Validate() error {
	scores := []struct {
		name string
		v    float64
	}{
		{"overall_accuracy", r.Accuracy},
		{"structure", r.SubScores.Structure},
		{"vocabulary", r.SubScores.Vocabulary},
		{"rhythm", r.SubScores.Rhythm},
		{"tone", r.SubScores.Tone},
	}
	for _, s := range scores {
		if math.IsNaN(s.v) || s.v < 0 || s.v > 100 {
			return fmt.Errorf("%w: %s=%v", ErrFormat, s.name, s.v)
		}
	}
	if strings.TrimSpace(r.Feedback) == "" {
		return fmt.Errorf("%w: empty feedback", ErrFormat)
	}
	return nil
}

// IsTransient reports whether err is worth retrying.
func IsTransient(err error) bool {
	return errors.Is(err, ErrUnavailable)
}
