package srs

import "time"

// Default memory parameters of a card that has never been graded.
const (
	DefaultDifficulty = 5.0
	DefaultStability  = 0.0
)

// Card is the scheduling record for one (user, item) pair.
type Card struct {
	State         State      `json:"state"`
	Difficulty    float64    `json:"difficulty"`
	Stability     float64    `json:"stability"`
	Due           *time.Time `json:"due"` // nil until the first graded attempt.
	ElapsedDays   float64    `json:"elapsed_days"`
	ScheduledDays float64    `json:"scheduled_days"`
	Reps          int        `json:"reps"`
	Lapses        int        `json:"lapses"`
	LastReview    *time.Time `json:"last_review"` // nil before the first review.
}

// NewCard returns the canonical never-seen card. Every caller that needs a
// default card (selection of unattempted items, first submission) uses it.
func NewCard() Card {
	return Card{
		State:      New,
		Difficulty: DefaultDifficulty,
		Stability:  DefaultStability,
	}
}

// IsDue reports whether the card may be presented at now.
func (c Card) IsDue(now time.Time) bool {
	return c.Due == nil || !c.Due.After(now)
}

// clone returns a copy of the card. Pointer fields are copied by value.
func (c Card) clone() Card {
	out := c
	if c.Due != nil {
		v := *c.Due
		out.Due = &v
	}
	if c.LastReview != nil {
		v := *c.LastReview
		out.LastReview = &v
	}
	return out
}
