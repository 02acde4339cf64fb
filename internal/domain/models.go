// Package domain defines the persistence models for passages, review cards,
// graded submissions, user settings and quota usage. These types are mapped
// with GORM and form the core data layer of the review backend.
package domain

import (
	"time"

	"github.com/Mts-Potter/literary-forge/internal/srs"
	"gorm.io/datatypes"
)

// StyleMetrics are precomputed stylometric features of a passage, used as
// reference values when grading an imitation.
type StyleMetrics struct {
	SentenceLengthAvg      float64 `json:"sentence_length_avg"`
	SentenceLengthVariance float64 `json:"sentence_length_variance"`
	DependencyDistance     float64 `json:"dependency_distance"`
	AdjVerbRatio           float64 `json:"adj_verb_ratio"`
	MTLD                   float64 `json:"mtld"`
}

// Item is one presentable passage from the content library.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - CollectionID: the source work (book) the passage was cut from; indexed
//     so selection can filter by collection.
//   - Content: the original passage text the learner imitates.
//   - Metrics: precomputed style metrics stored as JSON.
type Item struct {
	ID           string                           `json:"id"            gorm:"type:char(36);primaryKey"`
	CollectionID string                           `json:"collection_id" gorm:"type:varchar(64);not null;index:idx_items_collection"`
	Title        string                           `json:"title"         gorm:"type:varchar(255);not null"`
	Author       string                           `json:"author"        gorm:"type:varchar(255);not null;default:''"`
	Content      string                           `json:"content"       gorm:"type:text;not null"`
	CEFRLevel    string                           `json:"cefr_level,omitempty" gorm:"type:varchar(4)"`
	Metrics      datatypes.JSONType[StyleMetrics] `json:"metrics"`
	CreatedAt    time.Time                        `json:"created_at"    gorm:"index:idx_items_created"`
}

// TableName returns the database table name for Item.
func (Item) TableName() string { return "items" }

// Card is the persisted scheduling record for a (user, item) pair. Rows are
// created by the first committed submission; until then the item is
// represented by srs.NewCard().
//
// Version is bumped on every committed review and guards updates with a
// compare-and-set so concurrent submissions cannot both apply.
type Card struct {
	UserID           string     `json:"user_id"        gorm:"type:varchar(64);primaryKey;index:idx_cards_user_due,priority:1"`
	ItemID           string     `json:"item_id"        gorm:"type:char(36);primaryKey"`
	State            srs.State  `json:"state"          gorm:"type:varchar(16);not null"`
	Difficulty       float64    `json:"difficulty"     gorm:"not null"`
	Stability        float64    `json:"stability"      gorm:"not null"`
	Due              time.Time  `json:"due"            gorm:"not null;index:idx_cards_user_due,priority:2"`
	ElapsedDays      float64    `json:"elapsed_days"   gorm:"not null;default:0"`
	ScheduledDays    float64    `json:"scheduled_days" gorm:"not null;default:0"`
	Reps             int        `json:"reps"           gorm:"not null;default:0"`
	Lapses           int        `json:"lapses"         gorm:"not null;default:0"`
	LastReview       *time.Time `json:"last_review"`
	Version          int64      `json:"-"              gorm:"not null;default:0"`
	LastSubmissionID string     `json:"-"              gorm:"type:char(36)"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// TableName returns the database table name for Card.
func (Card) TableName() string { return "cards" }

// SRS converts the persisted row into the scheduler's card.
func (c Card) SRS() srs.Card {
	due := c.Due
	out := srs.Card{
		State:         c.State,
		Difficulty:    c.Difficulty,
		Stability:     c.Stability,
		Due:           &due,
		ElapsedDays:   c.ElapsedDays,
		ScheduledDays: c.ScheduledDays,
		Reps:          c.Reps,
		Lapses:        c.Lapses,
	}
	if c.LastReview != nil {
		lr := *c.LastReview
		out.LastReview = &lr
	}
	return out
}

// Apply copies a scheduled srs.Card onto the row. Identity and
// bookkeeping columns are left untouched.
func (c *Card) Apply(sc srs.Card) {
	c.State = sc.State
	c.Difficulty = sc.Difficulty
	c.Stability = sc.Stability
	if sc.Due != nil {
		c.Due = *sc.Due
	}
	c.ElapsedDays = sc.ElapsedDays
	c.ScheduledDays = sc.ScheduledDays
	c.Reps = sc.Reps
	c.Lapses = sc.Lapses
	c.LastReview = sc.LastReview
}

// SubScores are the per-criterion scores returned by the grader.
type SubScores struct {
	Structure  float64 `json:"structure"`
	Vocabulary float64 `json:"vocabulary"`
	Rhythm     float64 `json:"rhythm"`
	Tone       float64 `json:"tone"`
}

// Submission is an append-only record of one accepted grading round-trip.
// A user may not reuse an idempotency token (ux_submissions_user_token),
// and Fingerprint lets duplicates of the same text be found within the
// recency window.
type Submission struct {
	ID               string                        `json:"id"                gorm:"type:char(36);primaryKey"`
	UserID           string                        `json:"user_id"           gorm:"type:varchar(64);not null;uniqueIndex:ux_submissions_user_token,priority:1;index:idx_submissions_user_created,priority:1"`
	IdempotencyToken string                        `json:"idempotency_token" gorm:"type:varchar(200);not null;uniqueIndex:ux_submissions_user_token,priority:2"`
	ItemID           string                        `json:"item_id"           gorm:"type:char(36);not null;index"`
	CandidateText    string                        `json:"candidate_text"    gorm:"type:text;not null"`
	Fingerprint      string                        `json:"-"                 gorm:"type:char(64);not null;index:idx_submissions_fp_created,priority:1"`
	AccuracyScore    float64                       `json:"accuracy_score"    gorm:"not null"`
	SubScores        datatypes.JSONType[SubScores] `json:"sub_scores"`
	FeedbackText     string                        `json:"feedback_text"     gorm:"type:text;not null"`
	Suggestions      datatypes.JSONSlice[string]   `json:"suggestions,omitempty"`
	Grade            srs.Grade                     `json:"grade"             gorm:"not null"`
	NextReview       time.Time                     `json:"next_review"       gorm:"not null"`
	IntervalDays     int                           `json:"interval_days"     gorm:"not null"`
	CreatedAt        time.Time                     `json:"created_at"        gorm:"not null;index:idx_submissions_fp_created,priority:2;index:idx_submissions_user_created,priority:2"`
}

// TableName returns the database table name for Submission.
func (Submission) TableName() string { return "submissions" }

// Study modes.
const (
	ModeSpaced = "spaced"
	ModeLinear = "linear"
)

// UserSettings holds per-user preferences. A missing row means defaults.
type UserSettings struct {
	UserID    string    `json:"user_id"    gorm:"type:varchar(64);primaryKey"`
	Mode      string    `json:"mode"       gorm:"type:varchar(16);not null;default:'spaced';check:mode IN ('spaced','linear')"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for UserSettings.
func (UserSettings) TableName() string { return "user_settings" }

// QuotaUsage counts consumed grading units per key and UTC day.
type QuotaUsage struct {
	Key   string    `json:"key"   gorm:"type:varchar(128);primaryKey"`
	Day   string    `json:"day"   gorm:"type:char(10);primaryKey;index"` // YYYY-MM-DD (UTC)
	Count int       `json:"count" gorm:"not null;default:0"`
	Seen  time.Time `json:"seen"  gorm:"not null"`
}

// TableName returns the database table name for QuotaUsage.
func (QuotaUsage) TableName() string { return "quota_usage" }
