package srs

import (
	"encoding"
	"encoding/json"
	"fmt"
	"math"
)

// Grade is the discrete outcome of a graded attempt.
type Grade int

const (
	Again Grade = iota + 1 // Attempt failed to capture the style.
	Hard                   // Captured with significant gaps.
	Good                   // Captured with minor gaps.
	Easy                   // Captured effortlessly.
)

// Accuracy thresholds shared with data already stored by earlier clients.
const (
	HardThreshold = 55.0
	GoodThreshold = 78.0
	EasyThreshold = 92.0
)

var (
	gradeNames  = [...]string{Again: "Again", Hard: "Hard", Good: "Good", Easy: "Easy"}
	gradeByName = map[string]Grade{
		"Again": Again,
		"Hard":  Hard,
		"Good":  Good,
		"Easy":  Easy,
	}
)

// Compile-time interface checks.
var (
	_ fmt.Stringer             = Grade(0)
	_ json.Marshaler           = Grade(0)
	_ json.Unmarshaler         = (*Grade)(nil)
	_ encoding.TextMarshaler   = Grade(0)
	_ encoding.TextUnmarshaler = (*Grade)(nil)
)

// MapToGrade converts an accuracy score in [0,100] into a Grade.
//
//	score < 55        → Again
//	55 <= score < 78  → Hard
//	78 <= score < 92  → Good
//	score >= 92       → Easy
//
// Scores outside [0,100] (including NaN) return ErrScoreOutOfRange.
func MapToGrade(score float64) (Grade, error) {
	if math.IsNaN(score) || score < 0 || score > 100 {
		return 0, fmt.Errorf("%w: %v", ErrScoreOutOfRange, score)
	}
	switch {
	case score < HardThreshold:
		return Again, nil
	case score < GoodThreshold:
		return Hard, nil
	case score < EasyThreshold:
		return Good, nil
	default:
		return Easy, nil
	}
}

// String returns the name of the grade. For invalid values it returns "Grade(n)".
func (g Grade) String() string {
	if g.IsValid() {
		return gradeNames[g]
	}
	return fmt.Sprintf("Grade(%d)", int(g))
}

// IsValid reports whether g is a valid grade (Again through Easy).
func (g Grade) IsValid() bool {
	return g >= Again && g <= Easy
}

// MarshalText implements encoding.TextMarshaler.
func (g Grade) MarshalText() ([]byte, error) {
	if !g.IsValid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidGrade, int(g))
	}
	return []byte(gradeNames[g]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (g *Grade) UnmarshalText(text []byte) error {
	v, ok := gradeByName[string(text)]
	if !ok {
		return fmt.Errorf("%w: %q", ErrInvalidGrade, text)
	}
	*g = v
	return nil
}

// MarshalJSON implements json.Marshaler. Grade serializes as a JSON string.
func (g Grade) MarshalJSON() ([]byte, error) {
	text, err := g.MarshalText()
	if err != nil {
		return nil, err
	}
	return json.Marshal(string(text))
}

// UnmarshalJSON implements json.Unmarshaler. Expects a JSON string.
func (g *Grade) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidGrade, data)
	}
	return g.UnmarshalText([]byte(s))
}
