package srs

import "errors"

// Sentinel errors for the srs package.
// Use errors.Is to check: errors.Is(err, srs.ErrInvalidGrade)
var (
	ErrInvalidGrade      = errors.New("srs: invalid grade")
	ErrInvalidState      = errors.New("srs: invalid state")
	ErrInvalidParameters = errors.New("srs: parameters out of bounds")
	ErrScoreOutOfRange   = errors.New("srs: accuracy score out of range [0,100]")
)
