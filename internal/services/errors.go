// Package services defines the business logic for item selection, graded
// submissions, study settings and progress reporting. This file centralizes
// the service-level error values so that they can be consistently returned
// by service methods and checked by callers.
//
// Translation into user-facing messages and HTTP status codes is performed
// at the handler layer. Messages never carry storage or provider details.
package services

import "errors"

var (
	// ErrValidation is returned for malformed input: empty or oversized
	// candidate text, a malformed idempotency token, a missing item id, an
	// unknown study mode, or a token reused for a different submission.
	ErrValidation = errors.New("invalid request")

	// ErrUnauthenticated indicates the caller has no verified identity.
	// It is produced by the auth middleware and never by a service.
	ErrUnauthenticated = errors.New("authentication required")

	// ErrItemNotFound indicates the requested passage does not exist.
	ErrItemNotFound = errors.New("item not found")

	// ErrQuotaExceeded is returned when the caller's daily grading allowance
	// has been used up.
	ErrQuotaExceeded = errors.New("daily quota exceeded")

	// ErrGraderUnavailable is returned when the grader could not be reached
	// or refused the request after retries.
	ErrGraderUnavailable = errors.New("grader unavailable")

	// ErrGraderFormat is returned when the grader answered with output that
	// fails validation.
	ErrGraderFormat = errors.New("grader returned malformed output")

	// ErrPersistence wraps storage failures while reading or committing.
	ErrPersistence = errors.New("storage failure")
)
