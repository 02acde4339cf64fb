// Package handlers defines HTTP-layer error codes used across all API endpoints.
//
// Codes are lowercase snake_case and stable; clients branch on them rather
// than on messages. Generic codes mirror HTTP status semantics, domain codes
// name the failing step of the training pipeline.
//
//	{
//	  "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6",
//	  "code": "quota_exceeded",
//	  "message": "daily grading quota exceeded"
//	}
package handlers

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeUnauthorized     = "unauthorized"
	ErrCodeNotFound         = "not_found"
	ErrCodeRateLimited      = "too_many_requests"
	ErrCodeInternal         = "internal_error"
	ErrCodeMethodNotAllowed = "method_not_allowed"

	// Training pipeline:
	ErrCodeValidation        = "validation_failed"
	ErrCodeItemNotFound      = "item_not_found"
	ErrCodeQuotaExceeded     = "quota_exceeded"
	ErrCodeGraderUnavailable = "grader_unavailable"
	ErrCodeGraderFormat      = "grader_format"
	ErrCodePersistence       = "persistence_failed"
)
