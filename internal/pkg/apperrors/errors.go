package apperrors

import "errors"

// Query errors
var (
	ErrEmptyQuestion = errors.New("question is empty")
	// ErrOracleUnavailable is returned when the retrieval fallback could not
	// produce an answer. Callers must surface it rather than reply with an
	// empty structured result.
	ErrOracleUnavailable = errors.New("retrieval oracle unavailable")
)

// Catalog errors
var (
	ErrCatalogEmpty      = errors.New("course catalog is empty")
	ErrDuplicateCourseID = errors.New("duplicate course id")
	ErrCourseNotFound    = errors.New("course not found")
)
