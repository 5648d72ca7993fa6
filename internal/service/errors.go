package service

import "errors"

var (
	// ErrNotFound is returned when an entity does not exist for the given
	// id and owner.
	ErrNotFound = errors.New("record not found")

	// ErrInvalidSeverity is returned for an allergen severity outside
	// {mild, moderate, severe} or an issue severity outside 1-10.
	ErrInvalidSeverity = errors.New("invalid severity")

	// ErrInvalidStatus is returned for an issue status outside
	// {active, improving, resolved}.
	ErrInvalidStatus = errors.New("invalid status")

	// ErrInvalidImportance is returned for a memory entry importance
	// outside 1-5.
	ErrInvalidImportance = errors.New("invalid importance")

	// ErrInvalidInput is returned for empty required fields.
	ErrInvalidInput = errors.New("invalid input")

	// ErrExtractionUnavailable means the external extraction call failed or
	// returned unparsable output. It is swallowed at the reconciliation
	// boundary and never surfaces to the end user.
	ErrExtractionUnavailable = errors.New("extraction unavailable")

	// ErrAssessmentRequired is returned when an operation needs a completed
	// skin assessment and the user has none.
	ErrAssessmentRequired = errors.New("skin assessment required")
)
