package port

import "errors"

// Error taxonomy shared by services, repositories and the HTTP boundary
var (
	// ErrInvalidState is returned when an operation is not valid for the current status
	ErrInvalidState = errors.New("invalid state")

	// ErrNotOwner is returned when the actor does not own the request
	ErrNotOwner = errors.New("actor is not the owner")

	// ErrForbidden is returned when the actor lacks the approver capability
	ErrForbidden = errors.New("forbidden")

	// ErrValidation is returned for malformed or missing input
	ErrValidation = errors.New("validation error")

	// ErrNotFound is returned when an entity does not exist
	ErrNotFound = errors.New("not found")

	// ErrStorageConflict is returned when a concurrent write collided and the retry also failed
	ErrStorageConflict = errors.New("storage conflict")
)
