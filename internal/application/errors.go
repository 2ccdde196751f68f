package application

import "errors"

var (
	// ErrUnauthorized is returned when the acting principal lacks permission for an operation.
	ErrUnauthorized = errors.New("application: unauthorized")
	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrSlotNotAvailable is returned when an assignment targets a slot that is not open.
	ErrSlotNotAvailable = errors.New("application: slot not available")
	// ErrSuggestionAlreadyAssigned is returned when the suggestion already has a seminar in the plan.
	ErrSuggestionAlreadyAssigned = errors.New("application: suggestion already assigned")
	// ErrRoomInUse is returned when a room deletion is blocked by live references.
	ErrRoomInUse = errors.New("application: room in use")
	// ErrSlotOccupied is returned when a slot deletion is blocked by an assigned seminar.
	ErrSlotOccupied = errors.New("application: slot occupied")
	// ErrTokenNotFound is returned when a speaker token does not resolve.
	ErrTokenNotFound = errors.New("application: token not found")
	// ErrTokenExpired is returned when a speaker token has passed its expiry.
	ErrTokenExpired = errors.New("application: token expired")
	// ErrConfirmationExpired is returned when a two-step confirmation token is stale or unknown.
	ErrConfirmationExpired = errors.New("application: confirmation expired")
	// ErrInvalidCredentials is returned when a password check fails.
	ErrInvalidCredentials = errors.New("application: invalid credentials")
)

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	return "validation failed"
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}
