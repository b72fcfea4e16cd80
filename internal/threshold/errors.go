package threshold

import "errors"

// Domain errors for the threshold package.
var (
	// ErrProfileNotFound is returned when a profile ID does not exist.
	ErrProfileNotFound = errors.New("threshold: profile not found")

	// ErrProfileExists is returned when a profile ID or name is already taken.
	ErrProfileExists = errors.New("threshold: profile already exists")

	// ErrAssignmentNotFound is returned when an assignment ID does not exist.
	ErrAssignmentNotFound = errors.New("threshold: assignment not found")

	// ErrInvalidProfile is returned when profile bounds are inconsistent.
	ErrInvalidProfile = errors.New("threshold: invalid profile")

	// ErrInvalidAssignment is returned when an assignment window is malformed.
	ErrInvalidAssignment = errors.New("threshold: invalid assignment")
)
