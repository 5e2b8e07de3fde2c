package instance

import "errors"

// Domain errors for the instance package.
var (
	// ErrInstanceNotFound is returned when no instance has the requested id.
	ErrInstanceNotFound = errors.New("instance: not found")

	// ErrInvalidInstance is returned when an instance fails validation.
	ErrInvalidInstance = errors.New("instance: invalid")

	// ErrDisabled is returned when the instance is switched off.
	ErrDisabled = errors.New("instance: disabled")

	// ErrNotAttached is returned when no data source has been attached yet.
	ErrNotAttached = errors.New("instance: no data source attached")

	// ErrNotConnected is returned when the attached data source is offline.
	ErrNotConnected = errors.New("instance: data source not connected")
)
