package alert

import "errors"

var (
	// ErrAlertNotFound is returned when no alert has the requested ID.
	ErrAlertNotFound = errors.New("alert: not found")

	// ErrInvalidTransition is returned when a lifecycle change is not allowed
	// from the alert's current status.
	ErrInvalidTransition = errors.New("alert: invalid status transition")

	// ErrInvalidAlert is returned when an alert is missing required fields.
	ErrInvalidAlert = errors.New("alert: invalid alert")

	// ErrInvalidCommand is returned for malformed MQTT alert commands.
	ErrInvalidCommand = errors.New("alert: invalid command")

	// ErrQueueFull is returned when the dispatcher queue has no room.
	ErrQueueFull = errors.New("alert: queue full")

	// ErrDispatcherStopped is returned once the dispatcher no longer accepts events.
	ErrDispatcherStopped = errors.New("alert: dispatcher stopped")
)
