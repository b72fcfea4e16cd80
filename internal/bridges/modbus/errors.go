package modbus

import "errors"

// Domain errors for the Modbus bridge package.
var (
	// ErrInvalidConfig is returned when a device's connection settings cannot
	// be turned into a Modbus handler. Retrying will not help.
	ErrInvalidConfig = errors.New("modbus: invalid device configuration")

	// ErrReadFailed is returned when connecting to the device or reading a
	// register fails.
	ErrReadFailed = errors.New("modbus: read failed")

	// ErrShortPayload is returned when a register response carries fewer
	// than two bytes.
	ErrShortPayload = errors.New("modbus: short register payload")
)
