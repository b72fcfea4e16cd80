// Package modbus reads freezer sensor registers over Modbus TCP or RTU.
//
// Each Read opens a goburrow handler for the device's protocol, issues one
// FC3 (read holding registers, quantity 1) request per configured register,
// decodes the big-endian signed 16-bit value and applies the device's
// linear calibration. The handler is closed before Read returns.
//
// Error classes:
//
//	ErrInvalidConfig  settings the driver cannot use (blank serial port,
//	                  MARK/SPACE parity, 1.5 stop bits, unknown protocol)
//	ErrReadFailed     connect, transport or device exception failures
//	ErrShortPayload   response shorter than one register
//
// Only ErrInvalidConfig is permanent; callers decide whether to retry the rest.
package modbus
