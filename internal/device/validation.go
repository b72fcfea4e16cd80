package device

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Validation limits.
const (
	maxNameLength = 100
	maxSlaveID    = 247
	maxPort       = 65535
	minDataBits   = 5
	maxDataBits   = 8
)

var (
	validProtocols map[Protocol]struct{}
	validParities  map[Parity]struct{}
)

func init() {
	validProtocols = make(map[Protocol]struct{}, len(AllProtocols()))
	for _, p := range AllProtocols() {
		validProtocols[p] = struct{}{}
	}
	validParities = make(map[Parity]struct{}, len(AllParities()))
	for _, p := range AllParities() {
		validParities[p] = struct{}{}
	}
}

// ApplyDefaults fills zero-valued connection and calibration fields with
// the documented defaults. Scales default to 1.0, so a stored scale of 0 is
// not representable through this path.
func ApplyDefaults(d *Device) {
	if d == nil {
		return
	}
	if d.Protocol == ProtocolTCP && d.Port == 0 {
		d.Port = DefaultTCPPort
	}
	if d.BaudRate == 0 {
		d.BaudRate = DefaultBaudRate
	}
	if d.DataBits == 0 {
		d.DataBits = DefaultDataBits
	}
	if d.StopBits == 0 {
		d.StopBits = DefaultStopBits
	}
	if d.Parity == "" {
		d.Parity = ParityNone
	}
	if d.SlaveID == 0 {
		d.SlaveID = DefaultSlaveID
	}
	if d.TemperatureScale == 0 {
		d.TemperatureScale = 1.0
	}
	if d.HumidityScale == 0 {
		d.HumidityScale = 1.0
	}
	if d.PollingIntervalSeconds == 0 {
		d.PollingIntervalSeconds = DefaultPollingInterval
	}
}

// ValidateDevice checks a device before it is persisted.
// Returns an error describing the first validation failure found.
//
// MARK/SPACE parity and 1.5 stop bits pass here: they are legal device
// settings that the serial driver rejects at poll time.
func ValidateDevice(d *Device) error {
	if d == nil {
		return ErrInvalidDevice
	}
	if err := ValidateName(d.Name); err != nil {
		return err
	}
	if err := ValidateProtocol(d.Protocol); err != nil {
		return err
	}

	switch d.Protocol {
	case ProtocolTCP:
		if strings.TrimSpace(d.Host) == "" {
			return fmt.Errorf("%w: host is required for TCP", ErrInvalidDevice)
		}
		if d.Port < 1 || d.Port > maxPort {
			return fmt.Errorf("%w: port %d out of range", ErrInvalidDevice, d.Port)
		}
	case ProtocolRTU:
		if err := validateSerial(d); err != nil {
			return err
		}
	}

	if d.SlaveID < 0 || d.SlaveID > maxSlaveID {
		return fmt.Errorf("%w: slave id %d out of range 0-%d", ErrInvalidDevice, d.SlaveID, maxSlaveID)
	}
	if d.PollingIntervalSeconds < 0 {
		return fmt.Errorf("%w: polling interval must not be negative", ErrInvalidDevice)
	}
	if d.WarningThreshold != nil && *d.WarningThreshold < 0 {
		return fmt.Errorf("%w: warning threshold must not be negative", ErrInvalidDevice)
	}
	if d.CriticalThreshold != nil && *d.CriticalThreshold < 0 {
		return fmt.Errorf("%w: critical threshold must not be negative", ErrInvalidDevice)
	}

	return nil
}

func validateSerial(d *Device) error {
	if strings.TrimSpace(d.SerialPort) == "" {
		return fmt.Errorf("%w: serial port is required for RTU", ErrInvalidSerial)
	}
	if d.BaudRate <= 0 {
		return fmt.Errorf("%w: baud rate must be positive", ErrInvalidSerial)
	}
	if d.DataBits < minDataBits || d.DataBits > maxDataBits {
		return fmt.Errorf("%w: data bits %d out of range", ErrInvalidSerial, d.DataBits)
	}
	switch d.StopBits {
	case 1, 2, StopBitsOnePointFive:
	default:
		return fmt.Errorf("%w: stop bits %d", ErrInvalidSerial, d.StopBits)
	}
	if _, ok := validParities[d.Parity]; !ok {
		return fmt.Errorf("%w: parity %q", ErrInvalidSerial, d.Parity)
	}
	return nil
}

// ValidateName checks that a device name is non-empty and within length limits.
func ValidateName(name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidName)
	}
	if len(name) > maxNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidName, maxNameLength)
	}
	return nil
}

// ValidateProtocol checks that a protocol is recognised.
func ValidateProtocol(p Protocol) error {
	if p == "" {
		return fmt.Errorf("%w: protocol is required", ErrInvalidProtocol)
	}
	if _, ok := validProtocols[p]; !ok {
		return fmt.Errorf("%w: %q", ErrInvalidProtocol, p)
	}
	return nil
}

// GenerateID creates a new UUID for a device.
func GenerateID() string {
	return uuid.New().String()
}
