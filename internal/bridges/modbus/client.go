package modbus

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	gmodbus "github.com/goburrow/modbus"

	"github.com/nerrad567/coldwatch-core/internal/device"
)

const (
	// registerQuantity is the number of registers read per FC3 request.
	registerQuantity = 1

	// defaultTimeout applies when the client is built with a zero timeout.
	defaultTimeout = 5 * time.Second
)

// Logger defines the logging interface used by the client.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Measurement holds calibrated sensor values from one device read.
type Measurement struct {
	Temperature float64
	// Humidity is nil when the device has no humidity register.
	Humidity *float64
}

// Reader reads one calibrated measurement from a device.
// The scheduler depends on this interface rather than on *Client.
type Reader interface {
	Read(ctx context.Context, d *device.Device) (Measurement, error)
}

// handler is the subset of the goburrow TCP and RTU handlers the client uses.
type handler interface {
	gmodbus.ClientHandler
	Connect() error
	Close() error
}

// Client performs Modbus FC3 reads against devices from the registry.
//
// A fresh handler is opened and closed for every Read. goburrow clients are
// not safe for concurrent use, so nothing is shared between reads.
type Client struct {
	timeout time.Duration
	logger  Logger
}

// NewClient creates a client whose requests time out after timeout.
func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{timeout: timeout, logger: noopLogger{}}
}

// SetLogger sets the logger for the client.
func (c *Client) SetLogger(logger Logger) {
	if logger != nil {
		c.logger = logger
	}
}

// Read connects to d, reads the temperature register and, when configured,
// the humidity register, and applies each register's scale and offset.
//
// Errors wrap ErrInvalidConfig, ErrReadFailed or ErrShortPayload. No retry
// happens here.
func (c *Client) Read(ctx context.Context, d *device.Device) (Measurement, error) {
	if d == nil {
		return Measurement{}, fmt.Errorf("%w: nil device", ErrInvalidConfig)
	}

	timeout := c.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}
	if err := ctx.Err(); err != nil {
		return Measurement{}, fmt.Errorf("%w: %w", ErrReadFailed, err)
	}

	h, err := newHandler(d, timeout)
	if err != nil {
		return Measurement{}, err
	}

	if err := h.Connect(); err != nil {
		c.closeHandler(h, d)
		return Measurement{}, fmt.Errorf("%w: connecting to %s: %w", ErrReadFailed, endpoint(d), err)
	}
	defer c.closeHandler(h, d)

	client := gmodbus.NewClient(h)

	temperature, err := readRegister(ctx, client, d.TemperatureRegister)
	if err != nil {
		return Measurement{}, fmt.Errorf("reading temperature register %d: %w", d.TemperatureRegister, err)
	}

	m := Measurement{
		Temperature: calibrate(temperature, d.TemperatureScale, d.TemperatureOffset),
	}

	if d.HumidityRegister != nil {
		humidity, err := readRegister(ctx, client, *d.HumidityRegister)
		if err != nil {
			return Measurement{}, fmt.Errorf("reading humidity register %d: %w", *d.HumidityRegister, err)
		}
		hum := calibrate(humidity, d.HumidityScale, d.HumidityOffset)
		m.Humidity = &hum
	}

	c.logger.Debug("modbus read complete",
		"device_id", d.ID,
		"temperature", m.Temperature,
		"humidity", m.Humidity,
	)
	return m, nil
}

// closeHandler closes h and logs failures without surfacing them.
func (c *Client) closeHandler(h handler, d *device.Device) {
	if err := h.Close(); err != nil {
		c.logger.Warn("modbus handler close failed", "device_id", d.ID, "error", err)
	}
}

func readRegister(ctx context.Context, client gmodbus.Client, address uint16) (int16, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrReadFailed, err)
	}

	payload, err := client.ReadHoldingRegisters(address, registerQuantity)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrReadFailed, err)
	}
	return decodeInt16(payload)
}

// decodeInt16 interprets the first two bytes as a big-endian signed value.
func decodeInt16(payload []byte) (int16, error) {
	if len(payload) < 2 {
		return 0, fmt.Errorf("%w: got %d bytes", ErrShortPayload, len(payload))
	}
	return int16(binary.BigEndian.Uint16(payload[:2])), nil //nolint:gosec // two's complement reinterpretation
}

// calibrate applies value = raw*scale + offset.
func calibrate(raw int16, scale, offset float64) float64 {
	return float64(raw)*scale + offset
}

// newHandler builds the transport handler for d's protocol.
func newHandler(d *device.Device, timeout time.Duration) (handler, error) {
	slaveID, err := unitID(d.SlaveID)
	if err != nil {
		return nil, err
	}

	switch d.Protocol {
	case device.ProtocolTCP:
		if strings.TrimSpace(d.Host) == "" {
			return nil, fmt.Errorf("%w: device %s has no host", ErrInvalidConfig, d.ID)
		}
		h := gmodbus.NewTCPClientHandler(endpoint(d))
		h.Timeout = timeout
		h.SlaveId = slaveID
		return h, nil

	case device.ProtocolRTU:
		if strings.TrimSpace(d.SerialPort) == "" {
			return nil, fmt.Errorf("%w: device %s has no serial port", ErrInvalidConfig, d.ID)
		}
		parity, err := serialParity(d.Parity)
		if err != nil {
			return nil, err
		}
		stopBits, err := serialStopBits(d.StopBits)
		if err != nil {
			return nil, err
		}
		h := gmodbus.NewRTUClientHandler(d.SerialPort)
		h.BaudRate = orDefault(d.BaudRate, device.DefaultBaudRate)
		h.DataBits = orDefault(d.DataBits, device.DefaultDataBits)
		h.StopBits = stopBits
		h.Parity = parity
		h.Timeout = timeout
		h.SlaveId = slaveID
		return h, nil

	default:
		return nil, fmt.Errorf("%w: unknown protocol %q", ErrInvalidConfig, d.Protocol)
	}
}

func unitID(id int) (byte, error) {
	if id == 0 {
		return device.DefaultSlaveID, nil
	}
	if id < 0 || id > 255 {
		return 0, fmt.Errorf("%w: slave id %d", ErrInvalidConfig, id)
	}
	return byte(id), nil
}

// serialParity maps stored parity to the driver's single-letter codes.
// The driver has no MARK or SPACE support.
func serialParity(p device.Parity) (string, error) {
	switch p {
	case device.ParityNone, "":
		return "N", nil
	case device.ParityEven:
		return "E", nil
	case device.ParityOdd:
		return "O", nil
	default:
		return "", fmt.Errorf("%w: parity %s is not supported", ErrInvalidConfig, p)
	}
}

func serialStopBits(bits int) (int, error) {
	switch bits {
	case 0:
		return device.DefaultStopBits, nil
	case 1, 2:
		return bits, nil
	case device.StopBitsOnePointFive:
		return 0, fmt.Errorf("%w: 1.5 stop bits is not supported", ErrInvalidConfig)
	default:
		return 0, fmt.Errorf("%w: stop bits %d", ErrInvalidConfig, bits)
	}
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

func endpoint(d *device.Device) string {
	if d.Protocol == device.ProtocolRTU {
		return d.SerialPort
	}
	port := d.Port
	if port == 0 {
		port = device.DefaultTCPPort
	}
	return net.JoinHostPort(d.Host, strconv.Itoa(port))
}

// IsConfigError reports whether err will fail the same way on every retry.
func IsConfigError(err error) bool {
	return errors.Is(err, ErrInvalidConfig)
}
