package device

import "time"

// Protocol identifies the Modbus transport a device is reached over.
type Protocol string

// Supported protocols.
const (
	// ProtocolTCP is Modbus TCP (MBAP framing over a TCP socket).
	ProtocolTCP Protocol = "TCP"

	// ProtocolRTU is Modbus RTU over a serial line.
	ProtocolRTU Protocol = "RTU"
)

// AllProtocols returns every supported protocol.
func AllProtocols() []Protocol {
	return []Protocol{ProtocolTCP, ProtocolRTU}
}

// Parity is the serial parity setting of an RTU device.
type Parity string

// Parity values. MARK and SPACE are stored but the serial driver cannot
// open a port with them.
const (
	ParityNone  Parity = "NONE"
	ParityEven  Parity = "EVEN"
	ParityOdd   Parity = "ODD"
	ParityMark  Parity = "MARK"
	ParitySpace Parity = "SPACE"
)

// AllParities returns every parity value a device row may carry.
func AllParities() []Parity {
	return []Parity{ParityNone, ParityEven, ParityOdd, ParityMark, ParitySpace}
}

// StopBitsOnePointFive is the stored value for 1.5 stop bits.
const StopBitsOnePointFive = 3

// Defaults applied by ApplyDefaults and by the schema.
const (
	DefaultTCPPort         = 502
	DefaultBaudRate        = 9600
	DefaultDataBits        = 8
	DefaultStopBits        = 1
	DefaultSlaveID         = 1
	DefaultPollingInterval = 60
)

// Device is a monitored cold-storage unit (freezer or refrigerator) with a
// Modbus sensor.
type Device struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Protocol Protocol `json:"protocol"`

	// TCP
	Host string `json:"host,omitempty"`
	Port int    `json:"port,omitempty"`

	// RTU
	SerialPort string `json:"serial_port,omitempty"`
	BaudRate   int    `json:"baud_rate,omitempty"`
	DataBits   int    `json:"data_bits,omitempty"`
	StopBits   int    `json:"stop_bits,omitempty"`
	Parity     Parity `json:"parity,omitempty"`

	SlaveID int `json:"slave_id"`

	TemperatureRegister uint16  `json:"temperature_register"`
	HumidityRegister    *uint16 `json:"humidity_register,omitempty"`
	TemperatureScale    float64 `json:"temperature_scale"`
	TemperatureOffset   float64 `json:"temperature_offset"`
	HumidityScale       float64 `json:"humidity_scale"`
	HumidityOffset      float64 `json:"humidity_offset"`

	// PollingIntervalSeconds is kept for reference; the scheduler polls
	// every device on its global interval.
	PollingIntervalSeconds int `json:"polling_interval_seconds"`

	// Fallback policy used when no threshold profile is assigned.
	TargetTemperature *float64 `json:"target_temperature,omitempty"`
	WarningThreshold  *float64 `json:"warning_threshold,omitempty"`
	CriticalThreshold *float64 `json:"critical_threshold,omitempty"`

	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DeepCopy returns a copy that shares no pointers with d.
func (d *Device) DeepCopy() *Device {
	if d == nil {
		return nil
	}

	cp := *d
	if d.HumidityRegister != nil {
		v := *d.HumidityRegister
		cp.HumidityRegister = &v
	}
	cp.TargetTemperature = copyFloat(d.TargetTemperature)
	cp.WarningThreshold = copyFloat(d.WarningThreshold)
	cp.CriticalThreshold = copyFloat(d.CriticalThreshold)
	return &cp
}

func copyFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}
