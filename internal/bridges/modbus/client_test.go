package modbus

import (
	"context"
	"encoding/binary"
	"errors"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/coldwatch-core/internal/device"
)

// fakeServer is a minimal Modbus TCP responder for FC3.
type fakeServer struct {
	listener net.Listener

	mu        sync.Mutex
	registers map[uint16][]byte // register -> raw data bytes returned
	requests  int
	unitIDs   []byte
}

func newFakeServer(t *testing.T) *fakeServer {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	s := &fakeServer{listener: ln, registers: make(map[uint16][]byte)}
	go s.serve()
	t.Cleanup(func() { ln.Close() })
	return s
}

func (s *fakeServer) setInt16(register uint16, v int16) {
	buf := make([]byte, 2)
	binary.BigEndian.PutUint16(buf, uint16(v))
	s.mu.Lock()
	s.registers[register] = buf
	s.mu.Unlock()
}

func (s *fakeServer) setRaw(register uint16, data []byte) {
	s.mu.Lock()
	s.registers[register] = data
	s.mu.Unlock()
}

func (s *fakeServer) requestCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests
}

func (s *fakeServer) hostPort() (string, int) {
	addr := s.listener.Addr().(*net.TCPAddr)
	return addr.IP.String(), addr.Port
}

func (s *fakeServer) serve() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}
		go s.handle(conn)
	}
}

func (s *fakeServer) handle(conn net.Conn) {
	defer conn.Close()

	// MBAP (7) + function (1) + address (2) + quantity (2)
	req := make([]byte, 12)
	for {
		if _, err := io.ReadFull(conn, req); err != nil {
			return
		}

		transactionID := req[0:2]
		unitID := req[6]
		function := req[7]
		address := binary.BigEndian.Uint16(req[8:10])

		s.mu.Lock()
		s.requests++
		s.unitIDs = append(s.unitIDs, unitID)
		data, ok := s.registers[address]
		s.mu.Unlock()

		var pdu []byte
		if !ok || function != 0x03 {
			// Illegal data address exception.
			pdu = []byte{function | 0x80, 0x02}
		} else {
			pdu = append([]byte{function, byte(len(data))}, data...)
		}

		resp := make([]byte, 7, 7+len(pdu))
		copy(resp[0:2], transactionID)
		binary.BigEndian.PutUint16(resp[2:4], 0)
		binary.BigEndian.PutUint16(resp[4:6], uint16(len(pdu)+1))
		resp[6] = unitID
		resp = append(resp, pdu...)

		if _, err := conn.Write(resp); err != nil {
			return
		}
	}
}

func tcpDevice(host string, port int) *device.Device {
	return &device.Device{
		ID:                  "fz-1",
		Name:                "Freezer A",
		Protocol:            device.ProtocolTCP,
		Host:                host,
		Port:                port,
		SlaveID:             3,
		TemperatureRegister: 100,
		TemperatureScale:    0.1,
		TemperatureOffset:   0,
		HumidityScale:       1,
	}
}

func TestClient_Read_TemperatureOnly(t *testing.T) {
	srv := newFakeServer(t)
	srv.setInt16(100, -205)
	host, port := srv.hostPort()

	c := NewClient(time.Second)
	m, err := c.Read(context.Background(), tcpDevice(host, port))
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	if diff := m.Temperature - (-20.5); diff > 1e-9 || diff < -1e-9 {
		t.Errorf("Temperature = %v, want -20.5", m.Temperature)
	}
	if m.Humidity != nil {
		t.Errorf("Humidity = %v, want nil", *m.Humidity)
	}
	if srv.requestCount() != 1 {
		t.Errorf("requests = %d, want 1", srv.requestCount())
	}
	srv.mu.Lock()
	unit := srv.unitIDs[0]
	srv.mu.Unlock()
	if unit != 3 {
		t.Errorf("unit id = %d, want 3", unit)
	}
}

func TestClient_Read_WithHumidityAndOffset(t *testing.T) {
	srv := newFakeServer(t)
	srv.setInt16(100, 40)
	srv.setInt16(101, 455)
	host, port := srv.hostPort()

	d := tcpDevice(host, port)
	d.TemperatureScale = 1
	d.TemperatureOffset = -2.5
	hr := uint16(101)
	d.HumidityRegister = &hr
	d.HumidityScale = 0.1
	d.HumidityOffset = 1

	m, err := NewClient(time.Second).Read(context.Background(), d)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	if m.Temperature != 37.5 {
		t.Errorf("Temperature = %v, want 37.5", m.Temperature)
	}
	if m.Humidity == nil {
		t.Fatal("Humidity = nil, want value")
	}
	if diff := *m.Humidity - 46.5; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("Humidity = %v, want 46.5", *m.Humidity)
	}
	if srv.requestCount() != 2 {
		t.Errorf("requests = %d, want 2", srv.requestCount())
	}
}

func TestClient_Read_ExceptionResponse(t *testing.T) {
	srv := newFakeServer(t)
	host, port := srv.hostPort()

	_, err := NewClient(time.Second).Read(context.Background(), tcpDevice(host, port))
	if !errors.Is(err, ErrReadFailed) {
		t.Fatalf("Read() error = %v, want ErrReadFailed", err)
	}
	if IsConfigError(err) {
		t.Error("IsConfigError() = true for a device exception")
	}
}

func TestClient_Read_ShortPayload(t *testing.T) {
	srv := newFakeServer(t)
	srv.setRaw(100, []byte{0x01})
	host, port := srv.hostPort()

	_, err := NewClient(time.Second).Read(context.Background(), tcpDevice(host, port))
	if !errors.Is(err, ErrShortPayload) {
		t.Fatalf("Read() error = %v, want ErrShortPayload", err)
	}
}

func TestClient_Read_ConnectionRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	_, err = NewClient(500*time.Millisecond).Read(context.Background(), tcpDevice("127.0.0.1", port))
	if !errors.Is(err, ErrReadFailed) {
		t.Fatalf("Read() error = %v, want ErrReadFailed", err)
	}
}

func TestClient_Read_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewClient(time.Second).Read(ctx, tcpDevice("127.0.0.1", 1))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Read() error = %v, want context.Canceled", err)
	}
}

func TestClient_Read_InvalidConfig(t *testing.T) {
	rtu := func() *device.Device {
		return &device.Device{
			ID:         "fz-rtu",
			Protocol:   device.ProtocolRTU,
			SerialPort: "/dev/ttyUSB0",
			BaudRate:   9600,
			DataBits:   8,
			StopBits:   1,
			Parity:     device.ParityNone,
			SlaveID:    1,
		}
	}

	tests := []struct {
		name   string
		device func() *device.Device
	}{
		{name: "nil device", device: func() *device.Device { return nil }},
		{name: "blank serial port", device: func() *device.Device { d := rtu(); d.SerialPort = " "; return d }},
		{name: "mark parity", device: func() *device.Device { d := rtu(); d.Parity = device.ParityMark; return d }},
		{name: "space parity", device: func() *device.Device { d := rtu(); d.Parity = device.ParitySpace; return d }},
		{name: "1.5 stop bits", device: func() *device.Device { d := rtu(); d.StopBits = device.StopBitsOnePointFive; return d }},
		{name: "blank tcp host", device: func() *device.Device { return tcpDevice("", 502) }},
		{name: "unknown protocol", device: func() *device.Device { d := rtu(); d.Protocol = "ASCII"; return d }},
		{name: "slave id out of range", device: func() *device.Device { d := rtu(); d.SlaveID = 300; return d }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewClient(time.Second).Read(context.Background(), tt.device())
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Read() error = %v, want ErrInvalidConfig", err)
			}
			if !IsConfigError(err) {
				t.Error("IsConfigError() = false, want true")
			}
		})
	}
}

func TestClient_Read_MissingSerialDevice(t *testing.T) {
	d := &device.Device{
		ID:         "fz-rtu",
		Protocol:   device.ProtocolRTU,
		SerialPort: "/dev/coldwatch-missing-port",
		Parity:     device.ParityEven,
		StopBits:   2,
	}

	_, err := NewClient(100*time.Millisecond).Read(context.Background(), d)
	if !errors.Is(err, ErrReadFailed) {
		t.Errorf("Read() error = %v, want ErrReadFailed", err)
	}
}

func TestDecodeInt16(t *testing.T) {
	tests := []struct {
		name    string
		payload []byte
		want    int16
		wantErr bool
	}{
		{name: "positive", payload: []byte{0x00, 0x2A}, want: 42},
		{name: "negative", payload: []byte{0xFF, 0x33}, want: -205},
		{name: "min", payload: []byte{0x80, 0x00}, want: -32768},
		{name: "extra bytes ignored", payload: []byte{0x00, 0x01, 0xFF}, want: 1},
		{name: "one byte", payload: []byte{0x01}, wantErr: true},
		{name: "empty", payload: nil, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeInt16(tt.payload)
			if tt.wantErr {
				if !errors.Is(err, ErrShortPayload) {
					t.Errorf("decodeInt16() error = %v, want ErrShortPayload", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("decodeInt16() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("decodeInt16() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestCalibrate(t *testing.T) {
	tests := []struct {
		raw    int16
		scale  float64
		offset float64
		want   float64
	}{
		{raw: 100, scale: 1, offset: 0, want: 100},
		{raw: -180, scale: 0.1, offset: 0, want: -18},
		{raw: 50, scale: 2, offset: -3, want: 97},
	}

	for _, tt := range tests {
		got := calibrate(tt.raw, tt.scale, tt.offset)
		if diff := got - tt.want; diff > 1e-9 || diff < -1e-9 {
			t.Errorf("calibrate(%d, %v, %v) = %v, want %v", tt.raw, tt.scale, tt.offset, got, tt.want)
		}
	}
}
