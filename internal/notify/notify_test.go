package notify

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/coldwatch-core/internal/alert"
	"github.com/nerrad567/coldwatch-core/internal/device"
	"github.com/nerrad567/coldwatch-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/coldwatch-core/internal/reading"
	"github.com/nerrad567/coldwatch-core/internal/threshold"
)

type published struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

type mockPublisher struct {
	mu   sync.Mutex
	msgs []published
	err  error
}

func (m *mockPublisher) Publish(topic string, payload []byte, qos byte, retained bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.msgs = append(m.msgs, published{topic, payload, qos, retained})
	return nil
}

type mockPointWriter struct {
	points []influxdb.ReadingPoint
}

func (m *mockPointWriter) WriteReading(p influxdb.ReadingPoint) {
	m.points = append(m.points, p)
}

func testDevice() *device.Device {
	return &device.Device{ID: "fz-01", Name: "Walk-in 1"}
}

func testReading() reading.Reading {
	temp := -19.5
	return reading.Reading{
		ID:             42,
		DeviceID:       "fz-01",
		RecordedAt:     time.Date(2026, 3, 1, 8, 30, 0, 0, time.UTC),
		Temperature:    &temp,
		Status:         threshold.StatusNormal,
		TransmissionOK: true,
	}
}

func TestMQTT_WriteReading(t *testing.T) {
	pub := &mockPublisher{}
	n := NewMQTT(pub, 1)

	if err := n.WriteReading(context.Background(), testDevice(), testReading()); err != nil {
		t.Fatalf("WriteReading() error = %v", err)
	}

	if len(pub.msgs) != 1 {
		t.Fatalf("published %d messages, want 1", len(pub.msgs))
	}
	msg := pub.msgs[0]
	if msg.topic != "coldwatch/device/fz-01/reading" {
		t.Errorf("topic = %q", msg.topic)
	}
	if !msg.retained || msg.qos != 1 {
		t.Errorf("retained/qos = %v/%d, want true/1", msg.retained, msg.qos)
	}

	var got map[string]any
	if err := json.Unmarshal(msg.payload, &got); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	if got["temperature"] != -19.5 || got["status"] != "NORMAL" || got["reading_id"] != float64(42) {
		t.Errorf("payload = %v", got)
	}
	if _, ok := got["humidity"]; ok {
		t.Error("humidity should be omitted when nil")
	}
}

func TestMQTT_WriteReading_PublishError(t *testing.T) {
	pub := &mockPublisher{err: errors.New("not connected")}
	n := NewMQTT(pub, 1)

	if err := n.WriteReading(context.Background(), testDevice(), testReading()); err == nil {
		t.Fatal("WriteReading() expected publish error")
	}
}

func TestMQTT_NotifyAlert(t *testing.T) {
	pub := &mockPublisher{}
	n := NewMQTT(pub, 2)
	n.now = func() time.Time { return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC) }

	a := &alert.Alert{
		ID:       "alt-1a2b3c4d",
		EntityID: "fz-01",
		Severity: alert.SeverityCritical,
		Status:   alert.StatusOpen,
		Message:  "Temperature threshold violated for Walk-in 1",
	}
	if err := n.NotifyAlert(context.Background(), a, alert.OutcomeCreated); err != nil {
		t.Fatalf("NotifyAlert() error = %v", err)
	}

	msg := pub.msgs[0]
	if msg.topic != "coldwatch/alert/alt-1a2b3c4d" {
		t.Errorf("topic = %q", msg.topic)
	}
	if msg.retained || msg.qos != 2 {
		t.Errorf("retained/qos = %v/%d, want false/2", msg.retained, msg.qos)
	}

	var got struct {
		Outcome   string    `json:"outcome"`
		Timestamp time.Time `json:"timestamp"`
		Alert     struct {
			ID       string `json:"id"`
			Severity string `json:"severity"`
		} `json:"alert"`
	}
	if err := json.Unmarshal(msg.payload, &got); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	if got.Outcome != "created" || got.Alert.ID != a.ID || got.Alert.Severity != "CRITICAL" {
		t.Errorf("payload = %+v", got)
	}
}

func TestInflux_WriteReading(t *testing.T) {
	w := &mockPointWriter{}
	sink := NewInflux(w)

	rd := testReading()
	if err := sink.WriteReading(context.Background(), testDevice(), rd); err != nil {
		t.Fatalf("WriteReading() error = %v", err)
	}

	if len(w.points) != 1 {
		t.Fatalf("wrote %d points, want 1", len(w.points))
	}
	p := w.points[0]
	if p.DeviceID != "fz-01" || p.DeviceName != "Walk-in 1" || p.Status != "NORMAL" || !p.OK {
		t.Errorf("point = %+v", p)
	}
	if p.Temperature == nil || *p.Temperature != -19.5 {
		t.Errorf("Temperature = %v, want -19.5", p.Temperature)
	}
	if !p.Time.Equal(rd.RecordedAt) {
		t.Errorf("Time = %v, want %v", p.Time, rd.RecordedAt)
	}
}
