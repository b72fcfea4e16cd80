package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nerrad567/coldwatch-core/internal/alert"
	"github.com/nerrad567/coldwatch-core/internal/device"
	"github.com/nerrad567/coldwatch-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/coldwatch-core/internal/reading"
)

// Publisher is the subset of *mqtt.Client used here.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// readingMessage is the payload on coldwatch/device/{id}/reading.
type readingMessage struct {
	DeviceID       string    `json:"device_id"`
	DeviceName     string    `json:"device_name,omitempty"`
	ReadingID      int64     `json:"reading_id"`
	RecordedAt     time.Time `json:"recorded_at"`
	Temperature    *float64  `json:"temperature,omitempty"`
	Humidity       *float64  `json:"humidity,omitempty"`
	Status         string    `json:"status"`
	TransmissionOK bool      `json:"transmission_ok"`
	Error          string    `json:"error,omitempty"`
}

// alertMessage is the payload on coldwatch/alert/{id}.
type alertMessage struct {
	Outcome   string       `json:"outcome"`
	Alert     *alert.Alert `json:"alert"`
	Timestamp time.Time    `json:"timestamp"`
}

// MQTT publishes committed readings and alert changes to the broker.
//
// It satisfies ingest.ReadingSink and alert.Notifier.
type MQTT struct {
	pub    Publisher
	qos    byte
	topics mqtt.Topics
	now    func() time.Time
}

// NewMQTT creates an MQTT notifier publishing at the given QoS.
func NewMQTT(pub Publisher, qos byte) *MQTT {
	return &MQTT{pub: pub, qos: qos, now: time.Now}
}

// WriteReading publishes the reading as the retained latest value of the
// device.
func (m *MQTT) WriteReading(_ context.Context, d *device.Device, r reading.Reading) error {
	payload, err := json.Marshal(readingMessage{
		DeviceID:       d.ID,
		DeviceName:     d.Name,
		ReadingID:      r.ID,
		RecordedAt:     r.RecordedAt,
		Temperature:    r.Temperature,
		Humidity:       r.Humidity,
		Status:         string(r.Status),
		TransmissionOK: r.TransmissionOK,
		Error:          r.ErrorMessage,
	})
	if err != nil {
		return fmt.Errorf("marshalling reading: %w", err)
	}
	return m.pub.Publish(m.topics.DeviceReading(d.ID), payload, m.qos, true)
}

// NotifyAlert publishes an alert change. Alert events are not retained.
func (m *MQTT) NotifyAlert(_ context.Context, a *alert.Alert, outcome string) error {
	payload, err := json.Marshal(alertMessage{
		Outcome:   outcome,
		Alert:     a,
		Timestamp: m.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshalling alert %s: %w", a.ID, err)
	}
	return m.pub.Publish(m.topics.Alert(a.ID), payload, m.qos, false)
}
