package reading

import (
	"time"

	"github.com/nerrad567/coldwatch-core/internal/threshold"
)

// Reading is one persisted poll result for a device.
//
// A failed poll is still a reading: TransmissionOK is false, both values
// are nil and ErrorMessage says why.
type Reading struct {
	ID             int64            `json:"id"`
	DeviceID       string           `json:"device_id"`
	RecordedAt     time.Time        `json:"recorded_at"`
	Temperature    *float64         `json:"temperature,omitempty"`
	Humidity       *float64         `json:"humidity,omitempty"`
	Status         threshold.Status `json:"status"`
	TransmissionOK bool             `json:"transmission_ok"`
	ErrorMessage   string           `json:"error_message,omitempty"`
}
