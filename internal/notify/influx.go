package notify

import (
	"context"

	"github.com/nerrad567/coldwatch-core/internal/device"
	"github.com/nerrad567/coldwatch-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/coldwatch-core/internal/reading"
)

// PointWriter is the subset of *influxdb.Client used here.
type PointWriter interface {
	WriteReading(p influxdb.ReadingPoint)
}

// Influx mirrors committed readings into InfluxDB.
type Influx struct {
	w PointWriter
}

// NewInflux creates a reading sink backed by w.
func NewInflux(w PointWriter) *Influx {
	return &Influx{w: w}
}

// WriteReading queues the reading for the next batch. Write failures are
// reported through the client's error callback, so this never fails.
func (s *Influx) WriteReading(_ context.Context, d *device.Device, r reading.Reading) error {
	s.w.WriteReading(influxdb.ReadingPoint{
		DeviceID:    d.ID,
		DeviceName:  d.Name,
		Status:      string(r.Status),
		Temperature: r.Temperature,
		Humidity:    r.Humidity,
		OK:          r.TransmissionOK,
		Time:        r.RecordedAt,
	})
	return nil
}
