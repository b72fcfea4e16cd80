package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// measurementReadings is the measurement every freezer reading is written to.
const measurementReadings = "freezer_readings"

// ReadingPoint is one poll result in time-series form.
type ReadingPoint struct {
	DeviceID    string
	DeviceName  string
	Status      string
	Temperature *float64
	Humidity    *float64
	OK          bool
	Time        time.Time
}

// WriteReading writes a reading to the freezer_readings measurement.
//
// The write is non-blocking; data is batched and sent asynchronously.
// Failed polls are still written (ok=false, no temperature) so gaps show
// up in dashboards.
func (c *Client) WriteReading(p ReadingPoint) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(newReadingPoint(p))
}

func newReadingPoint(p ReadingPoint) *write.Point {
	tags := map[string]string{
		"device_id": p.DeviceID,
		"status":    p.Status,
	}
	if p.DeviceName != "" {
		tags["device_name"] = p.DeviceName
	}

	fields := map[string]interface{}{
		"ok": p.OK,
	}
	if p.Temperature != nil {
		fields["temperature_c"] = *p.Temperature
	}
	if p.Humidity != nil {
		fields["humidity_pct"] = *p.Humidity
	}

	ts := p.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	return write.NewPoint(measurementReadings, tags, fields, ts)
}
