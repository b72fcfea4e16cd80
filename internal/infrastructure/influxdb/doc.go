// Package influxdb provides InfluxDB connectivity for Coldwatch Core.
//
// It wraps the official influxdb-client-go v2 library for connection
// management, batched reading writes and health monitoring. SQLite stays the
// system of record; InfluxDB holds a time-series mirror of every reading for
// dashboards and long-range trend queries.
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.WriteReading(influxdb.ReadingPoint{
//	    DeviceID:    "fz-01",
//	    Status:      "NORMAL",
//	    Temperature: &temp,
//	    OK:          true,
//	    Time:        recordedAt,
//	})
//
// # Error Handling
//
// Write operations are non-blocking and batch errors are delivered via the
// SetOnError callback. Connection and health check errors are returned
// directly.
package influxdb
