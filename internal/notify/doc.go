// Package notify adapts the MQTT and InfluxDB clients to the reading sink
// and alert notifier hooks of the ingest pipeline and alert service.
//
// Both adapters are optional; main only wires the ones whose backing
// service is enabled.
package notify
