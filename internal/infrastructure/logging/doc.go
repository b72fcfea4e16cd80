// Package logging provides structured logging for Coldwatch Core.
//
// This package wraps Go's standard log/slog package to provide
// consistent, structured logging across the poller, ingestion pipeline
// and alert workers.
//
// # Features
//
//   - JSON output for production (machine-parsable)
//   - Text output for development (human-readable)
//   - Default fields (service, version) on all log entries
//   - Level-based filtering (debug, info, warn, error)
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// # Usage
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	logger.Info("device polled", "device_id", dev.ID, "temperature", t)
//	logger.Component("alert").Error("alert write failed", "error", err)
//
// Never log MQTT passwords or InfluxDB tokens.
package logging
