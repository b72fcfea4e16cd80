// Package config handles loading and validating Coldwatch Core configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables (COLDWATCH_*)
//   - Validation of required fields
//   - Default value handling
//
// Durations (monitoring.interval, alerts.dedup_window, ...) may be written as
// ISO-8601 durations or Go duration literals:
//
//	monitoring:
//	  enabled: true
//	  initial_delay: PT30S
//	  interval: PT1M
//	  request_timeout: 5s
//	  retries: 2
//
// Security Considerations:
//   - Sensitive values (MQTT password, InfluxDB token) should be set via environment variables
//   - The config file should have restricted permissions (0600)
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Monitoring.Interval)
package config
