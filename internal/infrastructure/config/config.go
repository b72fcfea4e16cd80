package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for Coldwatch Core.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Site       SiteConfig       `yaml:"site"`
	Database   DatabaseConfig   `yaml:"database"`
	MQTT       MQTTConfig       `yaml:"mqtt"`
	InfluxDB   InfluxDBConfig   `yaml:"influxdb"`
	Logging    LoggingConfig    `yaml:"logging"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Alerts     AlertsConfig     `yaml:"alerts"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// SiteConfig identifies the installation the core is running at.
type SiteConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay Duration `yaml:"initial_delay"`
	MaxDelay     Duration `yaml:"max_delay"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool     `yaml:"enabled"`
	URL           string   `yaml:"url"`
	Token         string   `yaml:"token"`
	Org           string   `yaml:"org"`
	Bucket        string   `yaml:"bucket"`
	BatchSize     int      `yaml:"batch_size"`
	FlushInterval Duration `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// MonitoringConfig controls the cold-storage polling scheduler.
//
// When Enabled is false the scheduler is not constructed at all.
type MonitoringConfig struct {
	Enabled bool `yaml:"enabled"`

	// InitialDelay is the wait between startup and the first poll cycle.
	InitialDelay Duration `yaml:"initial_delay"`

	// Interval is the time between the starts of consecutive poll cycles.
	Interval Duration `yaml:"interval"`

	// RequestTimeout bounds a single connect+read attempt against one device.
	RequestTimeout Duration `yaml:"request_timeout"`

	// Retries is the number of additional attempts after the first failure.
	// Negative values behave like zero.
	Retries int `yaml:"retries"`
}

// AlertsConfig controls asynchronous alert creation.
type AlertsConfig struct {
	QueueSize   int      `yaml:"queue_size"`
	Workers     int      `yaml:"workers"`
	DedupWindow Duration `yaml:"dedup_window"`
}

// MetricsConfig controls the optional operations endpoint (/metrics, /health).
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: COLDWATCH_SECTION_KEY
// For example: COLDWATCH_DATABASE_PATH, COLDWATCH_MONITORING_ENABLED
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, fmt.Errorf("applying environment overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			ID:   "site-001",
			Name: "Coldwatch",
		},
		Database: DatabaseConfig{
			Path:        "./data/coldwatch.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Enabled: true,
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "coldwatch-core",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: Duration(time.Second),
				MaxDelay:     Duration(time.Minute),
			},
		},
		InfluxDB: InfluxDBConfig{
			BatchSize:     100,
			FlushInterval: Duration(10 * time.Second),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Monitoring: MonitoringConfig{
			Enabled:        false,
			InitialDelay:   Duration(30 * time.Second),
			Interval:       Duration(60 * time.Second),
			RequestTimeout: Duration(5 * time.Second),
			Retries:        2,
		},
		Alerts: AlertsConfig{
			QueueSize:   64,
			Workers:     1,
			DedupWindow: Duration(30 * time.Minute),
		},
		Metrics: MetricsConfig{
			Host: "127.0.0.1",
			Port: 9464,
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: COLDWATCH_SECTION_KEY
func applyEnvOverrides(cfg *Config) error {
	// Database
	if v := os.Getenv("COLDWATCH_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("COLDWATCH_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("COLDWATCH_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("COLDWATCH_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// InfluxDB
	if v := os.Getenv("COLDWATCH_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Monitoring
	if v := os.Getenv("COLDWATCH_MONITORING_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("COLDWATCH_MONITORING_ENABLED: %w", err)
		}
		cfg.Monitoring.Enabled = enabled
	}
	if v := os.Getenv("COLDWATCH_MONITORING_INTERVAL"); v != "" {
		d, err := ParseDuration(v)
		if err != nil {
			return fmt.Errorf("COLDWATCH_MONITORING_INTERVAL: %w", err)
		}
		cfg.Monitoring.Interval = Duration(d)
	}
	if v := os.Getenv("COLDWATCH_MONITORING_RETRIES"); v != "" {
		retries, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("COLDWATCH_MONITORING_RETRIES: %w", err)
		}
		cfg.Monitoring.Retries = retries
	}

	return nil
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Site.ID == "" {
		errs = append(errs, "site.id is required")
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if c.InfluxDB.Enabled && c.InfluxDB.URL == "" {
		errs = append(errs, "influxdb.url is required when influxdb is enabled")
	}

	// Monitoring timings only matter once the scheduler is turned on.
	if c.Monitoring.Enabled {
		if c.Monitoring.Interval.Duration() <= 0 {
			errs = append(errs, "monitoring.interval must be positive")
		}
		if c.Monitoring.RequestTimeout.Duration() <= 0 {
			errs = append(errs, "monitoring.request_timeout must be positive")
		}
		if c.Monitoring.InitialDelay.Duration() < 0 {
			errs = append(errs, "monitoring.initial_delay must not be negative")
		}
	}

	if c.Alerts.QueueSize < 1 {
		errs = append(errs, "alerts.queue_size must be at least 1")
	}
	if c.Alerts.Workers < 1 {
		errs = append(errs, "alerts.workers must be at least 1")
	}
	if c.Alerts.DedupWindow.Duration() < 0 {
		errs = append(errs, "alerts.dedup_window must not be negative")
	}

	if c.Metrics.Enabled && (c.Metrics.Port < 1 || c.Metrics.Port > 65535) {
		errs = append(errs, "metrics.port must be between 1 and 65535")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}
