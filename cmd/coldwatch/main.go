// Coldwatch Core - cold-storage temperature monitoring
//
// This is the main entry point for the Coldwatch Core service. It polls
// freezer and refrigerator sensors over Modbus, classifies and stores every
// reading, and raises deduplicated alerts when a unit leaves its
// temperature band.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/nerrad567/coldwatch-core/migrations"

	"github.com/nerrad567/coldwatch-core/internal/alert"
	"github.com/nerrad567/coldwatch-core/internal/api"
	"github.com/nerrad567/coldwatch-core/internal/bridges/modbus"
	"github.com/nerrad567/coldwatch-core/internal/device"
	"github.com/nerrad567/coldwatch-core/internal/infrastructure/config"
	"github.com/nerrad567/coldwatch-core/internal/infrastructure/database"
	"github.com/nerrad567/coldwatch-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/coldwatch-core/internal/infrastructure/logging"
	"github.com/nerrad567/coldwatch-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/coldwatch-core/internal/ingest"
	"github.com/nerrad567/coldwatch-core/internal/monitor"
	"github.com/nerrad567/coldwatch-core/internal/notify"
	"github.com/nerrad567/coldwatch-core/internal/reading"
	"github.com/nerrad567/coldwatch-core/internal/threshold"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
//
// Components are torn down by the defer chain in reverse start order:
// ops server, scheduler (waits for the in-flight cycle), the alert command
// subscription, alert dispatcher (drains queued breaches), InfluxDB, MQTT
// and finally the database.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Coldwatch Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Database
	db, err := database.Open(ctx, database.ConfigFrom(cfg.Database))
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Device registry
	deviceRegistry := device.NewRegistry(device.NewSQLiteRepository(db.DB))
	deviceRegistry.SetLogger(log.Component("device"))
	if refreshErr := deviceRegistry.RefreshCache(ctx); refreshErr != nil {
		return fmt.Errorf("loading device registry: %w", refreshErr)
	}
	log.Info("device registry initialised", "devices", deviceRegistry.GetDeviceCount())

	checks := map[string]api.HealthChecker{"database": db}

	// MQTT (optional)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = connectMQTT(cfg, log)
		if err != nil {
			return err
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		checks["mqtt"] = mqttClient
	} else {
		log.Info("MQTT disabled")
	}

	// InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		checks["influxdb"] = influxClient
	} else {
		log.Info("InfluxDB disabled")
	}

	// Alerts
	serviceOpts := alert.ServiceOptions{
		DedupWindow: cfg.Alerts.DedupWindow.Duration(),
		Logger:      log.Component("alert"),
	}
	var sinks []ingest.ReadingSink
	if mqttClient != nil {
		mqttNotifier := notify.NewMQTT(mqttClient, byte(cfg.MQTT.QoS)) // #nosec G115 -- validated 0..2
		serviceOpts.Notifier = mqttNotifier
		sinks = append(sinks, mqttNotifier)
	}
	if influxClient != nil {
		sinks = append(sinks, notify.NewInflux(influxClient))
	}

	alertService := alert.NewService(alert.NewSQLiteRepository(db.DB), serviceOpts)
	dispatcher := alert.NewDispatcher(alertService, alert.DispatcherConfig{
		QueueSize: cfg.Alerts.QueueSize,
		Workers:   cfg.Alerts.Workers,
	}, log.Component("alert"))
	dispatcher.Start(ctx)
	defer dispatcher.Stop()

	if mqttClient != nil {
		topic := mqtt.Topics{}.AllAlertCommands()
		if subErr := mqttClient.Subscribe(topic, byte(cfg.MQTT.QoS), alertService.HandleCommand); subErr != nil { // #nosec G115 -- validated 0..2
			return fmt.Errorf("subscribing to alert commands: %w", subErr)
		}
		defer func() {
			if unsubErr := mqttClient.Unsubscribe(topic); unsubErr != nil {
				log.Warn("error unsubscribing from alert commands", "error", unsubErr)
			}
		}()
		log.Info("listening for alert commands", "topic", topic)
	}

	// Ingest pipeline
	pipeline, err := ingest.New(ingest.Options{
		DB:       db,
		Devices:  deviceRegistry,
		Readings: reading.NewSQLiteRepository(db.DB),
		Resolver: threshold.NewResolver(threshold.NewSQLiteRepository(db.DB)),
		Events:   dispatcher,
		Sinks:    sinks,
		Logger:   log.Component("ingest"),
	})
	if err != nil {
		return fmt.Errorf("creating ingest pipeline: %w", err)
	}

	// Scheduler
	if cfg.Monitoring.Enabled {
		modbusClient := modbus.NewClient(cfg.Monitoring.RequestTimeout.Duration())
		modbusClient.SetLogger(log.Component("modbus"))

		scheduler := monitor.NewScheduler(monitor.ConfigFrom(cfg.Monitoring), deviceRegistry, modbusClient, pipeline)
		scheduler.SetLogger(log.Component("monitor"))
		scheduler.Start(ctx)
		defer scheduler.Stop()
		log.Info("polling scheduler started",
			"interval", cfg.Monitoring.Interval.Duration(),
			"initial_delay", cfg.Monitoring.InitialDelay.Duration(),
			"retries", cfg.Monitoring.Retries,
		)
	} else {
		log.Info("monitoring disabled, scheduler not started")
	}

	// Ops server (optional)
	if cfg.Metrics.Enabled {
		server, srvErr := api.New(api.Deps{
			Config:  cfg.Metrics,
			Logger:  log.Component("api"),
			Checks:  checks,
			Devices: deviceRegistry,
			Alerts:  alertService,
			DB:      db,
			Version: version,
		})
		if srvErr != nil {
			return fmt.Errorf("creating ops server: %w", srvErr)
		}
		if srvErr := server.Start(ctx); srvErr != nil {
			return fmt.Errorf("starting ops server: %w", srvErr)
		}
		defer func() {
			if closeErr := server.Close(); closeErr != nil {
				log.Error("error closing ops server", "error", closeErr)
			}
		}()
	}

	if err := healthCheck(ctx, checks); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")
	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")

	return nil
}

// connectMQTT connects to the broker and installs connection logging.
func connectMQTT(cfg *config.Config, log *logging.Logger) (*mqtt.Client, error) {
	client, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return nil, fmt.Errorf("connecting to MQTT: %w", err)
	}
	client.SetLogger(log.Component("mqtt"))
	client.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	client.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)
	return client, nil
}

// getConfigPath returns the configuration file path.
// Uses COLDWATCH_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("COLDWATCH_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies every connected dependency, in a stable order.
func healthCheck(ctx context.Context, checks map[string]api.HealthChecker) error {
	for _, name := range []string{"database", "mqtt", "influxdb"} {
		check, ok := checks[name]
		if !ok {
			continue
		}
		if err := check.HealthCheck(ctx); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}
