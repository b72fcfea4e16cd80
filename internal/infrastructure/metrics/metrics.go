// Package metrics declares the Prometheus collectors for Coldwatch Core.
//
// Collectors are registered on the default registry at init via promauto and
// exposed by the ops server at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "coldwatch"

// Label values for ModbusReads.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultConfig  = "config_error"
)

var (
	// ModbusReads counts read attempts per device and outcome.
	ModbusReads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "modbus_reads_total",
			Help:      "Modbus read attempts by device and result",
		},
		[]string{"device_id", "result"},
	)

	// PollCycleDuration times full scheduler cycles.
	PollCycleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "poll_cycle_duration_seconds",
			Help:      "Duration of one polling cycle over all active devices",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	// ActiveDevices is the size of the last poll list.
	ActiveDevices = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_devices",
			Help:      "Number of active devices in the last polling cycle",
		},
	)

	// ReadingsIngested counts persisted readings by status.
	ReadingsIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "readings_ingested_total",
			Help:      "Readings persisted by status",
		},
		[]string{"status"},
	)

	// LastTemperature is the most recent temperature per device.
	LastTemperature = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_temperature_celsius",
			Help:      "Most recent temperature reading per device",
		},
		[]string{"device_id"},
	)

	// BreachesDetected counts threshold breach events by type.
	BreachesDetected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "threshold_breaches_total",
			Help:      "Threshold breach events by type",
		},
		[]string{"type"},
	)

	// AlertQueueDepth is the number of breach events waiting for a worker.
	AlertQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "alert_queue_depth",
			Help:      "Breach events waiting in the alert queue",
		},
	)

	// AlertsDropped counts breach events rejected by the alert queue.
	AlertsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_dropped_total",
			Help:      "Breach events not queued, by reason",
		},
		[]string{"reason"},
	)

	// AlertsRaised counts alert outcomes: created or deduplicated.
	AlertsRaised = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_total",
			Help:      "Alerts handled by outcome and severity",
		},
		[]string{"outcome", "severity"},
	)

	// AlertFailures counts breach events whose alert could not be stored.
	AlertFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alert_failures_total",
			Help:      "Breach events that failed to produce an alert",
		},
	)
)
