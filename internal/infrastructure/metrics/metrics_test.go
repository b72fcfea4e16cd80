package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCollectorsRegistered(t *testing.T) {
	// Vectors only export series once a label set has been used.
	ModbusReads.WithLabelValues("fz-metrics", ResultSuccess)
	ReadingsIngested.WithLabelValues("NORMAL")
	LastTemperature.WithLabelValues("fz-metrics")
	BreachesDetected.WithLabelValues("CRITICAL_HIGH")
	AlertsDropped.WithLabelValues("queue_full")
	AlertsRaised.WithLabelValues("created", "CRITICAL")

	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	found := make(map[string]bool)
	for _, mf := range families {
		found[mf.GetName()] = true
	}

	for _, name := range []string{
		"coldwatch_modbus_reads_total",
		"coldwatch_poll_cycle_duration_seconds",
		"coldwatch_active_devices",
		"coldwatch_readings_ingested_total",
		"coldwatch_last_temperature_celsius",
		"coldwatch_threshold_breaches_total",
		"coldwatch_alert_queue_depth",
		"coldwatch_alerts_dropped_total",
		"coldwatch_alerts_total",
		"coldwatch_alert_failures_total",
	} {
		if !found[name] {
			t.Errorf("%s not registered", name)
		}
	}
}

func TestModbusReadsByResult(t *testing.T) {
	ok := ModbusReads.WithLabelValues("fz-count", ResultSuccess)
	failed := ModbusReads.WithLabelValues("fz-count", ResultFailure)
	beforeOK, beforeFailed := testutil.ToFloat64(ok), testutil.ToFloat64(failed)

	ok.Inc()
	ok.Inc()
	failed.Inc()

	if got := testutil.ToFloat64(ok) - beforeOK; got != 2 {
		t.Errorf("success delta = %v, want 2", got)
	}
	if got := testutil.ToFloat64(failed) - beforeFailed; got != 1 {
		t.Errorf("failure delta = %v, want 1", got)
	}
}

func TestLastTemperaturePerDevice(t *testing.T) {
	LastTemperature.WithLabelValues("fz-a").Set(-18.5)
	LastTemperature.WithLabelValues("fz-b").Set(3.25)

	if got := testutil.ToFloat64(LastTemperature.WithLabelValues("fz-a")); got != -18.5 {
		t.Errorf("fz-a = %v, want -18.5", got)
	}
	if got := testutil.ToFloat64(LastTemperature.WithLabelValues("fz-b")); got != 3.25 {
		t.Errorf("fz-b = %v, want 3.25", got)
	}
}
