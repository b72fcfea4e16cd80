package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/coldwatch-core/internal/bridges/modbus"
	"github.com/nerrad567/coldwatch-core/internal/device"
	"github.com/nerrad567/coldwatch-core/internal/infrastructure/config"
	"github.com/nerrad567/coldwatch-core/internal/infrastructure/metrics"
	"github.com/nerrad567/coldwatch-core/internal/ingest"
	"github.com/nerrad567/coldwatch-core/internal/reading"
)

const (
	defaultInterval = 60 * time.Second

	// failureMessage is stored on readings whose device could not be read.
	failureMessage = "read failure"
)

// Logger defines the logging interface used by the scheduler.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// DeviceLister supplies the devices to poll. *device.Registry satisfies it.
type DeviceLister interface {
	ListActiveDevices(ctx context.Context) ([]device.Device, error)
}

// Ingester accepts poll results. *ingest.Pipeline satisfies it.
type Ingester interface {
	Ingest(ctx context.Context, s ingest.Sample) (*reading.Reading, error)
}

// Config holds scheduler timing.
type Config struct {
	// InitialDelay is the wait before the first cycle. Zero starts immediately.
	InitialDelay time.Duration

	// Interval separates the starts of consecutive cycles.
	// Default: 60 seconds.
	Interval time.Duration

	// RequestTimeout bounds each read attempt. Zero leaves it to the reader.
	RequestTimeout time.Duration

	// Retries is the number of extra attempts after a failed read.
	Retries int
}

// ConfigFrom converts the monitoring section of the application config.
func ConfigFrom(cfg config.MonitoringConfig) Config {
	return Config{
		InitialDelay:   cfg.InitialDelay.Duration(),
		Interval:       cfg.Interval.Duration(),
		RequestTimeout: cfg.RequestTimeout.Duration(),
		Retries:        cfg.Retries,
	}
}

// Attempts returns how many reads a device gets per cycle.
func (c Config) Attempts() int {
	return max(1, c.Retries+1)
}

// Scheduler polls every active device once per interval and feeds the
// results into the ingestion pipeline.
//
// Devices are polled one after another on a single goroutine, so at most one
// cycle is ever in flight.
type Scheduler struct {
	cfg     Config
	devices DeviceLister
	reader  modbus.Reader
	ingest  Ingester
	now     func() time.Time

	// Shutdown coordination (stopOnce prevents double-close panics)
	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once

	logger   Logger
	loggerMu sync.RWMutex
}

// NewScheduler creates a scheduler. Call Start to begin polling.
func NewScheduler(cfg Config, devices DeviceLister, reader modbus.Reader, ingester Ingester) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = defaultInterval
	}
	if cfg.InitialDelay < 0 {
		cfg.InitialDelay = 0
	}

	return &Scheduler{
		cfg:     cfg,
		devices: devices,
		reader:  reader,
		ingest:  ingester,
		now:     time.Now,
		done:    make(chan struct{}),
		logger:  noopLogger{},
	}
}

// SetLogger sets the logger for the scheduler.
func (s *Scheduler) SetLogger(logger Logger) {
	if logger == nil {
		return
	}
	s.loggerMu.Lock()
	s.logger = logger
	s.loggerMu.Unlock()
}

func (s *Scheduler) log() Logger {
	s.loggerMu.RLock()
	defer s.loggerMu.RUnlock()
	return s.logger
}

// Start launches the polling loop. It returns immediately.
func (s *Scheduler) Start(ctx context.Context) {
	s.wg.Add(1)
	go s.loop(ctx)

	s.log().Info("polling scheduler started",
		"initial_delay", s.cfg.InitialDelay,
		"interval", s.cfg.Interval,
		"attempts", s.cfg.Attempts(),
	)
}

// Stop ends the polling loop and waits for an in-flight cycle to finish.
// Safe to call multiple times.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.done)
		s.wg.Wait()
		s.log().Info("polling scheduler stopped")
	})
}

func (s *Scheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	if s.cfg.InitialDelay > 0 {
		timer := time.NewTimer(s.cfg.InitialDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-s.done:
			timer.Stop()
			return
		case <-timer.C:
		}
	}

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	s.RunCycle(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case <-ticker.C:
			s.RunCycle(ctx)
		}
	}
}

// RunCycle polls every active device once, in registry order.
//
// Failures are confined to the device they occur on: read errors are
// retried and then recorded as a failed reading, ingestion errors and
// panics are logged, and the cycle moves on to the next device.
func (s *Scheduler) RunCycle(ctx context.Context) {
	start := time.Now()
	defer func() {
		metrics.PollCycleDuration.Observe(time.Since(start).Seconds())
	}()

	devices, err := s.devices.ListActiveDevices(ctx)
	if err != nil {
		s.log().Error("listing active devices failed", "error", err)
		return
	}
	metrics.ActiveDevices.Set(float64(len(devices)))

	if len(devices) == 0 {
		s.log().Info("no active devices to poll")
		return
	}

	for i := range devices {
		if ctx.Err() != nil {
			s.log().Warn("poll cycle interrupted", "remaining", len(devices)-i, "error", ctx.Err())
			return
		}
		s.pollDevice(ctx, &devices[i])
	}

	s.log().Debug("poll cycle complete", "devices", len(devices), "duration", time.Since(start))
}

func (s *Scheduler) pollDevice(ctx context.Context, d *device.Device) {
	defer func() {
		if r := recover(); r != nil {
			s.log().Error("device poll panicked", "device_id", d.ID, "panic", r)
		}
	}()

	sample := ingest.Sample{DeviceID: d.ID}

	m, err := s.readWithRetry(ctx, d)
	sample.Timestamp = s.now()
	if err != nil {
		sample.ErrorMessage = failureMessage
	} else {
		t := m.Temperature
		sample.Temperature = &t
		sample.Humidity = m.Humidity
		sample.TransmissionOK = true
	}

	if _, err := s.ingest.Ingest(ctx, sample); err != nil {
		s.log().Error("ingesting reading failed", "device_id", d.ID, "error", err)
	}
}

func (s *Scheduler) readWithRetry(ctx context.Context, d *device.Device) (modbus.Measurement, error) {
	attempts := s.cfg.Attempts()

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		m, err := s.readOnce(ctx, d)
		if err == nil {
			metrics.ModbusReads.WithLabelValues(d.ID, metrics.ResultSuccess).Inc()
			return m, nil
		}
		lastErr = err

		configErr := modbus.IsConfigError(err)
		result := metrics.ResultFailure
		if configErr {
			result = metrics.ResultConfig
		}
		metrics.ModbusReads.WithLabelValues(d.ID, result).Inc()
		s.log().Warn("modbus read attempt failed",
			"device_id", d.ID,
			"attempt", attempt,
			"attempts", attempts,
			"error", err,
		)

		if configErr {
			break
		}
		if ctx.Err() != nil {
			break
		}
	}

	s.log().Warn("modbus read failed, recording failure",
		"device_id", d.ID,
		"device_name", d.Name,
		"error", lastErr,
	)
	return modbus.Measurement{}, fmt.Errorf("reading %s: %w", d.ID, lastErr)
}

func (s *Scheduler) readOnce(ctx context.Context, d *device.Device) (modbus.Measurement, error) {
	if s.cfg.RequestTimeout <= 0 {
		return s.reader.Read(ctx, d)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, s.cfg.RequestTimeout)
	defer cancel()

	m, err := s.reader.Read(attemptCtx, d)
	if err != nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		return m, fmt.Errorf("attempt timed out after %s: %w", s.cfg.RequestTimeout, err)
	}
	return m, err
}
