package ingest

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/coldwatch-core/internal/device"
	"github.com/nerrad567/coldwatch-core/internal/infrastructure/database"
	"github.com/nerrad567/coldwatch-core/internal/infrastructure/metrics"
	"github.com/nerrad567/coldwatch-core/internal/reading"
	"github.com/nerrad567/coldwatch-core/internal/threshold"
)

// Logger defines the logging interface used by the pipeline.
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

// DeviceLookup resolves device IDs. *device.Registry satisfies it.
type DeviceLookup interface {
	GetDevice(ctx context.Context, id string) (*device.Device, error)
}

// ProfileResolver picks the active threshold profile. *threshold.Resolver
// satisfies it.
type ProfileResolver interface {
	Resolve(ctx context.Context, deviceID string, t time.Time) (*threshold.Profile, error)
}

// ReadingStore persists a reading inside a transaction.
type ReadingStore interface {
	InsertTx(ctx context.Context, tx *sql.Tx, r *reading.Reading) error
}

// EventSink receives breach events after their reading is committed.
// Implementations must not block.
type EventSink interface {
	OnThresholdBreach(event threshold.BreachEvent)
}

// ReadingSink receives every committed reading, e.g. to mirror it to a
// time-series store or a message bus.
type ReadingSink interface {
	WriteReading(ctx context.Context, d *device.Device, r reading.Reading) error
}

// Sample is one raw poll result handed to the pipeline.
type Sample struct {
	DeviceID       string
	Timestamp      time.Time
	Temperature    *float64
	Humidity       *float64
	TransmissionOK bool
	ErrorMessage   string
}

// Options configures a Pipeline.
type Options struct {
	// DB opens the transaction each reading is inserted in. Required.
	DB database.TxBeginner

	// Devices looks up the sampled device. Required.
	Devices DeviceLookup

	// Readings stores the reading. Required.
	Readings ReadingStore

	// Resolver is optional. Without it every reading is classified
	// without a profile and breaches use the device fallback policy.
	Resolver ProfileResolver

	// Events is optional. Without it breaches are only logged.
	Events EventSink

	// Sinks are optional extra consumers of committed readings.
	Sinks []ReadingSink

	Logger Logger
}

// Pipeline classifies, persists and fans out readings.
//
// Thread Safety: Ingest is safe for concurrent use if the configured
// dependencies are.
type Pipeline struct {
	db       database.TxBeginner
	devices  DeviceLookup
	readings ReadingStore
	resolver ProfileResolver
	events   EventSink
	sinks    []ReadingSink
	logger   Logger
	now      func() time.Time
}

// New creates a pipeline.
func New(opts Options) (*Pipeline, error) {
	if opts.DB == nil {
		return nil, errors.New("ingest: database is required")
	}
	if opts.Devices == nil {
		return nil, errors.New("ingest: device lookup is required")
	}
	if opts.Readings == nil {
		return nil, errors.New("ingest: reading store is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = noopLogger{}
	}

	return &Pipeline{
		db:       opts.DB,
		devices:  opts.Devices,
		readings: opts.Readings,
		resolver: opts.Resolver,
		events:   opts.Events,
		sinks:    opts.Sinks,
		logger:   logger,
		now:      time.Now,
	}, nil
}

// Ingest stores one sample and returns the persisted reading.
//
// The reading and its classification are written in a single transaction.
// Only after commit is the breach event (at most one) handed to the event
// sink and the reading fanned out to the reading sinks; failures there are
// logged and never returned. Nothing is emitted when Ingest returns an error.
func (p *Pipeline) Ingest(ctx context.Context, s Sample) (*reading.Reading, error) {
	dev, err := p.devices.GetDevice(ctx, s.DeviceID)
	if err != nil {
		return nil, fmt.Errorf("looking up device %s: %w", s.DeviceID, err)
	}

	ts := s.Timestamp
	if ts.IsZero() {
		ts = p.now()
	}
	ts = ts.UTC()

	var profile *threshold.Profile
	if p.resolver != nil {
		profile, err = p.resolver.Resolve(ctx, dev.ID, ts)
		if err != nil {
			return nil, fmt.Errorf("resolving profile: %w", err)
		}
	}

	rd := &reading.Reading{
		DeviceID:       dev.ID,
		RecordedAt:     ts,
		Temperature:    s.Temperature,
		Humidity:       s.Humidity,
		Status:         threshold.Classify(s.Temperature, s.Humidity, profile, s.TransmissionOK),
		TransmissionOK: s.TransmissionOK,
		ErrorMessage:   s.ErrorMessage,
	}

	err = database.WithTx(ctx, p.db, func(tx *sql.Tx) error {
		return p.readings.InsertTx(ctx, tx, rd)
	})
	if err != nil {
		return nil, fmt.Errorf("persisting reading for %s: %w", dev.ID, err)
	}

	metrics.ReadingsIngested.WithLabelValues(string(rd.Status)).Inc()
	if rd.Temperature != nil {
		metrics.LastTemperature.WithLabelValues(dev.ID).Set(*rd.Temperature)
	}

	p.logger.Debug("reading ingested",
		"device_id", dev.ID,
		"reading_id", rd.ID,
		"status", rd.Status,
		"profile", profileName(profile),
	)

	if event := threshold.DetectBreach(dev, profile, rd.Temperature); event != nil {
		event.ReadingID = rd.ID
		event.OccurredAt = ts
		p.emit(*event)
	}

	p.fanOut(ctx, dev, *rd)

	return rd, nil
}

func (p *Pipeline) emit(event threshold.BreachEvent) {
	metrics.BreachesDetected.WithLabelValues(string(event.Type)).Inc()
	p.logger.Info("threshold breach detected",
		"device_id", event.DeviceID,
		"type", event.Type,
		"temperature", event.Temperature,
		"threshold", event.ThresholdValue,
		"reading_id", event.ReadingID,
	)

	if p.events == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("event sink panicked", "device_id", event.DeviceID, "panic", r)
		}
	}()
	p.events.OnThresholdBreach(event)
}

func (p *Pipeline) fanOut(ctx context.Context, dev *device.Device, rd reading.Reading) {
	for _, sink := range p.sinks {
		func() {
			defer func() {
				if r := recover(); r != nil {
					p.logger.Error("reading sink panicked", "device_id", dev.ID, "panic", r)
				}
			}()
			if err := sink.WriteReading(ctx, dev, rd); err != nil {
				p.logger.Warn("reading sink failed", "device_id", dev.ID, "error", err)
			}
		}()
	}
}

func profileName(p *threshold.Profile) string {
	if p == nil {
		return ""
	}
	return p.Name
}
