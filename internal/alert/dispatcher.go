package alert

import (
	"context"
	"sync"
	"time"

	"github.com/nerrad567/coldwatch-core/internal/infrastructure/metrics"
	"github.com/nerrad567/coldwatch-core/internal/threshold"
)

const (
	defaultQueueSize = 64
	defaultWorkers   = 1

	// handleTimeout bounds one HandleBreach call.
	handleTimeout = 30 * time.Second
)

// Drop reasons recorded in metrics.AlertsDropped.
const (
	dropQueueFull = "queue_full"
	dropStopped   = "stopped"
)

// BreachHandler processes one breach event. *Service satisfies it.
type BreachHandler interface {
	HandleBreach(ctx context.Context, ev threshold.BreachEvent) (*Alert, error)
}

// DispatcherConfig sizes the dispatcher.
type DispatcherConfig struct {
	// QueueSize bounds the number of waiting events. Default: 64.
	QueueSize int

	// Workers is the number of goroutines draining the queue. Default: 1.
	Workers int
}

// Dispatcher decouples breach detection from alert creation.
//
// OnThresholdBreach never blocks: events go into a bounded queue and are
// handled by a fixed pool of workers. When the queue is full the event is
// dropped and counted. Handler errors and panics are logged and never
// reach the publisher.
type Dispatcher struct {
	handler BreachHandler
	queue   chan threshold.BreachEvent
	workers int
	logger  Logger

	mu      sync.RWMutex
	started bool
	stopped bool
	wg      sync.WaitGroup
}

// NewDispatcher creates a dispatcher. Call Start before publishing.
func NewDispatcher(handler BreachHandler, cfg DispatcherConfig, logger Logger) *Dispatcher {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers
	}
	if logger == nil {
		logger = noopLogger{}
	}
	return &Dispatcher{
		handler: handler,
		queue:   make(chan threshold.BreachEvent, cfg.QueueSize),
		workers: cfg.Workers,
		logger:  logger,
	}
}

// Start launches the workers. Handler calls run detached from ctx
// cancellation so that Stop can drain the queue during shutdown.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started || d.stopped {
		return
	}
	d.started = true

	base := context.WithoutCancel(ctx)
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.work(base, i)
	}
	d.logger.Info("alert dispatcher started", "workers", d.workers, "queue_size", cap(d.queue))
}

// OnThresholdBreach enqueues ev without blocking. It implements
// ingest.EventSink.
func (d *Dispatcher) OnThresholdBreach(ev threshold.BreachEvent) {
	if err := d.Enqueue(ev); err != nil {
		d.logger.Warn("breach event dropped",
			"device_id", ev.DeviceID,
			"type", ev.Type,
			"reading_id", ev.ReadingID,
			"error", err,
		)
	}
}

// Enqueue adds ev to the queue. It returns ErrQueueFull when there is no
// room and ErrDispatcherStopped after Stop.
func (d *Dispatcher) Enqueue(ev threshold.BreachEvent) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.stopped {
		metrics.AlertsDropped.WithLabelValues(dropStopped).Inc()
		return ErrDispatcherStopped
	}

	select {
	case d.queue <- ev:
		metrics.AlertQueueDepth.Set(float64(len(d.queue)))
		return nil
	default:
		metrics.AlertsDropped.WithLabelValues(dropQueueFull).Inc()
		return ErrQueueFull
	}
}

// Pending returns the number of queued events.
func (d *Dispatcher) Pending() int {
	return len(d.queue)
}

// Stop rejects new events, lets the workers drain what is queued and
// waits for them. Safe to call multiple times.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true
	close(d.queue)
	started := d.started
	d.mu.Unlock()

	if !started {
		if n := len(d.queue); n > 0 {
			d.logger.Warn("alert dispatcher stopped before start, discarding events", "pending", n)
		}
		return
	}

	d.wg.Wait()
	metrics.AlertQueueDepth.Set(0)
	d.logger.Info("alert dispatcher stopped")
}

func (d *Dispatcher) work(ctx context.Context, id int) {
	defer d.wg.Done()
	for ev := range d.queue {
		metrics.AlertQueueDepth.Set(float64(len(d.queue)))
		d.handle(ctx, id, ev)
	}
}

func (d *Dispatcher) handle(ctx context.Context, worker int, ev threshold.BreachEvent) {
	defer func() {
		if r := recover(); r != nil {
			metrics.AlertFailures.Inc()
			d.logger.Error("alert handler panicked",
				"worker", worker,
				"device_id", ev.DeviceID,
				"panic", r,
			)
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, handleTimeout)
	defer cancel()

	if _, err := d.handler.HandleBreach(ctx, ev); err != nil {
		metrics.AlertFailures.Inc()
		d.logger.Error("alert creation failed",
			"worker", worker,
			"device_id", ev.DeviceID,
			"type", ev.Type,
			"reading_id", ev.ReadingID,
			"error", err,
		)
	}
}
