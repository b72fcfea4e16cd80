package device

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Logger defines the logging interface used by the Registry.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Registry provides device lookups with caching and thread safety.
//
// The repository is the source of truth: device rows are maintained
// outside this process, so ListActiveDevices and GetDevice read through to
// it on every call. The in-memory cache holds the last copy seen of each
// device and serves GetDevice when the store is briefly unavailable.
//
// All public methods are thread-safe.
type Registry struct {
	repo    Repository
	cache   map[string]*Device // Last seen devices by ID
	cacheMu sync.RWMutex       // Protects cache
	logger  Logger
}

// NewRegistry creates a new device registry.
func NewRegistry(repo Repository) *Registry {
	return &Registry{
		repo:   repo,
		cache:  make(map[string]*Device),
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// RefreshCache reloads all devices from the repository into the cache.
func (r *Registry) RefreshCache(ctx context.Context) error {
	devices, err := r.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("loading devices: %w", err)
	}

	r.cacheMu.Lock()
	defer r.cacheMu.Unlock()

	r.cache = make(map[string]*Device, len(devices))
	for i := range devices {
		r.cache[devices[i].ID] = devices[i].DeepCopy()
	}

	r.logger.Debug("device cache refreshed", "count", len(devices))
	return nil
}

// GetDevice retrieves a device by ID from the repository.
// Returns ErrDeviceNotFound if the device does not exist. Any other
// repository error falls back to the cached copy when there is one.
// The returned device is a deep copy; callers can safely modify it.
func (r *Registry) GetDevice(ctx context.Context, id string) (*Device, error) {
	d, err := r.repo.GetByID(ctx, id)
	switch {
	case err == nil:
		r.cacheMu.Lock()
		r.cache[d.ID] = d.DeepCopy()
		r.cacheMu.Unlock()
		return d, nil

	case errors.Is(err, ErrDeviceNotFound):
		r.cacheMu.Lock()
		delete(r.cache, id)
		r.cacheMu.Unlock()
		return nil, err
	}

	r.cacheMu.RLock()
	cached, ok := r.cache[id]
	if ok {
		cached = cached.DeepCopy()
	}
	r.cacheMu.RUnlock()
	if !ok {
		return nil, err
	}

	r.logger.Warn("device lookup failed, using cached copy", "id", id, "error", err)
	return cached, nil
}

// ListDevices reloads and returns all devices ordered by name.
func (r *Registry) ListDevices(ctx context.Context) ([]Device, error) {
	if err := r.RefreshCache(ctx); err != nil {
		return nil, err
	}

	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()
	return r.snapshotLocked(func(*Device) bool { return true }), nil
}

// ListActiveDevices returns the devices flagged active in the repository,
// ordered by name then ID. This is the poll list for the monitor, so a
// device deactivated or recalibrated in the store takes effect on the next
// cycle.
func (r *Registry) ListActiveDevices(ctx context.Context) ([]Device, error) {
	devices, err := r.repo.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing active devices: %w", err)
	}

	active := make(map[string]bool, len(devices))
	r.cacheMu.Lock()
	for i := range devices {
		active[devices[i].ID] = true
		r.cache[devices[i].ID] = devices[i].DeepCopy()
	}
	for id, d := range r.cache {
		if !active[id] {
			d.Active = false
		}
	}
	out := r.snapshotLocked(func(d *Device) bool { return d.Active })
	r.cacheMu.Unlock()

	return out, nil
}

// snapshotLocked copies matching cached devices ordered by name then ID.
// Caller must hold cacheMu.
func (r *Registry) snapshotLocked(keep func(*Device) bool) []Device {
	devices := make([]Device, 0, len(r.cache))
	for _, d := range r.cache {
		if keep(d) {
			devices = append(devices, *d.DeepCopy())
		}
	}
	sort.Slice(devices, func(i, j int) bool {
		if devices[i].Name != devices[j].Name {
			return devices[i].Name < devices[j].Name
		}
		return devices[i].ID < devices[j].ID
	})
	return devices
}

// CreateDevice validates and persists a new device, generating an ID if needed.
func (r *Registry) CreateDevice(ctx context.Context, d *Device) error {
	if d.ID == "" {
		d.ID = GenerateID()
	}
	ApplyDefaults(d)

	if err := ValidateDevice(d); err != nil {
		return err
	}
	if err := r.repo.Create(ctx, d); err != nil {
		return err
	}

	r.cacheMu.Lock()
	r.cache[d.ID] = d.DeepCopy()
	r.cacheMu.Unlock()

	r.logger.Info("device created", "id", d.ID, "name", d.Name, "protocol", d.Protocol)
	return nil
}

// UpdateDevice validates and persists changes to an existing device.
func (r *Registry) UpdateDevice(ctx context.Context, d *Device) error {
	ApplyDefaults(d)
	if err := ValidateDevice(d); err != nil {
		return err
	}
	if err := r.repo.Update(ctx, d); err != nil {
		return err
	}

	r.cacheMu.Lock()
	r.cache[d.ID] = d.DeepCopy()
	r.cacheMu.Unlock()

	r.logger.Info("device updated", "id", d.ID, "name", d.Name)
	return nil
}

// DeleteDevice removes a device.
func (r *Registry) DeleteDevice(ctx context.Context, id string) error {
	if err := r.repo.Delete(ctx, id); err != nil {
		return err
	}

	r.cacheMu.Lock()
	delete(r.cache, id)
	r.cacheMu.Unlock()

	r.logger.Info("device deleted", "id", id)
	return nil
}

// GetDeviceCount returns the number of devices seen at the last refresh
// or lookup.
func (r *Registry) GetDeviceCount() int {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()
	return len(r.cache)
}
