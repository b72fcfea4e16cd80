package api

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nerrad567/coldwatch-core/internal/infrastructure/config"
	"github.com/nerrad567/coldwatch-core/internal/infrastructure/logging"
)

const (
	// gracefulShutdownTimeout is the maximum time to wait for in-flight
	// requests to complete during shutdown.
	gracefulShutdownTimeout = 10 * time.Second

	readTimeout  = 5 * time.Second
	writeTimeout = 30 * time.Second
	idleTimeout  = 60 * time.Second
)

// HealthChecker is implemented by every dependency /health reports on.
// *database.DB, *mqtt.Client and *influxdb.Client satisfy it.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// AlertCounter reports the number of unresolved alerts. *alert.Service
// satisfies it.
type AlertCounter interface {
	CountActive(ctx context.Context) (int, error)
}

// DeviceCounter reports the number of registered devices. *device.Registry
// satisfies it.
type DeviceCounter interface {
	GetDeviceCount() int
}

// StatsProvider exposes connection pool statistics. *database.DB satisfies it.
type StatsProvider interface {
	Stats() sql.DBStats
}

// Deps holds the dependencies required by the ops server.
type Deps struct {
	Config config.MetricsConfig
	Logger *logging.Logger

	// Checks maps a component name ("database", "mqtt", ...) to its health
	// check. Optional components are simply left out.
	Checks map[string]HealthChecker

	Devices DeviceCounter
	Alerts  AlertCounter
	DB      StatsProvider

	// Gatherer defaults to prometheus.DefaultGatherer.
	Gatherer prometheus.Gatherer

	Version string
}

// Server is the operations HTTP server.
type Server struct {
	cfg      config.MetricsConfig
	logger   *logging.Logger
	checks   map[string]HealthChecker
	devices  DeviceCounter
	alerts   AlertCounter
	db       StatsProvider
	gatherer prometheus.Gatherer
	version  string

	startTime time.Time
	server    *http.Server
	listener  net.Listener
}

// New creates a new ops server with the given dependencies.
//
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	return &Server{
		cfg:       deps.Config,
		logger:    deps.Logger,
		checks:    deps.Checks,
		devices:   deps.Devices,
		alerts:    deps.Alerts,
		db:        deps.DB,
		gatherer:  gatherer,
		version:   deps.Version,
		startTime: time.Now(),
	}, nil
}

// Start binds the listener and serves in a background goroutine.
//
// Binding happens synchronously so a port conflict is returned here rather
// than logged later.
func (s *Server) Start(_ context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	s.listener = ln

	s.server = &http.Server{
		Handler:           s.buildRouter(),
		ReadTimeout:       readTimeout,
		ReadHeaderTimeout: readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}

	s.logger.Info("ops server starting", "address", ln.Addr().String())
	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("ops server error", "error", err)
		}
	}()

	return nil
}

// Addr returns the bound listen address, or "" before Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Close gracefully shuts down the ops server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("ops server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down ops server: %w", err)
	}
	return nil
}
