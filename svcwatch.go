// Package svcwatch is the public facade over the monitoring engine: it wires
// the process inspector, queue source, durable policy store and history
// sinks into an Engine and exposes the HTTP server and metrics helpers.
package svcwatch

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/loykin/svcwatch/internal/config"
	"github.com/loykin/svcwatch/internal/configstore"
	"github.com/loykin/svcwatch/internal/controller"
	"github.com/loykin/svcwatch/internal/engine"
	"github.com/loykin/svcwatch/internal/history"
	"github.com/loykin/svcwatch/internal/history/factory"
	"github.com/loykin/svcwatch/internal/inspector"
	"github.com/loykin/svcwatch/internal/metrics"
	"github.com/loykin/svcwatch/internal/policy"
	"github.com/loykin/svcwatch/internal/queue"
	"github.com/loykin/svcwatch/internal/scanner"
	"github.com/loykin/svcwatch/internal/server"
)

// Re-exported types so callers do not import internal packages.
type (
	Config      = config.FileConfig
	Engine      = engine.Engine
	Policy      = policy.Policy
	ServiceView = engine.ServiceView
	QueueView   = engine.QueueView
)

// Sentinel errors surfaced by Engine operations.
var (
	ErrNotFound        = engine.ErrNotFound
	ErrRestartInFlight = engine.ErrRestartInFlight
	ErrNoFolder        = engine.ErrNoFolder
)

// LoadConfig reads a TOML configuration file.
func LoadConfig(path string) (Config, error) { return config.Load(path) }

// DefaultConfig returns the built-in configuration.
func DefaultConfig() Config { return config.Default() }

// New assembles an Engine from the configuration. The returned close
// function releases the durable store and history sinks; call it after
// Engine.Stop.
func New(cfg Config) (*Engine, func(), error) {
	var (
		durable configstore.Store
		sinks   []history.Sink
	)
	closeAll := func() {
		for _, s := range sinks {
			_ = s.Close()
		}
		if durable != nil {
			_ = durable.Close()
		}
	}

	if cfg.StoreDSN != "" {
		var err error
		durable, err = configstore.Open(cfg.StoreDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open config store: %w", err)
		}
	}
	if cfg.HistoryDSN != "" {
		sink, err := factory.NewSinkFromDSN(cfg.HistoryDSN)
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("open history sink: %w", err)
		}
		sinks = append(sinks, sink)
	}

	insp := inspector.New(scanner.Extensions())
	eng, err := engine.New(engine.Config{
		CheckInterval:         cfg.Engine.CheckInterval,
		ErrorBackoff:          cfg.Engine.ErrorBackoff,
		ResourceCooldown:      cfg.Engine.ResourceCooldown,
		QueueCooldown:         cfg.Engine.QueueCooldown,
		DefaultQueueThreshold: cfg.Engine.DefaultQueueThreshold,
	}, insp, queue.NewPlatformSource(), controller.New(), durable, sinks...)
	if err != nil {
		closeAll()
		return nil, nil, err
	}

	// A folder from the config file wins over the persisted one.
	if cfg.FolderPath != "" {
		if err := eng.SetFolder(cfg.FolderPath); err != nil {
			closeAll()
			return nil, nil, err
		}
	}
	return eng, closeAll, nil
}

// NewHTTPServer starts the API server for eng on addr.
func NewHTTPServer(addr, basePath string, eng *Engine) (*http.Server, error) {
	return server.NewServer(addr, basePath, eng)
}

// RegisterMetrics registers the Prometheus collectors with the default
// registry.
func RegisterMetrics() error {
	return metrics.Register(prometheus.DefaultRegisterer)
}

// MetricsHandler serves the Prometheus scrape endpoint.
func MetricsHandler() http.Handler { return metrics.Handler() }
