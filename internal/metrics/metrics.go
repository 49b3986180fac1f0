package metrics

import (
	"errors"
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Package-level Prometheus collectors. They are registered via Register.
var (
	regOK atomic.Bool

	trackedServices = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "svcwatch",
			Subsystem: "engine",
			Name:      "tracked_services",
			Help:      "Number of services currently holding a restart policy.",
		},
	)
	breaches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "svcwatch",
			Subsystem: "engine",
			Name:      "breaches_total",
			Help:      "Number of threshold breaches by cause.",
		}, []string{"name", "cause"},
	)
	restarts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "svcwatch",
			Subsystem: "engine",
			Name:      "restarts_total",
			Help:      "Number of restart attempts by result.",
		}, []string{"name", "result"},
	)
	restartDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "svcwatch",
			Subsystem: "engine",
			Name:      "restart_duration_seconds",
			Help:      "Wall time of the stop-cooldown-start sequence.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"name"},
	)
	queueDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "svcwatch",
			Subsystem: "queue",
			Name:      "depth",
			Help:      "Last observed message count per queue.",
		}, []string{"queue"},
	)
	cycles = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "svcwatch",
			Subsystem: "engine",
			Name:      "cycles_total",
			Help:      "Number of completed evaluation cycles.",
		},
	)
	cycleErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "svcwatch",
			Subsystem: "engine",
			Name:      "cycle_errors_total",
			Help:      "Number of evaluation cycles that failed.",
		},
	)
)

// Register registers all metrics with the provided registerer.
// It is safe to call multiple times; subsequent calls after success are no-ops.
func Register(r prometheus.Registerer) error {
	if regOK.Load() {
		return nil
	}
	cs := []prometheus.Collector{trackedServices, breaches, restarts, restartDuration, queueDepth, cycles, cycleErrors}
	for _, c := range cs {
		if err := r.Register(c); err != nil {
			// If already registered, ignore (allows double Register with default registry)
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	regOK.Store(true)
	return nil
}

// Handler returns an http.Handler that serves Prometheus metrics for the DefaultGatherer.
// The caller is responsible for starting an HTTP server and wiring the route.
func Handler() http.Handler { return promhttp.Handler() }

// Below are lightweight helpers used by internal packages to record metrics.
// They no-op if Register hasn't been called.

func SetTrackedServices(n int) {
	if regOK.Load() {
		trackedServices.Set(float64(n))
	}
}

func IncBreach(name, cause string) {
	if regOK.Load() {
		breaches.WithLabelValues(name, cause).Inc()
	}
}

func IncRestart(name, result string) {
	if regOK.Load() {
		restarts.WithLabelValues(name, result).Inc()
	}
}

func ObserveRestartDuration(name string, seconds float64) {
	if regOK.Load() {
		restartDuration.WithLabelValues(name).Observe(seconds)
	}
}

func SetQueueDepth(queue string, count int64) {
	if regOK.Load() {
		queueDepth.WithLabelValues(queue).Set(float64(count))
	}
}

func IncCycle() {
	if regOK.Load() {
		cycles.Inc()
	}
}

func IncCycleError() {
	if regOK.Load() {
		cycleErrors.Inc()
	}
}
