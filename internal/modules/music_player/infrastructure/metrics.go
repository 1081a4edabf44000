package infrastructure

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sglre6355/sgrtune/internal/modules/music_player/application/ports"
)

const metricsNamespace = "sgrtune"

// Metrics records stream resolution, queue persistence and playback error outcomes.
type Metrics struct {
	resolutions        *prometheus.CounterVec
	resolutionFailures *prometheus.CounterVec
	remoteResolve      prometheus.Histogram
	queueFlushes       *prometheus.CounterVec
	playbackErrors     *prometheus.CounterVec
}

// NewMetrics creates the music player metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "stream",
			Name:      "resolutions_total",
			Help:      "Stream resolutions served, by source.",
		}, []string{"source"}),
		resolutionFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "stream",
			Name:      "resolution_failures_total",
			Help:      "Stream resolutions that failed, by error kind.",
		}, []string{"kind"}),
		remoteResolve: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "stream",
			Name:      "remote_resolve_seconds",
			Help:      "Duration of remote stream resolutions.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
		}),
		queueFlushes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "queue",
			Name:      "flushes_total",
			Help:      "Queue board flushes to durable storage, by result.",
		}, []string{"result"}),
		playbackErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "playback",
			Name:      "errors_total",
			Help:      "Playback errors, by the action taken.",
		}, []string{"action"}),
	}

	reg.MustRegister(
		m.resolutions,
		m.resolutionFailures,
		m.remoteResolve,
		m.queueFlushes,
		m.playbackErrors,
	)
	return m
}

// ResolutionServed counts a resolution served from source.
func (m *Metrics) ResolutionServed(source ports.SourceKind) {
	m.resolutions.WithLabelValues(string(source)).Inc()
}

// ResolutionFailed counts a failed resolution.
func (m *Metrics) ResolutionFailed(kind string) {
	m.resolutionFailures.WithLabelValues(kind).Inc()
}

// RemoteResolveDuration observes the duration of a remote resolution.
func (m *Metrics) RemoteResolveDuration(d time.Duration) {
	m.remoteResolve.Observe(d.Seconds())
}

// QueueFlushed counts a queue flush.
func (m *Metrics) QueueFlushed(result string) {
	m.queueFlushes.WithLabelValues(result).Inc()
}

// PlaybackErrorHandled counts a playback error and the action taken.
func (m *Metrics) PlaybackErrorHandled(action string) {
	m.playbackErrors.WithLabelValues(action).Inc()
}

// Ensure Metrics implements the observer ports.
var (
	_ ports.ResolutionObserver = (*Metrics)(nil)
	_ ports.PlaybackObserver   = (*Metrics)(nil)
)
