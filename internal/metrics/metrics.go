package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds all metrics for the application
type Registry struct {
	// Simulation / frame metrics
	SimTicksTotal        *prometheus.CounterVec
	FrameBuildDuration   *prometheus.HistogramVec
	OverlaySkipsTotal    *prometheus.CounterVec
	LabelCollisionsTotal *prometheus.CounterVec
	TaskPanicsTotal      *prometheus.CounterVec

	// Live preview metrics
	LiveClients         prometheus.Gauge
	LiveFramesSentTotal *prometheus.CounterVec
	LiveFrameBytes      *prometheus.HistogramVec
	LiveClientMessages  *prometheus.CounterVec

	// Dataset metrics
	DatasetReloadsTotal *prometheus.CounterVec
	DatasetNodes        prometheus.Gauge
	DatasetLinks        prometheus.Gauge

	registry *prometheus.Registry
}

var (
	defaultRegistry *Registry
	once            sync.Once
)

// DefaultRegistry returns the process-wide registry
func DefaultRegistry() *Registry {
	once.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// NewRegistry creates a new metrics registry with all metrics initialized
func NewRegistry() *Registry {
	r := &Registry{registry: prometheus.NewRegistry()}
	r.initFrameMetrics()
	r.initLiveMetrics()
	r.initDatasetMetrics()
	return r
}

// Handler serves the registry in the Prometheus text format
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Gatherer exposes the underlying registry for tests and scrapes
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}

func (r *Registry) initFrameMetrics() {
	r.SimTicksTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "dualgraph_sim_ticks_total",
			Help: "Simulation ticks run per view",
		},
		[]string{"view"},
	)

	r.FrameBuildDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dualgraph_frame_build_duration_seconds",
			Help:    "Time to project a snapshot and build its frame",
			Buckets: []float64{.0001, .0005, .001, .0025, .005, .01, .025, .05, .1},
		},
		[]string{"view"},
	)

	r.OverlaySkipsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "dualgraph_overlay_skips_total",
			Help: "Overlay elements left out of a frame",
		},
		[]string{"view", "reason"},
	)

	r.LabelCollisionsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "dualgraph_label_collisions_total",
			Help: "Link labels that needed more than one placement attempt",
		},
		[]string{"view"},
	)

	r.TaskPanicsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "dualgraph_task_panics_total",
			Help: "Recovered panics in scheduled tasks",
		},
		[]string{"task"},
	)
}

func (r *Registry) initLiveMetrics() {
	r.LiveClients = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "dualgraph_live_clients",
			Help: "Connected live preview clients",
		},
	)

	r.LiveFramesSentTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "dualgraph_live_frames_sent_total",
			Help: "Frames written to live clients",
		},
		[]string{"encoding"},
	)

	r.LiveFrameBytes = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dualgraph_live_frame_bytes",
			Help:    "Size of frames written to live clients",
			Buckets: prometheus.ExponentialBuckets(256, 4, 8),
		},
		[]string{"encoding"},
	)

	r.LiveClientMessages = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "dualgraph_live_client_messages_total",
			Help: "Messages received from live clients",
		},
		[]string{"type", "status"},
	)
}

func (r *Registry) initDatasetMetrics() {
	r.DatasetReloadsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "dualgraph_dataset_reloads_total",
			Help: "Dataset reloads by outcome",
		},
		[]string{"status"},
	)

	r.DatasetNodes = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "dualgraph_dataset_nodes",
			Help: "Nodes in the loaded dataset",
		},
	)

	r.DatasetLinks = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "dualgraph_dataset_links",
			Help: "Links in the loaded dataset",
		},
	)
}

// RecordTicks counts simulation ticks for a view
func (r *Registry) RecordTicks(view string, n int) {
	r.SimTicksTotal.WithLabelValues(view).Add(float64(n))
}

// RecordFrame records one projected frame
func (r *Registry) RecordFrame(view string, build time.Duration, unplaced, missing, hidden, collisions int) {
	r.FrameBuildDuration.WithLabelValues(view).Observe(build.Seconds())
	if unplaced > 0 {
		r.OverlaySkipsTotal.WithLabelValues(view, "unplaced").Add(float64(unplaced))
	}
	if missing > 0 {
		r.OverlaySkipsTotal.WithLabelValues(view, "missing_endpoint").Add(float64(missing))
	}
	if hidden > 0 {
		r.OverlaySkipsTotal.WithLabelValues(view, "hidden").Add(float64(hidden))
	}
	if collisions > 0 {
		r.LabelCollisionsTotal.WithLabelValues(view).Add(float64(collisions))
	}
}

// RecordTaskPanic counts a recovered task panic
func (r *Registry) RecordTaskPanic(task string) {
	r.TaskPanicsTotal.WithLabelValues(task).Inc()
}

// RecordFrameSent counts a frame written to a live client
func (r *Registry) RecordFrameSent(encoding string, size int) {
	r.LiveFramesSentTotal.WithLabelValues(encoding).Inc()
	r.LiveFrameBytes.WithLabelValues(encoding).Observe(float64(size))
}

// RecordClientMessage counts a message from a live client
func (r *Registry) RecordClientMessage(kind string, ok bool) {
	status := "ok"
	if !ok {
		status = "error"
	}
	r.LiveClientMessages.WithLabelValues(kind, status).Inc()
}

// RecordReload records a dataset reload and, on success, its size
func (r *Registry) RecordReload(ok bool, nodes, links int) {
	if !ok {
		r.DatasetReloadsTotal.WithLabelValues("error").Inc()
		return
	}
	r.DatasetReloadsTotal.WithLabelValues("ok").Inc()
	r.SetDatasetSize(nodes, links)
}

// SetDatasetSize updates the dataset gauges
func (r *Registry) SetDatasetSize(nodes, links int) {
	r.DatasetNodes.Set(float64(nodes))
	r.DatasetLinks.Set(float64(links))
}
