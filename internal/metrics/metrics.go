// Package metrics tracks pipeline counters and exposes them to Prometheus.
// Counters are plain atomics so hot paths never touch a mutex; the
// prometheus registry reads them lazily through GaugeFunc collectors.
package metrics

import (
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all client pipeline metrics.
type Metrics struct {
	// Frame pipeline
	FramesCaptured atomic.Uint64
	FramesSent     atomic.Uint64
	FramesSkipped  atomic.Uint64 // server asked us to drop (backpressure)
	CaptureErrors  atomic.Uint64

	// Detection results
	DetectionsReceived atomic.Uint64 // result messages
	ObjectsDetected    atomic.Uint64 // individual boxes
	ObjectsTracked     atomic.Uint64 // boxes matched to the previous frame
	ScenesReceived     atomic.Uint64

	// Transport health
	StreamReconnects atomic.Uint64
	StreamErrors     atomic.Uint64

	// Voice session
	ToolCalls      atomic.Uint64
	ContextUpdates atomic.Uint64

	// Latency gauges (milliseconds, last observed)
	DetectLatencyMs atomic.Uint64 // backend-reported inference latency
	RoundTripMs     atomic.Uint64 // frame sent -> result received
	RenderMs        atomic.Uint64

	registry *prometheus.Registry
}

// New creates a Metrics instance with its own Prometheus registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
	}
	m.register()
	return m
}

func (m *Metrics) register() {
	counters := []struct {
		name string
		help string
		val  *atomic.Uint64
	}{
		{"argus_frames_captured_total", "Frames captured from the source", &m.FramesCaptured},
		{"argus_frames_sent_total", "Frames sent to the detection stream", &m.FramesSent},
		{"argus_frames_skipped_total", "Frames the backend skipped under load", &m.FramesSkipped},
		{"argus_capture_errors_total", "Frame capture failures", &m.CaptureErrors},
		{"argus_detections_received_total", "Detection result messages received", &m.DetectionsReceived},
		{"argus_objects_detected_total", "Individual detections received", &m.ObjectsDetected},
		{"argus_objects_tracked_total", "Detections matched to the previous frame", &m.ObjectsTracked},
		{"argus_scenes_received_total", "Scene descriptions received", &m.ScenesReceived},
		{"argus_stream_reconnects_total", "Detection stream reconnects", &m.StreamReconnects},
		{"argus_stream_errors_total", "Detection stream errors", &m.StreamErrors},
		{"argus_voice_tool_calls_total", "Voice tool invocations", &m.ToolCalls},
		{"argus_voice_context_updates_total", "Scene context items sent to the voice session", &m.ContextUpdates},
		{"argus_detect_latency_ms", "Last backend inference latency in ms", &m.DetectLatencyMs},
		{"argus_round_trip_ms", "Last frame round-trip latency in ms", &m.RoundTripMs},
		{"argus_render_ms", "Last annotation render time in ms", &m.RenderMs},
	}

	for _, c := range counters {
		v := c.val
		m.registry.MustRegister(prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{Name: c.name, Help: c.help},
			func() float64 { return float64(v.Load()) },
		))
	}
}

// Handler returns an http.Handler serving the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Snapshot is a point-in-time copy of the counters for the status API.
type Snapshot struct {
	FramesCaptured     uint64 `json:"frames_captured"`
	FramesSent         uint64 `json:"frames_sent"`
	FramesSkipped      uint64 `json:"frames_skipped"`
	CaptureErrors      uint64 `json:"capture_errors"`
	DetectionsReceived uint64 `json:"detections_received"`
	ObjectsDetected    uint64 `json:"objects_detected"`
	ObjectsTracked     uint64 `json:"objects_tracked"`
	ScenesReceived     uint64 `json:"scenes_received"`
	StreamReconnects   uint64 `json:"stream_reconnects"`
	StreamErrors       uint64 `json:"stream_errors"`
	ToolCalls          uint64 `json:"tool_calls"`
	ContextUpdates     uint64 `json:"context_updates"`
	DetectLatencyMs    uint64 `json:"detect_latency_ms"`
	RoundTripMs        uint64 `json:"round_trip_ms"`
	RenderMs           uint64 `json:"render_ms"`
}

// Snapshot returns the current counter values.
func (m *Metrics) Snapshot() Snapshot {
	return Snapshot{
		FramesCaptured:     m.FramesCaptured.Load(),
		FramesSent:         m.FramesSent.Load(),
		FramesSkipped:      m.FramesSkipped.Load(),
		CaptureErrors:      m.CaptureErrors.Load(),
		DetectionsReceived: m.DetectionsReceived.Load(),
		ObjectsDetected:    m.ObjectsDetected.Load(),
		ObjectsTracked:     m.ObjectsTracked.Load(),
		ScenesReceived:     m.ScenesReceived.Load(),
		StreamReconnects:   m.StreamReconnects.Load(),
		StreamErrors:       m.StreamErrors.Load(),
		ToolCalls:          m.ToolCalls.Load(),
		ContextUpdates:     m.ContextUpdates.Load(),
		DetectLatencyMs:    m.DetectLatencyMs.Load(),
		RoundTripMs:        m.RoundTripMs.Load(),
		RenderMs:           m.RenderMs.Load(),
	}
}
