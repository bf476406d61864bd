package stream

import "github.com/argus-vision/go-argus/pkg/detect"

// Message types on the detection socket.
const (
	msgAuth             = "auth"
	msgFrame            = "frame"
	msgAuthSuccess      = "auth_success"
	msgAuthError        = "auth_error"
	msgDetection        = "detection"
	msgFrameSkipped     = "frame_skipped"
	msgSceneDescription = "scene_description"
	msgError            = "error"
)

type authMessage struct {
	Type  string `json:"type"`
	Token string `json:"token"`
}

type frameMessage struct {
	Type      string        `json:"type"`
	Frame     string        `json:"frame"`
	Timestamp float64       `json:"timestamp"`
	Params    detect.Params `json:"params"`
}

// serverMessage is the envelope for everything the backend sends.
// Fields are populated per message type; the rest stay zero.
type serverMessage struct {
	Type      string  `json:"type"`
	Message   string  `json:"message"`
	Timestamp float64 `json:"timestamp"`

	// detection
	Detections  []detect.WireDetection `json:"detections"`
	Image       *detect.ImageSize      `json:"image"`
	LatencyMS   float64                `json:"latency_ms"`
	FPS         float64                `json:"fps"`
	QueueSize   int                    `json:"queue_size"`
	Performance *Performance           `json:"performance"`

	// frame_skipped
	Reason     string  `json:"reason"`
	AvgLatency float64 `json:"avg_latency"`

	// scene_description
	Img         string `json:"img"`
	Description string `json:"description"`
	FrameCount  int    `json:"frame_count"`
	TimeSpan    string `json:"time_span"`
}

// Result is one frame's detection payload from the backend.
type Result struct {
	// Detections are the raw objects, in backend order.
	Detections []detect.Detection

	// Image is the size of the frame inference ran on.
	Image detect.ImageSize

	// Timestamp echoes the frame's send time in Unix seconds, so the
	// caller can measure round-trip latency against its own clock.
	Timestamp float64

	// LatencyMS is the backend's processing time for this frame.
	LatencyMS float64

	// FPS is the backend's measured throughput.
	FPS float64

	// QueueSize is how many frames the backend is holding.
	QueueSize int

	// Performance carries cumulative backend counters when present.
	Performance *Performance
}

// Performance is the backend's cumulative frame accounting.
type Performance struct {
	TotalFrames   int     `json:"total_frames"`
	DroppedFrames int     `json:"dropped_frames"`
	DropRate      float64 `json:"drop_rate"`
}

// Scene is a narrated description of recent frames, produced by the
// backend's vision-language model on its own cadence.
type Scene struct {
	// Description is the narration text.
	Description string

	// Image is the representative frame as encoded JPEG, nil when
	// the backend did not attach one.
	Image []byte

	// Timestamp is the backend clock in Unix seconds.
	Timestamp float64

	// FrameCount is how many frames the narration covers.
	FrameCount int

	// TimeSpan is the covered interval as the backend phrases it,
	// for example "5 seconds".
	TimeSpan string
}

// Skip reports a frame the backend dropped under load.
type Skip struct {
	Reason     string
	QueueSize  int
	AvgLatency float64
}

// Stats are cumulative client-side counters.
type Stats struct {
	FramesSent       int64
	MessagesReceived int64
	Reconnects       int64
}
