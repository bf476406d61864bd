package hub

import "time"

// Dashboard event types carried on the JSON feed.
const (
	// EventDetections carries the tracked detection set for one frame.
	EventDetections = "detections"
	// EventScene carries a scene description from the backend.
	EventScene = "scene"
	// EventFrameSkipped reports the backend shedding a frame under load.
	EventFrameSkipped = "frame_skipped"
	// EventStatus reports pipeline state changes (connect, reconnect).
	EventStatus = "status"
	// EventTranscript carries voice transcripts, user and agent alike.
	EventTranscript = "transcript"
	// EventTool reports a voice tool invocation.
	EventTool = "tool"
	// EventMessage carries text the agent asked to display.
	EventMessage = "message"
)

// Event is the envelope for everything on the dashboard event feed.
type Event struct {
	Type      string `json:"type"`
	Timestamp string `json:"timestamp"`
	Data      any    `json:"data,omitempty"`
}

// NewEvent stamps a payload with its type and the current time.
func NewEvent(eventType string, data any) Event {
	return Event{
		Type:      eventType,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Data:      data,
	}
}
