package voice

import (
	"encoding/json"

	"github.com/google/uuid"
)

// Client event types sent over the data channel.
const (
	eventSessionUpdate    = "session.update"
	eventItemCreate       = "conversation.item.create"
	eventResponseCreate   = "response.create"
	eventResponseCancel   = "response.cancel"
	eventOutputAudioClear = "output_audio_buffer.clear"
)

// clientEvent is the envelope for events sent to the realtime API.
// Only the fields matching the event type are populated.
type clientEvent struct {
	Type    string            `json:"type"`
	EventID string            `json:"event_id,omitempty"`
	Session *sessionConfig    `json:"session,omitempty"`
	Item    *conversationItem `json:"item,omitempty"`
}

// sessionConfig is the session.update payload.
type sessionConfig struct {
	Type         string       `json:"type,omitempty"`
	Model        string       `json:"model,omitempty"`
	Instructions string       `json:"instructions,omitempty"`
	Audio        *audioConfig `json:"audio,omitempty"`
	Tools        []toolSchema `json:"tools,omitempty"`
	ToolChoice   string       `json:"tool_choice,omitempty"`
}

type audioConfig struct {
	Input  *audioInput  `json:"input,omitempty"`
	Output *audioOutput `json:"output,omitempty"`
}

type audioInput struct {
	Transcription *transcriptionConfig `json:"transcription,omitempty"`
	TurnDetection *TurnDetection       `json:"turn_detection,omitempty"`
}

type audioOutput struct {
	Voice string `json:"voice,omitempty"`
}

type transcriptionConfig struct {
	Model string `json:"model,omitempty"`
}

// conversationItem is the conversation.item.create payload, either a
// user message or a function call output.
type conversationItem struct {
	Type    string        `json:"type"`
	Role    string        `json:"role,omitempty"`
	Content []itemContent `json:"content,omitempty"`
	CallID  string        `json:"call_id,omitempty"`
	Output  string        `json:"output,omitempty"`
}

type itemContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// ServerEvent is the envelope for events received from the realtime
// API over the data channel. Fields are sparse; which are set depends
// on Type.
type ServerEvent struct {
	Type       string      `json:"type"`
	EventID    string      `json:"event_id,omitempty"`
	ItemID     string      `json:"item_id,omitempty"`
	Transcript string      `json:"transcript,omitempty"`
	Delta      string      `json:"delta,omitempty"`
	CallID     string      `json:"call_id,omitempty"`
	Name       string      `json:"name,omitempty"`
	Arguments  string      `json:"arguments,omitempty"`
	Error      *EventError `json:"error,omitempty"`
}

// EventError carries the error payload of an "error" event.
type EventError struct {
	Type    string `json:"type,omitempty"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// parseServerEvent decodes one data channel message.
func parseServerEvent(data []byte) (ServerEvent, error) {
	var ev ServerEvent
	err := json.Unmarshal(data, &ev)
	return ev, err
}

// newEventID returns a unique client event ID.
func newEventID() string {
	return "evt_" + uuid.NewString()
}
