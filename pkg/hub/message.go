// Package hub fans messages out to dashboard websocket clients over
// channels. The server runs one hub per feed: a JSON event feed and a
// binary feed carrying annotated JPEG frames.
package hub

// MessageType selects the websocket frame type for a broadcast.
type MessageType int

const (
	// JSONMessage is UTF-8 JSON sent as a text frame.
	JSONMessage MessageType = iota
	// BinaryMessage is raw bytes sent as a binary frame (JPEG frames).
	BinaryMessage
)

// Message is one unit of broadcast work.
type Message struct {
	Type MessageType
	Data []byte
}

// NewJSONMessage wraps pre-encoded JSON bytes.
func NewJSONMessage(data []byte) Message {
	return Message{Type: JSONMessage, Data: data}
}

// NewBinaryMessage wraps raw bytes.
func NewBinaryMessage(data []byte) Message {
	return Message{Type: BinaryMessage, Data: data}
}
