// Package hub provides a channel-based websocket broadcast hub. One
// goroutine owns the client set; producers hand it messages and never
// touch connections directly.
package hub

import "encoding/json"

// MessageType selects the websocket frame format.
type MessageType int

const (
	// JSONMessage is a JSON-encoded text frame
	JSONMessage MessageType = iota
	// BinaryMessage is raw binary data (JPEG preview frames)
	BinaryMessage
)

// Message is one outbound broadcast.
type Message struct {
	Type MessageType
	Data []byte
}

// Envelope is the wire format for event messages: a name plus an
// arbitrary JSON payload.
type Envelope struct {
	Event   string      `json:"event"`
	Payload interface{} `json:"payload"`
}

// NewJSONMessage wraps pre-encoded JSON bytes.
func NewJSONMessage(data []byte) Message {
	return Message{Type: JSONMessage, Data: data}
}

// NewBinaryMessage wraps binary data.
func NewBinaryMessage(data []byte) Message {
	return Message{Type: BinaryMessage, Data: data}
}

// NewEventMessage encodes an event envelope.
func NewEventMessage(event string, payload interface{}) (Message, error) {
	data, err := json.Marshal(Envelope{Event: event, Payload: payload})
	if err != nil {
		return Message{}, err
	}
	return NewJSONMessage(data), nil
}
