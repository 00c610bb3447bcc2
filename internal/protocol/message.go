package protocol

import "encoding/json"

// Message is the JSON envelope exchanged with the companion's realtime
// channel. Inbound events carry Type; outbound requests carry Op.
type Message struct {
	ID      string          `json:"id,omitempty"`
	Type    string          `json:"type,omitempty"`
	Op      string          `json:"op,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   *ErrPayload     `json:"error,omitempty"`
}

type ErrPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func MustRaw(v any) json.RawMessage {
	b, _ := json.Marshal(v)
	return b
}
