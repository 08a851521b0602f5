package network

import (
	"encoding/json"
	"time"
)

const (
	EventPlayerRegistered = "player_registered"
	EventSessionRecorded  = "session_recorded"
)

// Frame is the JSON text frame pushed to feed watchers.
type Frame struct {
	Type   string          `json:"type"`
	Data   json.RawMessage `json:"data"`
	SentAt time.Time       `json:"sent_at"`
}

// Encode 封包: {"type", "data", "sent_at"}
func Encode(event string, payload interface{}, sentAt time.Time) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Frame{Type: event, Data: data, SentAt: sentAt.UTC()})
}

func Decode(raw []byte) (*Frame, error) {
	var f Frame
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, err
	}
	return &f, nil
}
