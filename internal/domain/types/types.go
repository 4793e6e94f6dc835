// Package types contains the wire messages exchanged with observers.
package types

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/okian/forecasthub/internal/domain/model"
	"github.com/okian/forecasthub/internal/domain/modification"
)

// Message types.
const (
	TypeInitialData        = "initial_data"
	TypeForecastUpdate     = "forecast_update"
	TypeChatMessage        = "chat_message"
	TypeAgentResponse      = "agent_response"
	TypeClearModifications = "clear_modifications"
)

// Envelope is the frame every message travels in.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// ForecastPayload carries a full snapshot. It is the data of both
// initial_data and forecast_update.
type ForecastPayload struct {
	Forecast      model.Timeline       `json:"forecast"`
	Modifications []model.Modification `json:"modifications"`
	Version       uint64               `json:"version"`
	Timestamp     time.Time            `json:"timestamp"`
}

// ChatPayload is the data of chat_message.
type ChatPayload struct {
	Message string `json:"message"`
}

// AgentResponsePayload is the data of agent_response.
type AgentResponsePayload struct {
	Response      string                 `json:"response"`
	Modifications []modification.Request `json:"modifications"`
}

// NewForecastPayload converts a snapshot to its wire form.
func NewForecastPayload(s model.Snapshot) ForecastPayload {
	mods := s.Modifications
	if mods == nil {
		mods = []model.Modification{}
	}
	fc := s.Forecast
	if fc == nil {
		fc = model.Timeline{}
	}
	return ForecastPayload{Forecast: fc, Modifications: mods, Version: s.Version, Timestamp: s.TakenAt}
}

// Encode wraps data in an envelope of the given type and marshals it.
func Encode(msgType string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", msgType, err)
	}
	return json.Marshal(Envelope{Type: msgType, Data: raw})
}

// EncodeSnapshot encodes a snapshot as a message of the given type.
func EncodeSnapshot(msgType string, s model.Snapshot) ([]byte, error) {
	return Encode(msgType, NewForecastPayload(s))
}

// Decode parses an inbound frame.
func Decode(frame []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	if env.Type == "" {
		return Envelope{}, fmt.Errorf("decode envelope: missing type")
	}
	return env, nil
}

// Outcome is the result of one hub command.
type Outcome struct {
	Results   []model.ApplyResult `json:"results"`
	Version   uint64              `json:"version"`
	Delivered int                 `json:"delivered"`
	Failed    int                 `json:"failed"`
}

// Stats is a point-in-time view of the hub.
type Stats struct {
	Started        bool   `json:"started"`
	State          string `json:"state"`
	Connections    int    `json:"connections"`
	Version        uint64 `json:"version"`
	LogLength      int    `json:"modifications"`
	TimelineLength int    `json:"timeline_length"`
	QueueLength    int    `json:"queue_length"`
	QueueCapacity  int    `json:"queue_capacity"`
	DedupeSize     int64  `json:"dedupe_size"`
}
