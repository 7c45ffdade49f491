package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// ProtocolVersion is the version of the frame protocol
const ProtocolVersion = "1.0.0"

// FrameType defines frame types exchanged with a native host
type FrameType string

const (
	// FrameTypeExec invokes an action on the native host
	FrameTypeExec FrameType = "exec"
	// FrameTypeSuccess carries a success value for an exec frame
	FrameTypeSuccess FrameType = "success"
	// FrameTypeError carries an error value for an exec frame
	FrameTypeError FrameType = "error"
	// FrameTypePing keeps the connection alive
	FrameTypePing FrameType = "ping"
	// FrameTypePong is a response to ping
	FrameTypePong FrameType = "pong"
)

// Frame is the envelope for all bridge traffic
type Frame struct {
	// Type is the frame type
	Type FrameType `json:"type"`
	// Version is the protocol version
	Version string `json:"version"`
	// Timestamp is when the frame was created (in milliseconds since epoch)
	Timestamp int64 `json:"timestamp"`
	// Payload contains the actual frame data
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewFrame creates a new frame with specified type and payload
func NewFrame(frameType FrameType, payload interface{}) (*Frame, error) {
	var payloadJSON json.RawMessage
	var err error

	if payload != nil {
		payloadJSON, err = json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to convert payload to JSON: %v", err)
		}
	}

	return &Frame{
		Type:      frameType,
		Version:   ProtocolVersion,
		Timestamp: time.Now().UnixNano() / int64(time.Millisecond),
		Payload:   payloadJSON,
	}, nil
}

// ParsePayload parses frame payload into the provided struct
func (f *Frame) ParsePayload(v interface{}) error {
	if f.Payload == nil {
		return nil
	}
	return json.Unmarshal(f.Payload, v)
}

// ExecPayload asks the native host to run an action
type ExecPayload struct {
	// CallbackID correlates results with this exec frame
	CallbackID string `json:"callback_id"`
	// Service is the native target
	Service string `json:"service"`
	// Action is the command name
	Action string `json:"action"`
	// Args are the positional arguments
	Args []interface{} `json:"args"`
}

// ResultPayload carries a success or error value back to the bridge
type ResultPayload struct {
	// CallbackID is the id of the exec frame being answered
	CallbackID string `json:"callback_id"`
	// Value is the success value or the raw error code
	Value json.RawMessage `json:"value,omitempty"`
	// Keep leaves the callback registered for further results
	Keep bool `json:"keep,omitempty"`
}
