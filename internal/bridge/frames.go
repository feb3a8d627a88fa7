package bridge

// FrameType discriminates wire frames. Frames are JSON objects whose
// "type" field selects which of the optional fields are meaningful.
type FrameType string

const (
	FrameAuth       FrameType = "auth"
	FrameAuthAck    FrameType = "auth_ack"
	FrameAuthReject FrameType = "auth_reject"
	FrameHeartbeat  FrameType = "heartbeat"
	FrameCommand    FrameType = "command"
	FrameResponse   FrameType = "response"
)

// Frame is the single wire envelope. Unused fields are omitted, keeping
// each frame self-describing without per-type structs.
type Frame struct {
	Type FrameType `json:"type"`

	// auth
	Token    string `json:"token,omitempty"`
	ClientID string `json:"client_id,omitempty"`

	// auth_reject
	Reason string `json:"reason,omitempty"`

	// auth_ack: cadence the server expects heartbeats at
	HeartbeatIntervalMS int64 `json:"heartbeat_interval_ms,omitempty"`

	// heartbeat, command
	Timestamp int64 `json:"timestamp,omitempty"`

	// command, response
	CorrelationID string `json:"correlation_id,omitempty"`

	// command
	ToolName  string                 `json:"tool_name,omitempty"`
	Arguments map[string]interface{} `json:"arguments,omitempty"`

	// response: Result and Error are mutually exclusive
	Result map[string]interface{} `json:"result,omitempty"`
	Error  string                 `json:"error,omitempty"`
}
