package types

import (
	"context"
	"time"
)

// ExecMode selects where a tool runs.
type ExecMode string

const (
	// ModeLocal runs the handler in-process.
	ModeLocal ExecMode = "local"
	// ModeRemote forwards the call over the agent bridge.
	ModeRemote ExecMode = "remote"
)

// HandlerFunc is the signature of a local tool implementation.
type HandlerFunc func(ctx context.Context, args map[string]interface{}) (*ExecutionResult, error)

// Parameter declares one field of a tool's input schema.
type Parameter struct {
	Name        string `json:"name"`
	Type        string `json:"type"` // string, number, integer, boolean, object, array
	Description string `json:"description"`
	Required    bool   `json:"required"`
}

// ToolDescriptor declares a tool: its schema, execution mode, and handler.
// Descriptors are immutable after registration.
type ToolDescriptor struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Parameters  []Parameter `json:"parameters"`
	Mode        ExecMode    `json:"mode"`

	// Handler executes local tools. Nil for remote tools.
	Handler HandlerFunc `json:"-"`

	// AgentID is the default target identity for remote tools. Callers may
	// override it with an "agent_id" argument.
	AgentID string `json:"agent_id,omitempty"`

	// InterpreterArgs marks tools whose arguments reach a command
	// interpreter; the security gate scans these against the denylist.
	InterpreterArgs bool `json:"-"`

	// Timeout overrides the dispatcher's default per-call timeout when set.
	Timeout time.Duration `json:"-"`
}
