package types

import "time"

// ErrorKind classifies a failed execution. Every failure surfaced to a
// caller carries exactly one kind.
type ErrorKind string

const (
	ErrKindSecurityDenied    ErrorKind = "security_denied"
	ErrKindSchemaValidation  ErrorKind = "schema_validation"
	ErrKindNotFound          ErrorKind = "not_found"
	ErrKindNotConnected      ErrorKind = "not_connected"
	ErrKindTimeout           ErrorKind = "timeout"
	ErrKindConnectionLost    ErrorKind = "connection_lost"
	ErrKindRemoteError       ErrorKind = "remote_error"
	ErrKindExecutionError    ErrorKind = "execution_error"
	ErrKindProtocolViolation ErrorKind = "protocol_violation"
)

// ExecutionResult is the single currency returned by every tool handler,
// local or remote. Failures never escape as raw errors past the dispatcher.
type ExecutionResult struct {
	Success    bool                   `json:"success"`
	Output     map[string]interface{} `json:"output,omitempty"`
	ErrorKind  ErrorKind              `json:"error_kind,omitempty"`
	Error      string                 `json:"error,omitempty"`
	DurationMS int64                  `json:"duration_ms"`
	Truncated  bool                   `json:"truncated,omitempty"`
}

// OK builds a successful result.
func OK(output map[string]interface{}) *ExecutionResult {
	return &ExecutionResult{Success: true, Output: output}
}

// Fail builds a failed result with a kind and human-readable reason.
func Fail(kind ErrorKind, reason string) *ExecutionResult {
	return &ExecutionResult{Success: false, ErrorKind: kind, Error: reason}
}

// WithDuration stamps the elapsed time and returns the result for chaining.
func (r *ExecutionResult) WithDuration(d time.Duration) *ExecutionResult {
	r.DurationMS = d.Milliseconds()
	return r
}
