// Package dispatch routes tool calls: the security gate decides first,
// then the descriptor's schema validates the arguments, then the handler
// runs locally or is forwarded over the agent bridge. Every outcome,
// including panics and connection failures, is normalized into an
// ExecutionResult; no raw failure crosses this boundary.
package dispatch
