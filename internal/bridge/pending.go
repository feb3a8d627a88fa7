package bridge

import (
	"errors"
	"fmt"
	"sync/atomic"
)

// Sentinel errors surfaced by Invoke. The dispatcher maps them onto
// ExecutionResult error kinds.
var (
	ErrNotConnected   = errors.New("no ready session for agent identity")
	ErrTimeout        = errors.New("remote invocation timed out")
	ErrConnectionLost = errors.New("agent session invalidated while request was outstanding")
)

// RemoteError carries an explicit error payload returned by the agent.
type RemoteError struct {
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote execution failed: %s", e.Message)
}

type outcome struct {
	result map[string]interface{}
	err    error
}

// pendingRequest is a resolve-once slot a caller suspends on. The resolved
// flag is compare-and-set so exactly one of response arrival, timeout, or
// invalidation wins; the done channel is buffered so the resolver never
// blocks on a slow caller.
type pendingRequest struct {
	id       string
	identity string
	done     chan outcome
	resolved atomic.Bool
}

func newPending(id, identity string) *pendingRequest {
	return &pendingRequest{
		id:       id,
		identity: identity,
		done:     make(chan outcome, 1),
	}
}

// resolve delivers the outcome if the request is still unresolved and
// reports whether this call won.
func (p *pendingRequest) resolve(o outcome) bool {
	if !p.resolved.CompareAndSwap(false, true) {
		return false
	}
	p.done <- o
	return true
}
