package bridge

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// State tracks a session's lifecycle. Closed is terminal; the session
// object is discarded, never reused.
type State int32

const (
	StateConnecting State = iota
	StateAuthenticating
	StateReady
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAuthenticating:
		return "authenticating"
	case StateReady:
		return "ready"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// session is the server-side state for one connected agent identity. The
// pending table is only ever mutated here and by the manager's frame
// handling; callers never touch it directly.
type session struct {
	identity    string
	conn        *websocket.Conn
	connectedAt time.Time

	state         atomic.Int32
	lastHeartbeat atomic.Int64 // unix nanos

	mu      sync.Mutex
	pending map[string]*pendingRequest

	send      chan Frame
	closed    chan struct{}
	closeOnce sync.Once
}

func newSession(conn *websocket.Conn) *session {
	s := &session{
		conn:        conn,
		connectedAt: time.Now(),
		pending:     make(map[string]*pendingRequest),
		send:        make(chan Frame, 64),
		closed:      make(chan struct{}),
	}
	s.state.Store(int32(StateConnecting))
	s.lastHeartbeat.Store(time.Now().UnixNano())
	return s
}

func (s *session) State() State {
	return State(s.state.Load())
}

// addPending registers a request slot. Fails once the session has left
// Ready, so no command can be issued against a connection being torn down.
func (s *session) addPending(p *pendingRequest) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.State() != StateReady {
		return false
	}
	s.pending[p.id] = p
	return true
}

// removePending drops a slot, reporting whether it was present.
func (s *session) removePending(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pending[id]; !ok {
		return false
	}
	delete(s.pending, id)
	return true
}

// takePending removes and returns the slot for a correlation ID.
func (s *session) takePending(id string) *pendingRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pending[id]
	if !ok {
		return nil
	}
	delete(s.pending, id)
	return p
}

func (s *session) pendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// enqueue hands a frame to the session writer, failing if the session is
// already invalidated.
func (s *session) enqueue(f Frame) bool {
	select {
	case <-s.closed:
		return false
	case s.send <- f:
		return true
	}
}

// close transitions the session to Closed exactly once: the socket is
// closed and every outstanding request resolves with cause. Returns
// whether this call performed the close and whether the session had
// reached Ready.
func (s *session) close(cause error) (first, wasReady bool) {
	s.closeOnce.Do(func() {
		first = true
		prev := State(s.state.Swap(int32(StateClosed)))
		wasReady = prev == StateReady

		close(s.closed)
		_ = s.conn.Close()

		s.mu.Lock()
		outstanding := s.pending
		s.pending = make(map[string]*pendingRequest)
		s.mu.Unlock()

		for _, p := range outstanding {
			p.resolve(outcome{err: cause})
		}
	})
	return
}
