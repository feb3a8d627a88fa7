package bridge

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/toolgate/backend/internal/infrastructure/logging"
	"github.com/toolgate/backend/internal/infrastructure/monitoring"
)

// Config holds the bridge listener configuration.
type Config struct {
	Host              string
	Port              string
	Token             string
	AuthTimeout       time.Duration
	HeartbeatInterval time.Duration
	LivenessTimeout   time.Duration
	InvokeTimeout     time.Duration
}

// SessionInfo is a read-only view of a connected agent session.
type SessionInfo struct {
	Identity      string    `json:"identity"`
	State         string    `json:"state"`
	ConnectedAt   time.Time `json:"connected_at"`
	LastHeartbeat time.Time `json:"last_heartbeat"`
	Pending       int       `json:"pending"`
}

// Manager owns the reverse-connection listener and the identity-to-session
// map. It is the only component that mutates sessions or their pending
// tables.
type Manager struct {
	cfg      Config
	logger   *logging.Logger
	metrics  *monitoring.Metrics
	upgrader websocket.Upgrader

	mu       sync.RWMutex
	sessions map[string]*session

	httpSrv  *http.Server
	listener net.Listener
}

// NewManager creates a bridge manager. metrics may be nil.
func NewManager(cfg Config, logger *logging.Logger, metrics *monitoring.Metrics) *Manager {
	if cfg.AuthTimeout <= 0 {
		cfg.AuthTimeout = 10 * time.Second
	}
	if cfg.LivenessTimeout <= 0 {
		cfg.LivenessTimeout = 90 * time.Second
	}
	if cfg.InvokeTimeout <= 0 {
		cfg.InvokeTimeout = 30 * time.Second
	}
	return &Manager{
		cfg:     cfg,
		logger:  logger,
		metrics: metrics,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		sessions: make(map[string]*session),
	}
}

// Start begins accepting agent connections. Port "0" picks a free port;
// Addr reports the bound address.
func (m *Manager) Start() error {
	ln, err := net.Listen("tcp", net.JoinHostPort(m.cfg.Host, m.cfg.Port))
	if err != nil {
		return err
	}
	m.listener = ln

	mux := http.NewServeMux()
	mux.HandleFunc("/agent", m.handleAgent)
	m.httpSrv = &http.Server{Handler: mux}

	go func() {
		if err := m.httpSrv.Serve(ln); err != nil && err != http.ErrServerClosed {
			m.logger.Error("Bridge listener failed", zap.Error(err))
		}
	}()

	m.logger.Info("Agent bridge listening", zap.String("addr", ln.Addr().String()))
	return nil
}

// Addr returns the listener address, valid after Start.
func (m *Manager) Addr() string {
	if m.listener == nil {
		return ""
	}
	return m.listener.Addr().String()
}

// Stop shuts the listener down and invalidates every session.
func (m *Manager) Stop(ctx context.Context) error {
	m.mu.Lock()
	sessions := make([]*session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.Unlock()

	for _, s := range sessions {
		m.invalidate(s, ErrConnectionLost, "shutdown")
	}

	if m.httpSrv != nil {
		return m.httpSrv.Shutdown(ctx)
	}
	return nil
}

// Sessions lists current sessions for introspection.
func (m *Manager) Sessions() []SessionInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()

	infos := make([]SessionInfo, 0, len(m.sessions))
	for _, s := range m.sessions {
		infos = append(infos, SessionInfo{
			Identity:      s.identity,
			State:         s.State().String(),
			ConnectedAt:   s.connectedAt,
			LastHeartbeat: time.Unix(0, s.lastHeartbeat.Load()),
			Pending:       s.pendingCount(),
		})
	}
	return infos
}

// Connected reports whether a Ready session exists for the identity.
func (m *Manager) Connected(identity string) bool {
	m.mu.RLock()
	s := m.sessions[identity]
	m.mu.RUnlock()
	return s != nil && s.State() == StateReady
}

// Invoke sends a command to the agent and suspends until the matching
// response arrives, the timeout elapses, or the session is invalidated.
// timeout <= 0 uses the configured default. Failures are reported via the
// sentinel errors and *RemoteError.
func (m *Manager) Invoke(ctx context.Context, identity, tool string, args map[string]interface{}, timeout time.Duration) (map[string]interface{}, error) {
	if timeout <= 0 {
		timeout = m.cfg.InvokeTimeout
	}

	m.mu.RLock()
	s := m.sessions[identity]
	m.mu.RUnlock()
	if s == nil || s.State() != StateReady {
		m.recordInvoke(tool, "not_connected", 0)
		return nil, ErrNotConnected
	}

	corrID := uuid.NewString()
	p := newPending(corrID, identity)
	if !s.addPending(p) {
		m.recordInvoke(tool, "not_connected", 0)
		return nil, ErrNotConnected
	}

	frame := Frame{
		Type:          FrameCommand,
		CorrelationID: corrID,
		ToolName:      tool,
		Arguments:     args,
		Timestamp:     time.Now().UnixMilli(),
	}
	if !s.enqueue(frame) {
		s.removePending(corrID)
		m.recordInvoke(tool, "not_connected", 0)
		return nil, ErrNotConnected
	}
	m.recordFrame(FrameCommand, "out")
	m.logger.Debug("Command sent",
		zap.String("identity", identity),
		zap.String("tool", tool),
		zap.String("correlation_id", corrID),
	)

	start := time.Now()
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var o outcome
	select {
	case o = <-p.done:
	case <-timer.C:
		// Losing the race to a response is fine: the done channel is
		// buffered with the real outcome.
		if p.resolve(outcome{err: ErrTimeout}) {
			s.removePending(corrID)
		}
		o = <-p.done
	case <-ctx.Done():
		if p.resolve(outcome{err: ctx.Err()}) {
			s.removePending(corrID)
		}
		o = <-p.done
	}

	elapsed := time.Since(start)
	if o.err != nil {
		m.recordInvoke(tool, invokeOutcome(o.err), elapsed)
		return nil, o.err
	}
	m.recordInvoke(tool, "ok", elapsed)
	return o.result, nil
}

func invokeOutcome(err error) string {
	switch {
	case err == ErrTimeout:
		return "timeout"
	case err == ErrConnectionLost:
		return "connection_lost"
	default:
		if _, ok := err.(*RemoteError); ok {
			return "remote_error"
		}
		return "error"
	}
}

// handleAgent upgrades an inbound connection and runs the session until
// the connection dies.
func (m *Manager) handleAgent(w http.ResponseWriter, r *http.Request) {
	conn, err := m.upgrader.Upgrade(w, r, nil)
	if err != nil {
		m.logger.Warn("Agent upgrade failed", zap.Error(err))
		return
	}

	s := newSession(conn)
	if !m.authenticate(s) {
		s.close(ErrConnectionLost)
		return
	}

	go m.writeLoop(s)

	ack := Frame{
		Type:                FrameAuthAck,
		HeartbeatIntervalMS: m.cfg.HeartbeatInterval.Milliseconds(),
	}
	if !s.enqueue(ack) {
		m.invalidate(s, ErrConnectionLost, "ack enqueue failed")
		return
	}
	m.recordFrame(FrameAuthAck, "out")

	m.logger.Info("Agent connected",
		zap.String("identity", s.identity),
		zap.String("remote", conn.RemoteAddr().String()),
	)

	m.readLoop(s)
}

// authenticate requires the first frame to be a valid auth frame within
// the auth window. On success the session is registered under its
// identity, superseding and invalidating any prior session first.
func (m *Manager) authenticate(s *session) bool {
	s.state.Store(int32(StateAuthenticating))
	_ = s.conn.SetReadDeadline(time.Now().Add(m.cfg.AuthTimeout))

	_, data, err := s.conn.ReadMessage()
	if err != nil {
		m.logger.Warn("Agent authentication timed out or failed", zap.Error(err))
		return false
	}

	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		m.reject(s, "malformed auth frame")
		return false
	}
	if f.Type != FrameAuth {
		m.reject(s, "authentication required")
		return false
	}
	if f.Token != m.cfg.Token {
		m.logger.Warn("Agent presented invalid token", zap.String("remote", s.conn.RemoteAddr().String()))
		m.reject(s, "invalid token")
		return false
	}
	if f.ClientID == "" {
		m.reject(s, "client_id required")
		return false
	}
	m.recordFrame(FrameAuth, "in")

	s.identity = f.ClientID

	// Swap the map entry first so the identity is never Ready on the stale
	// connection, then drain the old session before marking the new one
	// Ready.
	m.mu.Lock()
	old := m.sessions[s.identity]
	m.sessions[s.identity] = s
	m.mu.Unlock()

	if old != nil {
		m.invalidate(old, ErrConnectionLost, "superseded")
	}

	s.state.Store(int32(StateReady))
	if m.metrics != nil {
		m.metrics.BridgeSessions.Inc()
	}
	return true
}

func (m *Manager) reject(s *session, reason string) {
	_ = s.conn.WriteJSON(Frame{Type: FrameAuthReject, Reason: reason})
	m.recordFrame(FrameAuthReject, "out")
}

// writeLoop is the session's single writer; gorilla connections allow only
// one concurrent writer.
func (m *Manager) writeLoop(s *session) {
	for {
		select {
		case <-s.closed:
			return
		case f := <-s.send:
			if err := s.conn.WriteJSON(f); err != nil {
				m.logger.Warn("Agent write failed",
					zap.String("identity", s.identity),
					zap.Error(err),
				)
				m.invalidate(s, ErrConnectionLost, "write error")
				return
			}
		}
	}
}

// readLoop processes inbound frames until the connection dies. Any inbound
// frame extends the liveness deadline; heartbeats guarantee traffic while
// idle.
func (m *Manager) readLoop(s *session) {
	defer m.invalidate(s, ErrConnectionLost, "connection closed")

	for {
		_ = s.conn.SetReadDeadline(time.Now().Add(m.cfg.LivenessTimeout))
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				m.logger.Warn("Agent liveness window expired", zap.String("identity", s.identity))
			}
			return
		}

		var f Frame
		if err := json.Unmarshal(data, &f); err != nil {
			m.logger.Warn("Malformed frame, closing connection",
				zap.String("identity", s.identity),
				zap.Error(err),
			)
			return
		}
		m.recordFrame(f.Type, "in")

		switch f.Type {
		case FrameHeartbeat:
			s.lastHeartbeat.Store(time.Now().UnixNano())
		case FrameResponse:
			m.handleResponse(s, &f)
		default:
			m.logger.Warn("Unexpected frame type, dropped",
				zap.String("identity", s.identity),
				zap.String("type", string(f.Type)),
			)
		}
	}
}

// handleResponse pairs a response with its pending request. A correlation
// ID with no pending slot (already timed out, or forged) is dropped and
// logged, not treated as an error.
func (m *Manager) handleResponse(s *session, f *Frame) {
	p := s.takePending(f.CorrelationID)
	if p == nil {
		m.logger.Info("Dropped response without pending request",
			zap.String("identity", s.identity),
			zap.String("correlation_id", f.CorrelationID),
		)
		if m.metrics != nil {
			m.metrics.DroppedResponse.Inc()
		}
		return
	}

	if f.Error != "" {
		p.resolve(outcome{err: &RemoteError{Message: f.Error}})
		return
	}
	p.resolve(outcome{result: f.Result})
}

// invalidate tears a session down exactly once: the socket closes, every
// outstanding request resolves with cause, and the identity is freed if
// this session still owns it.
func (m *Manager) invalidate(s *session, cause error, why string) {
	first, wasReady := s.close(cause)
	if !first {
		return
	}

	m.mu.Lock()
	if cur, ok := m.sessions[s.identity]; ok && cur == s {
		delete(m.sessions, s.identity)
	}
	m.mu.Unlock()

	if wasReady && m.metrics != nil {
		m.metrics.BridgeSessions.Dec()
	}
	m.logger.Info("Agent session invalidated",
		zap.String("identity", s.identity),
		zap.String("reason", why),
	)
}

func (m *Manager) recordFrame(t FrameType, direction string) {
	if m.metrics != nil {
		m.metrics.RecordFrame(string(t), direction)
	}
}

func (m *Manager) recordInvoke(tool, outcome string, d time.Duration) {
	if m.metrics != nil {
		m.metrics.RecordRemoteInvoke(tool, outcome, d)
	}
}
