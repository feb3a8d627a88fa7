package bridge

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toolgate/backend/internal/infrastructure/logging"
)

const testToken = "test-token"

func newTestManager(t *testing.T, liveness time.Duration) *Manager {
	t.Helper()

	m := NewManager(Config{
		Host:              "127.0.0.1",
		Port:              "0",
		Token:             testToken,
		AuthTimeout:       2 * time.Second,
		HeartbeatInterval: 100 * time.Millisecond,
		LivenessTimeout:   liveness,
		InvokeTimeout:     2 * time.Second,
	}, logging.NewNop(), nil)

	require.NoError(t, m.Start())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = m.Stop(ctx)
	})
	return m
}

// testAgent simulates the remote process that dials into the bridge.
type testAgent struct {
	t    *testing.T
	conn *websocket.Conn
}

func dialAgent(t *testing.T, m *Manager, token, clientID string) *testAgent {
	t.Helper()

	url := "ws://" + m.Addr() + "/agent"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	require.NoError(t, conn.WriteJSON(Frame{Type: FrameAuth, Token: token, ClientID: clientID}))
	return &testAgent{t: t, conn: conn}
}

func (a *testAgent) expectFrame(ft FrameType) Frame {
	a.t.Helper()
	var f Frame
	require.NoError(a.t, a.conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	require.NoError(a.t, a.conn.ReadJSON(&f))
	require.Equal(a.t, ft, f.Type)
	return f
}

func (a *testAgent) send(f Frame) {
	a.t.Helper()
	require.NoError(a.t, a.conn.WriteJSON(f))
}

func connectAgent(t *testing.T, m *Manager, clientID string) *testAgent {
	t.Helper()
	a := dialAgent(t, m, testToken, clientID)
	a.expectFrame(FrameAuthAck)
	return a
}

func TestAuthHandshake(t *testing.T) {
	m := newTestManager(t, 5*time.Second)

	a := dialAgent(t, m, testToken, "agent-1")
	ack := a.expectFrame(FrameAuthAck)
	assert.Equal(t, int64(100), ack.HeartbeatIntervalMS)
	assert.True(t, m.Connected("agent-1"))
}

func TestAuthRejectBadToken(t *testing.T) {
	m := newTestManager(t, 5*time.Second)

	a := dialAgent(t, m, "wrong-token", "agent-1")
	reject := a.expectFrame(FrameAuthReject)
	assert.Equal(t, "invalid token", reject.Reason)
	assert.False(t, m.Connected("agent-1"))
}

func TestAuthRequiresAuthFrameFirst(t *testing.T) {
	m := newTestManager(t, 5*time.Second)

	url := "ws://" + m.Addr() + "/agent"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(Frame{Type: FrameHeartbeat}))

	var f Frame
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	require.NoError(t, conn.ReadJSON(&f))
	assert.Equal(t, FrameAuthReject, f.Type)
}

func TestInvokeRoundTrip(t *testing.T) {
	m := newTestManager(t, 5*time.Second)
	a := connectAgent(t, m, "agent-1")

	done := make(chan struct{})
	go func() {
		defer close(done)
		cmd := a.expectFrame(FrameCommand)
		assert.Equal(t, "web_navigate", cmd.ToolName)
		assert.Equal(t, "https://example.com", cmd.Arguments["url"])
		a.send(Frame{
			Type:          FrameResponse,
			CorrelationID: cmd.CorrelationID,
			Result:        map[string]interface{}{"status": "ok"},
		})
	}()

	result, err := m.Invoke(context.Background(), "agent-1", "web_navigate",
		map[string]interface{}{"url": "https://example.com"}, 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t, "ok", result["status"])
	<-done
}

func TestInvokeNotConnected(t *testing.T) {
	m := newTestManager(t, 5*time.Second)

	_, err := m.Invoke(context.Background(), "nobody", "web_navigate", nil, time.Second)
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestCorrelationOutOfOrder(t *testing.T) {
	m := newTestManager(t, 5*time.Second)
	a := connectAgent(t, m, "agent-1")

	const n = 5

	type invokeResult struct {
		i      int
		result map[string]interface{}
		err    error
	}
	results := make(chan invokeResult, n)
	for i := 0; i < n; i++ {
		go func(i int) {
			res, err := m.Invoke(context.Background(), "agent-1", "web_navigate",
				map[string]interface{}{"seq": float64(i)}, 5*time.Second)
			results <- invokeResult{i: i, result: res, err: err}
		}(i)
	}

	// Collect all commands first, then respond in reverse arrival order:
	// correlation ID, not FIFO, must pair responses to callers.
	commands := make([]Frame, 0, n)
	for i := 0; i < n; i++ {
		commands = append(commands, a.expectFrame(FrameCommand))
	}
	for i := n - 1; i >= 0; i-- {
		cmd := commands[i]
		a.send(Frame{
			Type:          FrameResponse,
			CorrelationID: cmd.CorrelationID,
			Result:        map[string]interface{}{"seq": cmd.Arguments["seq"]},
		})
	}

	for i := 0; i < n; i++ {
		r := <-results
		require.NoError(t, r.err)
		assert.Equal(t, float64(r.i), r.result["seq"],
			"caller %d must receive the response to its own command", r.i)
	}
}

func TestInvokeTimeoutAndLateResponseDropped(t *testing.T) {
	m := newTestManager(t, 5*time.Second)
	a := connectAgent(t, m, "agent-1")

	const timeout = 200 * time.Millisecond
	start := time.Now()
	_, err := m.Invoke(context.Background(), "agent-1", "web_screenshot", nil, timeout)
	elapsed := time.Since(start)

	assert.ErrorIs(t, err, ErrTimeout)
	assert.GreaterOrEqual(t, elapsed, timeout)
	assert.Less(t, elapsed, timeout+time.Second)

	// The agent answers late; the correlation ID is gone, so the response
	// is dropped and the session stays usable.
	cmd := a.expectFrame(FrameCommand)
	a.send(Frame{
		Type:          FrameResponse,
		CorrelationID: cmd.CorrelationID,
		Result:        map[string]interface{}{"late": true},
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		next := a.expectFrame(FrameCommand)
		a.send(Frame{
			Type:          FrameResponse,
			CorrelationID: next.CorrelationID,
			Result:        map[string]interface{}{"ok": true},
		})
	}()

	result, err := m.Invoke(context.Background(), "agent-1", "web_get_url", nil, 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t, true, result["ok"])
	<-done
}

func TestRemoteErrorPayload(t *testing.T) {
	m := newTestManager(t, 5*time.Second)
	a := connectAgent(t, m, "agent-1")

	go func() {
		cmd := a.expectFrame(FrameCommand)
		a.send(Frame{
			Type:          FrameResponse,
			CorrelationID: cmd.CorrelationID,
			Error:         "element not found",
		})
	}()

	_, err := m.Invoke(context.Background(), "agent-1", "web_click",
		map[string]interface{}{"selector": "#missing"}, 5*time.Second)

	var remoteErr *RemoteError
	require.ErrorAs(t, err, &remoteErr)
	assert.Equal(t, "element not found", remoteErr.Message)
}

func TestSupersessionResolvesPendingAndReplaces(t *testing.T) {
	m := newTestManager(t, 5*time.Second)
	a1 := connectAgent(t, m, "agent-1")

	const pending = 3
	errs := make(chan error, pending)
	for i := 0; i < pending; i++ {
		go func() {
			_, err := m.Invoke(context.Background(), "agent-1", "web_get_title", nil, 10*time.Second)
			errs <- err
		}()
	}

	// Hold the requests open: read the commands but never answer.
	for i := 0; i < pending; i++ {
		a1.expectFrame(FrameCommand)
	}

	// Reconnect under the same identity; the old session must drain first.
	a2 := connectAgent(t, m, "agent-1")

	for i := 0; i < pending; i++ {
		select {
		case err := <-errs:
			assert.ErrorIs(t, err, ErrConnectionLost)
		case <-time.After(3 * time.Second):
			t.Fatal("pending request was not resolved on supersession")
		}
	}

	// The replacement session serves new calls.
	go func() {
		cmd := a2.expectFrame(FrameCommand)
		a2.send(Frame{
			Type:          FrameResponse,
			CorrelationID: cmd.CorrelationID,
			Result:        map[string]interface{}{"title": "Example"},
		})
	}()

	result, err := m.Invoke(context.Background(), "agent-1", "web_get_title", nil, 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t, "Example", result["title"])
}

func TestMalformedFrameClosesConnection(t *testing.T) {
	m := newTestManager(t, 5*time.Second)
	a := connectAgent(t, m, "agent-1")

	require.NoError(t, a.conn.WriteMessage(websocket.TextMessage, []byte("{not json")))

	assert.Eventually(t, func() bool {
		return !m.Connected("agent-1")
	}, 3*time.Second, 20*time.Millisecond)

	_, err := m.Invoke(context.Background(), "agent-1", "web_get_url", nil, time.Second)
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestLivenessExpiryInvalidatesSession(t *testing.T) {
	m := newTestManager(t, 300*time.Millisecond)
	a := connectAgent(t, m, "agent-1")

	// Heartbeats keep the session alive past several liveness windows.
	for i := 0; i < 5; i++ {
		a.send(Frame{Type: FrameHeartbeat, Timestamp: time.Now().UnixMilli()})
		time.Sleep(100 * time.Millisecond)
	}
	assert.True(t, m.Connected("agent-1"))

	// Silence kills it.
	assert.Eventually(t, func() bool {
		return !m.Connected("agent-1")
	}, 3*time.Second, 20*time.Millisecond)
}

func TestSessionsIntrospection(t *testing.T) {
	m := newTestManager(t, 5*time.Second)
	connectAgent(t, m, "agent-1")
	connectAgent(t, m, "agent-2")

	infos := m.Sessions()
	require.Len(t, infos, 2)

	seen := map[string]string{}
	for _, info := range infos {
		seen[info.Identity] = info.State
	}
	assert.Equal(t, "ready", seen["agent-1"])
	assert.Equal(t, "ready", seen["agent-2"])
}

func TestConcurrentInvokesManySessions(t *testing.T) {
	m := newTestManager(t, 5*time.Second)

	const agents = 3
	for i := 0; i < agents; i++ {
		id := fmt.Sprintf("agent-%d", i)
		a := connectAgent(t, m, id)
		go func(a *testAgent) {
			for {
				var f Frame
				if err := a.conn.ReadJSON(&f); err != nil {
					return
				}
				if f.Type != FrameCommand {
					continue
				}
				_ = a.conn.WriteJSON(Frame{
					Type:          FrameResponse,
					CorrelationID: f.CorrelationID,
					Result:        map[string]interface{}{"echo": f.Arguments["v"]},
				})
			}
		}(a)
	}

	errs := make(chan error, agents*4)
	for i := 0; i < agents; i++ {
		id := fmt.Sprintf("agent-%d", i)
		for j := 0; j < 4; j++ {
			go func(id string, j int) {
				res, err := m.Invoke(context.Background(), id, "web_get_url",
					map[string]interface{}{"v": float64(j)}, 5*time.Second)
				if err == nil && res["echo"] != float64(j) {
					err = fmt.Errorf("mismatched echo: %v", res["echo"])
				}
				errs <- err
			}(id, j)
		}
	}

	for i := 0; i < agents*4; i++ {
		assert.NoError(t, <-errs)
	}
}
