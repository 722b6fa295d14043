package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/ranktoken/internal/game"
	"github.com/lox/ranktoken/internal/gameid"
	"github.com/lox/ranktoken/internal/protocol"
	"github.com/lox/ranktoken/internal/randutil"
)

func TestServerHealth(t *testing.T) {
	t.Parallel()
	h := newTestHost()
	srv := NewServer("", h, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	srv.handleHealth(w, req)

	resp := w.Result()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

// newWSServer stands up a running host behind a real websocket endpoint.
func newWSServer(t *testing.T) *httptest.Server {
	t.Helper()

	h := NewHost(testLogger(), randutil.New(42), MatchSettings{MinPlayers: 2, MaxPlayers: 8})
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = h.Run(ctx) }()

	srv := NewServer("", h, testLogger())
	ts := httptest.NewServer(http.HandlerFunc(srv.HandleWebSocket))
	t.Cleanup(ts.Close)
	return ts
}

func dialWS(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func sendPayload(t *testing.T, conn *websocket.Conn, p protocol.Payload) {
	t.Helper()
	msg, err := protocol.NewMessage(p)
	require.NoError(t, err)
	data, err := protocol.Encode(msg)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, data))
}

func readPayload(t *testing.T, conn *websocket.Conn) protocol.Payload {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	_, payload, err := protocol.Decode(data)
	require.NoError(t, err)
	return payload
}

// waitForSnapshot reads broadcasts until one satisfies cond.
func waitForSnapshot(t *testing.T, conn *websocket.Conn, cond func(game.State) bool) game.State {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		switch p := readPayload(t, conn).(type) {
		case *protocol.StateUpdate:
			if cond(p.State) {
				return p.State
			}
		case *protocol.LobbyUpdate:
			if cond(p.LobbyState) {
				return p.LobbyState
			}
		}
	}
	t.Fatal("No snapshot satisfied the condition before the deadline")
	return game.State{}
}

func TestWebSocketJoinLobby(t *testing.T) {
	t.Parallel()
	ts := newWSServer(t)

	conn1 := dialWS(t, ts)
	sendPayload(t, conn1, protocol.JoinRequest{PlayerID: gameid.NewPeerID(), PlayerName: "Alice"})
	waitForSnapshot(t, conn1, func(s game.State) bool { return len(s.Players) == 1 })

	conn2 := dialWS(t, ts)
	sendPayload(t, conn2, protocol.JoinRequest{PlayerID: gameid.NewPeerID(), PlayerName: "Bob"})

	state := waitForSnapshot(t, conn1, func(s game.State) bool { return len(s.Players) == 2 })
	assert.Equal(t, game.PhaseLobby, state.Phase)
	assert.Equal(t, "Bob", state.Players[1].Name)
}

func TestWebSocketMatchStart(t *testing.T) {
	t.Parallel()
	ts := newWSServer(t)

	id1, id2 := gameid.NewPeerID(), gameid.NewPeerID()

	conn1 := dialWS(t, ts)
	sendPayload(t, conn1, protocol.JoinRequest{PlayerID: id1, PlayerName: "Alice"})
	conn2 := dialWS(t, ts)
	sendPayload(t, conn2, protocol.JoinRequest{PlayerID: id2, PlayerName: "Bob"})
	waitForSnapshot(t, conn2, func(s game.State) bool { return len(s.Players) == 2 })

	sendPayload(t, conn1, protocol.PlayerReady{PlayerID: id1, IsReady: true})
	sendPayload(t, conn2, protocol.PlayerReady{PlayerID: id2, IsReady: true})

	state := waitForSnapshot(t, conn2, func(s game.State) bool { return s.Phase == game.PhaseReadyUp })
	assert.Equal(t, 1, state.Turn)
	require.Len(t, state.Tokens, 2)
	for _, p := range state.Players {
		assert.Len(t, p.HoleCards, 2)
	}
}

func TestWebSocketReconnect(t *testing.T) {
	t.Parallel()
	ts := newWSServer(t)

	id := gameid.NewPeerID()
	conn1 := dialWS(t, ts)
	sendPayload(t, conn1, protocol.JoinRequest{PlayerID: id, PlayerName: "Alice"})
	waitForSnapshot(t, conn1, func(s game.State) bool { return len(s.Players) == 1 })

	_ = conn1.Close()

	// The player persists; a fresh transport with the same peer ID resumes
	conn2 := dialWS(t, ts)
	sendPayload(t, conn2, protocol.JoinRequest{PlayerID: id, PlayerName: "Alice"})
	state := waitForSnapshot(t, conn2, func(s game.State) bool { return len(s.Players) == 1 })
	assert.Equal(t, id, state.Players[0].ID)
}

func TestWebSocketMalformedFrameIgnored(t *testing.T) {
	t.Parallel()
	ts := newWSServer(t)

	conn := dialWS(t, ts)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))

	// The connection survives and a valid join still works
	sendPayload(t, conn, protocol.JoinRequest{PlayerID: gameid.NewPeerID(), PlayerName: "Alice"})
	state := waitForSnapshot(t, conn, func(s game.State) bool { return len(s.Players) == 1 })
	assert.Equal(t, game.PhaseLobby, state.Phase)
}
