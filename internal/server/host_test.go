package server

import (
	"io"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/ranktoken/internal/game"
	"github.com/lox/ranktoken/internal/gameid"
	"github.com/lox/ranktoken/internal/protocol"
	"github.com/lox/ranktoken/internal/randutil"
)

func testLogger() *log.Logger {
	return log.New(io.Discard)
}

func newTestHost() *Host {
	return NewHost(testLogger(), randutil.New(42), MatchSettings{MinPlayers: 2, MaxPlayers: 8})
}

// fakeConn returns a connection with no socket. The host only touches the
// send buffer, so pumps are never needed in these tests.
func fakeConn(h *Host) *Connection {
	return NewConnection(nil, h, testLogger())
}

// outbound drains and decodes everything queued on the connection.
func outbound(t *testing.T, c *Connection) []protocol.Payload {
	t.Helper()
	var out []protocol.Payload
	for {
		select {
		case data := <-c.send:
			_, payload, err := protocol.Decode(data)
			require.NoError(t, err)
			out = append(out, payload)
		default:
			return out
		}
	}
}

// lastSnapshot returns the state carried by the most recent broadcast.
func lastSnapshot(t *testing.T, c *Connection) game.State {
	t.Helper()
	msgs := outbound(t, c)
	for i := len(msgs) - 1; i >= 0; i-- {
		switch p := msgs[i].(type) {
		case *protocol.StateUpdate:
			return p.State
		case *protocol.LobbyUpdate:
			return p.LobbyState
		}
	}
	t.Fatal("No snapshot received")
	return game.State{}
}

func joinPlayer(t *testing.T, h *Host, name string) (*Connection, string) {
	t.Helper()
	conn := fakeConn(h)
	id := gameid.NewPeerID()
	h.handleJoin(conn, &protocol.JoinRequest{PlayerID: id, PlayerName: name})
	require.Equal(t, id, conn.PlayerID(), "join should bind the connection")
	return conn, id
}

func TestHostJoinBroadcastsLobby(t *testing.T) {
	t.Parallel()
	h := newTestHost()
	conn1, _ := joinPlayer(t, h, "Alice")
	joinPlayer(t, h, "Bob")

	state := lastSnapshot(t, conn1)
	assert.Equal(t, game.PhaseLobby, state.Phase)
	require.Len(t, state.Players, 2)
	assert.Equal(t, "Alice", state.Players[0].Name)
	assert.Equal(t, "Bob", state.Players[1].Name)
}

func TestHostRejectsInvalidPeerID(t *testing.T) {
	t.Parallel()
	h := newTestHost()
	conn := fakeConn(h)
	h.handleJoin(conn, &protocol.JoinRequest{PlayerID: "not-a-real-id", PlayerName: "X"})

	msgs := outbound(t, conn)
	require.Len(t, msgs, 1)
	errPayload, ok := msgs[0].(*protocol.ErrorPayload)
	require.True(t, ok)
	assert.Equal(t, "invalid_player_id", errPayload.Code)
}

func TestHostPeerIDCollision(t *testing.T) {
	t.Parallel()
	h := newTestHost()
	_, id := joinPlayer(t, h, "Alice")

	intruder := fakeConn(h)
	h.handleJoin(intruder, &protocol.JoinRequest{PlayerID: id, PlayerName: "Mallory"})

	msgs := outbound(t, intruder)
	require.Len(t, msgs, 1)
	errPayload, ok := msgs[0].(*protocol.ErrorPayload)
	require.True(t, ok)
	assert.Equal(t, "peer_id_collision", errPayload.Code)
	assert.Empty(t, intruder.PlayerID(), "collision must not bind the connection")
}

func TestHostDisconnectKeepsPlayerState(t *testing.T) {
	t.Parallel()
	h := newTestHost()
	conn1, id := joinPlayer(t, h, "Alice")
	joinPlayer(t, h, "Bob")

	h.handleDetach(conn1)
	require.Len(t, h.state.Players, 2, "disconnect must not evict the player")

	// Rejoining with the same peer ID resumes without mutation
	conn2 := fakeConn(h)
	h.handleJoin(conn2, &protocol.JoinRequest{PlayerID: id, PlayerName: "Alice"})
	state := lastSnapshot(t, conn2)
	require.Len(t, state.Players, 2)
}

func TestHostRejectsJoinMidMatch(t *testing.T) {
	t.Parallel()
	h := newTestHost()
	conn1, id1 := joinPlayer(t, h, "Alice")
	conn2, id2 := joinPlayer(t, h, "Bob")
	h.handleIntent(conn1, &protocol.PlayerReady{PlayerID: id1, IsReady: true})
	h.handleIntent(conn2, &protocol.PlayerReady{PlayerID: id2, IsReady: true})
	require.Equal(t, game.PhaseReadyUp, h.state.Phase)

	late := fakeConn(h)
	h.handleJoin(late, &protocol.JoinRequest{PlayerID: gameid.NewPeerID(), PlayerName: "Carol"})
	msgs := outbound(t, late)
	require.Len(t, msgs, 1)
	errPayload, ok := msgs[0].(*protocol.ErrorPayload)
	require.True(t, ok)
	assert.Equal(t, "match_in_progress", errPayload.Code)
}

func TestHostStartsWhenAllReady(t *testing.T) {
	t.Parallel()
	h := newTestHost()
	conn1, id1 := joinPlayer(t, h, "Alice")
	conn2, id2 := joinPlayer(t, h, "Bob")

	h.handleIntent(conn1, &protocol.PlayerReady{PlayerID: id1, IsReady: true})
	require.Equal(t, game.PhaseLobby, h.state.Phase, "one ready player must not start the match")

	h.handleIntent(conn2, &protocol.PlayerReady{PlayerID: id2, IsReady: true})

	state := lastSnapshot(t, conn1)
	assert.Equal(t, game.PhaseReadyUp, state.Phase)
	assert.Equal(t, 1, state.Turn)
	assert.Empty(t, state.CommunityCards)
}

func TestHostIgnoresUnauthorizedIntent(t *testing.T) {
	t.Parallel()
	h := newTestHost()
	conn1, _ := joinPlayer(t, h, "Alice")
	_, id2 := joinPlayer(t, h, "Bob")

	// conn1 tries to ready Bob
	h.handleIntent(conn1, &protocol.PlayerReady{PlayerID: id2, IsReady: true})
	assert.False(t, h.state.ReadyStatus[id2], "spoofed intent must be dropped")
}

func TestHostStampsTokenActions(t *testing.T) {
	t.Parallel()
	h := newTestHost()
	conn1, id1 := joinPlayer(t, h, "Alice")
	conn2, id2 := joinPlayer(t, h, "Bob")
	h.handleIntent(conn1, &protocol.PlayerReady{PlayerID: id1, IsReady: true})
	h.handleIntent(conn2, &protocol.PlayerReady{PlayerID: id2, IsReady: true})
	h.handleIntent(conn1, &protocol.TurnReady{PlayerID: id1})
	h.handleIntent(conn2, &protocol.TurnReady{PlayerID: id2})
	require.Equal(t, game.PhaseTokenTrading, h.state.Phase)

	// Client timestamps are ignored; the host's logical clock decides
	h.handleIntent(conn1, &protocol.TokenAction{ActionType: "select", PlayerID: id1, TokenNumber: 1, Timestamp: 99999})
	h.handleIntent(conn2, &protocol.TokenAction{ActionType: "select", PlayerID: id2, TokenNumber: 1})

	state := lastSnapshot(t, conn1)
	// The later logical stamp wins the contested token
	assert.Equal(t, id2, state.Tokens[0].OwnerID)
	assert.Equal(t, int64(2), state.Tokens[0].Timestamp)
}

func TestHostFullMatch(t *testing.T) {
	t.Parallel()
	h := newTestHost()
	conn1, id1 := joinPlayer(t, h, "Alice")
	conn2, id2 := joinPlayer(t, h, "Bob")
	conns := []*Connection{conn1, conn2}
	ids := []string{id1, id2}

	h.handleIntent(conn1, &protocol.PlayerReady{PlayerID: id1, IsReady: true})
	h.handleIntent(conn2, &protocol.PlayerReady{PlayerID: id2, IsReady: true})

	for turn := 1; turn <= game.MaxTurns; turn++ {
		require.Equal(t, game.PhaseReadyUp, h.state.Phase)
		require.Equal(t, turn, h.state.Turn)

		for i, conn := range conns {
			h.handleIntent(conn, &protocol.TurnReady{PlayerID: ids[i]})
		}
		require.Equal(t, game.PhaseTokenTrading, h.state.Phase)

		// Advancing early is a harmless no-op
		h.handleIntent(conn1, &protocol.ProceedTurn{PlayerID: id1})
		require.Equal(t, game.PhaseTokenTrading, h.state.Phase)

		for i, conn := range conns {
			h.handleIntent(conn, &protocol.TokenAction{ActionType: "select", PlayerID: ids[i], TokenNumber: i + 1})
		}
		h.handleIntent(conn1, &protocol.ProceedTurn{PlayerID: id1})
	}

	state := lastSnapshot(t, conn2)
	assert.Equal(t, game.PhaseEndGame, state.Phase)
	assert.Len(t, state.CommunityCards, 5)
	require.NotNil(t, state.Result)
	assert.Len(t, state.Result.Players, 2)
}

func TestHostNextGame(t *testing.T) {
	t.Parallel()
	h := newTestHost()
	conn1, id1 := joinPlayer(t, h, "Alice")
	conn2, id2 := joinPlayer(t, h, "Bob")
	conns := []*Connection{conn1, conn2}
	ids := []string{id1, id2}

	h.handleIntent(conn1, &protocol.PlayerReady{PlayerID: id1, IsReady: true})
	h.handleIntent(conn2, &protocol.PlayerReady{PlayerID: id2, IsReady: true})
	for turn := 1; turn <= game.MaxTurns; turn++ {
		for i, conn := range conns {
			h.handleIntent(conn, &protocol.TurnReady{PlayerID: ids[i]})
		}
		for i, conn := range conns {
			h.handleIntent(conn, &protocol.TokenAction{ActionType: "select", PlayerID: ids[i], TokenNumber: i + 1})
		}
		h.handleIntent(conn1, &protocol.ProceedTurn{PlayerID: id1})
	}
	require.Equal(t, game.PhaseEndGame, h.state.Phase)

	h.handleIntent(conn1, &protocol.NextGameReady{PlayerID: id1})
	require.Equal(t, game.PhaseEndGame, h.state.Phase)
	h.handleIntent(conn2, &protocol.NextGameReady{PlayerID: id2})

	state := lastSnapshot(t, conn1)
	assert.Equal(t, game.PhaseReadyUp, state.Phase)
	assert.Equal(t, 1, state.Turn)
	assert.Nil(t, state.Result)
	require.Len(t, state.Players, 2)
	assert.Equal(t, "Alice", state.Players[0].Name)
}
