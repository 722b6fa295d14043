package server

import (
	"context"
	rand "math/rand/v2"

	"github.com/charmbracelet/log"

	"github.com/lox/ranktoken/internal/game"
	"github.com/lox/ranktoken/internal/gameid"
	"github.com/lox/ranktoken/internal/protocol"
	"github.com/lox/ranktoken/internal/token"
)

// event is one unit of work for the host loop: either an inbound intent
// or a connection-closed notification.
type event struct {
	conn     *Connection
	msg      *protocol.Message
	payload  protocol.Payload
	detached bool
}

// Host is the per-match coordinator and the only writer of canonical
// game state. It consumes intents one at a time on a single goroutine,
// stamps them from a monotonically increasing logical clock, applies them
// through the game package's pure transitions, and broadcasts a full
// snapshot after every mutation.
type Host struct {
	logger  *log.Logger
	rng     *rand.Rand
	match   MatchSettings
	matchID string

	state game.State
	clock int64

	events chan event
	// conns maps player IDs to their live connection. A missing entry for
	// a known player means they are disconnected; their game state (held
	// tokens, readiness) persists so a rejoin resumes cleanly.
	conns map[string]*Connection
}

// NewHost creates a host for a single match.
func NewHost(logger *log.Logger, rng *rand.Rand, match MatchSettings) *Host {
	return &Host{
		logger:  logger.WithPrefix("host"),
		rng:     rng,
		match:   match,
		matchID: gameid.NewPeerID(),
		state:   game.NewLobby(),
		events:  make(chan event, 128),
		conns:   make(map[string]*Connection),
	}
}

// MatchID identifies this match in logs.
func (h *Host) MatchID() string {
	return h.matchID
}

// Submit queues an inbound intent for serialized processing.
func (h *Host) Submit(conn *Connection, msg *protocol.Message, payload protocol.Payload) {
	h.events <- event{conn: conn, msg: msg, payload: payload}
}

// Detach notifies the host that a connection has closed.
func (h *Host) Detach(conn *Connection) {
	h.events <- event{conn: conn, detached: true}
}

// Run processes events until the context is cancelled. All state mutation
// happens here, on this single goroutine.
func (h *Host) Run(ctx context.Context) error {
	h.logger.Info("Host running", "match", h.matchID)
	for {
		select {
		case ev := <-h.events:
			if ev.detached {
				h.handleDetach(ev.conn)
				continue
			}
			h.handleIntent(ev.conn, ev.payload)

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// handleDetach unbinds a closed connection. The player stays in game
// state; only the transport mapping is dropped.
func (h *Host) handleDetach(conn *Connection) {
	id := conn.PlayerID()
	if id == "" {
		return
	}
	if h.conns[id] == conn {
		delete(h.conns, id)
		h.logger.Info("Player disconnected", "player", id, "connected", len(h.conns))
	}
}

// handleIntent applies one client intent. Guard failures are silent
// no-ops; only genuinely malformed or unauthorized intents are dropped
// with a log line.
func (h *Host) handleIntent(conn *Connection, payload protocol.Payload) {
	if join, ok := payload.(*protocol.JoinRequest); ok {
		h.handleJoin(conn, join)
		return
	}

	// Every other intent must come from the connection bound to the
	// player it claims to act for.
	switch p := payload.(type) {
	case *protocol.PlayerReady:
		if !h.authorized(conn, p.PlayerID) {
			return
		}
		if next, ok := game.SetReady(h.state, p.PlayerID, p.IsReady); ok {
			h.state = next
			h.tryStart()
			h.broadcast()
		}

	case *protocol.UpdateName:
		if !h.authorized(conn, p.PlayerID) {
			return
		}
		if next, ok := game.RenamePlayer(h.state, p.PlayerID, p.NewName); ok {
			h.state = next
			h.broadcast()
		}

	case *protocol.TurnReady:
		if !h.authorized(conn, p.PlayerID) {
			return
		}
		if next, ok := game.SetReady(h.state, p.PlayerID, true); ok {
			h.state = next
			if next, ok := game.BeginTrading(h.state); ok {
				h.state = next
			}
			h.broadcast()
		}

	case *protocol.TokenAction:
		if !h.authorized(conn, p.PlayerID) {
			return
		}
		if p.ActionType != "select" {
			h.logger.Debug("Dropping unknown token action", "type", p.ActionType)
			return
		}
		action := token.Action{
			PlayerID:    p.PlayerID,
			TokenNumber: p.TokenNumber,
			Timestamp:   h.tick(),
		}
		next, err := game.ApplyTokenAction(h.state, action)
		if err != nil {
			h.logger.Debug("Token action rejected", "error", err, "player", p.PlayerID)
			return
		}
		h.state = next
		h.broadcast()

	case *protocol.ProceedTurn:
		if !h.authorized(conn, p.PlayerID) {
			return
		}
		if next, ok := game.AdvanceTurn(h.state); ok {
			h.state = next
			h.broadcast()
		}

	case *protocol.NextGameReady:
		if !h.authorized(conn, p.PlayerID) {
			return
		}
		if next, ok := game.SetReady(h.state, p.PlayerID, true); ok {
			h.state = next
			if next, ok := game.NextGame(h.state, h.rng); ok {
				h.state = next
			}
			h.broadcast()
		}

	default:
		// Host-to-client types echoed back, or future additions
		h.logger.Warn("Ignoring unexpected message type from client", "payload", payload)
	}
}

// handleJoin admits a new player, reattaches a returning one, or rejects
// the request with a user-visible error.
func (h *Host) handleJoin(conn *Connection, join *protocol.JoinRequest) {
	if join.PlayerID == "" {
		h.sendError(conn, "missing_player_id", "Join request requires a peer identifier")
		return
	}
	if err := gameid.Validate(join.PlayerID); err != nil {
		h.sendError(conn, "invalid_player_id", err.Error())
		return
	}

	// A live connection already bound to this ID is a collision, an
	// expected-rare condition surfaced to the user rather than retried.
	if existing, ok := h.conns[join.PlayerID]; ok && existing != conn {
		h.logger.Warn("Peer ID collision", "player", join.PlayerID)
		h.sendError(conn, "peer_id_collision", "A peer with this identifier is already connected")
		return
	}

	if _, known := h.state.PlayerByID(join.PlayerID); known {
		// Reconnection: bind the new transport, state resumes as-is
		conn.SetPlayerID(join.PlayerID)
		h.conns[join.PlayerID] = conn
		h.logger.Info("Player reconnected", "player", join.PlayerID)
		h.sendSnapshot(conn)
		return
	}

	if h.state.Phase != game.PhaseLobby {
		h.sendError(conn, "match_in_progress", "The match has already started")
		return
	}
	if len(h.state.Players) >= h.match.MaxPlayers {
		h.sendError(conn, "lobby_full", "The lobby is full")
		return
	}

	next, ok := game.AddPlayer(h.state, join.PlayerID, join.PlayerName)
	if !ok {
		h.sendError(conn, "join_failed", "Unable to join the lobby")
		return
	}
	h.state = next
	conn.SetPlayerID(join.PlayerID)
	h.conns[join.PlayerID] = conn
	h.logger.Info("Player joined", "player", join.PlayerID, "name", join.PlayerName, "players", len(h.state.Players))
	h.broadcast()
}

// tryStart begins the match once the lobby satisfies the configured
// player bounds and everyone is ready.
func (h *Host) tryStart() {
	if len(h.state.Players) < h.match.MinPlayers {
		return
	}
	if next, ok := game.StartMatch(h.state, h.rng); ok {
		h.state = next
		h.logger.Info("Match started", "match", h.matchID, "players", len(h.state.Players))
	}
}

// tick advances the logical clock. Host-assigned stamps give the token
// resolver a single total order with no dependency on wall-clock skew.
func (h *Host) tick() int64 {
	h.clock++
	return h.clock
}

// broadcast sends the full canonical snapshot to every connected peer.
func (h *Host) broadcast() {
	msg, err := h.snapshotMessage()
	if err != nil {
		h.logger.Error("Failed to encode snapshot", "error", err)
		return
	}

	for id, conn := range h.conns {
		if err := conn.Send(msg); err != nil {
			// One bad peer must not halt the broadcast to the others
			h.logger.Warn("Failed to send snapshot", "player", id, "error", err)
		}
	}
	h.logger.Debug("Broadcast snapshot", "type", msg.Type, "phase", h.state.Phase, "recipients", len(h.conns))
}

// sendSnapshot delivers the current state to a single peer, used on
// reconnect where no mutation occurred.
func (h *Host) sendSnapshot(conn *Connection) {
	msg, err := h.snapshotMessage()
	if err != nil {
		h.logger.Error("Failed to encode snapshot", "error", err)
		return
	}
	if err := conn.Send(msg); err != nil {
		h.logger.Warn("Failed to send snapshot", "player", conn.PlayerID(), "error", err)
	}
}

func (h *Host) snapshotMessage() (*protocol.Message, error) {
	var msg *protocol.Message
	var err error
	if h.state.Phase == game.PhaseLobby {
		msg, err = protocol.NewMessage(protocol.LobbyUpdate{LobbyState: h.state})
	} else {
		msg, err = protocol.NewMessage(protocol.StateUpdate{State: h.state})
	}
	if err != nil {
		return nil, err
	}
	msg.Timestamp = h.clock
	return msg, nil
}

func (h *Host) sendError(conn *Connection, code, message string) {
	msg, err := protocol.NewMessage(protocol.ErrorPayload{Code: code, Message: message})
	if err != nil {
		h.logger.Error("Failed to encode error message", "error", err)
		return
	}
	_ = conn.Send(msg)
}

// authorized checks that a connection speaks only for its bound player.
func (h *Host) authorized(conn *Connection, playerID string) bool {
	if conn.PlayerID() != playerID || playerID == "" {
		h.logger.Debug("Dropping intent for unbound player", "claimed", playerID, "bound", conn.PlayerID())
		return false
	}
	return true
}
