// Package client implements the peer side of the replication protocol: a
// websocket connection to the host, a read-only mirror of the canonical
// state replaced wholesale on every broadcast, and a bounded automatic
// reconnection loop.
package client

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/gorilla/websocket"

	"github.com/lox/ranktoken/internal/game"
	"github.com/lox/ranktoken/internal/gameid"
	"github.com/lox/ranktoken/internal/protocol"
)

const (
	// Reconnection retries a fixed connect attempt once per second for up
	// to one hour before giving up silently.
	reconnectInterval    = time.Second
	maxReconnectAttempts = 3600
)

// UpdateHandler is invoked with the new mirror after every state broadcast.
type UpdateHandler func(game.State)

// ErrorHandler is invoked for host-side rejections (e.g. peer ID collision).
type ErrorHandler func(code, message string)

// Client connects a player to the host. All canonical state lives
// host-side; the client only sends intents and mirrors broadcasts.
type Client struct {
	serverURL  string
	playerID   string
	playerName string
	logger     *log.Logger
	clock      quartz.Clock

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.RWMutex
	conn      *websocket.Conn
	connected bool
	mirror    game.State
	onUpdate  UpdateHandler
	onError   ErrorHandler

	closeOnce sync.Once
}

// Option configures a Client.
type Option func(*Client)

// WithPeerID resumes a specific session identifier instead of generating
// a fresh one. Pass-through for the session-resumption parameter.
func WithPeerID(id string) Option {
	return func(c *Client) { c.playerID = id }
}

// WithClock injects a clock, used by tests to drive the reconnect loop.
func WithClock(clock quartz.Clock) Option {
	return func(c *Client) { c.clock = clock }
}

// NewClient creates a client for the given player name.
func NewClient(serverURL, playerName string, logger *log.Logger, opts ...Option) *Client {
	ctx, cancel := context.WithCancel(context.Background())

	c := &Client{
		serverURL:  serverURL,
		playerID:   gameid.NewPeerID(),
		playerName: playerName,
		logger:     logger.WithPrefix("client"),
		clock:      quartz.NewReal(),
		ctx:        ctx,
		cancel:     cancel,
		mirror:     game.NewLobby(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// PlayerID returns the stable peer identifier for this client.
func (c *Client) PlayerID() string {
	return c.playerID
}

// OnUpdate registers the state broadcast handler.
func (c *Client) OnUpdate(h UpdateHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onUpdate = h
}

// OnError registers the host rejection handler.
func (c *Client) OnError(h ErrorHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onError = h
}

// Connect dials the host and joins the match. A failed initial dial is
// returned to the caller; later drops are handled by the reconnect loop.
func (c *Client) Connect() error {
	if err := c.dial(); err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	return c.join()
}

// Close shuts the client down and stops any reconnection attempts.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.cancel()
		c.mu.Lock()
		if c.conn != nil {
			_ = c.conn.Close()
		}
		c.connected = false
		c.mu.Unlock()
		c.logger.Info("Disconnected from host")
	})
	return nil
}

// IsConnected reports whether the transport is currently up.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// State returns the current mirror. Callers must treat it as read-only;
// it is replaced, never patched, on every broadcast.
func (c *Client) State() game.State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.mirror
}

// dial establishes the websocket and starts the read pump.
func (c *Client) dial() error {
	u, err := url.Parse(c.serverURL)
	if err != nil {
		return fmt.Errorf("invalid server URL: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	u.Path = "/ws"

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()

	go c.readPump(conn)

	c.logger.Info("Connected to host", "url", u.String())
	return nil
}

// join announces this peer to the host.
func (c *Client) join() error {
	return c.send(protocol.JoinRequest{
		PlayerID:   c.playerID,
		PlayerName: c.playerName,
	})
}

// send wraps a payload and writes it. Client messages never carry a
// timestamp; the host stamps them at receipt.
func (c *Client) send(p protocol.Payload) error {
	msg, err := protocol.NewMessage(p)
	if err != nil {
		return err
	}
	data, err := protocol.Encode(msg)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil || !c.connected {
		return fmt.Errorf("not connected")
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// readPump mirrors broadcasts until the connection drops, then enters
// the reconnect loop.
func (c *Client) readPump(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			break
		}

		_, payload, err := protocol.Decode(data)
		if err != nil {
			c.logger.Debug("Dropping malformed message", "error", err)
			continue
		}
		c.handle(payload)
	}

	c.mu.Lock()
	c.connected = false
	c.mu.Unlock()

	select {
	case <-c.ctx.Done():
		return
	default:
	}

	c.logger.Warn("Connection lost, reconnecting")
	c.reconnectLoop()
}

// handle dispatches one inbound message.
func (c *Client) handle(payload protocol.Payload) {
	switch p := payload.(type) {
	case *protocol.StateUpdate:
		c.replaceMirror(p.State)
	case *protocol.LobbyUpdate:
		c.replaceMirror(p.LobbyState)
	case *protocol.ErrorPayload:
		c.logger.Warn("Host rejected request", "code", p.Code, "message", p.Message)
		c.mu.RLock()
		handler := c.onError
		c.mu.RUnlock()
		if handler != nil {
			handler(p.Code, p.Message)
		}
	default:
		c.logger.Debug("Ignoring unexpected message", "payload", payload)
	}
}

// replaceMirror swaps the local state wholesale. No merging: replacing
// the snapshot sidesteps partial-update ordering bugs entirely.
func (c *Client) replaceMirror(s game.State) {
	c.mu.Lock()
	c.mirror = s
	handler := c.onUpdate
	c.mu.Unlock()

	if handler != nil {
		handler(s)
	}
}

// reconnectLoop retries the connection once per interval until it
// succeeds, the client is closed, or the attempt budget runs out. Giving
// up is silent; the player stays in host state and can rejoin explicitly.
func (c *Client) reconnectLoop() {
	ticker := c.clock.NewTicker(reconnectInterval, "reconnect")
	defer ticker.Stop()

	for attempt := 1; attempt <= maxReconnectAttempts; attempt++ {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
		}

		if err := c.dial(); err != nil {
			c.logger.Debug("Reconnect attempt failed", "attempt", attempt, "error", err)
			continue
		}
		if err := c.join(); err != nil {
			c.logger.Debug("Rejoin failed", "error", err)
			continue
		}
		c.logger.Info("Reconnected", "attempts", attempt)
		return
	}

	c.logger.Warn("Giving up on reconnection", "attempts", maxReconnectAttempts)
}

// Ready toggles lobby readiness.
func (c *Client) Ready(isReady bool) error {
	return c.send(protocol.PlayerReady{PlayerID: c.playerID, IsReady: isReady})
}

// SetName updates the display name while in the lobby.
func (c *Client) SetName(name string) error {
	return c.send(protocol.UpdateName{PlayerID: c.playerID, NewName: name})
}

// TurnReady flags readiness for the current turn.
func (c *Client) TurnReady() error {
	return c.send(protocol.TurnReady{PlayerID: c.playerID})
}

// SelectToken sends a token select intent. The host assigns the
// timestamp used for conflict resolution.
func (c *Client) SelectToken(number int) error {
	return c.send(protocol.TokenAction{
		ActionType:  "select",
		PlayerID:    c.playerID,
		TokenNumber: number,
	})
}

// ProceedTurn asks the host to advance out of token trading.
func (c *Client) ProceedTurn() error {
	return c.send(protocol.ProceedTurn{PlayerID: c.playerID})
}

// NextGameReady flags readiness for a rematch.
func (c *Client) NextGameReady() error {
	return c.send(protocol.NextGameReady{PlayerID: c.playerID})
}
