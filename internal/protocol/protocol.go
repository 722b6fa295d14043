// Package protocol defines the wire envelope and the closed set of typed
// message payloads exchanged between host and clients. Payloads are
// decoded at the transport boundary with exhaustive matching; nothing else
// in the system inspects raw JSON.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lox/ranktoken/internal/game"
)

// Type tags a message on the wire.
type Type string

const (
	// Client -> Host intents
	TypeJoinRequest   Type = "JOIN_REQUEST"
	TypePlayerReady   Type = "PLAYER_READY"
	TypeUpdateName    Type = "UPDATE_NAME"
	TypeTurnReady     Type = "TURN_READY"
	TypeTokenAction   Type = "TOKEN_ACTION"
	TypeProceedTurn   Type = "PROCEED_TURN"
	TypeNextGameReady Type = "NEXT_GAME_READY"

	// Host -> Client broadcasts
	TypeLobbyUpdate Type = "LOBBY_UPDATE"
	TypeStateUpdate Type = "STATE_UPDATE"
	TypeError       Type = "ERROR"
)

var (
	ErrMissingType    = errors.New("message has no type")
	ErrMissingPayload = errors.New("message has no payload")
	ErrUnknownType    = errors.New("unknown message type")
)

// Message is the wire envelope. Client-originated messages omit the
// timestamp; the host assigns one at receipt so that conflict resolution
// runs against a single authoritative clock.
type Message struct {
	Type      Type            `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp int64           `json:"timestamp,omitempty"`
}

// Payload is the closed set of message bodies.
type Payload interface {
	payloadType() Type
}

// JoinRequest asks the host to admit (or re-admit) a player.
type JoinRequest struct {
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
}

// PlayerReady toggles lobby readiness.
type PlayerReady struct {
	PlayerID string `json:"playerId"`
	IsReady  bool   `json:"isReady"`
}

// UpdateName changes a player's display name in the lobby.
type UpdateName struct {
	PlayerID string `json:"playerId"`
	NewName  string `json:"newName"`
}

// TurnReady flags readiness for the current turn.
type TurnReady struct {
	PlayerID string `json:"playerId"`
}

// TokenAction is a token select intent. The client leaves Timestamp zero;
// the host stamps it before resolution.
type TokenAction struct {
	ActionType  string `json:"type"` // always "select"
	PlayerID    string `json:"playerId"`
	TokenNumber int    `json:"tokenNumber"`
	Timestamp   int64  `json:"timestamp,omitempty"`
}

// ProceedTurn asks the host to advance out of token trading.
type ProceedTurn struct {
	PlayerID string `json:"playerId"`
}

// NextGameReady flags readiness for a rematch after END_GAME.
type NextGameReady struct {
	PlayerID string `json:"playerId"`
}

// LobbyUpdate carries the roster while the match has not started.
type LobbyUpdate struct {
	LobbyState game.State `json:"lobbyState"`
}

// StateUpdate carries the full canonical snapshot after every mutation.
// Clients replace their mirror wholesale on receipt.
type StateUpdate struct {
	State game.State `json:"state"`
}

// ErrorPayload surfaces a host-side rejection, e.g. a peer-id collision.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (JoinRequest) payloadType() Type   { return TypeJoinRequest }
func (PlayerReady) payloadType() Type   { return TypePlayerReady }
func (UpdateName) payloadType() Type    { return TypeUpdateName }
func (TurnReady) payloadType() Type     { return TypeTurnReady }
func (TokenAction) payloadType() Type   { return TypeTokenAction }
func (ProceedTurn) payloadType() Type   { return TypeProceedTurn }
func (NextGameReady) payloadType() Type { return TypeNextGameReady }
func (LobbyUpdate) payloadType() Type   { return TypeLobbyUpdate }
func (StateUpdate) payloadType() Type   { return TypeStateUpdate }
func (ErrorPayload) payloadType() Type  { return TypeError }

// NewMessage wraps a payload in an envelope. The timestamp is left unset;
// only the host stamps messages.
func NewMessage(p Payload) (*Message, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return &Message{Type: p.payloadType(), Payload: data}, nil
}

// Encode serializes a message for the wire.
func Encode(m *Message) ([]byte, error) {
	return json.Marshal(m)
}

// Decode parses and validates an inbound frame, returning the envelope and
// its typed payload. Any malformed input yields an error; callers at the
// transport boundary drop such frames rather than propagating the failure.
func Decode(data []byte) (*Message, Payload, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, nil, fmt.Errorf("malformed envelope: %w", err)
	}
	if m.Type == "" {
		return nil, nil, ErrMissingType
	}
	if len(m.Payload) == 0 || string(m.Payload) == "null" {
		return nil, nil, ErrMissingPayload
	}

	p, err := decodePayload(&m)
	if err != nil {
		return nil, nil, err
	}
	return &m, p, nil
}

func decodePayload(m *Message) (Payload, error) {
	var p Payload
	switch m.Type {
	case TypeJoinRequest:
		p = &JoinRequest{}
	case TypePlayerReady:
		p = &PlayerReady{}
	case TypeUpdateName:
		p = &UpdateName{}
	case TypeTurnReady:
		p = &TurnReady{}
	case TypeTokenAction:
		p = &TokenAction{}
	case TypeProceedTurn:
		p = &ProceedTurn{}
	case TypeNextGameReady:
		p = &NextGameReady{}
	case TypeLobbyUpdate:
		p = &LobbyUpdate{}
	case TypeStateUpdate:
		p = &StateUpdate{}
	case TypeError:
		p = &ErrorPayload{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, m.Type)
	}

	if err := json.Unmarshal(m.Payload, p); err != nil {
		return nil, fmt.Errorf("malformed %s payload: %w", m.Type, err)
	}
	return p, nil
}
