// Package game owns the canonical per-match state and its phase
// transition rules. Transition functions are pure: they take a State value
// and return a fresh one, never mutating their input. Only the host applies
// them; clients hold a read-only mirror replaced wholesale on every
// broadcast.
package game

import (
	rand "math/rand/v2"

	"github.com/lox/ranktoken/internal/deck"
	"github.com/lox/ranktoken/internal/evaluator"
	"github.com/lox/ranktoken/internal/token"
)

// Phase identifies where the match is in its lifecycle.
type Phase string

const (
	PhaseLobby        Phase = "LOBBY"
	PhaseReadyUp      Phase = "READY_UP"
	PhaseTokenTrading Phase = "TOKEN_TRADING"
	PhaseEndGame      Phase = "END_GAME"
)

// MaxTurns is the number of trading turns in a match. Community cards
// reach 5 on the final turn.
const MaxTurns = 4

const (
	MinPlayers = 2
	MaxPlayers = 8
)

// avatarPalette supplies player colors in join order.
var avatarPalette = []string{
	"#e74c3c", "#3498db", "#2ecc71", "#9b59b6",
	"#f39c12", "#1abc9c", "#e91e63", "#34495e",
}

// cardBackPalette is the set of card back colors, one chosen per match.
var cardBackPalette = []string{"crimson", "navy", "forest", "plum", "slate"}

// Player is a participant created at lobby join. Hole cards are assigned
// once per match start; TokenHistory records the token number held at the
// end of each completed turn (0 = none).
type Player struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	AvatarColor  string        `json:"avatarColor"`
	HoleCards    []deck.Card   `json:"holeCards,omitempty"`
	TokenHistory [MaxTurns]int `json:"tokenHistory"`
}

// State is the canonical mutable aggregate for one match. It is owned
// exclusively by the host; every transition returns a new value.
type State struct {
	Phase          Phase           `json:"phase"`
	Turn           int             `json:"turn"` // 0 in lobby, 1..4 during play
	Players        []Player        `json:"players"`
	Deck           []deck.Card     `json:"deck,omitempty"`
	CommunityCards []deck.Card     `json:"communityCards"`
	Tokens         []token.Token   `json:"tokens"`
	ReadyStatus    map[string]bool `json:"readyStatus"`
	CardBackColor  string          `json:"cardBackColor"`
	// Result is set once, on entry to END_GAME.
	Result *evaluator.WinLossResult `json:"result,omitempty"`
}

// NewLobby creates the empty pre-match state. LOBBY is the only phase
// reachable from match creation.
func NewLobby() State {
	return State{
		Phase:       PhaseLobby,
		ReadyStatus: make(map[string]bool),
	}
}

// PlayerByID returns the player with the given ID, if present.
func (s State) PlayerByID(id string) (Player, bool) {
	for _, p := range s.Players {
		if p.ID == id {
			return p, true
		}
	}
	return Player{}, false
}

// clone returns a structurally independent copy of the state.
func (s State) clone() State {
	next := s

	next.Players = make([]Player, len(s.Players))
	for i, p := range s.Players {
		next.Players[i] = p
		if p.HoleCards != nil {
			next.Players[i].HoleCards = append([]deck.Card(nil), p.HoleCards...)
		}
	}

	if s.Deck != nil {
		next.Deck = append([]deck.Card(nil), s.Deck...)
	}
	if s.CommunityCards != nil {
		next.CommunityCards = append([]deck.Card(nil), s.CommunityCards...)
	}
	if s.Tokens != nil {
		next.Tokens = append([]token.Token(nil), s.Tokens...)
	}

	next.ReadyStatus = make(map[string]bool, len(s.ReadyStatus))
	for k, v := range s.ReadyStatus {
		next.ReadyStatus[k] = v
	}

	if s.Result != nil {
		result := *s.Result
		result.Players = append([]evaluator.PlayerOutcome(nil), s.Result.Players...)
		next.Result = &result
	}

	return next
}

// allReady reports whether every joined player has set their ready flag.
func (s State) allReady() bool {
	if len(s.Players) == 0 {
		return false
	}
	for _, p := range s.Players {
		if !s.ReadyStatus[p.ID] {
			return false
		}
	}
	return true
}

func pickCardBack(rng *rand.Rand) string {
	return cardBackPalette[rng.IntN(len(cardBackPalette))]
}
