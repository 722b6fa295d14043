package game

import (
	"fmt"
	rand "math/rand/v2"

	"github.com/lox/ranktoken/internal/deck"
	"github.com/lox/ranktoken/internal/evaluator"
	"github.com/lox/ranktoken/internal/token"
)

// Every transition below follows the same contract: if its guard fails it
// returns the input state unchanged with ok=false, so message handlers can
// call them speculatively without error handling.

// AddPlayer joins a player to the lobby. Fails outside LOBBY, on a
// duplicate ID, or when the lobby is full.
func AddPlayer(s State, id, name string) (State, bool) {
	if s.Phase != PhaseLobby || len(s.Players) >= MaxPlayers {
		return s, false
	}
	if _, exists := s.PlayerByID(id); exists {
		return s, false
	}

	next := s.clone()
	next.Players = append(next.Players, Player{
		ID:          id,
		Name:        name,
		AvatarColor: avatarPalette[len(next.Players)%len(avatarPalette)],
	})
	return next, true
}

// RenamePlayer updates a player's display name in the lobby.
func RenamePlayer(s State, id, newName string) (State, bool) {
	if s.Phase != PhaseLobby || newName == "" {
		return s, false
	}
	if _, exists := s.PlayerByID(id); !exists {
		return s, false
	}

	next := s.clone()
	for i := range next.Players {
		if next.Players[i].ID == id {
			next.Players[i].Name = newName
		}
	}
	return next, true
}

// SetReady records a player's readiness flag. Valid in LOBBY (ready to
// start), READY_UP (ready for the turn) and END_GAME (ready for the next
// game).
func SetReady(s State, id string, ready bool) (State, bool) {
	if s.Phase == PhaseTokenTrading {
		return s, false
	}
	if _, exists := s.PlayerByID(id); !exists {
		return s, false
	}

	next := s.clone()
	next.ReadyStatus[id] = ready
	return next, true
}

// StartMatch deals a fresh match from the lobby roster. Guard: LOBBY
// phase, 2-8 players, everyone ready.
func StartMatch(s State, rng *rand.Rand) (State, bool) {
	if s.Phase != PhaseLobby || len(s.Players) < MinPlayers || !s.allReady() {
		return s, false
	}

	next := s.clone()
	cards := deck.Shuffle(deck.New(), rng)

	hands, remaining, err := deck.DealHoleCards(cards, len(next.Players))
	if err != nil {
		// Player count is guarded above and a fresh deck always covers it
		return s, false
	}
	for i := range next.Players {
		next.Players[i].HoleCards = hands[i]
		next.Players[i].TokenHistory = [MaxTurns]int{}
	}

	next.Deck = remaining
	next.CommunityCards = []deck.Card{}
	next.Tokens = token.NewSet(len(next.Players))
	next.Phase = PhaseReadyUp
	next.Turn = 1
	next.ReadyStatus = make(map[string]bool)
	next.CardBackColor = pickCardBack(rng)
	next.Result = nil
	return next, true
}

// BeginTrading moves READY_UP into TOKEN_TRADING once every player has
// flagged ready.
func BeginTrading(s State) (State, bool) {
	if s.Phase != PhaseReadyUp || !s.allReady() {
		return s, false
	}

	next := s.clone()
	next.Phase = PhaseTokenTrading
	return next, true
}

// ApplyTokenAction resolves a single host-stamped token select during
// TOKEN_TRADING.
func ApplyTokenAction(s State, action token.Action) (State, error) {
	if s.Phase != PhaseTokenTrading {
		return s, fmt.Errorf("token action outside trading phase (%s)", s.Phase)
	}
	if _, exists := s.PlayerByID(action.PlayerID); !exists {
		return s, fmt.Errorf("token action from unknown player %q", action.PlayerID)
	}

	tokens, err := token.Apply(s.Tokens, action)
	if err != nil {
		return s, err
	}

	next := s.clone()
	next.Tokens = tokens
	return next, nil
}

// AdvanceTurn leaves TOKEN_TRADING once every token is owned. Ownership is
// snapshotted into each player's history, then either the next turn's
// READY_UP begins (with its community cards dealt and tokens reset) or,
// after the final turn, the match ends and the result is computed.
func AdvanceTurn(s State) (State, bool) {
	if s.Phase != PhaseTokenTrading || !token.AllOwned(s.Tokens) {
		return s, false
	}

	next := s.clone()
	for i := range next.Players {
		next.Players[i].TokenHistory[next.Turn-1] = token.OwnedBy(next.Tokens, next.Players[i].ID)
	}

	if next.Turn == MaxTurns {
		next.Phase = PhaseEndGame
		next.ReadyStatus = make(map[string]bool)
		next.Result = evaluateResult(next)
		return next, true
	}

	next.Turn++
	dealt, remaining, err := deck.DealCommunityCards(next.Deck, next.Turn)
	if err != nil {
		return s, false
	}
	next.CommunityCards = append(next.CommunityCards, dealt...)
	next.Deck = remaining
	next.Tokens = token.Reset(next.Tokens)
	next.Phase = PhaseReadyUp
	next.ReadyStatus = make(map[string]bool)
	return next, true
}

// NextGame resets END_GAME into a fresh match, keeping player identities,
// names and colors but drawing a new deck, cards and tokens. Everyone must
// have flagged ready.
func NextGame(s State, rng *rand.Rand) (State, bool) {
	if s.Phase != PhaseEndGame || !s.allReady() {
		return s, false
	}

	lobby := NewLobby()
	lobby.Players = make([]Player, len(s.Players))
	for i, p := range s.Players {
		lobby.Players[i] = Player{ID: p.ID, Name: p.Name, AvatarColor: p.AvatarColor}
		lobby.ReadyStatus[p.ID] = true
	}

	return StartMatch(lobby, rng)
}

// evaluateResult scores every player's 7 cards against the tokens they
// held when the river turn closed.
func evaluateResult(s State) *evaluator.WinLossResult {
	entries := make([]evaluator.Entry, 0, len(s.Players))
	for _, p := range s.Players {
		cards := append(append([]deck.Card(nil), p.HoleCards...), s.CommunityCards...)
		hand, err := evaluator.Evaluate(cards)
		if err != nil {
			// Unreachable during live play: hole and community counts are
			// fixed by the dealing schedule.
			continue
		}
		entries = append(entries, evaluator.Entry{
			PlayerID: p.ID,
			Hand:     hand,
			Token:    p.TokenHistory[MaxTurns-1],
		})
	}
	result := evaluator.DetermineWinLoss(entries)
	return &result
}
