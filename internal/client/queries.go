package client

import (
	"fmt"

	"github.com/lox/ranktoken/internal/game"
	"github.com/lox/ranktoken/internal/token"
)

// Pure presentation queries over a mirrored state. The rendering layer
// polls these after every update; nothing here mutates or decides.

// PhaseText returns the banner text for the current phase.
func PhaseText(s game.State) string {
	switch s.Phase {
	case game.PhaseLobby:
		return "Waiting for players"
	case game.PhaseReadyUp:
		return fmt.Sprintf("Turn %d of %d: ready up", s.Turn, game.MaxTurns)
	case game.PhaseTokenTrading:
		return fmt.Sprintf("Turn %d of %d: trade tokens", s.Turn, game.MaxTurns)
	case game.PhaseEndGame:
		if s.Result != nil && s.Result.IsWin {
			return "Everybody wins!"
		}
		return "Game over"
	default:
		return string(s.Phase)
	}
}

// CanReady reports whether the ready button applies to the player now.
func CanReady(s game.State, playerID string) bool {
	if _, ok := s.PlayerByID(playerID); !ok {
		return false
	}
	switch s.Phase {
	case game.PhaseLobby, game.PhaseReadyUp:
		return !s.ReadyStatus[playerID]
	default:
		return false
	}
}

// CanProceed reports whether the proceed button applies: trading is open
// and every token has found an owner.
func CanProceed(s game.State, playerID string) bool {
	if _, ok := s.PlayerByID(playerID); !ok {
		return false
	}
	return s.Phase == game.PhaseTokenTrading && token.AllOwned(s.Tokens)
}

// CanSelectTokens reports whether token clicks should be live.
func CanSelectTokens(s game.State, playerID string) bool {
	if _, ok := s.PlayerByID(playerID); !ok {
		return false
	}
	return s.Phase == game.PhaseTokenTrading
}

// CanNextGame reports whether the next-game button applies.
func CanNextGame(s game.State, playerID string) bool {
	if _, ok := s.PlayerByID(playerID); !ok {
		return false
	}
	return s.Phase == game.PhaseEndGame && !s.ReadyStatus[playerID]
}

// HeldToken returns the number of the token the player currently holds,
// or 0.
func HeldToken(s game.State, playerID string) int {
	return token.OwnedBy(s.Tokens, playerID)
}
