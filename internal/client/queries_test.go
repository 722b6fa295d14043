package client

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lox/ranktoken/internal/evaluator"
	"github.com/lox/ranktoken/internal/game"
	"github.com/lox/ranktoken/internal/token"
)

func twoPlayerState(phase game.Phase) game.State {
	s := game.NewLobby()
	s.Phase = phase
	s.Turn = 1
	s.Players = []game.Player{
		{ID: "p1", Name: "Alice"},
		{ID: "p2", Name: "Bob"},
	}
	s.Tokens = token.NewSet(2)
	return s
}

func TestPhaseText(t *testing.T) {
	t.Parallel()

	lobby := twoPlayerState(game.PhaseLobby)
	assert.Equal(t, "Waiting for players", PhaseText(lobby))

	ready := twoPlayerState(game.PhaseReadyUp)
	ready.Turn = 3
	assert.Equal(t, "Turn 3 of 4: ready up", PhaseText(ready))

	trading := twoPlayerState(game.PhaseTokenTrading)
	assert.Equal(t, "Turn 1 of 4: trade tokens", PhaseText(trading))

	won := twoPlayerState(game.PhaseEndGame)
	won.Result = &evaluator.WinLossResult{IsWin: true}
	assert.Equal(t, "Everybody wins!", PhaseText(won))

	lost := twoPlayerState(game.PhaseEndGame)
	lost.Result = &evaluator.WinLossResult{IsWin: false}
	assert.Equal(t, "Game over", PhaseText(lost))
}

func TestCanReady(t *testing.T) {
	t.Parallel()

	s := twoPlayerState(game.PhaseLobby)
	assert.True(t, CanReady(s, "p1"))
	assert.False(t, CanReady(s, "unknown"))

	s.ReadyStatus["p1"] = true
	assert.False(t, CanReady(s, "p1"), "already-ready players have nothing to press")

	trading := twoPlayerState(game.PhaseTokenTrading)
	assert.False(t, CanReady(trading, "p1"))
}

func TestCanProceed(t *testing.T) {
	t.Parallel()

	s := twoPlayerState(game.PhaseTokenTrading)
	assert.False(t, CanProceed(s, "p1"), "unowned tokens block advancing")

	s.Tokens[0].OwnerID = "p1"
	s.Tokens[1].OwnerID = "p2"
	assert.True(t, CanProceed(s, "p1"))
	assert.False(t, CanProceed(s, "unknown"))

	ready := twoPlayerState(game.PhaseReadyUp)
	ready.Tokens[0].OwnerID = "p1"
	ready.Tokens[1].OwnerID = "p2"
	assert.False(t, CanProceed(ready, "p1"))
}

func TestCanSelectTokens(t *testing.T) {
	t.Parallel()

	assert.True(t, CanSelectTokens(twoPlayerState(game.PhaseTokenTrading), "p1"))
	assert.False(t, CanSelectTokens(twoPlayerState(game.PhaseReadyUp), "p1"))
	assert.False(t, CanSelectTokens(twoPlayerState(game.PhaseTokenTrading), "unknown"))
}

func TestCanNextGame(t *testing.T) {
	t.Parallel()

	s := twoPlayerState(game.PhaseEndGame)
	assert.True(t, CanNextGame(s, "p1"))

	s.ReadyStatus["p1"] = true
	assert.False(t, CanNextGame(s, "p1"))

	assert.False(t, CanNextGame(twoPlayerState(game.PhaseLobby), "p1"))
}

func TestHeldToken(t *testing.T) {
	t.Parallel()

	s := twoPlayerState(game.PhaseTokenTrading)
	assert.Zero(t, HeldToken(s, "p1"))

	s.Tokens[1].OwnerID = "p1"
	assert.Equal(t, 2, HeldToken(s, "p1"))
}
