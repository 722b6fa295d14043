// Package token implements ownership resolution for the numbered rank
// tokens players trade during a turn. All peers applying the same
// host-stamped action sequence converge to the same ownership, because
// claims are ordered by the total order (timestamp, playerId).
package token

import (
	"errors"
	"fmt"
)

// Token is a numbered marker a player must end the turn holding.
type Token struct {
	Number    int    `json:"number"`
	OwnerID   string `json:"ownerId,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// Action is a single select intent, stamped by the host before it is
// considered authoritative.
type Action struct {
	PlayerID    string `json:"playerId"`
	TokenNumber int    `json:"tokenNumber"`
	Timestamp   int64  `json:"timestamp"`
}

// ErrUnknownToken is returned when an action targets a token number that
// does not exist in the set.
var ErrUnknownToken = errors.New("no such token")

// NewSet creates n unowned tokens numbered 1..n.
func NewSet(n int) []Token {
	tokens := make([]Token, n)
	for i := range tokens {
		tokens[i] = Token{Number: i + 1}
	}
	return tokens
}

// Apply resolves a single select action against the token set and returns
// the updated set. The input slice is never mutated.
//
// Rules, applied atomically:
//  1. Selecting a token you already own releases it.
//  2. Otherwise any other token owned by the actor is released first; a
//     player holds at most one token at a time.
//  3. The actor acquires the target iff it is unowned, the action's
//     timestamp is strictly later than the token's, or the timestamps are
//     equal and the actor's ID sorts lexicographically lower than the
//     current owner's.
func Apply(tokens []Token, action Action) ([]Token, error) {
	idx := -1
	for i, tok := range tokens {
		if tok.Number == action.TokenNumber {
			idx = i
			break
		}
	}
	if idx == -1 {
		return nil, fmt.Errorf("%w: %d", ErrUnknownToken, action.TokenNumber)
	}

	next := make([]Token, len(tokens))
	copy(next, tokens)

	target := &next[idx]

	// Self-toggle: releasing is the only way to give a token back
	if target.OwnerID == action.PlayerID {
		target.OwnerID = ""
		target.Timestamp = 0
		return next, nil
	}

	// A player holds at most one token; any other holding is released
	// before the claim is judged, even if the claim then loses.
	for i := range next {
		if next[i].OwnerID == action.PlayerID {
			next[i].OwnerID = ""
			next[i].Timestamp = 0
		}
	}

	if wins(action, *target) {
		target.OwnerID = action.PlayerID
		target.Timestamp = action.Timestamp
	}
	return next, nil
}

// wins reports whether the action takes the token from its current owner.
func wins(action Action, target Token) bool {
	if target.OwnerID == "" {
		return true
	}
	if action.Timestamp != target.Timestamp {
		return action.Timestamp > target.Timestamp
	}
	return action.PlayerID < target.OwnerID
}

// Reset returns a copy of the set with all ownership cleared. Called at
// the top of every new turn.
func Reset(tokens []Token) []Token {
	next := make([]Token, len(tokens))
	for i, tok := range tokens {
		next[i] = Token{Number: tok.Number}
	}
	return next
}

// AllOwned reports whether every token has an owner, the guard for
// advancing out of the trading phase.
func AllOwned(tokens []Token) bool {
	for _, tok := range tokens {
		if tok.OwnerID == "" {
			return false
		}
	}
	return len(tokens) > 0
}

// OwnedBy returns the number of the token the player holds, or 0.
func OwnedBy(tokens []Token, playerID string) int {
	for _, tok := range tokens {
		if tok.OwnerID == playerID {
			return tok.Number
		}
	}
	return 0
}
