package deck

import (
	"errors"
	"fmt"
	rand "math/rand/v2"
)

var (
	// ErrInvalidPlayerCount is returned when dealing hole cards for fewer
	// than 2 or more than 8 players.
	ErrInvalidPlayerCount = errors.New("player count must be between 2 and 8")

	// ErrInvalidTurn is returned when a community deal is requested for a
	// turn outside 1..4.
	ErrInvalidTurn = errors.New("turn must be between 1 and 4")

	// ErrInsufficientCards is returned when the deck cannot cover a deal.
	ErrInsufficientCards = errors.New("not enough cards remaining in deck")
)

// communitySchedule is the number of community cards revealed on each
// turn: none pre-flop, then flop, turn, river. Cumulative total is 5.
var communitySchedule = [4]int{0, 3, 1, 1}

// New creates a standard 52-card deck in fixed suit-major, rank-minor order.
func New() []Card {
	cards := make([]Card, 0, 52)
	for suit := Spades; suit <= Clubs; suit++ {
		for rank := Two; rank <= Ace; rank++ {
			cards = append(cards, NewCard(suit, rank))
		}
	}
	return cards
}

// Shuffle returns a new slice containing the same cards in a random order
// produced by a Fisher-Yates pass. The input slice is never mutated.
func Shuffle(cards []Card, rng *rand.Rand) []Card {
	shuffled := make([]Card, len(cards))
	copy(shuffled, cards)
	for i := len(shuffled) - 1; i > 0; i-- {
		j := rng.IntN(i + 1)
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	}
	return shuffled
}

// DealHoleCards removes playerCount pairs from the front of the deck and
// returns them along with the remaining cards. The input slice is not
// mutated.
func DealHoleCards(cards []Card, playerCount int) (hands [][]Card, remaining []Card, err error) {
	if playerCount < 2 || playerCount > 8 {
		return nil, nil, fmt.Errorf("%w: got %d", ErrInvalidPlayerCount, playerCount)
	}
	if len(cards) < playerCount*2 {
		return nil, nil, fmt.Errorf("%w: need %d, have %d", ErrInsufficientCards, playerCount*2, len(cards))
	}

	hands = make([][]Card, playerCount)
	for i := 0; i < playerCount; i++ {
		hands[i] = []Card{cards[i*2], cards[i*2+1]}
	}

	remaining = make([]Card, len(cards)-playerCount*2)
	copy(remaining, cards[playerCount*2:])
	return hands, remaining, nil
}

// DealCommunityCards removes the scheduled number of community cards for
// the given turn from the front of the deck. Turn 1 reveals nothing, turn 2
// the flop, turns 3 and 4 one card each. The input slice is not mutated.
func DealCommunityCards(cards []Card, turn int) (dealt []Card, remaining []Card, err error) {
	if turn < 1 || turn > 4 {
		return nil, nil, fmt.Errorf("%w: got %d", ErrInvalidTurn, turn)
	}

	count := communitySchedule[turn-1]
	if len(cards) < count {
		return nil, nil, fmt.Errorf("%w: need %d, have %d", ErrInsufficientCards, count, len(cards))
	}

	dealt = make([]Card, count)
	copy(dealt, cards[:count])
	remaining = make([]Card, len(cards)-count)
	copy(remaining, cards[count:])
	return dealt, remaining, nil
}
