package evaluator

import (
	"errors"
	"fmt"
	"sort"

	"github.com/lox/ranktoken/internal/deck"
)

// Hand category ranks, higher is strictly better
const (
	HighCard      = 1
	OnePair       = 2
	TwoPair       = 3
	ThreeOfAKind  = 4
	Straight      = 5
	Flush         = 6
	FullHouse     = 7
	FourOfAKind   = 8
	StraightFlush = 9
	RoyalFlush    = 10
)

// ErrInvalidCardCount is returned when fewer than 4 or more than 7 cards
// are supplied. Live play always evaluates exactly 7 (2 hole + 5 community);
// 4-6 is tolerated for isolated testing.
var ErrInvalidCardCount = errors.New("hand evaluation requires 4 to 7 cards")

// HandResult describes the best 5-card hand found among the input cards.
type HandResult struct {
	// Rank is the category rank, 1 (high card) through 10 (royal flush).
	Rank int `json:"rank"`
	// Name is the category label, e.g. "Full House".
	Name string `json:"name"`
	// BestFive holds the cards constituting the hand, strongest first.
	BestFive []deck.Card `json:"bestFive"`
	// PrimaryCards is the subset of BestFive that defines the category
	// (the pair, the trips, etc). Kickers are excluded.
	PrimaryCards []deck.Card `json:"primaryCards"`
	// Tiebreakers are compared element-wise between same-rank hands,
	// highest significance first.
	Tiebreakers []int `json:"tiebreakers"`
	// Description is a human-readable summary, e.g. "Two Pair, Kings and Fives".
	Description string `json:"description"`
}

// Evaluate computes the best 5-card hand from the given cards. The result
// is invariant to input order.
func Evaluate(cards []deck.Card) (HandResult, error) {
	if len(cards) < 4 || len(cards) > 7 {
		return HandResult{}, fmt.Errorf("%w: got %d", ErrInvalidCardCount, len(cards))
	}

	sorted := make([]deck.Card, len(cards))
	copy(sorted, cards)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Rank != sorted[j].Rank {
			return sorted[i].Rank > sorted[j].Rank
		}
		return sorted[i].Suit < sorted[j].Suit
	})

	flush := bestFlush(sorted)

	// Straight flushes are found among the flush suit's cards only
	if flush != nil {
		suited := filterSuit(sorted, flush[0].Suit)
		if sf, high := bestStraight(suited); sf != nil {
			if high == int(deck.Ace) {
				return HandResult{
					Rank:         RoyalFlush,
					Name:         "Royal Flush",
					BestFive:     sf,
					PrimaryCards: sf,
					Tiebreakers:  []int{high},
					Description:  fmt.Sprintf("Royal Flush of %s", sf[0].Suit),
				}, nil
			}
			return HandResult{
				Rank:         StraightFlush,
				Name:         "Straight Flush",
				BestFive:     sf,
				PrimaryCards: sf,
				Tiebreakers:  []int{high},
				Description:  fmt.Sprintf("Straight Flush, %s high", deck.Rank(high)),
			}, nil
		}
	}

	groups := groupByRank(sorted)

	if r, ok := fourOfAKind(sorted, groups); ok {
		return r, nil
	}
	if r, ok := fullHouse(groups); ok {
		return r, nil
	}
	if flush != nil {
		return HandResult{
			Rank:         Flush,
			Name:         "Flush",
			BestFive:     flush,
			PrimaryCards: flush,
			Tiebreakers:  rankValues(flush),
			Description:  fmt.Sprintf("Flush, %s high", flush[0]),
		}, nil
	}
	if straight, high := bestStraight(sorted); straight != nil {
		return HandResult{
			Rank:         Straight,
			Name:         "Straight",
			BestFive:     straight,
			PrimaryCards: straight,
			Tiebreakers:  []int{high},
			Description:  fmt.Sprintf("Straight, %s high", deck.Rank(high)),
		}, nil
	}
	if r, ok := threeOfAKind(sorted, groups); ok {
		return r, nil
	}
	if r, ok := twoPair(sorted, groups); ok {
		return r, nil
	}
	if r, ok := onePair(sorted, groups); ok {
		return r, nil
	}

	best := topN(sorted, 5)
	return HandResult{
		Rank:        HighCard,
		Name:        "High Card",
		BestFive:    best,
		Tiebreakers: rankValues(best),
		Description: fmt.Sprintf("High Card %s", best[0].Rank),
	}, nil
}

// Compare returns a negative value if a is weaker than b, positive if
// stronger, and 0 on a true tie. It is a total, deterministic comparator
// usable as a sort key: Compare(a, b) == -Compare(b, a).
func Compare(a, b HandResult) int {
	if a.Rank != b.Rank {
		return a.Rank - b.Rank
	}
	n := len(a.Tiebreakers)
	if len(b.Tiebreakers) > n {
		n = len(b.Tiebreakers)
	}
	for i := 0; i < n; i++ {
		av, bv := 0, 0
		if i < len(a.Tiebreakers) {
			av = a.Tiebreakers[i]
		}
		if i < len(b.Tiebreakers) {
			bv = b.Tiebreakers[i]
		}
		if av != bv {
			return av - bv
		}
	}
	return 0
}

// rankGroup is a set of same-rank cards, e.g. a pair or trips.
type rankGroup struct {
	rank  deck.Rank
	cards []deck.Card
}

// groupByRank returns groups sorted by count descending, then rank
// descending, from cards already sorted rank-descending.
func groupByRank(sorted []deck.Card) []rankGroup {
	var groups []rankGroup
	for _, c := range sorted {
		if n := len(groups); n > 0 && groups[n-1].rank == c.Rank {
			groups[n-1].cards = append(groups[n-1].cards, c)
			continue
		}
		groups = append(groups, rankGroup{rank: c.Rank, cards: []deck.Card{c}})
	}
	sort.SliceStable(groups, func(i, j int) bool {
		if len(groups[i].cards) != len(groups[j].cards) {
			return len(groups[i].cards) > len(groups[j].cards)
		}
		return groups[i].rank > groups[j].rank
	})
	return groups
}

// bestFlush returns the top 5 cards of any suit with 5 or more members,
// or nil. With at most 7 cards only one suit can qualify.
func bestFlush(sorted []deck.Card) []deck.Card {
	for suit := deck.Spades; suit <= deck.Clubs; suit++ {
		suited := filterSuit(sorted, suit)
		if len(suited) >= 5 {
			return suited[:5]
		}
	}
	return nil
}

// bestStraight finds the highest run of 5 consecutive distinct ranks,
// including the ace-low wheel (5-4-3-2-A). The returned high value is the
// straight's top rank; for the wheel that is 5, so ace-low sorts below
// every other straight.
func bestStraight(sorted []deck.Card) ([]deck.Card, int) {
	if len(sorted) < 5 {
		return nil, 0
	}

	// One card per distinct rank, keeping the first (they compare equal)
	byRank := make(map[deck.Rank]deck.Card)
	var distinct []deck.Rank
	for _, c := range sorted {
		if _, ok := byRank[c.Rank]; !ok {
			byRank[c.Rank] = c
			distinct = append(distinct, c.Rank)
		}
	}

	for i := 0; i+4 < len(distinct); i++ {
		if distinct[i]-distinct[i+4] == 4 {
			run := make([]deck.Card, 5)
			for j := 0; j < 5; j++ {
				run[j] = byRank[distinct[i]-deck.Rank(j)]
			}
			return run, int(distinct[i])
		}
	}

	// Wheel: A-5-4-3-2 with the ace counted low
	if _, hasAce := byRank[deck.Ace]; hasAce {
		wheel := []deck.Rank{deck.Five, deck.Four, deck.Three, deck.Two}
		run := make([]deck.Card, 0, 5)
		for _, r := range wheel {
			c, ok := byRank[r]
			if !ok {
				return nil, 0
			}
			run = append(run, c)
		}
		return append(run, byRank[deck.Ace]), int(deck.Five)
	}

	return nil, 0
}

func fourOfAKind(sorted []deck.Card, groups []rankGroup) (HandResult, bool) {
	if len(groups[0].cards) != 4 {
		return HandResult{}, false
	}
	quads := groups[0].cards
	kickers := topNExcluding(sorted, 1, groups[0].rank)
	best := append(append([]deck.Card{}, quads...), kickers...)
	return HandResult{
		Rank:         FourOfAKind,
		Name:         "Four of a Kind",
		BestFive:     best,
		PrimaryCards: quads,
		Tiebreakers:  append([]int{int(groups[0].rank)}, rankValues(kickers)...),
		Description:  fmt.Sprintf("Four of a Kind, %s", pluralRank(groups[0].rank)),
	}, true
}

func fullHouse(groups []rankGroup) (HandResult, bool) {
	if len(groups[0].cards) != 3 || len(groups) < 2 || len(groups[1].cards) < 2 {
		return HandResult{}, false
	}
	trips := groups[0].cards
	pair := groups[1].cards[:2]
	best := append(append([]deck.Card{}, trips...), pair...)
	return HandResult{
		Rank:         FullHouse,
		Name:         "Full House",
		BestFive:     best,
		PrimaryCards: best,
		Tiebreakers:  []int{int(groups[0].rank), int(groups[1].rank)},
		Description:  fmt.Sprintf("Full House, %s over %s", pluralRank(groups[0].rank), pluralRank(groups[1].rank)),
	}, true
}

func threeOfAKind(sorted []deck.Card, groups []rankGroup) (HandResult, bool) {
	if len(groups[0].cards) != 3 {
		return HandResult{}, false
	}
	trips := groups[0].cards
	kickers := topNExcluding(sorted, 2, groups[0].rank)
	best := append(append([]deck.Card{}, trips...), kickers...)
	return HandResult{
		Rank:         ThreeOfAKind,
		Name:         "Three of a Kind",
		BestFive:     best,
		PrimaryCards: trips,
		Tiebreakers:  append([]int{int(groups[0].rank)}, rankValues(kickers)...),
		Description:  fmt.Sprintf("Three of a Kind, %s", pluralRank(groups[0].rank)),
	}, true
}

func twoPair(sorted []deck.Card, groups []rankGroup) (HandResult, bool) {
	if len(groups[0].cards) != 2 || len(groups) < 2 || len(groups[1].cards) != 2 {
		return HandResult{}, false
	}
	pairs := append(append([]deck.Card{}, groups[0].cards...), groups[1].cards...)
	kickers := topNExcluding(sorted, 1, groups[0].rank, groups[1].rank)
	best := append(append([]deck.Card{}, pairs...), kickers...)
	return HandResult{
		Rank:         TwoPair,
		Name:         "Two Pair",
		BestFive:     best,
		PrimaryCards: pairs,
		Tiebreakers:  append([]int{int(groups[0].rank), int(groups[1].rank)}, rankValues(kickers)...),
		Description:  fmt.Sprintf("Two Pair, %s and %s", pluralRank(groups[0].rank), pluralRank(groups[1].rank)),
	}, true
}

func onePair(sorted []deck.Card, groups []rankGroup) (HandResult, bool) {
	if len(groups[0].cards) != 2 {
		return HandResult{}, false
	}
	pair := groups[0].cards
	kickers := topNExcluding(sorted, 3, groups[0].rank)
	best := append(append([]deck.Card{}, pair...), kickers...)
	return HandResult{
		Rank:         OnePair,
		Name:         "Pair",
		BestFive:     best,
		PrimaryCards: pair,
		Tiebreakers:  append([]int{int(groups[0].rank)}, rankValues(kickers)...),
		Description:  fmt.Sprintf("Pair of %s", pluralRank(groups[0].rank)),
	}, true
}

func filterSuit(cards []deck.Card, suit deck.Suit) []deck.Card {
	var out []deck.Card
	for _, c := range cards {
		if c.Suit == suit {
			out = append(out, c)
		}
	}
	return out
}

// topN returns up to n cards from an already-sorted slice.
func topN(sorted []deck.Card, n int) []deck.Card {
	if n > len(sorted) {
		n = len(sorted)
	}
	out := make([]deck.Card, n)
	copy(out, sorted[:n])
	return out
}

// topNExcluding returns up to n kickers, skipping the excluded ranks.
func topNExcluding(sorted []deck.Card, n int, exclude ...deck.Rank) []deck.Card {
	var out []deck.Card
	for _, c := range sorted {
		skip := false
		for _, r := range exclude {
			if c.Rank == r {
				skip = true
				break
			}
		}
		if skip {
			continue
		}
		out = append(out, c)
		if len(out) == n {
			break
		}
	}
	return out
}

func rankValues(cards []deck.Card) []int {
	out := make([]int, len(cards))
	for i, c := range cards {
		out[i] = int(c.Rank)
	}
	return out
}

func pluralRank(r deck.Rank) string {
	switch r {
	case deck.Two:
		return "Twos"
	case deck.Three:
		return "Threes"
	case deck.Four:
		return "Fours"
	case deck.Five:
		return "Fives"
	case deck.Six:
		return "Sixes"
	case deck.Seven:
		return "Sevens"
	case deck.Eight:
		return "Eights"
	case deck.Nine:
		return "Nines"
	case deck.Ten:
		return "Tens"
	case deck.Jack:
		return "Jacks"
	case deck.Queen:
		return "Queens"
	case deck.King:
		return "Kings"
	case deck.Ace:
		return "Aces"
	default:
		return r.String() + "s"
	}
}
