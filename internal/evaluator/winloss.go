package evaluator

import "sort"

// Entry pairs a player's evaluated hand with the rank token they held when
// the final turn ended.
type Entry struct {
	PlayerID string     `json:"playerId"`
	Hand     HandResult `json:"hand"`
	Token    int        `json:"token"`
}

// PlayerOutcome reports one player's placement in the final standings.
type PlayerOutcome struct {
	PlayerID string     `json:"playerId"`
	Hand     HandResult `json:"hand"`
	Token    int        `json:"token"`
	// ExpectedLow..ExpectedHigh is the token range the player's tie-block
	// must collectively hold. Tied players may hold any permutation of it.
	ExpectedLow  int  `json:"expectedLow"`
	ExpectedHigh int  `json:"expectedHigh"`
	Correct      bool `json:"correct"`
	// DecidingIndex is the position in BestFive of the first kicker that
	// differs from the next-weaker player's hand, skipping positions that
	// belong to PrimaryCards. -1 when there is no such card (tie, category
	// difference, or last place). Presentation only.
	DecidingIndex int `json:"decidingIndex"`
}

// WinLossResult is the outcome of the match's terminal phase.
type WinLossResult struct {
	// IsWin is true iff every player holds a token inside their tie-block's
	// expected range and no range is missing a number.
	IsWin bool `json:"isWin"`
	// Players are ordered strongest hand first.
	Players []PlayerOutcome `json:"players"`
}

// DetermineWinLoss checks whether token ownership matches true hand
// strength order. Players whose hands compare equal form a tie-block and
// may hold their block's token numbers in any order.
func DetermineWinLoss(entries []Entry) WinLossResult {
	n := len(entries)
	ordered := make([]Entry, n)
	copy(ordered, entries)
	sort.SliceStable(ordered, func(i, j int) bool {
		return Compare(ordered[i].Hand, ordered[j].Hand) > 0
	})

	outcomes := make([]PlayerOutcome, n)
	for i, e := range ordered {
		outcomes[i] = PlayerOutcome{
			PlayerID:      e.PlayerID,
			Hand:          e.Hand,
			Token:         e.Token,
			DecidingIndex: -1,
		}
	}

	// Walk tie-blocks from the strongest down, handing out contiguous token
	// ranges counting down from n.
	win := true
	high := n
	for start := 0; start < n; {
		end := start + 1
		for end < n && Compare(ordered[start].Hand, ordered[end].Hand) == 0 {
			end++
		}
		size := end - start
		low := high - size + 1

		held := make(map[int]int)
		for i := start; i < end; i++ {
			outcomes[i].ExpectedLow = low
			outcomes[i].ExpectedHigh = high
			held[ordered[i].Token]++
		}
		for i := start; i < end; i++ {
			tok := ordered[i].Token
			outcomes[i].Correct = tok >= low && tok <= high && held[tok] == 1
			if !outcomes[i].Correct {
				win = false
			}
		}

		high = low - 1
		start = end
	}

	for i := 0; i+1 < n; i++ {
		outcomes[i].DecidingIndex = decidingKicker(outcomes[i].Hand, outcomes[i+1].Hand)
	}

	return WinLossResult{IsWin: win, Players: outcomes}
}

// decidingKicker returns the BestFive index of the first kicker that
// differs between two same-category hands, or -1. Primary card positions
// are excluded since they decide the category, not the kicker race.
func decidingKicker(a, b HandResult) int {
	if a.Rank != b.Rank {
		return -1
	}
	limit := len(a.BestFive)
	if len(b.BestFive) < limit {
		limit = len(b.BestFive)
	}
	for i := len(a.PrimaryCards); i < limit; i++ {
		if a.BestFive[i].Rank != b.BestFive[i].Rank {
			return i
		}
	}
	return -1
}
