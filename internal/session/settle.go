package session

import "github.com/highroller/derby/internal/race"

// Payout is one winning bet's settlement.
type Payout struct {
	Participant string
	Selection   int
	Stake       int64
	Amount      int64
}

// Result is the outcome of settling a finished round. Burned credits are
// reported separately from the chip flow: they were destroyed at placement,
// not transferred to the house.
type Result struct {
	WinningLanes   []int
	Multiplier     int64
	Payouts        []Payout
	ChipsCollected int64
	ChipsPaid      int64
	CreditsBurned  int64
	HouseNet       int64
}

// tieMultiplier scales the payout multiplier down when several lanes share
// the finish: two-way ties pay half the base (at least 1), wider ties just
// return stakes.
func tieMultiplier(base int64, winners int) int64 {
	switch {
	case winners <= 1:
		return base
	case winners == 2:
		m := base / 2
		if m < 1 {
			m = 1
		}
		return m
	default:
		return 1
	}
}

// Settle computes winners and payouts from final lane progress and the bet
// book. Pure and idempotent: identical inputs always produce identical
// results. Losing stakes need no action here; they moved to the house (or
// were burned) at placement.
func Settle(lanes []race.Lane, bets []Bet, baseMultiplier int64, trackLength int) Result {
	winners := race.Winners(lanes, trackLength)
	winning := make(map[int]bool, len(winners))
	for _, w := range winners {
		winning[w] = true
	}
	mult := tieMultiplier(baseMultiplier, len(winners))

	res := Result{
		WinningLanes: winners,
		Multiplier:   mult,
	}
	for _, b := range bets {
		res.ChipsCollected += b.ChipsDrawn + b.FeeChips
		res.CreditsBurned += b.CreditsDrawn + b.FeeCredits
		if winning[b.Selection] && b.CurrentStake > 0 {
			res.Payouts = append(res.Payouts, Payout{
				Participant: b.Participant,
				Selection:   b.Selection,
				Stake:       b.CurrentStake,
				Amount:      b.CurrentStake * mult,
			})
			res.ChipsPaid += b.CurrentStake * mult
		}
	}
	res.HouseNet = res.ChipsCollected - res.ChipsPaid
	return res
}
