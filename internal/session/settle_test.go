package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/highroller/derby/internal/race"
)

func TestTieMultiplier(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		base    int64
		winners int
		want    int64
	}{
		{"sole winner", 4, 1, 4},
		{"two-way tie halves", 4, 2, 2},
		{"two-way tie floors at one", 1, 2, 1},
		{"three-way tie returns stakes", 4, 3, 1},
		{"four-way tie returns stakes", 10, 4, 1},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tieMultiplier(tc.base, tc.winners))
		})
	}
}

func finishedLanes(trackLength int, winning ...int) []race.Lane {
	lanes := make([]race.Lane, 4)
	win := map[int]bool{}
	for _, w := range winning {
		win[w] = true
	}
	for i := range lanes {
		lanes[i] = race.Lane{Index: i, Position: 5}
		if win[i] {
			lanes[i].Position = trackLength - 1
		}
	}
	return lanes
}

func TestSettleSoleWinner(t *testing.T) {
	t.Parallel()

	lanes := finishedLanes(20, 2)
	bets := []Bet{
		{Participant: "alice", Selection: 2, CurrentStake: 100, ChipsDrawn: 100},
		{Participant: "bob", Selection: 0, CurrentStake: 50, ChipsDrawn: 50},
	}

	res := Settle(lanes, bets, 4, 20)
	assert.Equal(t, []int{2}, res.WinningLanes)
	assert.Equal(t, int64(4), res.Multiplier)
	require.Len(t, res.Payouts, 1)
	assert.Equal(t, "alice", res.Payouts[0].Participant)
	assert.Equal(t, int64(400), res.Payouts[0].Amount)
	assert.Equal(t, int64(150), res.ChipsCollected)
	assert.Equal(t, int64(400), res.ChipsPaid)
	assert.Equal(t, int64(-250), res.HouseNet)
}

func TestSettleTwoWayTie(t *testing.T) {
	t.Parallel()

	lanes := finishedLanes(20, 1, 3)
	bets := []Bet{
		{Participant: "alice", Selection: 1, CurrentStake: 50, ChipsDrawn: 50},
		{Participant: "bob", Selection: 3, CurrentStake: 50, ChipsDrawn: 50},
	}

	res := Settle(lanes, bets, 4, 20)
	assert.Equal(t, []int{1, 3}, res.WinningLanes)
	assert.Equal(t, int64(2), res.Multiplier)
	require.Len(t, res.Payouts, 2)
	for _, p := range res.Payouts {
		assert.Equal(t, int64(100), p.Amount)
	}
	assert.Equal(t, int64(100), res.ChipsCollected)
	assert.Equal(t, int64(200), res.ChipsPaid)
	assert.Equal(t, int64(-100), res.HouseNet)
}

func TestSettleCreditsExcludedFromHouseNet(t *testing.T) {
	t.Parallel()

	lanes := finishedLanes(20, 0)
	bets := []Bet{
		// Stake funded half by burned credits, half by chips.
		{Participant: "alice", Selection: 3, CurrentStake: 100, CreditsDrawn: 50, ChipsDrawn: 50},
	}

	res := Settle(lanes, bets, 4, 20)
	assert.Empty(t, res.Payouts)
	assert.Equal(t, int64(50), res.ChipsCollected)
	assert.Equal(t, int64(50), res.CreditsBurned)
	assert.Equal(t, int64(50), res.HouseNet, "burned credits never count toward the house")
}

func TestSettleFeesCollected(t *testing.T) {
	t.Parallel()

	lanes := finishedLanes(20, 1)
	bets := []Bet{
		{Participant: "alice", Selection: 1, CurrentStake: 50, ChipsDrawn: 50, FeeChips: 70, FeeCredits: 50},
	}

	res := Settle(lanes, bets, 4, 20)
	assert.Equal(t, int64(120), res.ChipsCollected)
	assert.Equal(t, int64(50), res.CreditsBurned)
	assert.Equal(t, int64(200), res.ChipsPaid)
	assert.Equal(t, int64(-80), res.HouseNet)
}

func TestSettleIdempotent(t *testing.T) {
	t.Parallel()

	lanes := finishedLanes(20, 2)
	bets := []Bet{
		{Participant: "alice", Selection: 2, CurrentStake: 30, ChipsDrawn: 30},
		{Participant: "bob", Selection: 2, CurrentStake: 70, CreditsDrawn: 40, ChipsDrawn: 30},
	}

	first := Settle(lanes, bets, 4, 20)
	second := Settle(lanes, bets, 4, 20)
	assert.Equal(t, first, second)
}

func TestSettleZeroStakeWinnerSkipped(t *testing.T) {
	t.Parallel()

	lanes := finishedLanes(20, 0)
	bets := []Bet{
		{Participant: "alice", Selection: 0, CurrentStake: 0, FeeChips: 10},
	}

	res := Settle(lanes, bets, 4, 20)
	assert.Empty(t, res.Payouts)
	assert.Equal(t, int64(10), res.ChipsCollected)
	assert.Equal(t, int64(10), res.HouseNet)
}

func TestSwapFee(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		stake int64
		stage int
		want  int64
	}{
		{"stage zero uses factor one", 100, 0, 100},
		{"stage one uses factor one", 100, 1, 100},
		{"stage two", 100, 2, 100},
		{"stage three rounds up", 100, 3, 150},
		{"stage four", 100, 4, 200},
		{"odd stake rounds up", 33, 3, 50},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, swapFee(tc.stake, tc.stage))
		})
	}
}
