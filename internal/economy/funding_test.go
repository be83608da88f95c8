package economy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDrawStakeCreditsFirst(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		credits     int64
		chips       int64
		amount      int64
		wantCredits int64
		wantChips   int64
	}{
		{"credits cover everything", 200, 50, 150, 150, 0},
		{"split across both", 50, 200, 120, 50, 70},
		{"no credits at all", 0, 500, 100, 0, 100},
		{"credits exactly cover", 100, 0, 100, 100, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			l := NewMemoryLedger(1000)
			l.Seed("p", Balances{Credits: tc.credits, Chips: tc.chips})

			draw, err := DrawStake(ctx, l, "p", tc.amount, "stake")
			require.NoError(t, err)
			assert.Equal(t, tc.wantCredits, draw.Credits)
			assert.Equal(t, tc.wantChips, draw.Chips)
			assert.Equal(t, tc.amount, draw.Total())

			bal, err := l.ReadBalances(ctx, "p")
			require.NoError(t, err)
			assert.Equal(t, tc.credits-tc.wantCredits, bal.Credits)
			assert.Equal(t, tc.chips-tc.wantChips, bal.Chips)
		})
	}
}

func TestDrawAccumulation(t *testing.T) {
	t.Parallel()

	d := Draw{Credits: 30, Chips: 50}.Add(Draw{Credits: 20, Chips: 70})
	assert.Equal(t, Draw{Credits: 50, Chips: 120}, d)
	assert.Equal(t, int64(170), d.Total())
}

func TestDrawStakePartialFailure(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	// 40 credits burn, then the 60-chip debit fails: the partial draw is
	// reported so the caller can compensate.
	l := NewMemoryLedger(1000)
	l.Seed("p", Balances{Credits: 40, Chips: 10})

	draw, err := DrawStake(ctx, l, "p", 100, "stake")
	require.ErrorIs(t, err, ErrInsufficientFunds)
	assert.Equal(t, int64(40), draw.Credits)
	assert.Equal(t, int64(0), draw.Chips)

	// The burn committed; the chips never moved.
	bal, err := l.ReadBalances(ctx, "p")
	require.NoError(t, err)
	assert.Equal(t, int64(0), bal.Credits)
	assert.Equal(t, int64(10), bal.Chips)
}

func TestRefundDrawRestoresBalances(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	l := NewMemoryLedger(1000)
	l.Seed("p", Balances{Credits: 50, Chips: 200})

	draw, err := DrawStake(ctx, l, "p", 120, "stake")
	require.NoError(t, err)

	require.NoError(t, RefundDraw(ctx, l, "p", draw, "refund"))

	bal, err := l.ReadBalances(ctx, "p")
	require.NoError(t, err)
	assert.Equal(t, Balances{Credits: 50, Chips: 200}, bal)

	house, err := l.ReadHouseBalance(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), house, "house bankroll restored after chip refund")
}

func TestRefundDrawChipsNeedHouseCover(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	l := NewMemoryLedger(10)
	err := RefundDraw(ctx, l, "p", Draw{Chips: 50}, "refund")
	require.ErrorIs(t, err, ErrInsufficientHouse)
}
