package economy

import (
	"context"
	"fmt"
)

// Draw records how a stake or fee was split across the two currencies, so
// the exact amounts can be reversed later.
type Draw struct {
	Credits int64
	Chips   int64
}

// Total returns the combined amount drawn.
func (d Draw) Total() int64 {
	return d.Credits + d.Chips
}

// Add accumulates another draw into this one.
func (d Draw) Add(other Draw) Draw {
	return Draw{Credits: d.Credits + other.Credits, Chips: d.Chips + other.Chips}
}

// DrawStake takes amount from the user, credits first: min(amount, credits)
// is burned, the remainder is debited as chips into the house.
//
// If the chips debit fails after the credits burn committed, the partial
// draw is returned alongside the error and is NOT rolled back here. The
// caller must grant Draw.Credits back before reporting the error upward.
func DrawStake(ctx context.Context, l Ledger, user string, amount int64, reason string) (Draw, error) {
	if amount <= 0 {
		return Draw{}, ErrInvalidAmount
	}

	bal, err := l.ReadBalances(ctx, user)
	if err != nil {
		return Draw{}, fmt.Errorf("read balances for %s: %w", user, err)
	}

	fromCredits := min(amount, bal.Credits)
	if fromCredits > 0 {
		if _, err := l.BurnUserCurrency(ctx, user, Credits, fromCredits, reason); err != nil {
			return Draw{}, fmt.Errorf("burn credits for %s: %w", user, err)
		}
	}

	fromChips := amount - fromCredits
	if fromChips > 0 {
		if _, err := l.DebitUserCreditHouse(ctx, user, fromChips, reason); err != nil {
			return Draw{Credits: fromCredits}, fmt.Errorf("debit chips for %s: %w", user, err)
		}
	}

	return Draw{Credits: fromCredits, Chips: fromChips}, nil
}

// RefundDraw reverses a draw: credits are granted back (reversing the burn)
// and chips are returned from the house (reversing the debit).
func RefundDraw(ctx context.Context, l Ledger, user string, d Draw, reason string) error {
	if d.Credits > 0 {
		if _, err := l.GrantUserCurrency(ctx, user, Credits, d.Credits, reason); err != nil {
			return fmt.Errorf("refund credits to %s: %w", user, err)
		}
	}
	if d.Chips > 0 {
		if _, err := l.CreditUserDebitHouse(ctx, user, d.Chips, reason); err != nil {
			return fmt.Errorf("refund chips to %s: %w", user, err)
		}
	}
	return nil
}
