// Package economy provides the atomic money operations the wagering engine
// is built on: a split-currency ledger (soft Credits, hard Chips backed by a
// shared house bankroll) with an append-only transaction log.
package economy

import (
	"context"
	"time"
)

// Currency identifies one of the two balances carried per account.
type Currency string

const (
	// Credits are the soft currency. They are spent before Chips and are
	// destroyed (burned) rather than transferred when lost.
	Credits Currency = "credits"

	// Chips are the hard currency backed by the house bankroll.
	Chips Currency = "chips"
)

// HouseAccount is the account name used for house-side transaction rows.
const HouseAccount = "house"

// Balances is a point-in-time snapshot of one account.
type Balances struct {
	Credits int64
	Chips   int64
}

// Transaction is one append-only ledger row. Rows produced by a single
// primitive share a Ref so the paired legs can be correlated later.
type Transaction struct {
	Ref      string
	Account  string
	Currency Currency
	Delta    int64
	Reason   string
	At       time.Time
}

// Ledger is the set of atomic primitives the session engine depends on.
// Every mutation appends one or two transaction rows and enforces
// non-negative balances, returning the caller's post-op balances.
type Ledger interface {
	// DebitUserCreditHouse moves chips from the user to the house.
	// Fails with ErrInsufficientFunds if the user cannot cover amount.
	DebitUserCreditHouse(ctx context.Context, user string, amount int64, reason string) (Balances, error)

	// CreditUserDebitHouse moves chips from the house to the user.
	// Fails with ErrInsufficientHouse if the bankroll cannot cover amount.
	CreditUserDebitHouse(ctx context.Context, user string, amount int64, reason string) (Balances, error)

	// BurnUserCurrency destroys currency held by the user. Fails with
	// ErrInsufficientFunds if the balance cannot cover amount.
	BurnUserCurrency(ctx context.Context, user string, cur Currency, amount int64, reason string) (Balances, error)

	// GrantUserCurrency mints currency to the user. Used for refunds and
	// admin grants; never fails for a valid amount.
	GrantUserCurrency(ctx context.Context, user string, cur Currency, amount int64, reason string) (Balances, error)

	// ReadBalances returns the user's current balances.
	ReadBalances(ctx context.Context, user string) (Balances, error)

	// ReadHouseBalance returns the chips currently backing the house.
	ReadHouseBalance(ctx context.Context) (int64, error)
}
