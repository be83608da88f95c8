package economy

import "errors"

var (
	// ErrInsufficientFunds indicates the user's balance cannot cover the
	// requested debit or burn.
	ErrInsufficientFunds = errors.New("economy: insufficient funds")

	// ErrInsufficientHouse indicates the house bankroll cannot cover the
	// requested payout.
	ErrInsufficientHouse = errors.New("economy: insufficient house bankroll")

	// ErrInvalidAmount indicates a non-positive amount was requested.
	ErrInvalidAmount = errors.New("economy: amount must be positive")

	// ErrUnknownAccount indicates a read against an account that has never
	// been seeded or transacted.
	ErrUnknownAccount = errors.New("economy: unknown account")
)
