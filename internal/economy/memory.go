package economy

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryLedger is an in-process Ledger backed by maps. It is used by the
// simulator and by tests; the sqlite store carries the same semantics for
// deployments that persist the economy.
type MemoryLedger struct {
	mu       sync.Mutex
	accounts map[string]Balances
	house    int64
	log      []Transaction
	now      func() time.Time
}

// NewMemoryLedger creates a ledger with the given house bankroll.
func NewMemoryLedger(houseChips int64) *MemoryLedger {
	return &MemoryLedger{
		accounts: make(map[string]Balances),
		house:    houseChips,
		now:      time.Now,
	}
}

// Seed sets an account's balances directly, bypassing the transaction log.
func (m *MemoryLedger) Seed(user string, bal Balances) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[user] = bal
}

// Transactions returns a copy of the append-only log.
func (m *MemoryLedger) Transactions() []Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Transaction, len(m.log))
	copy(out, m.log)
	return out
}

func (m *MemoryLedger) append(ref, account string, cur Currency, delta int64, reason string) {
	m.log = append(m.log, Transaction{
		Ref:      ref,
		Account:  account,
		Currency: cur,
		Delta:    delta,
		Reason:   reason,
		At:       m.now(),
	})
}

func (m *MemoryLedger) DebitUserCreditHouse(ctx context.Context, user string, amount int64, reason string) (Balances, error) {
	if amount <= 0 {
		return Balances{}, ErrInvalidAmount
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	bal := m.accounts[user]
	if bal.Chips < amount {
		return bal, ErrInsufficientFunds
	}
	bal.Chips -= amount
	m.accounts[user] = bal
	m.house += amount

	ref := uuid.New().String()
	m.append(ref, user, Chips, -amount, reason)
	m.append(ref, HouseAccount, Chips, amount, reason)
	return bal, nil
}

func (m *MemoryLedger) CreditUserDebitHouse(ctx context.Context, user string, amount int64, reason string) (Balances, error) {
	if amount <= 0 {
		return Balances{}, ErrInvalidAmount
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.house < amount {
		return m.accounts[user], ErrInsufficientHouse
	}
	m.house -= amount
	bal := m.accounts[user]
	bal.Chips += amount
	m.accounts[user] = bal

	ref := uuid.New().String()
	m.append(ref, HouseAccount, Chips, -amount, reason)
	m.append(ref, user, Chips, amount, reason)
	return bal, nil
}

func (m *MemoryLedger) BurnUserCurrency(ctx context.Context, user string, cur Currency, amount int64, reason string) (Balances, error) {
	if amount <= 0 {
		return Balances{}, ErrInvalidAmount
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	bal := m.accounts[user]
	switch cur {
	case Credits:
		if bal.Credits < amount {
			return bal, ErrInsufficientFunds
		}
		bal.Credits -= amount
	case Chips:
		if bal.Chips < amount {
			return bal, ErrInsufficientFunds
		}
		bal.Chips -= amount
	}
	m.accounts[user] = bal
	m.append(uuid.New().String(), user, cur, -amount, reason)
	return bal, nil
}

func (m *MemoryLedger) GrantUserCurrency(ctx context.Context, user string, cur Currency, amount int64, reason string) (Balances, error) {
	if amount <= 0 {
		return Balances{}, ErrInvalidAmount
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	bal := m.accounts[user]
	switch cur {
	case Credits:
		bal.Credits += amount
	case Chips:
		bal.Chips += amount
	}
	m.accounts[user] = bal
	m.append(uuid.New().String(), user, cur, amount, reason)
	return bal, nil
}

func (m *MemoryLedger) ReadBalances(ctx context.Context, user string) (Balances, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.accounts[user], nil
}

func (m *MemoryLedger) ReadHouseBalance(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.house, nil
}

var _ Ledger = (*MemoryLedger)(nil)
