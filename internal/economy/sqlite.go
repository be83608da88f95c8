package economy

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// SQLiteLedger persists accounts, the house bankroll and the append-only
// transaction log in a single sqlite database.
type SQLiteLedger struct {
	db *sql.DB
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS accounts (
	id      TEXT PRIMARY KEY,
	credits INTEGER NOT NULL DEFAULT 0 CHECK (credits >= 0),
	chips   INTEGER NOT NULL DEFAULT 0 CHECK (chips >= 0)
);
CREATE TABLE IF NOT EXISTS house (
	id    INTEGER PRIMARY KEY CHECK (id = 1),
	chips INTEGER NOT NULL CHECK (chips >= 0)
);
CREATE TABLE IF NOT EXISTS transactions (
	id       INTEGER PRIMARY KEY AUTOINCREMENT,
	ref      TEXT NOT NULL,
	account  TEXT NOT NULL,
	currency TEXT NOT NULL,
	delta    INTEGER NOT NULL,
	reason   TEXT NOT NULL,
	ts       INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_transactions_account ON transactions(account);
`

// OpenSQLite opens (creating if needed) a sqlite-backed ledger. The house
// row is seeded with houseChips only when the database is brand new.
func OpenSQLite(path string, houseChips int64) (*SQLiteLedger, error) {
	// _txlock=immediate makes BeginTx take the write lock up front, so
	// concurrent read-check-write primitives queue on the busy timeout
	// instead of failing with "database is locked" at the first UPDATE.
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("open sqlite ledger: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate sqlite ledger: %w", err)
	}
	if _, err := db.Exec(`INSERT OR IGNORE INTO house (id, chips) VALUES (1, ?)`, houseChips); err != nil {
		db.Close()
		return nil, fmt.Errorf("seed house bankroll: %w", err)
	}
	return &SQLiteLedger{db: db}, nil
}

// Close releases the underlying database handle.
func (s *SQLiteLedger) Close() error {
	return s.db.Close()
}

// CreateAccount inserts an account with the given starting balances. It is a
// no-op for accounts that already exist.
func (s *SQLiteLedger) CreateAccount(ctx context.Context, user string, bal Balances) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO accounts (id, credits, chips) VALUES (?, ?, ?)`,
		user, bal.Credits, bal.Chips)
	if err != nil {
		return fmt.Errorf("create account %s: %w", user, err)
	}
	return nil
}

// withTx runs fn inside an immediate transaction (via the _txlock DSN
// option) so a read-check-write sequence observes no interleaved writers.
func (s *SQLiteLedger) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin ledger tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (s *SQLiteLedger) appendTx(tx *sql.Tx, ref, account string, cur Currency, delta int64, reason string) error {
	_, err := tx.Exec(
		`INSERT INTO transactions (ref, account, currency, delta, reason, ts) VALUES (?, ?, ?, ?, ?, ?)`,
		ref, account, string(cur), delta, reason, time.Now().Unix())
	return err
}

func (s *SQLiteLedger) accountBalances(tx *sql.Tx, user string) (Balances, error) {
	var bal Balances
	err := tx.QueryRow(`SELECT credits, chips FROM accounts WHERE id = ?`, user).
		Scan(&bal.Credits, &bal.Chips)
	if errors.Is(err, sql.ErrNoRows) {
		return Balances{}, nil
	}
	return bal, err
}

func (s *SQLiteLedger) DebitUserCreditHouse(ctx context.Context, user string, amount int64, reason string) (Balances, error) {
	if amount <= 0 {
		return Balances{}, ErrInvalidAmount
	}
	var out Balances
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		bal, err := s.accountBalances(tx, user)
		if err != nil {
			return err
		}
		if bal.Chips < amount {
			return ErrInsufficientFunds
		}
		if _, err := tx.Exec(`UPDATE accounts SET chips = chips - ? WHERE id = ?`, amount, user); err != nil {
			return err
		}
		if _, err := tx.Exec(`UPDATE house SET chips = chips + ? WHERE id = 1`, amount); err != nil {
			return err
		}
		ref := uuid.New().String()
		if err := s.appendTx(tx, ref, user, Chips, -amount, reason); err != nil {
			return err
		}
		if err := s.appendTx(tx, ref, HouseAccount, Chips, amount, reason); err != nil {
			return err
		}
		out = Balances{Credits: bal.Credits, Chips: bal.Chips - amount}
		return nil
	})
	return out, err
}

func (s *SQLiteLedger) CreditUserDebitHouse(ctx context.Context, user string, amount int64, reason string) (Balances, error) {
	if amount <= 0 {
		return Balances{}, ErrInvalidAmount
	}
	var out Balances
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var house int64
		if err := tx.QueryRow(`SELECT chips FROM house WHERE id = 1`).Scan(&house); err != nil {
			return err
		}
		if house < amount {
			return ErrInsufficientHouse
		}
		bal, err := s.accountBalances(tx, user)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(`UPDATE house SET chips = chips - ? WHERE id = 1`, amount); err != nil {
			return err
		}
		if _, err := tx.Exec(
			`INSERT INTO accounts (id, credits, chips) VALUES (?, 0, ?)
			 ON CONFLICT(id) DO UPDATE SET chips = chips + excluded.chips`,
			user, amount); err != nil {
			return err
		}
		ref := uuid.New().String()
		if err := s.appendTx(tx, ref, HouseAccount, Chips, -amount, reason); err != nil {
			return err
		}
		if err := s.appendTx(tx, ref, user, Chips, amount, reason); err != nil {
			return err
		}
		out = Balances{Credits: bal.Credits, Chips: bal.Chips + amount}
		return nil
	})
	return out, err
}

func (s *SQLiteLedger) BurnUserCurrency(ctx context.Context, user string, cur Currency, amount int64, reason string) (Balances, error) {
	if amount <= 0 {
		return Balances{}, ErrInvalidAmount
	}
	var out Balances
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		bal, err := s.accountBalances(tx, user)
		if err != nil {
			return err
		}
		have := bal.Credits
		if cur == Chips {
			have = bal.Chips
		}
		if have < amount {
			return ErrInsufficientFunds
		}
		col := "credits"
		if cur == Chips {
			col = "chips"
		}
		if _, err := tx.Exec(`UPDATE accounts SET `+col+` = `+col+` - ? WHERE id = ?`, amount, user); err != nil {
			return err
		}
		if err := s.appendTx(tx, uuid.New().String(), user, cur, -amount, reason); err != nil {
			return err
		}
		out = bal
		if cur == Chips {
			out.Chips -= amount
		} else {
			out.Credits -= amount
		}
		return nil
	})
	return out, err
}

func (s *SQLiteLedger) GrantUserCurrency(ctx context.Context, user string, cur Currency, amount int64, reason string) (Balances, error) {
	if amount <= 0 {
		return Balances{}, ErrInvalidAmount
	}
	var out Balances
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		bal, err := s.accountBalances(tx, user)
		if err != nil {
			return err
		}
		credits, chips := int64(0), int64(0)
		if cur == Chips {
			chips = amount
		} else {
			credits = amount
		}
		if _, err := tx.Exec(
			`INSERT INTO accounts (id, credits, chips) VALUES (?, ?, ?)
			 ON CONFLICT(id) DO UPDATE SET credits = credits + excluded.credits, chips = chips + excluded.chips`,
			user, credits, chips); err != nil {
			return err
		}
		if err := s.appendTx(tx, uuid.New().String(), user, cur, amount, reason); err != nil {
			return err
		}
		out = Balances{Credits: bal.Credits + credits, Chips: bal.Chips + chips}
		return nil
	})
	return out, err
}

func (s *SQLiteLedger) ReadBalances(ctx context.Context, user string) (Balances, error) {
	var bal Balances
	err := s.db.QueryRowContext(ctx, `SELECT credits, chips FROM accounts WHERE id = ?`, user).
		Scan(&bal.Credits, &bal.Chips)
	if errors.Is(err, sql.ErrNoRows) {
		return Balances{}, ErrUnknownAccount
	}
	if err != nil {
		return Balances{}, fmt.Errorf("read balances for %s: %w", user, err)
	}
	return bal, nil
}

func (s *SQLiteLedger) ReadHouseBalance(ctx context.Context) (int64, error) {
	var chips int64
	if err := s.db.QueryRowContext(ctx, `SELECT chips FROM house WHERE id = 1`).Scan(&chips); err != nil {
		return 0, fmt.Errorf("read house bankroll: %w", err)
	}
	return chips, nil
}

var _ Ledger = (*SQLiteLedger)(nil)
