package main

import (
	"context"
	"fmt"

	"github.com/highroller/derby/internal/config"
	"github.com/highroller/derby/internal/economy"
)

// LedgerCmd groups admin operations against the persistent economy.
type LedgerCmd struct {
	Balance BalanceCmd `cmd:"" help:"Show a participant's balances"`
	Grant   GrantCmd   `cmd:"" help:"Grant currency to a participant"`
	House   HouseCmd   `cmd:"" help:"Show the house bankroll"`
}

func openLedger(path string) (*economy.SQLiteLedger, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	return economy.OpenSQLite(cfg.Economy.DBPath, cfg.Economy.HouseBankroll)
}

// BalanceCmd prints one participant's balances.
type BalanceCmd struct {
	Config string `kong:"help='HCL config file'"`
	User   string `kong:"arg,help='Participant ID'"`
}

func (c *BalanceCmd) Run() error {
	store, err := openLedger(c.Config)
	if err != nil {
		return err
	}
	defer store.Close()

	bal, err := store.ReadBalances(context.Background(), c.User)
	if err != nil {
		return err
	}
	fmt.Printf("%s: %d credits, %d chips\n", c.User, bal.Credits, bal.Chips)
	return nil
}

// GrantCmd mints currency to a participant, e.g. for manual compensation
// after a logged refund failure.
type GrantCmd struct {
	Config   string `kong:"help='HCL config file'"`
	User     string `kong:"arg,help='Participant ID'"`
	Currency string `kong:"arg,enum='credits,chips',help='Currency to grant'"`
	Amount   int64  `kong:"arg,help='Amount to grant'"`
	Reason   string `kong:"default='admin grant',help='Reason recorded in the transaction log'"`
}

func (c *GrantCmd) Run() error {
	store, err := openLedger(c.Config)
	if err != nil {
		return err
	}
	defer store.Close()

	bal, err := store.GrantUserCurrency(context.Background(), c.User, economy.Currency(c.Currency), c.Amount, c.Reason)
	if err != nil {
		return err
	}
	fmt.Printf("%s: %d credits, %d chips\n", c.User, bal.Credits, bal.Chips)
	return nil
}

// HouseCmd prints the house bankroll.
type HouseCmd struct {
	Config string `kong:"help='HCL config file'"`
}

func (c *HouseCmd) Run() error {
	store, err := openLedger(c.Config)
	if err != nil {
		return err
	}
	defer store.Close()

	chips, err := store.ReadHouseBalance(context.Background())
	if err != nil {
		return err
	}
	fmt.Printf("house: %d chips\n", chips)
	return nil
}
