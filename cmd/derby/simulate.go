package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/coder/quartz"
	"golang.org/x/sync/errgroup"

	"github.com/highroller/derby/cmd/derby/shared"
	"github.com/highroller/derby/internal/config"
	"github.com/highroller/derby/internal/economy"
	"github.com/highroller/derby/internal/race"
	"github.com/highroller/derby/internal/render"
	"github.com/highroller/derby/internal/session"
)

// SimulateCmd runs one complete round against an in-memory economy, with
// concurrent bot bettors and a console renderer.
type SimulateCmd struct {
	Config string `kong:"help='HCL config file'"`
	Seed   *int64 `kong:"help='Deterministic seed for the round (optional)'"`
	Bots   int    `kong:"default='4',help='Number of bot bettors'"`
	Stake  int64  `kong:"default='100',help='Stake per bot'"`
	Debug  bool   `kong:"help='Enable debug logging'"`
}

func (c *SimulateCmd) Run() error {
	logger := shared.SetupLogger(c.Debug)

	cfg, err := config.Load(c.Config)
	if err != nil {
		return err
	}

	seed := time.Now().UnixNano()
	if c.Seed != nil {
		seed = *c.Seed
	}
	logger.Info("simulating round", "seed", seed, "bots", c.Bots, "stake", c.Stake)

	// Short timings so a demo round completes in a few seconds.
	sc := cfg.SessionConfig()
	sc.BetWindow = 30 * time.Second
	sc.CountdownSeconds = 2
	sc.StageInterval = 400 * time.Millisecond
	sc.DisplayDelay = 500 * time.Millisecond

	ledger := economy.NewMemoryLedger(cfg.Economy.HouseBankroll)
	bots := make([]string, c.Bots)
	for i := range bots {
		bots[i] = fmt.Sprintf("bot-%d", i+1)
		ledger.Seed(bots[i], economy.Balances{
			Credits: cfg.Economy.StartingCredits,
			Chips:   cfg.Economy.StartingChips,
		})
	}

	presenter := render.NewConsole(os.Stdout, sc.TrackLength)
	engine, err := session.NewEngine(sc, ledger, presenter, session.NopRoster{}, quartz.NewReal(), logger)
	if err != nil {
		return err
	}

	ctx := context.Background()
	round, err := engine.StartRound(ctx, "simulate", "host", seed)
	if err != nil {
		return err
	}

	// Bots bet concurrently; the actor serializes them.
	rng := race.NewRand(seed + 1)
	lanes := make([]int, len(bots))
	for i := range lanes {
		lanes[i] = rng.IntN(sc.Lanes)
	}
	g, gctx := errgroup.WithContext(ctx)
	for i, bot := range bots {
		g.Go(func() error {
			return round.PlaceBet(gctx, bot, lanes[i], c.Stake)
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("place bets: %w", err)
	}

	if err := round.Confirm(ctx, "host"); err != nil {
		return fmt.Errorf("confirm round: %w", err)
	}
	<-round.Done()

	result, ok := round.Result()
	if !ok {
		return fmt.Errorf("round closed without settlement")
	}

	fmt.Println()
	fmt.Printf("winning lanes: %v (multiplier %dx)\n", result.WinningLanes, result.Multiplier)
	for _, p := range result.Payouts {
		fmt.Printf("  %s: staked %d, paid %d\n", p.Participant, p.Stake, p.Amount)
	}
	fmt.Printf("chips collected %d, paid %d, house net %d, credits burned %d\n",
		result.ChipsCollected, result.ChipsPaid, result.HouseNet, result.CreditsBurned)

	house, err := ledger.ReadHouseBalance(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("house bankroll: %d\n", house)
	for _, bot := range bots {
		bal, err := ledger.ReadBalances(ctx, bot)
		if err != nil {
			return err
		}
		fmt.Printf("  %s: %d credits, %d chips\n", bot, bal.Credits, bal.Chips)
	}
	return nil
}
