package session

import (
	"fmt"
	"time"
)

// Config carries the tunables for one round's lifecycle.
type Config struct {
	Lanes            int           // wagerable lanes per round
	TrackLength      int           // cells to the finish line
	BaseMultiplier   int64         // sole-winner payout multiplier
	MaxStages        int           // stage cap before the leader is forced home
	BetWindow        time.Duration // idle timeout while betting is open
	CountdownSeconds int           // countdown length, ticked at 1 Hz
	StageInterval    time.Duration // delay between stage advances
	DisplayDelay     time.Duration // how long a finished round stays visible
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		Lanes:            6,
		TrackLength:      20,
		BaseMultiplier:   4,
		MaxStages:        40,
		BetWindow:        2 * time.Minute,
		CountdownSeconds: 5,
		StageInterval:    2500 * time.Millisecond,
		DisplayDelay:     5 * time.Second,
	}
}

// Validate rejects configurations the engine cannot run.
func (c Config) Validate() error {
	if c.Lanes < 2 || c.Lanes > 16 {
		return fmt.Errorf("lanes must be between 2 and 16, got %d", c.Lanes)
	}
	if c.TrackLength < 2 {
		return fmt.Errorf("track length must be at least 2, got %d", c.TrackLength)
	}
	if c.BaseMultiplier < 1 {
		return fmt.Errorf("base multiplier must be at least 1, got %d", c.BaseMultiplier)
	}
	if c.MaxStages < 1 {
		return fmt.Errorf("max stages must be at least 1, got %d", c.MaxStages)
	}
	if c.BetWindow <= 0 {
		return fmt.Errorf("bet window must be positive, got %s", c.BetWindow)
	}
	if c.CountdownSeconds < 1 {
		return fmt.Errorf("countdown must be at least 1 second, got %d", c.CountdownSeconds)
	}
	if c.StageInterval <= 0 {
		return fmt.Errorf("stage interval must be positive, got %s", c.StageInterval)
	}
	return nil
}
