// Package config loads the application configuration from an HCL file,
// overlaying defaults for anything unset.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclwrite"

	"github.com/highroller/derby/internal/session"
)

// Config is the complete application configuration.
type Config struct {
	Economy EconomySettings
	Round   RoundSettings
}

// fileConfig mirrors Config for decoding. Blocks are pointers so a file may
// omit either one.
type fileConfig struct {
	Economy *EconomySettings `hcl:"economy,block"`
	Round   *RoundSettings   `hcl:"round,block"`
}

// EconomySettings configures the persistent ledger.
type EconomySettings struct {
	DBPath          string `hcl:"db_path,optional"`
	HouseBankroll   int64  `hcl:"house_bankroll,optional"`
	StartingCredits int64  `hcl:"starting_credits,optional"`
	StartingChips   int64  `hcl:"starting_chips,optional"`
}

// RoundSettings configures round lifecycle and race shape.
type RoundSettings struct {
	Lanes            int   `hcl:"lanes,optional"`
	TrackLength      int   `hcl:"track_length,optional"`
	BaseMultiplier   int64 `hcl:"base_multiplier,optional"`
	MaxStages        int   `hcl:"max_stages,optional"`
	BetWindowSeconds int   `hcl:"bet_window_seconds,optional"`
	CountdownSeconds int   `hcl:"countdown_seconds,optional"`
	StageIntervalMS  int   `hcl:"stage_interval_ms,optional"`
	DisplayDelaySecs int   `hcl:"display_delay_seconds,optional"`
}

// Default returns the built-in configuration.
func Default() *Config {
	sc := session.DefaultConfig()
	return &Config{
		Economy: EconomySettings{
			DBPath:          "derby.sqlite",
			HouseBankroll:   1_000_000,
			StartingCredits: 500,
			StartingChips:   2_000,
		},
		Round: RoundSettings{
			Lanes:            sc.Lanes,
			TrackLength:      sc.TrackLength,
			BaseMultiplier:   sc.BaseMultiplier,
			MaxStages:        sc.MaxStages,
			BetWindowSeconds: int(sc.BetWindow / time.Second),
			CountdownSeconds: sc.CountdownSeconds,
			StageIntervalMS:  int(sc.StageInterval / time.Millisecond),
			DisplayDelaySecs: int(sc.DisplayDelay / time.Second),
		},
	}
}

// Load reads filename if it exists, applying defaults for missing values.
// A missing file yields the defaults.
func Load(filename string) (*Config, error) {
	cfg := Default()
	if filename == "" {
		return cfg, nil
	}
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return cfg, nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("parse %s: %s", filename, diags.Error())
	}

	var loaded fileConfig
	if diags := gohcl.DecodeBody(file.Body, nil, &loaded); diags.HasErrors() {
		return nil, fmt.Errorf("decode %s: %s", filename, diags.Error())
	}
	merge(cfg, &loaded)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func merge(base *Config, loaded *fileConfig) {
	if e := loaded.Economy; e != nil {
		if e.DBPath != "" {
			base.Economy.DBPath = e.DBPath
		}
		if e.HouseBankroll != 0 {
			base.Economy.HouseBankroll = e.HouseBankroll
		}
		if e.StartingCredits != 0 {
			base.Economy.StartingCredits = e.StartingCredits
		}
		if e.StartingChips != 0 {
			base.Economy.StartingChips = e.StartingChips
		}
	}
	if r := loaded.Round; r != nil {
		if r.Lanes != 0 {
			base.Round.Lanes = r.Lanes
		}
		if r.TrackLength != 0 {
			base.Round.TrackLength = r.TrackLength
		}
		if r.BaseMultiplier != 0 {
			base.Round.BaseMultiplier = r.BaseMultiplier
		}
		if r.MaxStages != 0 {
			base.Round.MaxStages = r.MaxStages
		}
		if r.BetWindowSeconds != 0 {
			base.Round.BetWindowSeconds = r.BetWindowSeconds
		}
		if r.CountdownSeconds != 0 {
			base.Round.CountdownSeconds = r.CountdownSeconds
		}
		if r.StageIntervalMS != 0 {
			base.Round.StageIntervalMS = r.StageIntervalMS
		}
		if r.DisplayDelaySecs != 0 {
			base.Round.DisplayDelaySecs = r.DisplayDelaySecs
		}
	}
}

// Render returns the configuration as HCL text, suitable for seeding a
// config file.
func (c *Config) Render() []byte {
	f := hclwrite.NewEmptyFile()
	gohcl.EncodeIntoBody(&fileConfig{Economy: &c.Economy, Round: &c.Round}, f.Body())
	return f.Bytes()
}

// Validate checks the configuration, delegating round checks to the
// session package.
func (c *Config) Validate() error {
	if c.Economy.HouseBankroll < 0 {
		return fmt.Errorf("house bankroll cannot be negative, got %d", c.Economy.HouseBankroll)
	}
	return c.SessionConfig().Validate()
}

// SessionConfig converts the round settings into the engine's config type.
func (c *Config) SessionConfig() session.Config {
	return session.Config{
		Lanes:            c.Round.Lanes,
		TrackLength:      c.Round.TrackLength,
		BaseMultiplier:   c.Round.BaseMultiplier,
		MaxStages:        c.Round.MaxStages,
		BetWindow:        time.Duration(c.Round.BetWindowSeconds) * time.Second,
		CountdownSeconds: c.Round.CountdownSeconds,
		StageInterval:    time.Duration(c.Round.StageIntervalMS) * time.Millisecond,
		DisplayDelay:     time.Duration(c.Round.DisplayDelaySecs) * time.Second,
	}
}
