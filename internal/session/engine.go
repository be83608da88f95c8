package session

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/google/uuid"

	"github.com/highroller/derby/internal/economy"
	"github.com/highroller/derby/internal/race"
)

// Engine wires the economy, the outcome resolver and the presenter together
// and starts rounds, enforcing one active session per scope.
type Engine struct {
	cfg       Config
	ledger    economy.Ledger
	presenter Presenter
	roster    Roster
	clock     quartz.Clock
	logger    *log.Logger
	registry  *Registry
}

// NewEngine creates an engine. Pass quartz.NewReal() outside of tests.
func NewEngine(cfg Config, ledger economy.Ledger, presenter Presenter, roster Roster,
	clock quartz.Clock, logger *log.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("engine config: %w", err)
	}
	if presenter == nil {
		presenter = NopPresenter{}
	}
	if roster == nil {
		roster = NopRoster{}
	}
	return &Engine{
		cfg:       cfg,
		ledger:    ledger,
		presenter: presenter,
		roster:    roster,
		clock:     clock,
		logger:    logger.WithPrefix("engine"),
		registry:  NewRegistry(logger),
	}, nil
}

// Registry exposes the active-session registry.
func (e *Engine) Registry() *Registry {
	return e.registry
}

// StartRound opens a new betting round in scope, hosted by host. The seed
// determines the lane field and race movement, making rounds reproducible.
func (e *Engine) StartRound(ctx context.Context, scope, host string, seed int64) (*Session, error) {
	lanes := race.NewField(race.NewRand(seed), e.cfg.Lanes)
	resolver := race.NewOddsResolver(seed+1, e.cfg.TrackLength)

	s := newSession(uuid.New().String(), scope, host, e.cfg, lanes, resolver,
		e.ledger, e.presenter, e.roster, e.clock, e.logger)
	if err := e.registry.Insert(scope, s); err != nil {
		return nil, err
	}
	s.onClose = func() { e.registry.Remove(scope, s) }

	e.logger.Info("round opened", "scope", scope, "host", host, "session", s.ID(), "seed", seed)
	s.start()
	return s, nil
}

// Session returns the active round for a scope, if any.
func (e *Engine) Session(scope string) (*Session, bool) {
	return e.registry.Get(scope)
}
