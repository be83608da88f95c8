// Package session owns the lifecycle of one in-progress wagering round:
// the bet book, the pot and exposure totals, and the timers that drive
// stage advances, payouts and idle timeouts.
//
// Each Session is a single-goroutine actor. User actions and timer
// callbacks are commands on one serialized queue, so a validation and the
// mutation it guards can never interleave with another action on the same
// round. Timer callbacks re-check status on arrival and are dropped as
// stale once the round is terminal.
package session

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/highroller/derby/internal/economy"
	"github.com/highroller/derby/internal/race"
)

type cmdKind int

const (
	cmdPlaceBet cmdKind = iota
	cmdConfirm
	cmdCancel
	cmdIdleTimeout
	cmdCountdownTick
	cmdStageTick
	cmdClear
	cmdSnapshot
)

type command struct {
	kind        cmdKind
	participant string
	selection   int
	amount      int64
	reply       chan error
	snap        chan Snapshot
}

// Session is one active round. All mutation happens on the actor goroutine;
// the exported methods are thin envelopes around the command queue.
type Session struct {
	id    string
	scope string
	host  string
	cfg   Config

	status        Status
	stage         int
	countdownLeft int
	lanes         []race.Lane
	bets          map[string]*Bet
	order         []string
	totalPot      int64
	notice        string

	ledger    economy.Ledger
	resolver  race.Resolver
	presenter Presenter
	roster    Roster
	clock     quartz.Clock
	logger    *log.Logger

	cmds chan command
	done chan struct{}

	idleTimer      *quartz.Timer
	countdownTimer *quartz.Timer
	stageTimer     *quartz.Timer
	clearTimer     *quartz.Timer

	// onClose removes the session from its registry; set before start.
	onClose func()

	result    *Result
	finalSnap Snapshot
}

func newSession(id, scope, host string, cfg Config, lanes []race.Lane, resolver race.Resolver,
	ledger economy.Ledger, presenter Presenter, roster Roster, clock quartz.Clock, logger *log.Logger) *Session {
	return &Session{
		id:        id,
		scope:     scope,
		host:      host,
		cfg:       cfg,
		status:    StatusBetting,
		lanes:     lanes,
		bets:      make(map[string]*Bet),
		ledger:    ledger,
		resolver:  resolver,
		presenter: presenter,
		roster:    roster,
		clock:     clock,
		logger:    logger.With("session", id, "scope", scope),
		cmds:      make(chan command, 16),
		done:      make(chan struct{}),
	}
}

// start arms the idle timer and launches the actor goroutine.
func (s *Session) start() {
	s.idleTimer = s.clock.AfterFunc(s.cfg.BetWindow, func() {
		s.enqueue(command{kind: cmdIdleTimeout})
	})
	go s.run()
}

func (s *Session) run() {
	s.render()
	for {
		select {
		case c := <-s.cmds:
			s.handle(c)
		case <-s.done:
			return
		}
	}
}

// enqueue delivers a timer-originated command, dropping it if the round
// already closed.
func (s *Session) enqueue(c command) {
	select {
	case s.cmds <- c:
	case <-s.done:
	}
}

// call submits a user command and waits for the actor's reply. The context
// only bounds the wait: once the command is accepted the engine completes
// the money operation regardless.
func (s *Session) call(ctx context.Context, c command) error {
	c.reply = make(chan error, 1)
	select {
	case s.cmds <- c:
	case <-s.done:
		return ErrStaleSession
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-c.reply:
		return err
	case <-s.done:
		// The handler may have replied just before closing.
		select {
		case err := <-c.reply:
			return err
		default:
			return ErrStaleSession
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) handle(c command) {
	if c.kind == cmdSnapshot {
		c.snap <- s.snapshot()
		return
	}

	var err error
	switch c.kind {
	case cmdPlaceBet:
		err = s.handlePlaceBet(c.participant, c.selection, c.amount)
	case cmdConfirm:
		err = s.handleConfirm(c.participant)
	case cmdCancel:
		err = s.handleCancel(c.participant)
	case cmdIdleTimeout:
		s.handleIdleTimeout()
	case cmdCountdownTick:
		s.handleCountdownTick()
	case cmdStageTick:
		s.handleStageTick()
	case cmdClear:
		s.close()
	}
	if c.reply != nil {
		c.reply <- err
	}
}

// ID returns the round's identifier.
func (s *Session) ID() string { return s.id }

// Scope returns the channel/scope the round belongs to.
func (s *Session) Scope() string { return s.scope }

// Host returns the participant who opened the round.
func (s *Session) Host() string { return s.host }

// Done is closed once the round is terminal and cleared from its registry.
func (s *Session) Done() <-chan struct{} { return s.done }

// PlaceBet places a new bet or changes an existing one. During the betting
// window stake and selection change fee-free; once the race is running only
// a selection swap is allowed and it costs a fee drawn credits-first.
func (s *Session) PlaceBet(ctx context.Context, participant string, selection int, amount int64) error {
	return s.call(ctx, command{kind: cmdPlaceBet, participant: participant, selection: selection, amount: amount})
}

// Confirm locks betting and starts the countdown. Host or moderator only;
// requires at least one bet.
func (s *Session) Confirm(ctx context.Context, actor string) error {
	return s.call(ctx, command{kind: cmdConfirm, participant: actor})
}

// Cancel aborts the round and refunds every stake and fee in full. Host or
// moderator only.
func (s *Session) Cancel(ctx context.Context, actor string) error {
	return s.call(ctx, command{kind: cmdCancel, participant: actor})
}

// Snapshot returns a consistent view of the round.
func (s *Session) Snapshot(ctx context.Context) (Snapshot, error) {
	c := command{kind: cmdSnapshot, snap: make(chan Snapshot, 1)}
	select {
	case s.cmds <- c:
	case <-s.done:
		return s.finalSnap, nil
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
	select {
	case snap := <-c.snap:
		return snap, nil
	case <-s.done:
		select {
		case snap := <-c.snap:
			return snap, nil
		default:
			return s.finalSnap, nil
		}
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
}

// Result returns the settlement outcome once the round has closed.
func (s *Session) Result() (Result, bool) {
	select {
	case <-s.done:
		if s.result != nil {
			return *s.result, true
		}
		return Result{}, false
	default:
		return Result{}, false
	}
}

// FinalSnapshot returns the last rendered state once the round has closed.
func (s *Session) FinalSnapshot() (Snapshot, bool) {
	select {
	case <-s.done:
		return s.finalSnap, true
	default:
		return Snapshot{}, false
	}
}

func (s *Session) handlePlaceBet(participant string, selection int, amount int64) error {
	switch s.status {
	case StatusBetting:
		return s.placeOrChange(participant, selection, amount)
	case StatusRunning:
		return s.swapSelection(participant, selection, amount)
	case StatusCountdown:
		return fmt.Errorf("%w: bets are locked during the countdown", ErrNotAcceptingBets)
	default:
		return ErrStaleSession
	}
}

func (s *Session) placeOrChange(participant string, selection int, amount int64) error {
	if selection < 0 || selection >= len(s.lanes) {
		return fmt.Errorf("%w: lane %d out of range", ErrValidation, selection)
	}
	if amount <= 0 {
		return fmt.Errorf("%w: stake must be positive", ErrValidation)
	}

	ctx := context.Background()
	bet, exists := s.bets[participant]
	var current int64
	if exists {
		current = bet.CurrentStake
	}

	switch {
	case amount > current:
		if err := s.checkExposure(ctx, s.totalPot-current+amount); err != nil {
			return err
		}
		draw, err := s.draw(ctx, participant, amount-current, "derby stake")
		if err != nil {
			return err
		}
		if !exists {
			bet = &Bet{Participant: participant}
			s.bets[participant] = bet
			s.order = append(s.order, participant)
			s.logger.Debug("bet placed", "participant", participant, "lane", selection, "stake", amount)
		} else {
			bet.Changes++
		}
		bet.CreditsDrawn += draw.Credits
		bet.ChipsDrawn += draw.Chips

	case amount < current:
		// Reverse chips before credits, mirroring the credits-first draw.
		back := current - amount
		refund := economy.Draw{Chips: min(back, bet.ChipsDrawn)}
		refund.Credits = back - refund.Chips
		if err := economy.RefundDraw(ctx, s.ledger, participant, refund, "derby stake reduced"); err != nil {
			return fmt.Errorf("refund stake delta: %w", err)
		}
		bet.ChipsDrawn -= refund.Chips
		bet.CreditsDrawn -= refund.Credits
		bet.Changes++

	default:
		if exists {
			bet.Changes++
		}
	}

	bet.Selection = selection
	bet.CurrentStake = amount
	bet.OriginalStake = amount // frozen once the race starts
	s.totalPot += amount - current
	s.render()
	return nil
}

func (s *Session) swapSelection(participant string, selection int, amount int64) error {
	bet, ok := s.bets[participant]
	if !ok {
		return fmt.Errorf("%w: no new bets once the race is running", ErrNotAcceptingBets)
	}
	if selection < 0 || selection >= len(s.lanes) {
		return fmt.Errorf("%w: lane %d out of range", ErrValidation, selection)
	}
	if amount != 0 && amount != bet.CurrentStake {
		return fmt.Errorf("%w: stake cannot change once the race is running", ErrValidation)
	}
	if selection == bet.Selection {
		return fmt.Errorf("%w: already on lane %d", ErrValidation, selection)
	}

	fee := swapFee(bet.OriginalStake, s.stage)
	draw, err := s.draw(context.Background(), participant, fee, "derby swap fee")
	if err != nil {
		return err
	}
	bet.FeeCredits += draw.Credits
	bet.FeeChips += draw.Chips
	bet.Selection = selection
	bet.Changes++
	s.logger.Debug("selection swapped", "participant", participant, "lane", selection, "fee", fee, "stage", s.stage)
	s.render()
	return nil
}

// swapFee escalates with the stage index: ceil(stake * max(1, stage/2)).
func swapFee(originalStake int64, stage int) int64 {
	mult := float64(stage) / 2
	if mult < 1 {
		mult = 1
	}
	return int64(math.Ceil(float64(originalStake) * mult))
}

// draw funds an amount credits-first, issuing the compensating grant for a
// partially-drawn stake before the error is reported upward.
func (s *Session) draw(ctx context.Context, participant string, amount int64, reason string) (economy.Draw, error) {
	draw, err := economy.DrawStake(ctx, s.ledger, participant, amount, reason)
	if err != nil {
		if draw.Credits > 0 {
			if _, gerr := s.ledger.GrantUserCurrency(ctx, participant, economy.Credits, draw.Credits, reason+" compensation"); gerr != nil {
				s.logger.Error("compensating grant failed; manual entry required",
					"participant", participant, "credits", draw.Credits, "error", gerr)
			}
		}
		return economy.Draw{}, err
	}
	return draw, nil
}

func (s *Session) checkExposure(ctx context.Context, prospectivePot int64) error {
	house, err := s.ledger.ReadHouseBalance(ctx)
	if err != nil {
		return fmt.Errorf("read house bankroll: %w", err)
	}
	if prospectivePot*s.cfg.BaseMultiplier > house {
		return fmt.Errorf("%w: pot %d at %dx against bankroll %d",
			ErrExposureExceeded, prospectivePot, s.cfg.BaseMultiplier, house)
	}
	return nil
}

func (s *Session) handleConfirm(actor string) error {
	if s.status.Terminal() {
		return ErrStaleSession
	}
	if s.status != StatusBetting {
		return fmt.Errorf("%w: round already confirmed", ErrNotAcceptingBets)
	}
	if !s.privileged(actor) {
		return ErrNotAuthorized
	}
	if len(s.bets) == 0 {
		return ErrNoBets
	}

	s.stopTimers()
	s.status = StatusCountdown
	s.countdownLeft = s.cfg.CountdownSeconds
	s.countdownTimer = s.clock.AfterFunc(time.Second, func() {
		s.enqueue(command{kind: cmdCountdownTick})
	})
	s.logger.Info("betting locked", "bets", len(s.bets), "pot", s.totalPot)
	s.render()
	return nil
}

func (s *Session) handleCountdownTick() {
	if s.status != StatusCountdown {
		return
	}
	s.countdownLeft--
	if s.countdownLeft > 0 {
		s.countdownTimer = s.clock.AfterFunc(time.Second, func() {
			s.enqueue(command{kind: cmdCountdownTick})
		})
		s.render()
		return
	}

	s.status = StatusRunning
	s.stage = 0
	s.scheduleStage()
	s.logger.Info("race started", "lanes", len(s.lanes), "pot", s.totalPot)
	s.render()
}

func (s *Session) scheduleStage() {
	s.stageTimer = s.clock.AfterFunc(s.cfg.StageInterval, func() {
		s.enqueue(command{kind: cmdStageTick})
	})
}

func (s *Session) handleStageTick() {
	if s.status != StatusRunning {
		return
	}
	s.resolver.Advance(s.lanes)
	s.stage++

	if _, ok := s.resolver.Finished(s.lanes); ok {
		s.finish()
		return
	}
	if s.stage >= s.cfg.MaxStages {
		s.resolver.ForceFinish(s.lanes)
		s.finish()
		return
	}
	s.scheduleStage()
	s.render()
}

// finish settles the round. Reached only from the stage handler while
// running, so settlement runs exactly once per session.
func (s *Session) finish() {
	s.stopTimers()
	s.status = StatusFinished

	result := Settle(s.lanes, s.betsInOrder(), s.cfg.BaseMultiplier, s.cfg.TrackLength)
	ctx := context.Background()
	for _, p := range result.Payouts {
		if _, err := s.ledger.CreditUserDebitHouse(ctx, p.Participant, p.Amount, "derby win"); err != nil {
			s.logger.Error("payout failed; manual entry required",
				"participant", p.Participant, "amount", p.Amount, "error", err)
		}
	}
	s.result = &result

	s.logger.Info("race finished",
		"winningLanes", result.WinningLanes,
		"multiplier", result.Multiplier,
		"paid", result.ChipsPaid,
		"houseNet", result.HouseNet)
	s.render()

	s.clearTimer = s.clock.AfterFunc(s.cfg.DisplayDelay, func() {
		s.enqueue(command{kind: cmdClear})
	})
}

func (s *Session) handleCancel(actor string) error {
	if s.status.Terminal() {
		return ErrStaleSession
	}
	if !s.privileged(actor) {
		return ErrNotAuthorized
	}

	s.stopTimers()
	s.status = StatusCancelled
	s.refundAll("derby cancelled")
	s.logger.Info("round cancelled", "by", actor)
	s.notify("Race cancelled. All stakes and fees returned.")
	s.render()
	s.close()
	return nil
}

func (s *Session) handleIdleTimeout() {
	if s.status != StatusBetting {
		return
	}
	s.stopTimers()
	s.status = StatusTimedOut
	s.refundAll("derby timeout")
	s.logger.Info("round timed out before confirmation")
	s.notify("Race expired before starting. All stakes returned.")
	s.render()
	s.close()
}

// refundAll reverses every bet in full: drawn credits and credit fees are
// granted back, chips come back out of the house. A failed refund is logged
// and never blocks the remaining bets.
func (s *Session) refundAll(reason string) {
	ctx := context.Background()
	failures := 0
	for _, name := range s.order {
		bet, ok := s.bets[name]
		if !ok {
			continue
		}
		back := economy.Draw{Credits: bet.CreditsDrawn, Chips: bet.ChipsDrawn}.
			Add(economy.Draw{Credits: bet.FeeCredits, Chips: bet.FeeChips})
		if err := economy.RefundDraw(ctx, s.ledger, name, back, reason); err != nil {
			failures++
			s.logger.Error("refund failed; manual compensation required",
				"participant", name, "credits", back.Credits, "chips", back.Chips, "error", err)
			continue
		}
		s.totalPot -= bet.CurrentStake
		bet.CurrentStake = 0
		bet.CreditsDrawn, bet.ChipsDrawn = 0, 0
		bet.FeeCredits, bet.FeeChips = 0, 0
		delete(s.bets, name)
	}
	if failures > 0 {
		s.notice = fmt.Sprintf("%d refund(s) failed and were logged for manual compensation", failures)
	}
}

func (s *Session) privileged(actor string) bool {
	return s.roster.IsHost(actor, s.host) || s.roster.IsModerator(actor)
}

func (s *Session) stopTimers() {
	for _, t := range []**quartz.Timer{&s.idleTimer, &s.countdownTimer, &s.stageTimer, &s.clearTimer} {
		if *t != nil {
			(*t).Stop()
			*t = nil
		}
	}
}

// close clears the round from its registry and releases waiters. The final
// snapshot is captured first so late observers still see the outcome.
func (s *Session) close() {
	s.finalSnap = s.snapshot()
	if s.onClose != nil {
		s.onClose()
	}
	close(s.done)
}

func (s *Session) betsInOrder() []Bet {
	out := make([]Bet, 0, len(s.order))
	for _, name := range s.order {
		if b, ok := s.bets[name]; ok {
			out = append(out, *b)
		}
	}
	return out
}

func (s *Session) snapshot() Snapshot {
	lanes := make([]race.Lane, len(s.lanes))
	copy(lanes, s.lanes)
	return Snapshot{
		ID:            s.id,
		Scope:         s.scope,
		Host:          s.host,
		Status:        s.status,
		Stage:         s.stage,
		CountdownLeft: s.countdownLeft,
		Lanes:         lanes,
		Bets:          s.betsInOrder(),
		TotalPot:      s.totalPot,
		Exposure:      s.totalPot * s.cfg.BaseMultiplier,
		Notice:        s.notice,
	}
}

func (s *Session) render() {
	if err := s.presenter.Render(s.snapshot()); err != nil {
		s.logger.Warn("render failed", "error", err)
	}
}

func (s *Session) notify(text string) {
	if err := s.presenter.Notify(s.snapshot(), text, s.cfg.DisplayDelay); err != nil {
		s.logger.Warn("notify failed", "error", err)
	}
}
