package session

import (
	"time"

	"github.com/highroller/derby/internal/race"
)

// Status is the lifecycle state of a round.
type Status string

const (
	StatusBetting   Status = "betting"
	StatusCountdown Status = "countdown"
	StatusRunning   Status = "running"
	StatusFinished  Status = "finished"
	StatusCancelled Status = "cancelled"
	StatusTimedOut  Status = "timed_out"
)

// Terminal reports whether no further money movement may occur.
func (s Status) Terminal() bool {
	switch s {
	case StatusFinished, StatusCancelled, StatusTimedOut:
		return true
	}
	return false
}

// Bet is one participant's position in the round, including the exact
// funding breakdown needed to reverse it.
type Bet struct {
	Participant   string
	Selection     int
	OriginalStake int64
	CurrentStake  int64
	CreditsDrawn  int64
	ChipsDrawn    int64
	FeeCredits    int64
	FeeChips      int64
	Changes       int
}

// Snapshot is an immutable view of a round, safe to hand to renderers.
type Snapshot struct {
	ID            string
	Scope         string
	Host          string
	Status        Status
	Stage         int
	CountdownLeft int
	Lanes         []race.Lane
	Bets          []Bet
	TotalPot      int64
	Exposure      int64
	Notice        string
}

// Presenter renders round state to whatever surface hosts the engine. The
// engine only checks errors for logging.
type Presenter interface {
	Render(snap Snapshot) error
	Notify(snap Snapshot, text string, duration time.Duration) error
}

// NopPresenter discards all output.
type NopPresenter struct{}

func (NopPresenter) Render(Snapshot) error { return nil }
func (NopPresenter) Notify(Snapshot, string, time.Duration) error { return nil }

// Roster answers identity and moderation queries for confirm/cancel
// authorization. The engine supplies the round's host, so IsHost is usually
// a plain comparison; platforms with shared hosting can override it.
type Roster interface {
	IsHost(participant, host string) bool
	IsModerator(participant string) bool
}

// NopRoster recognizes no moderators, leaving the host as the only
// privileged participant.
type NopRoster struct{}

func (NopRoster) IsHost(participant, host string) bool { return participant == host }
func (NopRoster) IsModerator(string) bool { return false }
