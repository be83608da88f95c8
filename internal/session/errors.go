package session

import "errors"

var (
	// ErrValidation indicates a bad selection or amount, rejected before
	// any state change.
	ErrValidation = errors.New("session: invalid bet")

	// ErrExposureExceeded indicates the change would push total house
	// exposure beyond the observed bankroll.
	ErrExposureExceeded = errors.New("session: house exposure exceeded")

	// ErrNotAcceptingBets indicates the round is in a status that does not
	// allow the requested bet action.
	ErrNotAcceptingBets = errors.New("session: not accepting bets")

	// ErrStaleSession indicates the round reached a terminal status before
	// the action could be applied.
	ErrStaleSession = errors.New("session: session no longer active")

	// ErrNotAuthorized indicates the participant may not confirm or cancel
	// this round.
	ErrNotAuthorized = errors.New("session: not authorized")

	// ErrNoBets indicates a confirm was attempted before any bet existed.
	ErrNoBets = errors.New("session: at least one bet required")

	// ErrSessionExists indicates the scope already has an active round.
	ErrSessionExists = errors.New("session: active session exists for scope")
)
