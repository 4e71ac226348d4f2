package checkout

import "errors"

var ErrInvalidTransition = errors.New("checkout: invalid payment attempt transition")

// AttemptState names the phases of one payment attempt.
type AttemptState string

const (
	StateInitializing         AttemptState = "initializing"
	StateAwaitingConfirmation AttemptState = "awaiting_confirmation"
	StateSucceeded            AttemptState = "succeeded"
	StateFailed               AttemptState = "failed"
)

// attemptState implements the state pattern for the payment attempt
// lifecycle. Failed and Succeeded are terminal for the attempt; a failed
// order stays PENDING and is retried through a new attempt.
type attemptState interface {
	State() AttemptState
	OnAuthorized(a *Attempt) (attemptState, error)
	OnConfirmed(a *Attempt) (attemptState, error)
	OnFailed(a *Attempt, reason string) (attemptState, error)
}

type initializingState struct{}

func (initializingState) State() AttemptState { return StateInitializing }

func (initializingState) OnAuthorized(a *Attempt) (attemptState, error) {
	a.FailureMessage = ""
	return awaitingConfirmationState{}, nil
}

func (initializingState) OnConfirmed(*Attempt) (attemptState, error) {
	return nil, ErrInvalidTransition
}

func (initializingState) OnFailed(a *Attempt, reason string) (attemptState, error) {
	a.FailureMessage = reason
	return failedState{}, nil
}

type awaitingConfirmationState struct{}

func (awaitingConfirmationState) State() AttemptState { return StateAwaitingConfirmation }

func (awaitingConfirmationState) OnAuthorized(*Attempt) (attemptState, error) {
	return nil, ErrInvalidTransition
}

func (awaitingConfirmationState) OnConfirmed(a *Attempt) (attemptState, error) {
	a.FailureMessage = ""
	return succeededState{}, nil
}

func (awaitingConfirmationState) OnFailed(a *Attempt, reason string) (attemptState, error) {
	a.FailureMessage = reason
	return failedState{}, nil
}

type succeededState struct{}

func (succeededState) State() AttemptState { return StateSucceeded }

func (succeededState) OnAuthorized(*Attempt) (attemptState, error) {
	return nil, ErrInvalidTransition
}

func (succeededState) OnConfirmed(*Attempt) (attemptState, error) {
	return succeededState{}, nil
}

func (succeededState) OnFailed(*Attempt, string) (attemptState, error) {
	return nil, ErrInvalidTransition
}

type failedState struct{}

func (failedState) State() AttemptState { return StateFailed }

func (failedState) OnAuthorized(*Attempt) (attemptState, error) {
	return nil, ErrInvalidTransition
}

func (failedState) OnConfirmed(*Attempt) (attemptState, error) {
	return nil, ErrInvalidTransition
}

func (failedState) OnFailed(a *Attempt, reason string) (attemptState, error) {
	a.FailureMessage = reason
	return failedState{}, nil
}
