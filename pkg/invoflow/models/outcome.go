package models

import "time"

// OutcomeKind classifies every possible result of an action handler. Handlers
// never return Go errors across the executor boundary; the executor never has
// to guess intent from an exception.
type OutcomeKind string

const (
	OutcomeSuccess          OutcomeKind = "success"
	OutcomeWait             OutcomeKind = "wait"
	OutcomeTransientFailure OutcomeKind = "transient_failure"
	OutcomePermanentFailure OutcomeKind = "permanent_failure"
)

// Outcome is the result of executing one step. WaitDuration is meaningful
// only for OutcomeWait, Err only for the failure kinds.
type Outcome struct {
	Kind         OutcomeKind
	WaitDuration time.Duration
	Err          error
	Log          string
}

func Success(log string) Outcome {
	return Outcome{Kind: OutcomeSuccess, Log: log}
}

func Wait(d time.Duration, log string) Outcome {
	return Outcome{Kind: OutcomeWait, WaitDuration: d, Log: log}
}

func Transient(err error) Outcome {
	return Outcome{Kind: OutcomeTransientFailure, Err: err}
}

func Permanent(err error) Outcome {
	return Outcome{Kind: OutcomePermanentFailure, Err: err}
}
