package telegram

import (
	"fmt"
	"time"
)

// state enumerates the dispatch state machine.
type state int

const (
	stateIdle state = iota
	stateSending
	stateWaiting
	stateSuccess
	stateTerminal
)

// outcomeKind classifies a single send attempt.
type outcomeKind int

const (
	outcomeSuccess outcomeKind = iota
	outcomeRateLimited
	outcomeTransport
	outcomeTerminal
)

// outcome is the result of one attempt against the Bot API.
type outcome struct {
	kind       outcomeKind
	retryAfter time.Duration
	err        error
}

// machine carries the dispatch state. Rate-limit and transport retries
// run on independent budgets.
type machine struct {
	state             state
	rateAttempts      int
	transportAttempts int
	wait              time.Duration
	err               error
}

// transition is the single transition function driving the machine.
func transition(m machine, o outcome, cfg Config) machine {
	switch o.kind {
	case outcomeSuccess:
		m.state = stateSuccess
		m.err = nil

	case outcomeRateLimited:
		m.rateAttempts++
		if m.rateAttempts > cfg.MaxRetries {
			m.state = stateTerminal
			m.err = fmt.Errorf("telegram rate limit exceeded after %d attempts", m.rateAttempts)
			return m
		}
		m.state = stateWaiting
		if o.retryAfter > 0 {
			m.wait = o.retryAfter
		} else {
			m.wait = backoff(cfg.InitialRetryDelay, m.rateAttempts-1)
		}

	case outcomeTransport:
		m.transportAttempts++
		if m.transportAttempts > cfg.MaxRetries {
			m.state = stateTerminal
			m.err = fmt.Errorf("failed to reach telegram API after %d attempts: %v", m.transportAttempts, o.err)
			return m
		}
		m.state = stateWaiting
		m.wait = backoff(cfg.InitialRetryDelay, m.transportAttempts-1)

	case outcomeTerminal:
		m.state = stateTerminal
		m.err = o.err
	}
	return m
}

// backoff returns initial * 2^attempt.
func backoff(initial time.Duration, attempt int) time.Duration {
	return initial << uint(attempt)
}
