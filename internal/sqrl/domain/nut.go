package domain

import (
	"errors"
	"time"
)

// NutState is where a login attempt sits in its lifecycle.
type NutState string

const (
	StateIssued              NutState = "issued"
	StateAwaitingSignature   NutState = "awaiting_signature"
	StateVerifying           NutState = "verifying"
	StateAwaitingAskResponse NutState = "awaiting_ask_response"
	StateAuthenticated       NutState = "authenticated"
	StateDenied              NutState = "denied"
)

// ErrInvalidTransition is returned when a state change is not in the table.
var ErrInvalidTransition = errors.New("domain: invalid nut state transition")

var nutTransitions = map[NutState]map[NutState]struct{}{
	StateIssued: {
		StateAwaitingSignature: {},
		StateVerifying:         {},
		StateDenied:            {},
	},
	StateAwaitingSignature: {
		StateVerifying: {},
		StateDenied:    {},
	},
	StateVerifying: {
		// Back to AwaitingSignature after a rejected signature: a forged
		// request must not be able to burn someone else's nut.
		StateAwaitingSignature:   {},
		StateAwaitingAskResponse: {},
		StateAuthenticated:       {},
		StateDenied:              {},
	},
	StateAwaitingAskResponse: {
		StateAuthenticated: {},
		StateDenied:        {},
	},
}

// CanTransition reports whether from -> to is allowed. Authenticated and
// Denied are terminal.
func CanTransition(from, to NutState) bool {
	_, ok := nutTransitions[from][to]
	return ok
}

// Terminal reports whether s admits no further transitions.
func (s NutState) Terminal() bool {
	return s == StateAuthenticated || s == StateDenied
}

// Nut is a single-use login correlation token and the state hung off it.
type Nut struct {
	Token     string
	Path      string
	CreatedAt time.Time
	ExpiresAt time.Time

	Question *AskQuestion
	Consumed bool

	State  NutState
	UserID string // bound once the signature verified
	Button int    // 0 until the Ask question is answered

	// Decision is the terminal outcome. It is kept on the tombstone so Ask
	// polls and the login continuation can observe it.
	Decision *Decision
}

// Expired reports whether the nut is past its deadline at now.
func (n Nut) Expired(now time.Time) bool {
	return !now.Before(n.ExpiresAt)
}
