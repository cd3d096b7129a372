package domain

import "time"

type Outcome string

const (
	OutcomeAuthenticated Outcome = "authenticated"
	OutcomeDenied        Outcome = "denied"
	OutcomePending       Outcome = "pending"
)

// Reason explains a denial.
type Reason string

const (
	ReasonInvalidNut       Reason = "invalid_nut"
	ReasonBadSignature     Reason = "bad_signature"
	ReasonReplay           Reason = "replay"
	ReasonUnknownUser      Reason = "unknown_user"
	ReasonAccountLocked    Reason = "account_locked"
	ReasonUserRejected     Reason = "user_rejected"
	ReasonAdapterFailure   Reason = "adapter_failure"
	ReasonIdentityMismatch Reason = "identity_mismatch"
)

// Ticket is the opaque session artifact handed back on Authenticated.
type Ticket struct {
	Token     string
	SessionID string
	Scope     string
	ExpiresAt time.Time
}

// Decision is the result of a login or identity command.
type Decision struct {
	Outcome Outcome
	UserID  string
	Reason  Reason

	Ticket   *Ticket
	SUK      []byte       // only when the client asked for it
	Question *AskQuestion // only when Pending
}

func Authenticated(userID string, ticket *Ticket) Decision {
	return Decision{Outcome: OutcomeAuthenticated, UserID: userID, Ticket: ticket}
}

func Denied(reason Reason) Decision {
	return Decision{Outcome: OutcomeDenied, Reason: reason}
}

func Pending(userID string, q *AskQuestion) Decision {
	return Decision{Outcome: OutcomePending, UserID: userID, Question: q}
}
