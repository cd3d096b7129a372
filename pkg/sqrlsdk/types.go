package sqrlsdk

import "time"

// Decision outcomes.
const (
	OutcomeAuthenticated = "authenticated"
	OutcomeDenied        = "denied"
	OutcomePending       = "pending"
)

// Denial reasons.
const (
	ReasonInvalidNut       = "invalid_nut"
	ReasonBadSignature     = "bad_signature"
	ReasonReplay           = "replay"
	ReasonUnknownUser      = "unknown_user"
	ReasonAccountLocked    = "account_locked"
	ReasonUserRejected     = "user_rejected"
	ReasonAdapterFailure   = "adapter_failure"
	ReasonIdentityMismatch = "identity_mismatch"
)

// Ask poll states.
const (
	AskStatePending  = "pending"
	AskStateResolved = "resolved"
	AskStateExpired  = "expired"
)

// NutRequest asks for a fresh nut bound to Path.
type NutRequest struct {
	Path string `json:"path"`
}

// NutResponse carries a freshly issued nut.
type NutResponse struct {
	Nut       string    `json:"nut"`
	ExpiresIn int       `json:"expires_in"` // seconds
	CheckMS   int       `json:"check_ms"`   // suggested poll interval
	Question  *Question `json:"question,omitempty"`
}

// Question is an Ask prompt with up to two buttons.
type Question struct {
	Message string  `json:"message"`
	Button1 *Button `json:"button1,omitempty"`
	Button2 *Button `json:"button2,omitempty"`
}

// Button is one Ask choice. URL is optional.
type Button struct {
	Label string `json:"label"`
	URL   string `json:"url,omitempty"`
}

// LoginRequest is the signed "ident" command.
type LoginRequest struct {
	Nut       string `json:"nut"`
	Path      string `json:"path"`
	IDK       string `json:"idk"`
	Signature string `json:"ids"`

	// SUK and VUK are only needed when registering.
	SUK string `json:"suk,omitempty"`
	VUK string `json:"vuk,omitempty"`

	// WantSUK asks the server to return the stored SUK.
	WantSUK bool `json:"want_suk,omitempty"`
}

// LoginResponse is the decision for a login attempt.
type LoginResponse struct {
	Outcome   string     `json:"outcome"`
	Reason    string     `json:"reason,omitempty"`
	UserID    string     `json:"user_id,omitempty"`
	SUK       string     `json:"suk,omitempty"`
	Ticket    string     `json:"ticket,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Question  *Question  `json:"question,omitempty"`
}

// AskStatusResponse is the result of polling an Ask question.
type AskStatusResponse struct {
	State    string `json:"state"`
	Accepted *bool  `json:"accepted,omitempty"`
}

// AskAnswerRequest submits the pressed button (1 or 2).
type AskAnswerRequest struct {
	Button int `json:"button"`
}

// IdentityCommandRequest carries disable, enable, remove and rekey.
type IdentityCommandRequest struct {
	Nut       string `json:"nut"`
	Path      string `json:"path"`
	IDK       string `json:"idk"`
	Signature string `json:"ids"`
	SUK       string `json:"suk"`
	VUK       string `json:"vuk"`

	// URS is the unlock request signature made with the VUK's private half.
	// Required for enable, remove and rekey.
	URS string `json:"urs,omitempty"`

	// Rekey only: the replacement identity, and its signature over the
	// same message with the new IDK substituted.
	NewIDK       string `json:"new_idk,omitempty"`
	NewSUK       string `json:"new_suk,omitempty"`
	NewVUK       string `json:"new_vuk,omitempty"`
	NewSignature string `json:"new_ids,omitempty"`
}

// IdentityCommandResponse reports the outcome of an identity command.
type IdentityCommandResponse struct {
	Outcome string `json:"outcome"`
	Reason  string `json:"reason,omitempty"`
	UserID  string `json:"user_id,omitempty"`
}

// SessionResponse describes the caller's current session ticket.
type SessionResponse struct {
	UserID    string    `json:"user_id"`
	Role      string    `json:"role"`
	Scope     string    `json:"scope,omitempty"`
	SessionID string    `json:"sid"`
	ExpiresAt time.Time `json:"expires_at"`
}

// AdminIdentityResponse reports an identity's lock state after an admin
// action.
type AdminIdentityResponse struct {
	UserID string `json:"user_id"`
	Locked bool   `json:"locked"`
}

// RotateKeyRequest asks for a new ticket signing key.
type RotateKeyRequest struct {
	// RetireExisting stops the current keys from signing once the new one
	// is active. They keep verifying until they expire.
	RetireExisting bool `json:"retire_existing"`
}

// RotateKeyResponse reports the outcome of a key rotation.
type RotateKeyResponse struct {
	NewKey      SigningKeyInfo   `json:"new_key"`
	RetiredKeys []SigningKeyInfo `json:"retired_keys,omitempty"`
	ActiveKeys  int              `json:"active_keys"`
}

// SigningKeyInfo describes a ticket signing key. The private half is never
// exposed.
type SigningKeyInfo struct {
	ID        string     `json:"id,omitempty"`
	Kid       string     `json:"kid"`
	Algorithm string     `json:"alg"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
	RetiredAt *time.Time `json:"retired_at,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// HealthResponse is returned by /livez and /readyz.
type HealthResponse struct {
	Status  string            `json:"status"`
	Uptime  string            `json:"uptime,omitempty"`
	Version string            `json:"version,omitempty"`
	Checks  map[string]string `json:"checks,omitempty"`
}

// JWKSResponse lists the public keys session tickets are signed with.
type JWKSResponse struct {
	Keys []JWK `json:"keys"`
}

// JWK is an OKP Ed25519 public key.
type JWK struct {
	Kty string `json:"kty"`
	Use string `json:"use,omitempty"`
	Alg string `json:"alg,omitempty"`
	Kid string `json:"kid,omitempty"`
	Crv string `json:"crv,omitempty"`
	X   string `json:"x,omitempty"`
}

// DiagnosticsResponse is served by /sqrl/diag when diagnostics are on.
type DiagnosticsResponse struct {
	LiveNuts       int `json:"live_nuts"`
	Tombstones     int `json:"tombstones"`
	AwaitingAnswer int `json:"awaiting_answer"`
}
