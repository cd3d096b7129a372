package jwtx

import (
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultSessionTTL is the lifetime of a session ticket when the host does
// not configure one.
const DefaultSessionTTL = 3 * time.Hour

// Role values carried in the "role" claim.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Claims are the session ticket claims issued after a successful login.
type Claims struct {
	jwt.RegisteredClaims

	// Session ID
	SID string `json:"sid,omitempty"`

	// Role is RoleAdmin or RoleUser.
	Role string `json:"role,omitempty"`

	// Authentication Methods Reference, e.g. ["sqrl"] or ["sqrl","ask"]
	// when the login passed through a confirmation question.
	AMR []string `json:"amr,omitempty"`

	// Scope limits the ticket to a path prefix. Empty means site wide.
	Scope string `json:"scope,omitempty"`
}

// SessionParams groups the inputs of NewSessionClaims.
type SessionParams struct {
	Subject  string
	SID      string
	Role     string
	Scope    string
	AMR      []string
	Issuer   string
	Audience []string
	TTL      time.Duration
	Now      time.Time
}

// NewSessionClaims builds minimally-correct claims for a session ticket.
func NewSessionClaims(p SessionParams) Claims {
	ttl := p.TTL
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}

	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    p.Issuer,
			Subject:   p.Subject,
			Audience:  jwt.ClaimStrings(p.Audience),
			IssuedAt:  jwt.NewNumericDate(p.Now),
			NotBefore: jwt.NewNumericDate(p.Now),
			ExpiresAt: jwt.NewNumericDate(p.Now.Add(ttl)),
			ID:        p.SID,
		},
		SID:   p.SID,
		Role:  p.Role,
		Scope: p.Scope,
		AMR:   p.AMR,
	}
}

// IsAdmin reports whether the ticket carries the admin role.
func (c *Claims) IsAdmin() bool { return c.Role == RoleAdmin }

// ValidateIssuer checks the issuer. An empty expectation accepts anything.
func (c *Claims) ValidateIssuer(expected string) error {
	if expected == "" {
		return nil
	}
	if c.Issuer != expected {
		return ErrIssuer
	}
	return nil
}

// ValidateAudience checks that at least one expected audience is present.
func (c *Claims) ValidateAudience(expected []string) error {
	if len(expected) == 0 {
		return nil
	}
	for _, want := range expected {
		if slices.Contains(c.Audience, want) {
			return nil
		}
	}
	return ErrAudience
}

// ValidateExpiry checks exp and nbf against now, allowing leeway either way.
func (c *Claims) ValidateExpiry(now time.Time, leeway time.Duration) error {
	if c.ExpiresAt != nil && now.After(c.ExpiresAt.Add(leeway)) {
		return ErrExpired
	}
	if c.NotBefore != nil && now.Before(c.NotBefore.Add(-leeway)) {
		return ErrNotYetValid
	}
	return nil
}
