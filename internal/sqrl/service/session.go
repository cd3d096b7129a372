package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aussiebroadwan/sqrl/internal/sqrl/domain"
	"github.com/aussiebroadwan/sqrl/pkg/idx"
	"github.com/aussiebroadwan/sqrl/pkg/jwtx"
)

// AMR values recorded on session tickets.
const (
	AMRSQRL = "sqrl"
	AMRAsk  = "ask"
)

// SessionRequest is what the login engine knows about a successful login.
type SessionRequest struct {
	UserID string
	Path   string

	// Scope is the path prefix of a separately authenticated area, or empty
	// for the site-wide session.
	Scope string

	// Asked is true when the login went through an Ask confirmation.
	Asked bool
}

// SessionEmitter turns an Authenticated decision into a session artifact.
// The engine calls it exactly once per authenticated nut.
type SessionEmitter interface {
	EmitSession(ctx context.Context, req SessionRequest) (domain.Ticket, error)
}

// SessionEmitterFunc adapts a function to SessionEmitter.
type SessionEmitterFunc func(ctx context.Context, req SessionRequest) (domain.Ticket, error)

func (f SessionEmitterFunc) EmitSession(ctx context.Context, req SessionRequest) (domain.Ticket, error) {
	return f(ctx, req)
}

// TicketService emits signed JWT session tickets.
type TicketService struct {
	Keys     *jwtx.KeyManager
	Issuer   string
	Audience []string
	TTL      time.Duration

	// Admins get the admin role claim.
	Admins map[string]struct{}

	Now func() time.Time
}

var _ SessionEmitter = (*TicketService)(nil)

// NewTicketService wires a TicketService. adminIDs are user ids (base64url
// IDKs) that should receive the admin role.
func NewTicketService(keys *jwtx.KeyManager, issuer string, audience []string, ttl time.Duration, adminIDs []string) *TicketService {
	admins := make(map[string]struct{}, len(adminIDs))
	for _, id := range adminIDs {
		if id != "" {
			admins[id] = struct{}{}
		}
	}
	if ttl <= 0 {
		ttl = jwtx.DefaultSessionTTL
	}
	return &TicketService{
		Keys:     keys,
		Issuer:   issuer,
		Audience: audience,
		TTL:      ttl,
		Admins:   admins,
		Now:      func() time.Time { return time.Now().UTC() },
	}
}

// RoleFor returns the role claim value for userID.
func (s *TicketService) RoleFor(userID string) string {
	if _, ok := s.Admins[userID]; ok {
		return jwtx.RoleAdmin
	}
	return jwtx.RoleUser
}

func (s *TicketService) EmitSession(_ context.Context, req SessionRequest) (domain.Ticket, error) {
	if req.UserID == "" {
		return domain.Ticket{}, errors.New("session: user id is required")
	}

	amr := []string{AMRSQRL}
	if req.Asked {
		amr = append(amr, AMRAsk)
	}

	now := s.Now()
	claims := jwtx.NewSessionClaims(jwtx.SessionParams{
		Subject:  req.UserID,
		SID:      idx.New().String(),
		Role:     s.RoleFor(req.UserID),
		Scope:    req.Scope,
		AMR:      amr,
		Issuer:   s.Issuer,
		Audience: s.Audience,
		TTL:      s.TTL,
		Now:      now,
	})

	token, err := s.Keys.Sign(claims)
	if err != nil {
		return domain.Ticket{}, fmt.Errorf("session: sign ticket: %w", err)
	}

	return domain.Ticket{
		Token:     token,
		SessionID: claims.SID,
		Scope:     claims.Scope,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// Verify checks a ticket previously emitted by this service.
func (s *TicketService) Verify(token string) (jwtx.Claims, error) {
	return s.Keys.Verifier.Verify(token)
}
