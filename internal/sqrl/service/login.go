package service

import (
	"context"
	"crypto/ed25519"
	"errors"
	"strings"

	"github.com/aussiebroadwan/sqrl/internal/sqrl/domain"
	"github.com/aussiebroadwan/sqrl/internal/sqrl/store"
	"github.com/aussiebroadwan/sqrl/pkg/cryptox"
	"github.com/aussiebroadwan/sqrl/pkg/slogx"
	"github.com/aussiebroadwan/sqrl/pkg/sqrlsdk"
)

// ErrMalformedRequest is returned for calls missing mandatory fields. Policy
// failures are Denied decisions, never errors.
var ErrMalformedRequest = errors.New("malformed login request")

// LoginService runs the login state machine for signed ident requests.
type LoginService struct {
	Nuts       *NutRegistry
	Identities store.Identities
	Verifier   cryptox.Verifier
	Rules      *PathRules
	Questions  QuestionResolver
	Sessions   SessionEmitter
}

// LoginRequest is a client's signed answer to a nut.
type LoginRequest struct {
	Nut       string
	Path      string
	IDK       string // base64url Ed25519 public key, also the user id
	Signature []byte

	// SUK and VUK are only sent by clients that are prepared to register.
	SUK []byte
	VUK []byte

	WantSUK bool
}

// HandleLoginRequest decides the outcome of req. The returned error is only
// set for malformed calls; every policy result is a Decision.
func (s *LoginService) HandleLoginRequest(ctx context.Context, req LoginRequest) (domain.Decision, error) {
	if req.Nut == "" || req.IDK == "" {
		return domain.Decision{}, ErrMalformedRequest
	}
	path := normalisePath(req.Path)

	ctx = slogx.With(ctx, "nut", cryptox.FingerprintToken(req.Nut), "path", path)
	log := slogx.FromContext(ctx)

	nut, err := s.Nuts.Lookup(req.Nut)
	switch {
	case errors.Is(err, ErrNutConsumed):
		return s.continuation(ctx, req, nut), nil
	case err != nil:
		log.Debug("sqrl: nut rejected", "error", err)
		return domain.Denied(domain.ReasonInvalidNut), nil
	}

	// The signature covers the request path, and the nut remembers the
	// path it was issued for. They must agree or a nut issued on a plain
	// page could be replayed against an Ask page.
	if !strings.EqualFold(nut.Path, path) {
		log.Debug("sqrl: path does not match nut", "nut_path", nut.Path)
		return domain.Denied(domain.ReasonInvalidNut), nil
	}

	sigOK := s.verify(req.IDK, sqrlsdk.SignedMessage(sqrlsdk.CmdIdent, req.Nut, req.Path, req.IDK), req.Signature)

	if nut.State == domain.StateAwaitingAskResponse {
		if !sigOK {
			return domain.Denied(domain.ReasonBadSignature), nil
		}
		if nut.UserID != req.IDK {
			return domain.Denied(domain.ReasonReplay), nil
		}
		return domain.Pending(nut.UserID, nut.Question), nil
	}

	// The lookup is read-only so it may run before the signature verdict.
	// A disabled account is reported as such whatever the signature; a
	// failing store is only reported to authentic requests.
	lookup, err := s.Identities.UserExists(ctx, req.IDK)
	switch {
	case err != nil && !sigOK:
		log.Info("sqrl: bad signature")
		return domain.Denied(domain.ReasonBadSignature), nil
	case err != nil:
		log.Error("sqrl: identity store lookup failed", "error", err)
		return s.deny(ctx, req.Nut, true, domain.ReasonAdapterFailure), nil
	case lookup == domain.UserDisabled:
		log.Info("sqrl: login for disabled account", "user_id", req.IDK)
		return s.deny(ctx, req.Nut, sigOK, domain.ReasonAccountLocked), nil
	case !sigOK:
		log.Info("sqrl: bad signature")
		return domain.Denied(domain.ReasonBadSignature), nil
	}

	if lookup == domain.UserUnknown {
		if !s.Rules.RegistrationAllowed(path) || len(req.SUK) == 0 || len(req.VUK) != ed25519.PublicKeySize {
			log.Debug("sqrl: unknown user", "user_id", req.IDK)
			return s.deny(ctx, req.Nut, true, domain.ReasonUnknownUser), nil
		}
		if err := s.Identities.CreateUser(ctx, req.IDK, req.SUK, req.VUK); err != nil {
			log.Error("sqrl: identity registration failed", "user_id", req.IDK, "error", err)
			return s.deny(ctx, req.Nut, true, domain.ReasonAdapterFailure), nil
		}
		log.Info("sqrl: identity registered", "user_id", req.IDK)
	}

	var suk []byte
	if req.WantSUK {
		suk, err = s.Identities.GetUserSUK(ctx, req.IDK)
		if err != nil {
			log.Error("sqrl: identity store SUK read failed", "error", err)
			return s.deny(ctx, req.Nut, true, domain.ReasonAdapterFailure), nil
		}
	}

	// An attached question always gates the login. The resolver is only
	// consulted on Ask paths.
	rule, _ := s.Rules.Match(path)
	q := nut.Question
	if q == nil && rule.AskEligible && s.Questions != nil {
		q = s.Questions(ctx, path, req.Nut)
	}
	if q.Valid() {
		parked, err := s.Nuts.bindUser(req.Nut, req.IDK, q)
		if err != nil {
			return registryDenial(err), nil
		}
		log.Debug("sqrl: awaiting ask response", "user_id", req.IDK)
		return domain.Pending(req.IDK, parked.Question), nil
	}

	if err := s.Nuts.consumeFor(req.Nut, req.IDK); err != nil {
		return registryDenial(err), nil
	}

	d := emitAndSettle(ctx, s.Nuts, s.Sessions, req.Nut, SessionRequest{
		UserID: req.IDK,
		Path:   path,
		Scope:  sessionScope(rule),
	}, true)
	d.SUK = suk
	return d, nil
}

// continuation handles a login against a tombstone: the decision recorded by
// an Ask answer is handed out once to the identity that was asked.
func (s *LoginService) continuation(ctx context.Context, req LoginRequest, nut domain.Nut) domain.Decision {
	if nut.Decision == nil || nut.UserID != req.IDK {
		return domain.Denied(domain.ReasonReplay)
	}
	if !s.verify(req.IDK, sqrlsdk.SignedMessage(sqrlsdk.CmdIdent, req.Nut, req.Path, req.IDK), req.Signature) {
		return domain.Denied(domain.ReasonBadSignature)
	}

	d, err := s.Nuts.takeDecision(req.Nut, req.IDK)
	if err != nil {
		return registryDenial(err)
	}
	if req.WantSUK && d.Outcome == domain.OutcomeAuthenticated {
		suk, err := s.Identities.GetUserSUK(ctx, req.IDK)
		if err != nil {
			slogx.FromContext(ctx).Error("sqrl: identity store SUK read failed", "error", err)
		} else {
			d.SUK = suk
		}
	}
	return d
}

// emitAndSettle invokes the session emitter for an already consumed nut and
// records the outcome on it.
func emitAndSettle(ctx context.Context, nuts *NutRegistry, sessions SessionEmitter, token string, req SessionRequest, delivered bool) domain.Decision {
	log := slogx.FromContext(ctx)

	var d domain.Decision
	ticket, err := sessions.EmitSession(ctx, req)
	if err != nil {
		log.Error("sqrl: session emitter failed", "user_id", req.UserID, "error", err)
		d = domain.Denied(domain.ReasonAdapterFailure)
		d.UserID = req.UserID
	} else {
		d = domain.Authenticated(req.UserID, &ticket)
		log.Info("sqrl: authenticated", "user_id", req.UserID, "sid", ticket.SessionID, "scope", ticket.Scope)
	}

	if err := nuts.settle(token, d, delivered); err != nil {
		log.Warn("sqrl: failed to record decision on nut", "error", err)
	}
	return d
}

// deny retires the nut when the request was authentic. Unverified requests
// leave the nut alone.
func (s *LoginService) deny(ctx context.Context, token string, authentic bool, reason domain.Reason) domain.Decision {
	d := domain.Denied(reason)
	if !authentic {
		return d
	}
	if err := s.Nuts.retire(token, d, true); err != nil {
		slogx.FromContext(ctx).Debug("sqrl: nut not retired", "error", err)
		if errors.Is(err, ErrNutConsumed) {
			return domain.Denied(domain.ReasonReplay)
		}
	}
	return d
}

func (s *LoginService) verify(idk string, msg, sig []byte) bool {
	pub, err := cryptox.DecodePublicKey(idk)
	if err != nil {
		return false
	}
	return s.Verifier.Verify(pub, msg, sig)
}

// registryDenial maps a registry failure on a mutation to the reported reason.
func registryDenial(err error) domain.Decision {
	if errors.Is(err, ErrNutConsumed) || errors.Is(err, domain.ErrInvalidTransition) {
		return domain.Denied(domain.ReasonReplay)
	}
	return domain.Denied(domain.ReasonInvalidNut)
}

func sessionScope(rule PathRule) string {
	if rule.AuthenticateSeparately {
		return rule.Prefix
	}
	return ""
}
