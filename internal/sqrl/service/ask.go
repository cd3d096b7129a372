package service

import (
	"context"
	"errors"

	"github.com/aussiebroadwan/sqrl/internal/sqrl/domain"
	"github.com/aussiebroadwan/sqrl/pkg/cryptox"
	"github.com/aussiebroadwan/sqrl/pkg/slogx"
)

var (
	ErrInvalidButton   = errors.New("ask: invalid button")
	ErrNoQuestion      = errors.New("ask: nut has no question")
	ErrAskNotPending   = errors.New("ask: question is not awaiting an answer")
	ErrAlreadyAnswered = errors.New("ask: question already answered")
)

// ResponseInterpreter maps a pressed button to accept (true) or deny.
type ResponseInterpreter func(ctx context.Context, path, nut string, button int) bool

// AskService is the poll and answer side of the Ask confirmation round.
type AskService struct {
	Nuts      *NutRegistry
	Rules     *PathRules
	Interpret ResponseInterpreter
	Sessions  SessionEmitter
}

// PollAskStatus reports where the question on token stands. Unknown and
// expired nuts both read as AskExpired.
func (s *AskService) PollAskStatus(ctx context.Context, token string) (domain.AskStatus, error) {
	nut, err := s.Nuts.Lookup(token)
	switch {
	case errors.Is(err, ErrNutConsumed):
		if nut.Decision == nil {
			// Consumed but the outcome is still being recorded.
			return domain.AskStatus{State: domain.AskPending}, nil
		}
		return domain.AskStatus{
			State:    domain.AskResolved,
			Accepted: nut.Decision.Outcome == domain.OutcomeAuthenticated,
		}, nil
	case err != nil:
		slogx.FromContext(ctx).Debug("sqrl: ask poll on missing nut",
			"nut", cryptox.FingerprintToken(token), "error", err)
		return domain.AskStatus{State: domain.AskExpired}, nil
	}
	return domain.AskStatus{State: domain.AskPending}, nil
}

// SubmitAskResponse records button as the answer and resolves the login.
// Only the first answer is honoured.
func (s *AskService) SubmitAskResponse(ctx context.Context, token string, button int) error {
	if button != 1 && button != 2 {
		return ErrInvalidButton
	}

	ctx = slogx.With(ctx, "nut", cryptox.FingerprintToken(token))
	log := slogx.FromContext(ctx).With("button", button)

	nut, err := s.Nuts.recordAnswer(token, button)
	if err != nil {
		log.Debug("sqrl: ask answer rejected", "error", err)
		return err
	}

	accept := false
	if s.Interpret != nil {
		accept = s.Interpret(ctx, nut.Path, token, button)
	}

	if !accept {
		d := domain.Denied(domain.ReasonUserRejected)
		d.UserID = nut.UserID
		if err := s.Nuts.retire(token, d, false); err != nil {
			return err
		}
		log.Info("sqrl: ask denied", "user_id", nut.UserID)
		return nil
	}

	if err := s.Nuts.claim(token); err != nil {
		log.Debug("sqrl: ask answer lost the nut", "error", err)
		return err
	}

	var scope string
	if s.Rules != nil {
		if rule, ok := s.Rules.Match(nut.Path); ok {
			scope = sessionScope(rule)
		}
	}

	d := emitAndSettle(ctx, s.Nuts, s.Sessions, token, SessionRequest{
		UserID: nut.UserID,
		Path:   nut.Path,
		Scope:  scope,
		Asked:  true,
	}, false)
	log.Info("sqrl: ask accepted", "user_id", nut.UserID, "outcome", d.Outcome)
	return nil
}
