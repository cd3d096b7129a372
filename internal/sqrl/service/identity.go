package service

import (
	"context"
	"crypto/ed25519"
	"errors"
	"hash/fnv"
	"slices"
	"strings"
	"sync"

	"github.com/aussiebroadwan/sqrl/internal/sqrl/domain"
	"github.com/aussiebroadwan/sqrl/internal/sqrl/store"
	"github.com/aussiebroadwan/sqrl/pkg/cryptox"
	"github.com/aussiebroadwan/sqrl/pkg/slogx"
	"github.com/aussiebroadwan/sqrl/pkg/sqrlsdk"
)

var (
	ErrUnknownCommand = errors.New("identity: unknown command")
	ErrUserNotFound   = errors.New("identity: user not found")
)

const userLockStripes = 64

// userLocks serialises identity mutations per user id. Adapters are not
// required to cope with concurrent writes to the same user.
type userLocks [userLockStripes]sync.Mutex

func (l *userLocks) lock(ids ...string) func() {
	seen := make(map[uint32]struct{}, len(ids))
	var stripes []uint32
	for _, id := range ids {
		h := fnv.New32a()
		_, _ = h.Write([]byte(id))
		i := h.Sum32() % userLockStripes
		if _, ok := seen[i]; ok {
			continue
		}
		seen[i] = struct{}{}
		stripes = append(stripes, i)
	}
	// Fixed order so two rekeys touching the same pair can't deadlock.
	slices.Sort(stripes)
	for _, i := range stripes {
		l[i].Lock()
	}
	return func() {
		for j := len(stripes) - 1; j >= 0; j-- {
			l[stripes[j]].Unlock()
		}
	}
}

// IdentityService runs client-signed account commands and the admin
// lock/unlock surface.
type IdentityService struct {
	Nuts     *NutRegistry
	Store    store.Store
	Verifier cryptox.Verifier

	locks userLocks
}

// IdentityCommand is a signed disable, enable, remove or rekey request.
type IdentityCommand struct {
	Command   sqrlsdk.Command
	Nut       string
	Path      string
	IDK       string
	Signature []byte

	// SUK and VUK must match the stored values.
	SUK []byte
	VUK []byte

	// URS is the unlock request signature made with the key behind VUK.
	URS []byte

	// Rekey only.
	NewIDK       string
	NewSUK       []byte
	NewVUK       []byte
	NewSignature []byte
}

// ExecuteCommand verifies and applies cmd. Like logins, policy failures are
// Denied decisions and errors are reserved for malformed calls.
func (s *IdentityService) ExecuteCommand(ctx context.Context, cmd IdentityCommand) (domain.Decision, error) {
	if cmd.Command == sqrlsdk.CmdIdent || !cmd.Command.Valid() {
		return domain.Decision{}, ErrUnknownCommand
	}
	if cmd.Nut == "" || cmd.IDK == "" {
		return domain.Decision{}, ErrMalformedRequest
	}
	if cmd.Command == sqrlsdk.CmdRekey && (cmd.NewIDK == "" || len(cmd.NewSUK) == 0 || len(cmd.NewVUK) != ed25519.PublicKeySize) {
		return domain.Decision{}, ErrMalformedRequest
	}

	path := normalisePath(cmd.Path)
	log := slogx.FromContext(ctx).With(
		"nut", cryptox.FingerprintToken(cmd.Nut),
		"command", string(cmd.Command),
	)

	nut, err := s.Nuts.Lookup(cmd.Nut)
	switch {
	case errors.Is(err, ErrNutConsumed):
		return domain.Denied(domain.ReasonReplay), nil
	case err != nil:
		return domain.Denied(domain.ReasonInvalidNut), nil
	case !strings.EqualFold(nut.Path, path) || nut.State != domain.StateAwaitingSignature:
		return domain.Denied(domain.ReasonInvalidNut), nil
	}

	msg := sqrlsdk.SignedMessage(cmd.Command, cmd.Nut, cmd.Path, cmd.IDK)
	if !s.verifyKey(cmd.IDK, msg, cmd.Signature) {
		log.Info("sqrl: bad identity command signature")
		return domain.Denied(domain.ReasonBadSignature), nil
	}
	if cmd.Command == sqrlsdk.CmdRekey {
		newMsg := sqrlsdk.SignedMessage(cmd.Command, cmd.Nut, cmd.Path, cmd.NewIDK)
		if !s.verifyKey(cmd.NewIDK, newMsg, cmd.NewSignature) {
			log.Info("sqrl: bad new identity signature")
			return domain.Denied(domain.ReasonBadSignature), nil
		}
	}

	ids := []string{cmd.IDK}
	if cmd.NewIDK != "" {
		ids = append(ids, cmd.NewIDK)
	}
	unlock := s.locks.lock(ids...)
	defer unlock()

	var reason domain.Reason
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		reason = s.apply(ctx, tx.Identities(), cmd, msg)
		if reason != "" {
			return errDenied
		}
		// Claim the nut last: losing the race rolls the mutation back.
		if err := s.Nuts.consumeFor(cmd.Nut, cmd.IDK); err != nil {
			reason = registryDenial(err).Reason
			return errDenied
		}
		return nil
	})

	switch {
	case errors.Is(err, errDenied):
		switch reason {
		case domain.ReasonBadSignature, domain.ReasonReplay, domain.ReasonInvalidNut:
		default:
			s.retire(ctx, cmd.Nut, reason)
		}
		log.Info("sqrl: identity command denied", "user_id", cmd.IDK, "reason", reason)
		return domain.Denied(reason), nil
	case err != nil:
		log.Error("sqrl: identity command failed", "user_id", cmd.IDK, "error", err)
		s.retire(ctx, cmd.Nut, domain.ReasonAdapterFailure)
		return domain.Denied(domain.ReasonAdapterFailure), nil
	}

	userID := cmd.IDK
	if cmd.Command == sqrlsdk.CmdRekey {
		userID = cmd.NewIDK
	}
	d := domain.Decision{Outcome: domain.OutcomeAuthenticated, UserID: userID}
	if err := s.Nuts.settle(cmd.Nut, d, true); err != nil {
		log.Warn("sqrl: failed to record decision on nut", "error", err)
	}
	log.Info("sqrl: identity command applied", "user_id", cmd.IDK, "new_user_id", cmd.NewIDK)
	return d, nil
}

var errDenied = errors.New("identity: command denied")

// apply checks the stored keys and performs the mutation. It returns a
// denial reason, or "" when the command went through. Store errors surface
// as ReasonAdapterFailure.
func (s *IdentityService) apply(ctx context.Context, ids store.Identities, cmd IdentityCommand, msg []byte) domain.Reason {
	log := slogx.FromContext(ctx)

	lookup, err := ids.UserExists(ctx, cmd.IDK)
	if err != nil {
		log.Error("sqrl: identity store lookup failed", "error", err)
		return domain.ReasonAdapterFailure
	}
	if lookup == domain.UserUnknown {
		return domain.ReasonUnknownUser
	}

	suk, err := ids.GetUserSUK(ctx, cmd.IDK)
	if err != nil {
		log.Error("sqrl: identity store SUK read failed", "error", err)
		return domain.ReasonAdapterFailure
	}
	vuk, err := ids.GetUserVUK(ctx, cmd.IDK)
	if err != nil {
		log.Error("sqrl: identity store VUK read failed", "error", err)
		return domain.ReasonAdapterFailure
	}
	if !cryptox.EqualKeys(suk, cmd.SUK) || !cryptox.EqualKeys(vuk, cmd.VUK) {
		return domain.ReasonIdentityMismatch
	}
	if cmd.Command.NeedsUnlock() && !s.Verifier.Verify(vuk, msg, cmd.URS) {
		return domain.ReasonBadSignature
	}

	switch cmd.Command {
	case sqrlsdk.CmdDisable:
		err = ids.LockUser(ctx, cmd.IDK)
	case sqrlsdk.CmdEnable:
		err = ids.UnlockUser(ctx, cmd.IDK)
	case sqrlsdk.CmdRemove:
		err = ids.RemoveUser(ctx, cmd.IDK)
	case sqrlsdk.CmdRekey:
		err = ids.UpdateUserID(ctx, cmd.NewIDK, cmd.NewSUK, cmd.NewVUK, cmd.IDK)
	}
	if err != nil {
		log.Error("sqrl: identity store mutation failed", "error", err)
		return domain.ReasonAdapterFailure
	}
	return ""
}

func (s *IdentityService) retire(ctx context.Context, token string, reason domain.Reason) {
	if err := s.Nuts.retire(token, domain.Denied(reason), true); err != nil {
		slogx.FromContext(ctx).Debug("sqrl: nut not retired", "error", err)
	}
}

func (s *IdentityService) verifyKey(idk string, msg, sig []byte) bool {
	pub, err := cryptox.DecodePublicKey(idk)
	if err != nil {
		return false
	}
	return s.Verifier.Verify(pub, msg, sig)
}

// SetLocked is the administrative lock switch. It skips the key checks a
// client command needs.
func (s *IdentityService) SetLocked(ctx context.Context, userID string, locked bool) (domain.Identity, error) {
	unlock := s.locks.lock(userID)
	defer unlock()

	var out domain.Identity
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		ids := tx.Identities()
		var err error
		if locked {
			err = ids.LockUser(ctx, userID)
		} else {
			err = ids.UnlockUser(ctx, userID)
		}
		if err != nil {
			return err
		}
		out, err = ids.GetIdentity(ctx, userID)
		return err
	})
	if errors.Is(err, store.ErrNotFound) {
		return domain.Identity{}, ErrUserNotFound
	}
	if err != nil {
		return domain.Identity{}, err
	}

	slogx.FromContext(ctx).Info("sqrl: identity lock changed by admin", "user_id", userID, "locked", locked)
	return out, nil
}
