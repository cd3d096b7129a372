package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aussiebroadwan/sqrl/internal/sqrl/domain"
	"github.com/aussiebroadwan/sqrl/internal/sqrl/store"
	"github.com/aussiebroadwan/sqrl/pkg/cryptox"
	"github.com/aussiebroadwan/sqrl/pkg/idx"
	"github.com/aussiebroadwan/sqrl/pkg/jwtx"
)

const defaultKeyGracePeriod = 7 * 24 * time.Hour

var (
	ErrKeyNotFound       = errors.New("signing key not found")
	ErrKeyAlreadyRetired = errors.New("signing key already retired")
	ErrLastSigningKey    = errors.New("cannot retire the last active signing key")
)

// KeyRotationService rotates the session ticket signing keys at runtime.
//
// With a nil Store the keys only live in the KeyManager and rotation is lost
// on restart. With a Store every new key is sealed with Encrypter and
// persisted, and retirement is recorded so restarts keep the same active set.
// Retired keys keep verifying tickets until GracePeriod passes.
type KeyRotationService struct {
	Store       store.Store // nil for ephemeral keys
	KeyManager  *jwtx.KeyManager
	Encrypter   *cryptox.KeyEncrypter
	GracePeriod time.Duration
}

// RotateKeyResult reports what a rotation changed.
type RotateKeyResult struct {
	NewKey      domain.SigningKey
	RetiredKeys []domain.SigningKey
	ActiveKeys  int
}

func (s *KeyRotationService) gracePeriod() time.Duration {
	if s.GracePeriod > 0 {
		return s.GracePeriod
	}
	return defaultKeyGracePeriod
}

// RotateKey activates a new signing key. When retireExisting is set every
// previously active key stops signing; their public halves stay published.
func (s *KeyRotationService) RotateKey(ctx context.Context, retireExisting bool) (RotateKeyResult, error) {
	pemData, signer, err := jwtx.GenerateSigner()
	if err != nil {
		return RotateKeyResult{}, fmt.Errorf("failed to generate signing key: %w", err)
	}

	now := time.Now().UTC()
	newKey := domain.SigningKey{
		Kid:       signer.KID(),
		Algorithm: jwtx.AlgorithmEdDSA,
		CreatedAt: now,
	}
	previous := s.KeyManager.Signers()

	var retired []domain.SigningKey
	if s.Store != nil {
		if s.Encrypter == nil {
			return RotateKeyResult{}, errors.New("an encrypter is required to persist signing keys")
		}
		sealed, err := s.Encrypter.Encrypt(pemData)
		if err != nil {
			return RotateKeyResult{}, fmt.Errorf("failed to seal signing key: %w", err)
		}
		newKey.ID = idx.New().String()
		newKey.PrivateKeyEncrypted = sealed
		newKey.ExpiresAt = now.Add(s.gracePeriod())

		err = s.Store.WithTx(ctx, func(tx store.Tx) error {
			if err := tx.SigningKeys().CreateSigningKey(ctx, newKey); err != nil {
				return fmt.Errorf("failed to create signing key: %w", err)
			}
			if !retireExisting {
				return nil
			}

			active, err := tx.SigningKeys().ListActiveSigningKeys(ctx)
			if err != nil {
				return fmt.Errorf("failed to list active keys: %w", err)
			}
			for _, key := range active {
				if key.Kid == newKey.Kid {
					continue
				}
				if err := tx.SigningKeys().RetireSigningKey(ctx, key.Kid); err != nil {
					return fmt.Errorf("failed to retire key %s: %w", key.Kid, err)
				}
				key.RetiredAt = &now
				retired = append(retired, key)
			}
			return nil
		})
		if err != nil {
			return RotateKeyResult{}, err
		}
	} else if retireExisting {
		for _, p := range previous {
			retired = append(retired, domain.SigningKey{
				Kid:       p.KID(),
				Algorithm: jwtx.AlgorithmEdDSA,
				RetiredAt: &now,
			})
		}
	}

	// The new key goes live before the old ones stop signing so there is
	// always an active signer.
	if err := s.KeyManager.AddSigner(signer); err != nil {
		return RotateKeyResult{}, fmt.Errorf("failed to activate signing key: %w", err)
	}
	if retireExisting {
		for _, p := range previous {
			_ = s.KeyManager.RetireSignerByKid(p.KID())
		}
	}

	return RotateKeyResult{
		NewKey:      newKey,
		RetiredKeys: retired,
		ActiveKeys:  s.KeyManager.NumSigners(),
	}, nil
}

// ListSigningKeys returns the persisted keys, or the active in-memory
// signers when keys are ephemeral.
func (s *KeyRotationService) ListSigningKeys(ctx context.Context) ([]domain.SigningKey, error) {
	if s.Store != nil {
		return s.Store.SigningKeys().ListAllSigningKeys(ctx)
	}

	signers := s.KeyManager.Signers()
	keys := make([]domain.SigningKey, len(signers))
	for i, signer := range signers {
		keys[i] = domain.SigningKey{Kid: signer.KID(), Algorithm: jwtx.AlgorithmEdDSA}
	}
	return keys, nil
}

// RetireKey stops signing with kid. Tickets it signed keep verifying.
func (s *KeyRotationService) RetireKey(ctx context.Context, kid string) error {
	active := false
	for _, signer := range s.KeyManager.Signers() {
		if signer.KID() == kid {
			active = true
			break
		}
	}

	if s.Store != nil {
		key, err := s.Store.SigningKeys().GetSigningKeyByKid(ctx, kid)
		if errors.Is(err, store.ErrNotFound) {
			return ErrKeyNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to get signing key: %w", err)
		}
		if key.RetiredAt != nil {
			return ErrKeyAlreadyRetired
		}
	} else if !active {
		return ErrKeyNotFound
	}

	if active && s.KeyManager.NumSigners() <= 1 {
		return ErrLastSigningKey
	}

	if s.Store != nil {
		if err := s.Store.SigningKeys().RetireSigningKey(ctx, kid); err != nil {
			return fmt.Errorf("failed to retire signing key: %w", err)
		}
	}
	if active {
		if err := s.KeyManager.RetireSignerByKid(kid); err != nil {
			return fmt.Errorf("failed to retire signer: %w", err)
		}
	}
	return nil
}
