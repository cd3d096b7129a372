package jwtx

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/aussiebroadwan/sqrl/pkg/cryptox"
	"github.com/aussiebroadwan/sqrl/pkg/idx"
)

const (
	defaultNumKeys     = 2
	maxNumKeys         = 10
	defaultGracePeriod = 7 * 24 * time.Hour
)

// SigningKeyRecord is a persisted signing key. It mirrors the store's
// domain type so this package does not import it.
type SigningKeyRecord struct {
	ID                  string
	Kid                 string
	Algorithm           string
	PrivateKeyEncrypted []byte
	CreatedAt           time.Time
	RetiredAt           *time.Time
	ExpiresAt           time.Time
}

// KeyStore is the minimal persistence surface for NewPersistentKeyManager.
type KeyStore interface {
	// ListAllSigningKeys includes retired keys that are still in their
	// verification grace period.
	ListAllSigningKeys(ctx context.Context) ([]SigningKeyRecord, error)
	ListActiveSigningKeys(ctx context.Context) ([]SigningKeyRecord, error)
	CreateSigningKey(ctx context.Context, key SigningKeyRecord) error
}

// KeyManager owns the session ticket signing keys. Signing picks a random
// active key and verification accepts any key in the KeySet.
type KeyManager struct {
	Verifier Verifier
	KeySet   *KeySet

	mu      sync.RWMutex
	signers []Signer
}

// KeyManagerOptions configures a KeyManager.
type KeyManagerOptions struct {
	Issuer   string
	Audience []string

	// NumKeys is the number of active signing keys, clamped to [1,10].
	NumKeys int
}

// PersistentKeyManagerOptions adds storage to KeyManagerOptions.
type PersistentKeyManagerOptions struct {
	KeyManagerOptions

	Store     KeyStore
	Encrypter *cryptox.KeyEncrypter

	// GracePeriod bounds how long a new key stays verifiable after it is
	// retired. Defaults to 7 days.
	GracePeriod time.Duration
}

func (o *KeyManagerOptions) normalise() error {
	if o.Issuer == "" {
		return errors.New("jwtx: Issuer is required")
	}
	if o.NumKeys <= 0 {
		o.NumKeys = defaultNumKeys
	}
	if o.NumKeys > maxNumKeys {
		o.NumKeys = maxNumKeys
	}
	return nil
}

// NewEphemeralKeyManager generates in-memory keys. Every ticket becomes
// invalid when the process restarts.
func NewEphemeralKeyManager(opts KeyManagerOptions) (*KeyManager, error) {
	if err := opts.normalise(); err != nil {
		return nil, err
	}

	km := newKeyManager(opts)
	for i := range opts.NumKeys {
		_, signer, err := GenerateSigner()
		if err != nil {
			return nil, fmt.Errorf("jwtx: failed to generate signer %d: %w", i+1, err)
		}
		if err := km.AddSigner(signer); err != nil {
			return nil, err
		}
	}

	return km, nil
}

// NewPersistentKeyManager loads keys from opts.Store, decrypting them with
// opts.Encrypter, and tops the active set up to NumKeys with new keys.
func NewPersistentKeyManager(ctx context.Context, opts PersistentKeyManagerOptions) (*KeyManager, error) {
	if opts.Store == nil {
		return nil, errors.New("jwtx: Store is required for persistent key manager")
	}
	if opts.Encrypter == nil {
		return nil, errors.New("jwtx: Encrypter is required for persistent key manager")
	}
	if err := opts.normalise(); err != nil {
		return nil, err
	}
	if opts.GracePeriod <= 0 {
		opts.GracePeriod = defaultGracePeriod
	}

	all, err := opts.Store.ListAllSigningKeys(ctx)
	if err != nil {
		return nil, fmt.Errorf("jwtx: failed to load keys from database: %w", err)
	}
	active, err := opts.Store.ListActiveSigningKeys(ctx)
	if err != nil {
		return nil, fmt.Errorf("jwtx: failed to load active keys: %w", err)
	}

	activeKids := make(map[string]struct{}, len(active))
	for _, rec := range active {
		activeKids[rec.Kid] = struct{}{}
	}

	km := newKeyManager(opts.KeyManagerOptions)
	for _, rec := range all {
		pemData, err := opts.Encrypter.Decrypt(rec.PrivateKeyEncrypted)
		if err != nil {
			return nil, fmt.Errorf("jwtx: failed to decrypt key %s: %w", rec.Kid, err)
		}
		signer, err := NewSignerEdDSA(rec.Kid, pemData)
		if err != nil {
			return nil, fmt.Errorf("jwtx: failed to create signer for key %s: %w", rec.Kid, err)
		}

		if _, ok := activeKids[rec.Kid]; ok {
			if err := km.AddSigner(signer); err != nil {
				return nil, err
			}
			continue
		}
		// Retired but still in its grace period: verify only.
		if err := km.KeySet.AddSigner(signer); err != nil {
			return nil, fmt.Errorf("jwtx: failed to add key %s to keyset: %w", rec.Kid, err)
		}
	}

	now := time.Now().UTC()
	for km.NumSigners() < opts.NumKeys {
		pemData, signer, err := GenerateSigner()
		if err != nil {
			return nil, fmt.Errorf("jwtx: failed to generate new key: %w", err)
		}

		sealed, err := opts.Encrypter.Encrypt(pemData)
		if err != nil {
			return nil, fmt.Errorf("jwtx: failed to encrypt new key: %w", err)
		}

		rec := SigningKeyRecord{
			ID:                  idx.New().String(),
			Kid:                 signer.KID(),
			Algorithm:           AlgorithmEdDSA,
			PrivateKeyEncrypted: sealed,
			CreatedAt:           now,
			ExpiresAt:           now.Add(opts.GracePeriod),
		}
		if err := opts.Store.CreateSigningKey(ctx, rec); err != nil {
			return nil, fmt.Errorf("jwtx: failed to store new key: %w", err)
		}

		if err := km.AddSigner(signer); err != nil {
			return nil, err
		}
	}

	return km, nil
}

func newKeyManager(opts KeyManagerOptions) *KeyManager {
	keyset := NewKeySet()
	return &KeyManager{
		Verifier: NewVerifierEdDSA(keyset, opts.Issuer, opts.Audience),
		KeySet:   keyset,
	}
}

// IsReady returns true once at least one key can verify tickets.
func (km *KeyManager) IsReady() bool {
	return km.KeySet.IsReady() && km.NumSigners() > 0
}

// GetSigner returns a random active signer, or nil when none is loaded.
func (km *KeyManager) GetSigner() Signer {
	km.mu.RLock()
	defer km.mu.RUnlock()

	switch len(km.signers) {
	case 0:
		return nil
	case 1:
		return km.signers[0]
	default:
		return km.signers[rand.IntN(len(km.signers))]
	}
}

// NumSigners returns the number of active signing keys.
func (km *KeyManager) NumSigners() int {
	km.mu.RLock()
	defer km.mu.RUnlock()
	return len(km.signers)
}

// Signers returns a snapshot of the active signers.
func (km *KeyManager) Signers() []Signer {
	km.mu.RLock()
	defer km.mu.RUnlock()
	return append([]Signer(nil), km.signers...)
}

// AddSigner activates signer for signing and publishes its public key.
func (km *KeyManager) AddSigner(signer Signer) error {
	if signer == nil {
		return errors.New("jwtx: signer cannot be nil")
	}

	km.mu.Lock()
	defer km.mu.Unlock()

	if err := km.KeySet.AddSigner(signer); err != nil {
		return fmt.Errorf("jwtx: failed to add signer to keyset: %w", err)
	}
	km.signers = append(km.signers, signer)
	return nil
}

// RetireSignerByKid stops signing with kid. Its public key stays in the
// KeySet so outstanding tickets keep verifying.
func (km *KeyManager) RetireSignerByKid(kid string) error {
	km.mu.Lock()
	defer km.mu.Unlock()

	if len(km.signers) <= 1 {
		return errors.New("jwtx: cannot retire the last signing key")
	}

	for i, s := range km.signers {
		if s.KID() == kid {
			km.signers = append(km.signers[:i:i], km.signers[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("jwtx: signer with kid %q not found", kid)
}

// Sign signs claims with a random active key.
func (km *KeyManager) Sign(claims Claims) (string, error) {
	s := km.GetSigner()
	if s == nil {
		return "", errors.New("jwtx: no active signing key")
	}
	return s.Sign(claims)
}

// GenerateSigner creates a fresh Ed25519 signer with a random kid. The PEM
// encoded private key is returned for callers that persist it.
func GenerateSigner() ([]byte, Signer, error) {
	token, err := cryptox.GenerateToken(cryptox.TokenSize128)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate random key ID: %w", err)
	}

	pemData, err := cryptox.GenerateEd25519Key()
	if err != nil {
		return nil, nil, err
	}

	signer, err := NewSignerEdDSA("sqrl-"+token, pemData)
	if err != nil {
		return nil, nil, err
	}
	return pemData, signer, nil
}
