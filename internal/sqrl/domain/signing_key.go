package domain

import "time"

// SigningKey is a session ticket signing key persisted for restarts. The
// private key is sealed with the master key before it reaches the store.
type SigningKey struct {
	ID                  string // ULID
	Kid                 string // e.g. "sqrl-abc123"
	Algorithm           string // always EdDSA
	PrivateKeyEncrypted []byte
	CreatedAt           time.Time
	RetiredAt           *time.Time // nil while active
	ExpiresAt           time.Time  // deleted by housekeeping after this
}

// IsActive returns true if the key is not retired and not expired.
func (k *SigningKey) IsActive(now time.Time) bool {
	return k.RetiredAt == nil && now.Before(k.ExpiresAt)
}

// IsExpired returns true if the key has passed its expiration time.
func (k *SigningKey) IsExpired(now time.Time) bool {
	return now.After(k.ExpiresAt)
}
