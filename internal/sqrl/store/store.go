package store

import (
	"context"
	"errors"

	"github.com/aussiebroadwan/sqrl/internal/sqrl/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite,
// postgres, memory) implement this. Sub-repositories are exposed as methods
// so a Tx-scoped Store can hand out the same repos bound to the transaction.
type Store interface {
	Identities() Identities
	SigningKeys() SigningKeys

	ApplyMigrations(ctx context.Context) error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction. If fn returns an error the
	// transaction is rolled back, otherwise it is committed.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the backing store is still reachable.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

// Identities is the host-supplied identity store. The login engine never
// keeps its own user list; every question about a user goes through here.
//
// Implementations are not assumed to be safe for concurrent mutation of the
// same user id. Callers serialise mutations per user.
type Identities interface {
	// UserExists classifies userID as unknown, existing or disabled.
	UserExists(ctx context.Context, userID string) (domain.UserLookup, error)

	// CreateUser registers a new identity. Returns ErrAlreadyExists when
	// userID is taken.
	CreateUser(ctx context.Context, userID string, suk, vuk []byte) error

	// GetUserSUK returns the stored server unlock key. ErrNotFound if unknown.
	GetUserSUK(ctx context.Context, userID string) ([]byte, error)

	// GetUserVUK returns the stored verify unlock key. ErrNotFound if unknown.
	GetUserVUK(ctx context.Context, userID string) ([]byte, error)

	// UpdateUserID rekeys oldUserID to newUserID, replacing both unlock keys.
	UpdateUserID(ctx context.Context, newUserID string, suk, vuk []byte, oldUserID string) error

	// LockUser and UnlockUser toggle the disabled flag. Both are idempotent.
	LockUser(ctx context.Context, userID string) error
	UnlockUser(ctx context.Context, userID string) error

	// RemoveUser deletes the identity. ErrNotFound if unknown.
	RemoveUser(ctx context.Context, userID string) error

	// GetIdentity returns the full record. Used by admin surfaces.
	GetIdentity(ctx context.Context, userID string) (domain.Identity, error)
}

// SigningKeys persists session ticket signing keys.
type SigningKeys interface {
	// CreateSigningKey inserts a new signing key.
	CreateSigningKey(ctx context.Context, key domain.SigningKey) error

	// GetSigningKeyByKid retrieves a signing key by its key ID.
	GetSigningKeyByKid(ctx context.Context, kid string) (domain.SigningKey, error)

	// ListActiveSigningKeys returns non-retired, non-expired keys, newest first.
	ListActiveSigningKeys(ctx context.Context) ([]domain.SigningKey, error)

	// ListAllSigningKeys returns every non-expired key, retired ones included.
	ListAllSigningKeys(ctx context.Context) ([]domain.SigningKey, error)

	// RetireSigningKey marks a key as retired. It stays valid for verification.
	RetireSigningKey(ctx context.Context, kid string) error

	// DeleteExpiredSigningKeys removes keys past their expiry.
	DeleteExpiredSigningKeys(ctx context.Context) error
}
