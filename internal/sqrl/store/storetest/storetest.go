// Package storetest holds the behaviour every store.Store driver must share.
// Driver packages call Run from their own tests.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aussiebroadwan/sqrl/internal/sqrl/domain"
	"github.com/aussiebroadwan/sqrl/internal/sqrl/store"
	"github.com/stretchr/testify/require"
)

// Factory returns a freshly migrated, empty store.
type Factory func(t *testing.T) store.Store

// Run exercises the identity and signing key contracts against newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("Identities", func(t *testing.T) { testIdentities(t, newStore(t)) })
	t.Run("Rekey", func(t *testing.T) { testRekey(t, newStore(t)) })
	t.Run("Tx", func(t *testing.T) { testTx(t, newStore(t)) })
	t.Run("SigningKeys", func(t *testing.T) { testSigningKeys(t, newStore(t)) })
}

func testIdentities(t *testing.T, s store.Store) {
	ctx := context.Background()
	ids := s.Identities()

	lookup, err := ids.UserExists(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, domain.UserUnknown, lookup)

	require.NoError(t, ids.CreateUser(ctx, "alice", []byte("suk-a"), []byte("vuk-a")))
	require.ErrorIs(t, ids.CreateUser(ctx, "alice", []byte("x"), []byte("y")), store.ErrAlreadyExists)

	lookup, err = ids.UserExists(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, domain.UserExists, lookup)

	suk, err := ids.GetUserSUK(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, []byte("suk-a"), suk)

	vuk, err := ids.GetUserVUK(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, []byte("vuk-a"), vuk)

	_, err = ids.GetUserSUK(ctx, "bob")
	require.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, ids.LockUser(ctx, "alice"))
	require.NoError(t, ids.LockUser(ctx, "alice"), "lock is idempotent")
	lookup, err = ids.UserExists(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, domain.UserDisabled, lookup)

	identity, err := ids.GetIdentity(ctx, "alice")
	require.NoError(t, err)
	require.True(t, identity.Locked)
	require.Equal(t, "alice", identity.UserID)

	require.NoError(t, ids.UnlockUser(ctx, "alice"))
	lookup, err = ids.UserExists(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, domain.UserExists, lookup)

	require.ErrorIs(t, ids.LockUser(ctx, "bob"), store.ErrNotFound)

	require.NoError(t, ids.RemoveUser(ctx, "alice"))
	require.ErrorIs(t, ids.RemoveUser(ctx, "alice"), store.ErrNotFound)
	lookup, err = ids.UserExists(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, domain.UserUnknown, lookup)
}

func testRekey(t *testing.T, s store.Store) {
	ctx := context.Background()
	ids := s.Identities()

	require.NoError(t, ids.CreateUser(ctx, "old", []byte("suk-1"), []byte("vuk-1")))
	require.NoError(t, ids.CreateUser(ctx, "taken", []byte("suk-t"), []byte("vuk-t")))

	require.ErrorIs(t, ids.UpdateUserID(ctx, "taken", []byte("s"), []byte("v"), "old"), store.ErrAlreadyExists)
	require.ErrorIs(t, ids.UpdateUserID(ctx, "new", []byte("s"), []byte("v"), "missing"), store.ErrNotFound)

	require.NoError(t, ids.UpdateUserID(ctx, "new", []byte("suk-2"), []byte("vuk-2"), "old"))

	lookup, err := ids.UserExists(ctx, "old")
	require.NoError(t, err)
	require.Equal(t, domain.UserUnknown, lookup)

	suk, err := ids.GetUserSUK(ctx, "new")
	require.NoError(t, err)
	require.Equal(t, []byte("suk-2"), suk)
}

func testTx(t *testing.T, s store.Store) {
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.WithTx(ctx, func(tx store.Tx) error {
		require.NoError(t, tx.Identities().CreateUser(ctx, "rolled-back", []byte("s"), []byte("v")))
		return boom
	})
	require.ErrorIs(t, err, boom)

	lookup, err := s.Identities().UserExists(ctx, "rolled-back")
	require.NoError(t, err)
	require.Equal(t, domain.UserUnknown, lookup)

	require.NoError(t, s.WithTx(ctx, func(tx store.Tx) error {
		return tx.Identities().CreateUser(ctx, "committed", []byte("s"), []byte("v"))
	}))

	lookup, err = s.Identities().UserExists(ctx, "committed")
	require.NoError(t, err)
	require.Equal(t, domain.UserExists, lookup)
}

func testSigningKeys(t *testing.T, s store.Store) {
	ctx := context.Background()
	keys := s.SigningKeys()
	now := time.Now().UTC().Truncate(time.Second)

	mk := func(id, kid string, created time.Time, expires time.Time) domain.SigningKey {
		return domain.SigningKey{
			ID:                  id,
			Kid:                 kid,
			Algorithm:           "EdDSA",
			PrivateKeyEncrypted: []byte("sealed-" + kid),
			CreatedAt:           created,
			ExpiresAt:           expires,
		}
	}

	require.NoError(t, keys.CreateSigningKey(ctx, mk("1", "older", now.Add(-2*time.Hour), now.Add(time.Hour))))
	require.NoError(t, keys.CreateSigningKey(ctx, mk("2", "newer", now.Add(-time.Hour), now.Add(time.Hour))))
	require.NoError(t, keys.CreateSigningKey(ctx, mk("3", "expired", now.Add(-3*time.Hour), now.Add(-time.Minute))))
	require.ErrorIs(t, keys.CreateSigningKey(ctx, mk("4", "newer", now, now.Add(time.Hour))), store.ErrAlreadyExists)

	got, err := keys.GetSigningKeyByKid(ctx, "newer")
	require.NoError(t, err)
	require.Equal(t, []byte("sealed-newer"), got.PrivateKeyEncrypted)
	require.Nil(t, got.RetiredAt)

	_, err = keys.GetSigningKeyByKid(ctx, "nope")
	require.ErrorIs(t, err, store.ErrNotFound)

	active, err := keys.ListActiveSigningKeys(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"newer", "older"}, kids(active))

	require.NoError(t, keys.RetireSigningKey(ctx, "older"))
	active, err = keys.ListActiveSigningKeys(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"newer"}, kids(active))

	all, err := keys.ListAllSigningKeys(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"newer", "older"}, kids(all))

	require.NoError(t, keys.DeleteExpiredSigningKeys(ctx))
	_, err = keys.GetSigningKeyByKid(ctx, "expired")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func kids(keys []domain.SigningKey) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = k.Kid
	}
	return out
}
