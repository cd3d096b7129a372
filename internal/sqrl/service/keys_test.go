package service

import (
	"context"
	"testing"

	"github.com/aussiebroadwan/sqrl/internal/sqrl/store"
	"github.com/aussiebroadwan/sqrl/internal/sqrl/store/drivers/memory"
	"github.com/aussiebroadwan/sqrl/pkg/cryptox"
	"github.com/aussiebroadwan/sqrl/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func TestKeyRotation_Ephemeral(t *testing.T) {
	ctx := context.Background()
	km, err := jwtx.NewEphemeralKeyManager(jwtx.KeyManagerOptions{Issuer: "sqrl", NumKeys: 1})
	require.NoError(t, err)
	original := km.GetSigner().KID()

	svc := &KeyRotationService{KeyManager: km}

	res, err := svc.RotateKey(ctx, false)
	require.NoError(t, err)
	require.Equal(t, 2, res.ActiveKeys)
	require.Empty(t, res.RetiredKeys)

	keys, err := svc.ListSigningKeys(ctx)
	require.NoError(t, err)
	require.Len(t, keys, 2)

	res, err = svc.RotateKey(ctx, true)
	require.NoError(t, err)
	require.Equal(t, 1, res.ActiveKeys)
	require.Len(t, res.RetiredKeys, 2)
	require.Equal(t, res.NewKey.Kid, km.GetSigner().KID())

	// Retired keys still verify.
	_, err = km.KeySet.Get(original)
	require.NoError(t, err)

	require.ErrorIs(t, svc.RetireKey(ctx, original), ErrKeyNotFound)
	require.ErrorIs(t, svc.RetireKey(ctx, res.NewKey.Kid), ErrLastSigningKey)
}

func TestKeyRotation_Persistent(t *testing.T) {
	ctx := context.Background()
	db := memory.NewStore()
	enc, err := cryptox.NewKeyEncrypter([]byte("master key material"))
	require.NoError(t, err)

	km, err := jwtx.NewPersistentKeyManager(ctx, jwtx.PersistentKeyManagerOptions{
		KeyManagerOptions: jwtx.KeyManagerOptions{Issuer: "sqrl", NumKeys: 1},
		Store:             store.KeyStoreAdapter{Keys: db.SigningKeys()},
		Encrypter:         enc,
	})
	require.NoError(t, err)
	original := km.GetSigner().KID()

	svc := &KeyRotationService{Store: db, KeyManager: km, Encrypter: enc}

	res, err := svc.RotateKey(ctx, true)
	require.NoError(t, err)
	require.Equal(t, 1, res.ActiveKeys)
	require.Len(t, res.RetiredKeys, 1)
	require.Equal(t, original, res.RetiredKeys[0].Kid)
	require.NotEmpty(t, res.NewKey.ID)

	stored, err := db.SigningKeys().GetSigningKeyByKid(ctx, res.NewKey.Kid)
	require.NoError(t, err)
	pemData, err := enc.Decrypt(stored.PrivateKeyEncrypted)
	require.NoError(t, err)
	require.NotEmpty(t, pemData)

	active, err := db.SigningKeys().ListActiveSigningKeys(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	require.Equal(t, res.NewKey.Kid, active[0].Kid)

	keys, err := svc.ListSigningKeys(ctx)
	require.NoError(t, err)
	require.Len(t, keys, 2)

	require.ErrorIs(t, svc.RetireKey(ctx, original), ErrKeyAlreadyRetired)
	require.ErrorIs(t, svc.RetireKey(ctx, "missing"), ErrKeyNotFound)
	require.ErrorIs(t, svc.RetireKey(ctx, res.NewKey.Kid), ErrLastSigningKey)

	// A second key can be retired directly.
	res, err = svc.RotateKey(ctx, false)
	require.NoError(t, err)
	require.NoError(t, svc.RetireKey(ctx, res.NewKey.Kid))
	require.Equal(t, 1, km.NumSigners())

	// Reloading from the store sees the same active set.
	reloaded, err := jwtx.NewPersistentKeyManager(ctx, jwtx.PersistentKeyManagerOptions{
		KeyManagerOptions: jwtx.KeyManagerOptions{Issuer: "sqrl", NumKeys: 1},
		Store:             store.KeyStoreAdapter{Keys: db.SigningKeys()},
		Encrypter:         enc,
	})
	require.NoError(t, err)
	require.Equal(t, km.GetSigner().KID(), reloaded.GetSigner().KID())
	require.Len(t, reloaded.KeySet.PublicJWKS().Keys, 3)
}
