package cryptox_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aussiebroadwan/sqrl/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

func TestKeyEncrypter_RoundTrip(t *testing.T) {
	enc, err := cryptox.NewKeyEncrypter([]byte("test-master-key-for-encryption-12345"))
	require.NoError(t, err)

	pemKey, err := cryptox.GenerateEd25519Key()
	require.NoError(t, err)

	sealed1, err := enc.Encrypt(pemKey)
	require.NoError(t, err)
	sealed2, err := enc.Encrypt(pemKey)
	require.NoError(t, err)

	// Random nonce per call
	require.NotEqual(t, sealed1, sealed2)

	for _, sealed := range [][]byte{sealed1, sealed2} {
		plain, err := enc.Decrypt(sealed)
		require.NoError(t, err)
		require.Equal(t, pemKey, plain)
	}
}

func TestKeyEncrypter_Rejects(t *testing.T) {
	enc, err := cryptox.NewKeyEncrypter([]byte("key-a"))
	require.NoError(t, err)
	other, err := cryptox.NewKeyEncrypter([]byte("key-b"))
	require.NoError(t, err)

	sealed, err := enc.Encrypt([]byte("sensitive"))
	require.NoError(t, err)

	t.Run("wrong key", func(t *testing.T) {
		_, err := other.Decrypt(sealed)
		require.Error(t, err)
	})

	t.Run("tampered", func(t *testing.T) {
		tampered := append([]byte(nil), sealed...)
		tampered[len(tampered)-1] ^= 0xFF
		_, err := enc.Decrypt(tampered)
		require.Error(t, err)
	})

	t.Run("too short", func(t *testing.T) {
		_, err := enc.Decrypt([]byte("short"))
		require.ErrorIs(t, err, cryptox.ErrCiphertextTooShort)
	})

	t.Run("empty material", func(t *testing.T) {
		_, err := cryptox.NewKeyEncrypter(nil)
		require.Error(t, err)
	})
}

func TestLoadKeyEncrypter(t *testing.T) {
	t.Run("from file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "master.key")
		require.NoError(t, os.WriteFile(path, []byte("file-secret\n"), 0o600))

		fromFile, ephemeral, err := cryptox.LoadKeyEncrypter(path)
		require.NoError(t, err)
		require.False(t, ephemeral)

		direct, err := cryptox.NewKeyEncrypter([]byte("file-secret"))
		require.NoError(t, err)

		sealed, err := direct.Encrypt([]byte("x"))
		require.NoError(t, err)
		plain, err := fromFile.Decrypt(sealed)
		require.NoError(t, err)
		require.Equal(t, []byte("x"), plain)
	})

	t.Run("from env", func(t *testing.T) {
		t.Setenv(cryptox.MasterKeyEnv, "env-secret")
		_, ephemeral, err := cryptox.LoadKeyEncrypter("")
		require.NoError(t, err)
		require.False(t, ephemeral)
	})

	t.Run("ephemeral", func(t *testing.T) {
		t.Setenv(cryptox.MasterKeyEnv, "")
		_, ephemeral, err := cryptox.LoadKeyEncrypter("")
		require.NoError(t, err)
		require.True(t, ephemeral)
	})

	t.Run("missing file", func(t *testing.T) {
		_, _, err := cryptox.LoadKeyEncrypter(filepath.Join(t.TempDir(), "nope"))
		require.Error(t, err)
	})
}
