package cryptox_test

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"

	"github.com/aussiebroadwan/sqrl/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

func TestGenerateEd25519Key_RoundTrip(t *testing.T) {
	pemBytes, err := cryptox.GenerateEd25519Key()
	require.NoError(t, err)
	require.Contains(t, string(pemBytes), "BEGIN PRIVATE KEY")

	key, err := cryptox.ParseEd25519Key(pemBytes)
	require.NoError(t, err)
	require.Len(t, key, ed25519.PrivateKeySize)
}

func TestParseEd25519Key_Rejects(t *testing.T) {
	_, err := cryptox.ParseEd25519Key([]byte("not pem"))
	require.Error(t, err)

	_, err = cryptox.ParseEd25519Key([]byte("-----BEGIN PUBLIC KEY-----\nAAAA\n-----END PUBLIC KEY-----\n"))
	require.Error(t, err)
}

func TestEd25519Verifier(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	msg := []byte("ver=1&cmd=ident")
	sig := ed25519.Sign(priv, msg)

	v := cryptox.Ed25519Verifier{}

	tests := []struct {
		name string
		pub  []byte
		msg  []byte
		sig  []byte
		want bool
	}{
		{"valid", pub, msg, sig, true},
		{"tampered message", pub, []byte("ver=1&cmd=query"), sig, false},
		{"short key", pub[:10], msg, sig, false},
		{"short signature", pub, msg, sig[:10], false},
		{"nil everything", nil, nil, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, v.Verify(tt.pub, tt.msg, tt.sig))
		})
	}
}

func TestDecodePublicKey(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	decoded, err := cryptox.DecodePublicKey(cryptox.EncodeKey(pub))
	require.NoError(t, err)
	require.Equal(t, pub, decoded)

	_, err = cryptox.DecodePublicKey("!!!")
	require.ErrorIs(t, err, cryptox.ErrInvalidPublicKey)

	_, err = cryptox.DecodePublicKey(cryptox.EncodeKey([]byte("short")))
	require.ErrorIs(t, err, cryptox.ErrInvalidPublicKey)
}
