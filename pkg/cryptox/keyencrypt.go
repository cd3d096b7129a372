package cryptox

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

// MasterKeyEnv is consulted when no master key file is configured.
const MasterKeyEnv = "SQRL_MASTER_KEY"

const keyEncryptInfo = "sqrl signing key encryption v1"

var ErrCiphertextTooShort = errors.New("cryptox: ciphertext too short")

// KeyEncrypter seals private key material at rest with XChaCha20-Poly1305
// under a key derived from the operator's master secret via HKDF-SHA256.
//
// Output layout: [24-byte nonce][ciphertext][16-byte tag].
type KeyEncrypter struct {
	key []byte
}

// NewKeyEncrypter derives the sealing key from material. material may be any
// length but must not be empty.
func NewKeyEncrypter(material []byte) (*KeyEncrypter, error) {
	if len(material) == 0 {
		return nil, errors.New("cryptox: empty master key material")
	}

	key := make([]byte, chacha20poly1305.KeySize)
	r := hkdf.New(sha256.New, material, nil, []byte(keyEncryptInfo))
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("cryptox: derive master key: %w", err)
	}

	return &KeyEncrypter{key: key}, nil
}

// LoadKeyEncrypter reads master key material from path, falling back to the
// SQRL_MASTER_KEY env var. With neither set it returns an encrypter over a
// random key and ephemeral=true, so stored keys won't survive a restart.
func LoadKeyEncrypter(path string) (enc *KeyEncrypter, ephemeral bool, err error) {
	var material []byte

	switch {
	case path != "":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, false, fmt.Errorf("failed to read master key file: %w", err)
		}
		material = []byte(strings.TrimSpace(string(data)))
	case os.Getenv(MasterKeyEnv) != "":
		material = []byte(os.Getenv(MasterKeyEnv))
	default:
		material = make([]byte, chacha20poly1305.KeySize)
		if _, err := rand.Read(material); err != nil {
			return nil, false, fmt.Errorf("failed to generate ephemeral master key: %w", err)
		}
		ephemeral = true
	}

	enc, err = NewKeyEncrypter(material)
	return enc, ephemeral, err
}

// Encrypt seals plaintext with a fresh random nonce.
func (e *KeyEncrypter) Encrypt(plaintext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(e.key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plaintext)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	return aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Decrypt opens data produced by Encrypt. Any tampering fails authentication.
func (e *KeyEncrypter) Decrypt(data []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(e.key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	if len(data) < aead.NonceSize()+aead.Overhead() {
		return nil, ErrCiphertextTooShort
	}

	nonce, ciphertext := data[:aead.NonceSize()], data[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("decryption failed: %w", err)
	}

	return plaintext, nil
}
