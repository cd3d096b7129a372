package sqrlsdk

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
)

var b64 = base64.RawURLEncoding

// Identity is a client's key material for one site.
type Identity struct {
	idk    ed25519.PrivateKey
	unlock ed25519.PrivateKey
	suk    []byte
}

// NewIdentity generates a fresh identity.
func NewIdentity() (*Identity, error) {
	_, idk, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("sqrlsdk: generate identity key: %w", err)
	}
	_, unlock, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("sqrlsdk: generate unlock key: %w", err)
	}

	suk := make([]byte, 32)
	if _, err := rand.Read(suk); err != nil {
		return nil, fmt.Errorf("sqrlsdk: generate suk: %w", err)
	}

	return &Identity{idk: idk, unlock: unlock, suk: suk}, nil
}

// UserID is the base64url IDK public key, which is also the IDK on the wire.
func (id *Identity) UserID() string {
	return b64.EncodeToString(id.idk.Public().(ed25519.PublicKey))
}

// IDK is an alias for UserID.
func (id *Identity) IDK() string { return id.UserID() }

// SUK returns the encoded server unlock key.
func (id *Identity) SUK() string { return b64.EncodeToString(id.suk) }

// VUK returns the encoded verify unlock key.
func (id *Identity) VUK() string {
	return b64.EncodeToString(id.unlock.Public().(ed25519.PublicKey))
}

// Sign signs the canonical message for cmd with the IDK.
func (id *Identity) Sign(cmd Command, nut, path string) string {
	return b64.EncodeToString(ed25519.Sign(id.idk, SignedMessage(cmd, nut, path, id.UserID())))
}

// SignUnlock produces the URS for cmd with the unlock key.
func (id *Identity) SignUnlock(cmd Command, nut, path string) string {
	return b64.EncodeToString(ed25519.Sign(id.unlock, SignedMessage(cmd, nut, path, id.UserID())))
}

type identityJSON struct {
	IDK    string `json:"idk_seed"`
	Unlock string `json:"unlock_seed"`
	SUK    string `json:"suk"`
}

// MarshalJSON stores the private seeds. Treat the output as a secret.
func (id *Identity) MarshalJSON() ([]byte, error) {
	return json.Marshal(identityJSON{
		IDK:    b64.EncodeToString(id.idk.Seed()),
		Unlock: b64.EncodeToString(id.unlock.Seed()),
		SUK:    id.SUK(),
	})
}

// UnmarshalJSON restores an identity written by MarshalJSON.
func (id *Identity) UnmarshalJSON(data []byte) error {
	var raw identityJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	idkSeed, err := b64.DecodeString(raw.IDK)
	if err != nil || len(idkSeed) != ed25519.SeedSize {
		return errors.New("sqrlsdk: invalid idk seed")
	}
	unlockSeed, err := b64.DecodeString(raw.Unlock)
	if err != nil || len(unlockSeed) != ed25519.SeedSize {
		return errors.New("sqrlsdk: invalid unlock seed")
	}
	suk, err := b64.DecodeString(raw.SUK)
	if err != nil || len(suk) == 0 {
		return errors.New("sqrlsdk: invalid suk")
	}

	id.idk = ed25519.NewKeyFromSeed(idkSeed)
	id.unlock = ed25519.NewKeyFromSeed(unlockSeed)
	id.suk = suk
	return nil
}
