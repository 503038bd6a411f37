// Package vault seals per-user ticket tracker tokens at rest.
package vault

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"io"

	"github.com/pkg/errors"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"

	"github.com/hrygo/chronolog/store"
)

const keyInfo = "chronolog credential vault v1"

var (
	// ErrNoCredential is returned when the user has not configured a token.
	ErrNoCredential = errors.New("no credential configured")
	// ErrTampered is returned when a sealed token fails authentication.
	ErrTampered = errors.New("credential failed authentication")
)

// CredentialStore persists sealed tokens.
type CredentialStore interface {
	UpsertUserCredential(ctx context.Context, upsert *store.UpsertUserCredential) (*store.UserCredential, error)
	GetUserCredential(ctx context.Context, find *store.FindUserCredential) (*store.UserCredential, error)
}

// Vault encrypts tokens with XChaCha20-Poly1305 under a key derived from a
// master secret. The sealed form is bound to the owning user and platform.
type Vault struct {
	store CredentialStore
	key   []byte
}

// New derives the vault key from secret.
func New(secret string, credentialStore CredentialStore) (*Vault, error) {
	if secret == "" {
		return nil, errors.New("vault secret is required")
	}

	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(keyInfo)), key); err != nil {
		return nil, errors.Wrap(err, "failed to derive vault key")
	}
	return &Vault{store: credentialStore, key: key}, nil
}

// Seal encrypts plaintext for (userID, platform). The result is base64 text
// holding nonce || ciphertext.
func (v *Vault) Seal(userID, platform, plaintext string) (string, error) {
	aead, err := chacha20poly1305.NewX(v.key)
	if err != nil {
		return "", errors.Wrap(err, "failed to init cipher")
	}

	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plaintext)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", errors.Wrap(err, "failed to generate nonce")
	}
	sealed := aead.Seal(nonce, nonce, []byte(plaintext), additionalData(userID, platform))
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Open reverses Seal.
func (v *Vault) Open(userID, platform, sealed string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(sealed)
	if err != nil {
		return "", ErrTampered
	}

	aead, err := chacha20poly1305.NewX(v.key)
	if err != nil {
		return "", errors.Wrap(err, "failed to init cipher")
	}
	if len(raw) < aead.NonceSize() {
		return "", ErrTampered
	}

	nonce, ciphertext := raw[:aead.NonceSize()], raw[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, ciphertext, additionalData(userID, platform))
	if err != nil {
		return "", ErrTampered
	}
	return string(plaintext), nil
}

// SetToken seals and stores token for the user.
func (v *Vault) SetToken(ctx context.Context, userID, platform, token string) error {
	if token == "" {
		return errors.New("token is empty")
	}

	sealed, err := v.Seal(userID, platform, token)
	if err != nil {
		return err
	}
	if _, err := v.store.UpsertUserCredential(ctx, &store.UpsertUserCredential{
		UserID:         userID,
		Platform:       platform,
		EncryptedToken: sealed,
	}); err != nil {
		return errors.Wrap(err, "failed to store credential")
	}
	return nil
}

// Token loads and opens the user's token.
func (v *Vault) Token(ctx context.Context, userID, platform string) (string, error) {
	credential, err := v.store.GetUserCredential(ctx, &store.FindUserCredential{
		UserID:   userID,
		Platform: platform,
	})
	if err != nil {
		return "", errors.Wrap(err, "failed to load credential")
	}
	if credential == nil {
		return "", ErrNoCredential
	}
	return v.Open(userID, platform, credential.EncryptedToken)
}

func additionalData(userID, platform string) []byte {
	return []byte(platform + "\x00" + userID)
}
