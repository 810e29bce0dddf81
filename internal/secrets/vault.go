// Package secrets seals credential fields before they reach the store.
//
// The vault key is derived with argon2id from random key material generated
// on first run and kept under a reserved store key. Since that material
// lives next to the data it protects, this guards against casual reads of
// the database file, not against an attacker with full local access — a
// documented limitation, not a security boundary.
package secrets

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// sealedPrefix versions the sealed format so future schemes can coexist.
const sealedPrefix = "v1:"

var ErrMalformed = errors.New("malformed sealed value")

// KeyStore persists reserved key material. *storage.Store satisfies it.
type KeyStore interface {
	GetSecret(ctx context.Context, name string) ([]byte, bool, error)
	SetSecret(ctx context.Context, name string, value []byte) error
}

// Vault seals and opens short strings with AES-256-GCM.
type Vault struct {
	aead cipher.AEAD
}

// New builds a vault from a 32-byte key.
func New(key []byte) (*Vault, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Vault{aead: aead}, nil
}

// DeriveKey stretches secret+salt into a 32-byte AES key with argon2id.
func DeriveKey(secret, salt []byte) []byte {
	return argon2.IDKey(secret, salt, 1, 64*1024, 4, 32)
}

type keyMaterial struct {
	Secret []byte `json:"secret"`
	Salt   []byte `json:"salt"`
}

const keyName = "vault-key"

// Bootstrap loads the vault key material from ks, generating and persisting
// fresh material on first run.
func Bootstrap(ctx context.Context, ks KeyStore) (*Vault, error) {
	raw, ok, err := ks.GetSecret(ctx, keyName)
	if err != nil {
		return nil, fmt.Errorf("load vault key: %w", err)
	}

	var km keyMaterial
	if ok {
		if err := json.Unmarshal(raw, &km); err != nil {
			return nil, fmt.Errorf("decode vault key: %w", err)
		}
	} else {
		km.Secret = make([]byte, 32)
		km.Salt = make([]byte, 16)
		if _, err := rand.Read(km.Secret); err != nil {
			return nil, err
		}
		if _, err := rand.Read(km.Salt); err != nil {
			return nil, err
		}
		data, err := json.Marshal(km)
		if err != nil {
			return nil, err
		}
		if err := ks.SetSecret(ctx, keyName, data); err != nil {
			return nil, fmt.Errorf("persist vault key: %w", err)
		}
	}

	return New(DeriveKey(km.Secret, km.Salt))
}

// Seal encrypts plaintext and encodes it as "v1:" + base64(nonce||ciphertext).
func (v *Vault) Seal(plaintext string) (string, error) {
	nonce := make([]byte, v.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	ct := v.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return sealedPrefix + base64.StdEncoding.EncodeToString(ct), nil
}

// Open reverses Seal. Tampered or foreign inputs fail.
func (v *Vault) Open(sealed string) (string, error) {
	if !strings.HasPrefix(sealed, sealedPrefix) {
		return "", ErrMalformed
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(sealed, sealedPrefix))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if len(raw) < v.aead.NonceSize() {
		return "", ErrMalformed
	}
	nonce, ct := raw[:v.aead.NonceSize()], raw[v.aead.NonceSize():]
	pt, err := v.aead.Open(nil, nonce, ct, nil)
	if err != nil {
		return "", err
	}
	return string(pt), nil
}

// IsSealed reports whether s looks like a vault-sealed value.
func IsSealed(s string) bool {
	return strings.HasPrefix(s, sealedPrefix)
}
