package storage

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/and161185/cacti-shop/internal/crypto/sessioncrypto"
)

// Sealed wraps a Store, sealing values at rest with XChaCha20-Poly1305.
// The key name is bound into the authentication tag, so a value moved to
// another key fails to open.
type Sealed struct {
	inner Store
	key   []byte
}

// NewSealed constructs a sealing wrapper over inner.
func NewSealed(inner Store, key []byte) *Sealed {
	return &Sealed{inner: inner, key: key}
}

// Get reads and opens the sealed value for key.
func (s *Sealed) Get(ctx context.Context, key string) (string, error) {
	raw, err := s.inner.Get(ctx, key)
	if err != nil {
		return "", err
	}
	blob, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return "", fmt.Errorf("decode sealed value: %w", err)
	}
	pt, err := sessioncrypto.Open(s.key, []byte(key), blob)
	if err != nil {
		return "", fmt.Errorf("open sealed value: %w", err)
	}
	return string(pt), nil
}

// Put seals the value and writes it to the inner store.
func (s *Sealed) Put(ctx context.Context, key, value string) error {
	blob, err := sessioncrypto.Seal(s.key, []byte(key), []byte(value))
	if err != nil {
		return fmt.Errorf("seal value: %w", err)
	}
	return s.inner.Put(ctx, key, base64.StdEncoding.EncodeToString(blob))
}

// Delete removes key from the inner store.
func (s *Sealed) Delete(ctx context.Context, key string) error {
	return s.inner.Delete(ctx, key)
}
