package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/and161185/cacti-shop/internal/crypto/sessioncrypto"
	"github.com/and161185/cacti-shop/internal/errs"
)

type memStore map[string]string

func (m memStore) Get(_ context.Context, key string) (string, error) {
	v, ok := m[key]
	if !ok {
		return "", errs.ErrNotFound
	}
	return v, nil
}
func (m memStore) Put(_ context.Context, key, value string) error {
	m[key] = value
	return nil
}
func (m memStore) Delete(_ context.Context, key string) error {
	delete(m, key)
	return nil
}

func newSealed(t *testing.T, inner Store) *Sealed {
	t.Helper()
	key, err := sessioncrypto.Rand(sessioncrypto.KeyLen)
	require.NoError(t, err)
	return NewSealed(inner, key)
}

func TestSealed_RoundTrip(t *testing.T) {
	t.Parallel()
	inner := memStore{}
	s := newSealed(t, inner)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "userData", `{"token":"t"}`))

	// the value at rest is not the plaintext
	require.NotEqual(t, `{"token":"t"}`, inner["userData"])

	got, err := s.Get(ctx, "userData")
	require.NoError(t, err)
	require.Equal(t, `{"token":"t"}`, got)

	require.NoError(t, s.Delete(ctx, "userData"))
	_, err = s.Get(ctx, "userData")
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestSealed_KeyBinding(t *testing.T) {
	t.Parallel()
	inner := memStore{}
	s := newSealed(t, inner)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "userData", "secret"))

	// a sealed value copied under another key must not open
	inner["other"] = inner["userData"]
	_, err := s.Get(ctx, "other")
	require.Error(t, err)
}

func TestSealed_RejectsGarbage(t *testing.T) {
	t.Parallel()
	inner := memStore{"userData": "not base64 %%"}
	s := newSealed(t, inner)

	_, err := s.Get(context.Background(), "userData")
	require.Error(t, err)
}
