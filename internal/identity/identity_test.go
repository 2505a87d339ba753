package identity

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/venture-galaxy/matchmaker/internal/config"
	"github.com/venture-galaxy/matchmaker/internal/resilience"
	"github.com/venture-galaxy/matchmaker/internal/store"
)

func newTestProvisioner(t *testing.T, minInterval int) (*LocalProvisioner, *store.SQLiteStore) {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "identity.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))

	p := NewLocal(st, config.IdentityConfig{MinIntervalMs: minInterval, BcryptCost: bcrypt.MinCost})
	return p, st
}

func TestCreateIdentity(t *testing.T) {
	p, st := newTestProvisioner(t, 0)
	ctx := context.Background()

	ident, err := p.CreateIdentity(ctx, "  Founder@Acme.io ", "s3cret")
	require.NoError(t, err)
	assert.NotEmpty(t, ident.ID)
	assert.Equal(t, "founder@acme.io", ident.Email)

	stored, err := st.GetIdentityByEmail(ctx, "founder@acme.io")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, ident.ID, stored.ID)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.SecretHash), []byte("s3cret")))
}

func TestCreateIdentity_Conflict(t *testing.T) {
	p, _ := newTestProvisioner(t, 0)
	ctx := context.Background()

	_, err := p.CreateIdentity(ctx, "dup@acme.io", "a")
	require.NoError(t, err)

	_, err = p.CreateIdentity(ctx, "DUP@acme.io", "b")
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrConflict))
	assert.False(t, resilience.IsTransient(err))
}

func TestCreateIdentity_EmptyEmail(t *testing.T) {
	p, _ := newTestProvisioner(t, 0)
	_, err := p.CreateIdentity(context.Background(), "  ", "x")
	assert.Error(t, err)
}

func TestCreateIdentity_RateLimited(t *testing.T) {
	p, _ := newTestProvisioner(t, 1000)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	p.nowFunc = func() time.Time { return now }
	ctx := context.Background()

	_, err := p.CreateIdentity(ctx, "a@acme.io", "x")
	require.NoError(t, err)

	now = now.Add(500 * time.Millisecond)
	_, err = p.CreateIdentity(ctx, "b@acme.io", "x")
	assert.True(t, errors.Is(err, ErrRateLimited))

	// Rejected calls do not push the window forward.
	now = now.Add(500 * time.Millisecond)
	_, err = p.CreateIdentity(ctx, "b@acme.io", "x")
	assert.NoError(t, err)
}

type failingStore struct{ err error }

func (f failingStore) InsertIdentity(context.Context, store.Identity) error { return f.err }
func (f failingStore) GetIdentityByEmail(context.Context, string) (*store.Identity, error) {
	return nil, f.err
}

func TestCreateIdentity_StoreErrorIsTransient(t *testing.T) {
	p := NewLocal(failingStore{err: errors.New("database is locked")}, config.IdentityConfig{BcryptCost: bcrypt.MinCost})
	_, err := p.CreateIdentity(context.Background(), "x@acme.io", "x")
	require.Error(t, err)
	assert.True(t, resilience.IsTransient(err))
}

func TestNewLocal_InvalidCost(t *testing.T) {
	p := NewLocal(failingStore{}, config.IdentityConfig{BcryptCost: 99})
	assert.Equal(t, bcrypt.DefaultCost, p.cost)
}

func TestGenerateSecret(t *testing.T) {
	s, err := GenerateSecret(12)
	require.NoError(t, err)
	assert.Len(t, s, 12)
	assert.Regexp(t, `^[a-zA-Z0-9]{12}$`, s)

	other, err := GenerateSecret(12)
	require.NoError(t, err)
	assert.NotEqual(t, s, other)

	_, err = GenerateSecret(0)
	assert.Error(t, err)
}
