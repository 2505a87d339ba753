// Package identity provisions login identities for imported profiles.
package identity

import (
	"context"
	"crypto/rand"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/venture-galaxy/matchmaker/internal/config"
	"github.com/venture-galaxy/matchmaker/internal/resilience"
	"github.com/venture-galaxy/matchmaker/internal/store"
)

var (
	// ErrConflict is returned when the email is already registered.
	ErrConflict = eris.New("identity: email already registered")
	// ErrRateLimited is returned when calls arrive faster than the
	// provisioner's minimum interval.
	ErrRateLimited = eris.New("identity: rate limited")
)

// Identity is a provisioned login.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Provisioner creates login identities.
type Provisioner interface {
	CreateIdentity(ctx context.Context, email, secret string) (Identity, error)
}

// LocalProvisioner stores identities in the application database.
type LocalProvisioner struct {
	store       store.IdentityStore
	minInterval time.Duration
	cost        int

	mu       sync.Mutex
	lastCall time.Time
	nowFunc  func() time.Time
}

// NewLocal creates a provisioner backed by st.
func NewLocal(st store.IdentityStore, cfg config.IdentityConfig) *LocalProvisioner {
	cost := cfg.BcryptCost
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &LocalProvisioner{
		store:       st,
		minInterval: time.Duration(cfg.MinIntervalMs) * time.Millisecond,
		cost:        cost,
		nowFunc:     time.Now,
	}
}

// CreateIdentity registers email with a hashed secret. Rate-limited calls
// do not count toward the interval.
func (p *LocalProvisioner) CreateIdentity(ctx context.Context, email, secret string) (Identity, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return Identity{}, eris.New("identity: email is required")
	}

	if err := p.reserve(); err != nil {
		return Identity{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(secret), p.cost)
	if err != nil {
		return Identity{}, eris.Wrap(err, "identity: hash secret")
	}

	ident := store.Identity{
		ID:         uuid.NewString(),
		Email:      email,
		SecretHash: string(hash),
		CreatedAt:  p.nowFunc().UTC(),
	}
	if err := p.store.InsertIdentity(ctx, ident); err != nil {
		if eris.Is(err, store.ErrDuplicate) {
			return Identity{}, eris.Wrapf(ErrConflict, "email %s", email)
		}
		return Identity{}, resilience.Transient("identity: insert", err)
	}

	zap.L().Debug("identity provisioned", zap.String("id", ident.ID), zap.String("email", email))
	return Identity{ID: ident.ID, Email: email}, nil
}

func (p *LocalProvisioner) reserve() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.nowFunc()
	if !p.lastCall.IsZero() && now.Sub(p.lastCall) < p.minInterval {
		return ErrRateLimited
	}
	p.lastCall = now
	return nil
}

const secretAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// GenerateSecret returns a random alphanumeric secret of length n.
func GenerateSecret(n int) (string, error) {
	if n <= 0 {
		return "", eris.New("identity: secret length must be positive")
	}
	max := big.NewInt(int64(len(secretAlphabet)))
	var b strings.Builder
	b.Grow(n)
	for i := 0; i < n; i++ {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", eris.Wrap(err, "identity: generate secret")
		}
		b.WriteByte(secretAlphabet[idx.Int64()])
	}
	return b.String(), nil
}
