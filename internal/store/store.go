// Package store persists profile documents and provisioned identities.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
)

// ErrNotFound is returned by callers that require a document to exist.
var ErrNotFound = eris.New("store: not found")

// ErrDuplicate is returned by InsertIdentity when the email is taken.
var ErrDuplicate = eris.New("store: duplicate identity")

// Entry is a document together with its id.
type Entry struct {
	ID     string         `json:"id"`
	Fields map[string]any `json:"fields"`
}

// DocumentStore is a key-value store of JSON documents addressed by
// collection and id.
type DocumentStore interface {
	// Put merges fields into the document, creating it when absent. Each
	// top-level key in fields replaces the stored value whole, a nil value is
	// stored as null, and keys not present in fields are left untouched.
	Put(ctx context.Context, collection, id string, fields map[string]any) error
	// Get returns nil, nil when the document does not exist.
	Get(ctx context.Context, collection, id string) (map[string]any, error)
	// List returns every document in the collection ordered by id.
	List(ctx context.Context, collection string) ([]Entry, error)
}

// Identity is a provisioned login.
type Identity struct {
	ID         string    `json:"id"`
	Email      string    `json:"email"`
	SecretHash string    `json:"-"`
	CreatedAt  time.Time `json:"created_at"`
}

// IdentityStore persists identities keyed by unique email.
type IdentityStore interface {
	InsertIdentity(ctx context.Context, ident Identity) error
	// GetIdentityByEmail returns nil, nil when no identity has the email.
	GetIdentityByEmail(ctx context.Context, email string) (*Identity, error)
}

// Store is the full persistence interface.
type Store interface {
	DocumentStore
	IdentityStore

	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	Close() error
}

// MustGet returns the document or an error wrapping ErrNotFound.
func MustGet(ctx context.Context, docs DocumentStore, collection, id string) (map[string]any, error) {
	doc, err := docs.Get(ctx, collection, id)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, eris.Wrapf(ErrNotFound, "%s/%s", collection, id)
	}
	return doc, nil
}
