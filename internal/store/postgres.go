package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/venture-galaxy/matchmaker/internal/db"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection.
var preparedStatements = map[string]string{
	"put_document":          putDocumentSQL,
	"get_document":          `SELECT data FROM documents WHERE collection = $1 AND id = $2`,
	"list_documents":        `SELECT id, data FROM documents WHERE collection = $1 ORDER BY id`,
	"insert_identity":       insertIdentitySQL,
	"get_identity_by_email": `SELECT id, email, secret_hash, created_at FROM identities WHERE email = $1`,
}

const putDocumentSQL = `INSERT INTO documents (collection, id, data, created_at, updated_at) VALUES ($1, $2, $3, $4, $4)
ON CONFLICT (collection, id) DO UPDATE SET data = documents.data || EXCLUDED.data, updated_at = EXCLUDED.updated_at`

const insertIdentitySQL = `INSERT INTO identities (id, email, secret_hash, created_at) VALUES ($1, $2, $3, $4)
ON CONFLICT (email) DO NOTHING`

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS documents (
	collection TEXT NOT NULL,
	id         TEXT NOT NULL,
	data       JSONB NOT NULL DEFAULT '{}'::jsonb,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (collection, id)
);

CREATE TABLE IF NOT EXISTS identities (
	id          TEXT PRIMARY KEY,
	email       TEXT NOT NULL UNIQUE,
	secret_hash TEXT NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_documents_collection ON documents(collection);
CREATE INDEX IF NOT EXISTS idx_documents_data ON documents USING GIN (data);
`

// Ping checks the pool.
func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

// Migrate creates the schema.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// Put merges fields into the stored document with jsonb ||, which replaces
// top-level keys whole and keeps nil values as JSON null.
func (s *PostgresStore) Put(ctx context.Context, collection, id string, fields map[string]any) error {
	data, err := json.Marshal(fields)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal document")
	}

	_, err = s.pool.Exec(ctx, putDocumentSQL, collection, id, data, time.Now().UTC())
	if err != nil {
		return eris.Wrapf(err, "postgres: put %s/%s", collection, id)
	}
	return nil
}

// Get returns the document or nil, nil when absent.
func (s *PostgresStore) Get(ctx context.Context, collection, id string) (map[string]any, error) {
	var data []byte
	err := s.pool.QueryRow(ctx,
		`SELECT data FROM documents WHERE collection = $1 AND id = $2`,
		collection, id,
	).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get %s/%s", collection, id)
	}
	return decodeDocument(data)
}

// List returns every document in collection ordered by id.
func (s *PostgresStore) List(ctx context.Context, collection string) ([]Entry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, data FROM documents WHERE collection = $1 ORDER BY id`,
		collection,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list %s", collection)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var id string
		var data []byte
		if err := rows.Scan(&id, &data); err != nil {
			return nil, eris.Wrap(err, "postgres: scan document")
		}
		fields, err := decodeDocument(data)
		if err != nil {
			return nil, err
		}
		entries = append(entries, Entry{ID: id, Fields: fields})
	}
	return entries, eris.Wrap(rows.Err(), "postgres: list iterate")
}

// InsertIdentity stores ident, returning ErrDuplicate if the email exists.
func (s *PostgresStore) InsertIdentity(ctx context.Context, ident Identity) error {
	tag, err := s.pool.Exec(ctx, insertIdentitySQL,
		ident.ID, ident.Email, ident.SecretHash, ident.CreatedAt.UTC(),
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: insert identity %s", ident.Email)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrDuplicate, "email %s", ident.Email)
	}
	return nil
}

// GetIdentityByEmail returns the identity or nil, nil when absent.
func (s *PostgresStore) GetIdentityByEmail(ctx context.Context, email string) (*Identity, error) {
	var ident Identity
	err := s.pool.QueryRow(ctx,
		`SELECT id, email, secret_hash, created_at FROM identities WHERE email = $1`,
		email,
	).Scan(&ident.ID, &ident.Email, &ident.SecretHash, &ident.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get identity %s", email)
	}
	return &ident, nil
}
