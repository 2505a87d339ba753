package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	// Pragmas such as busy_timeout are per connection.
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS documents (
	collection TEXT NOT NULL,
	id         TEXT NOT NULL,
	data       TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now')),
	PRIMARY KEY (collection, id)
);

CREATE TABLE IF NOT EXISTS identities (
	id          TEXT PRIMARY KEY,
	email       TEXT NOT NULL UNIQUE,
	secret_hash TEXT NOT NULL,
	created_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_documents_collection ON documents(collection);
`

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

// Migrate creates the schema.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Put replaces each top-level key in fields with json_set, matching the
// jsonb || merge of the Postgres store. Nested objects are replaced whole and
// nil values are stored as JSON null.
func (s *SQLiteStore) Put(ctx context.Context, collection, id string, fields map[string]any) error {
	data, err := json.Marshal(fields)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal document")
	}
	merge, mergeArgs, err := sqliteMergeExpr(fields)
	if err != nil {
		return eris.Wrapf(err, "sqlite: put %s/%s", collection, id)
	}
	now := time.Now().UTC()

	args := append([]any{collection, id, string(data), now, now}, mergeArgs...)
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO documents (collection, id, data, created_at, updated_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (collection, id) DO UPDATE SET
		   data = `+merge+`,
		   updated_at = excluded.updated_at`,
		args...,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: put %s/%s", collection, id)
	}
	return nil
}

// sqliteMergeExpr builds json_set(documents.data, path, json(value), ...)
// over the keys of fields in sorted order.
func sqliteMergeExpr(fields map[string]any) (string, []any, error) {
	if len(fields) == 0 {
		return "documents.data", nil, nil
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		if strings.ContainsRune(k, '"') {
			return "", nil, eris.Errorf("invalid field name %q", k)
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("json_set(documents.data")
	args := make([]any, 0, 2*len(keys))
	for _, k := range keys {
		v, err := json.Marshal(fields[k])
		if err != nil {
			return "", nil, eris.Wrapf(err, "marshal field %s", k)
		}
		b.WriteString(", ?, json(?)")
		args = append(args, `$."`+k+`"`, string(v))
	}
	b.WriteString(")")
	return b.String(), args, nil
}

// Get returns the document or nil, nil when absent.
func (s *SQLiteStore) Get(ctx context.Context, collection, id string) (map[string]any, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM documents WHERE collection = ? AND id = ?`,
		collection, id,
	).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get %s/%s", collection, id)
	}
	return decodeDocument([]byte(data))
}

// List returns every document in collection ordered by id.
func (s *SQLiteStore) List(ctx context.Context, collection string) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, data FROM documents WHERE collection = ? ORDER BY id`,
		collection,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list %s", collection)
	}
	defer rows.Close() //nolint:errcheck

	var entries []Entry
	for rows.Next() {
		var id, data string
		if err := rows.Scan(&id, &data); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan document")
		}
		fields, err := decodeDocument([]byte(data))
		if err != nil {
			return nil, err
		}
		entries = append(entries, Entry{ID: id, Fields: fields})
	}
	return entries, eris.Wrap(rows.Err(), "sqlite: list iterate")
}

// InsertIdentity stores ident, returning ErrDuplicate if the email exists.
func (s *SQLiteStore) InsertIdentity(ctx context.Context, ident Identity) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO identities (id, email, secret_hash, created_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (email) DO NOTHING`,
		ident.ID, ident.Email, ident.SecretHash, ident.CreatedAt.UTC(),
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: insert identity %s", ident.Email)
	}
	return checkInserted(res, ident.Email)
}

// GetIdentityByEmail returns the identity or nil, nil when absent.
func (s *SQLiteStore) GetIdentityByEmail(ctx context.Context, email string) (*Identity, error) {
	var ident Identity
	err := s.db.QueryRowContext(ctx,
		`SELECT id, email, secret_hash, created_at FROM identities WHERE email = ?`,
		email,
	).Scan(&ident.ID, &ident.Email, &ident.SecretHash, &ident.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get identity %s", email)
	}
	return &ident, nil
}

func checkInserted(res sql.Result, email string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrDuplicate, "email %s", email)
	}
	return nil
}

func decodeDocument(data []byte) (map[string]any, error) {
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, eris.Wrap(err, "store: unmarshal document")
	}
	if doc == nil {
		doc = map[string]any{}
	}
	return doc, nil
}
