// Package pgstore persists session credentials in PostgreSQL so they survive
// gateway restarts and are shared across replicas.
package pgstore

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/session"
)

type Store struct {
	db *sqlx.DB
}

var _ session.Store = (*Store)(nil)

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Get(ctx context.Context, sid, key string) (string, error) {
	var value string
	err := s.db.GetContext(ctx, &value,
		`SELECT value FROM credential WHERE session_id = $1 AND key = $2`, sid, key)
	if err == sql.ErrNoRows {
		return "", session.ErrNotFound
	}
	if err != nil {
		return "", errors.Wrap(err, "querying credential")
	}
	return value, nil
}

func (s *Store) Set(ctx context.Context, sid, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO credential (session_id, key, value)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (session_id, key) DO UPDATE SET value = excluded.value, updated_at = now()`,
		sid, key, value)
	return errors.Wrap(err, "upserting credential")
}

func (s *Store) Clear(ctx context.Context, sid, key string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM credential WHERE session_id = $1 AND key = $2`, sid, key)
	return errors.Wrap(err, "deleting credential")
}

func (s *Store) ClearAll(ctx context.Context, sid string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM credential WHERE session_id = $1`, sid)
	return errors.Wrap(err, "deleting credentials")
}

// Flush drops every stored credential. Used by the admin CLI.
func (s *Store) Flush(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM credential`)
	return errors.Wrap(err, "flushing credentials")
}
