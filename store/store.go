// Package store is the persistence gateway: one SQL statement per operation
// against the SQLite file, with driver errors translated into apperr values.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"goodhabits/apperr"

	"github.com/mattn/go-sqlite3"
)

// Sealer protects tab titles and URLs at rest. crypto.Sealer implements it.
type Sealer interface {
	Seal(plain string) (string, error)
	Open(sealed string) (string, error)
}

type Store struct {
	db     *sql.DB
	sealer Sealer
	now    func() time.Time
}

// New wraps an open database. A nil sealer stores tab data in plain text.
func New(conn *sql.DB, sealer Sealer) *Store {
	return &Store{db: conn, sealer: sealer, now: time.Now}
}

// WithClock returns a copy of s that reads the current time from now.
func (s *Store) WithClock(now func() time.Time) *Store {
	c := *s
	c.now = now
	return &c
}

func (s *Store) DB() *sql.DB {
	return s.db
}

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, apperr.ErrNotFound)
	}
	var se sqlite3.Error
	if errors.As(err, &se) {
		switch se.Code {
		case sqlite3.ErrBusy, sqlite3.ErrLocked, sqlite3.ErrCantOpen, sqlite3.ErrIoErr, sqlite3.ErrReadonly:
			return fmt.Errorf("%s: %w (%v)", op, apperr.ErrStorageUnavailable, err)
		case sqlite3.ErrConstraint:
			switch se.ExtendedCode {
			case sqlite3.ErrConstraintPrimaryKey, sqlite3.ErrConstraintUnique:
				return fmt.Errorf("%s: %w", op, apperr.ErrDuplicate)
			case sqlite3.ErrConstraintForeignKey:
				return fmt.Errorf("%s: owner %w", op, apperr.ErrNotFound)
			case sqlite3.ErrConstraintCheck:
				return fmt.Errorf("%s: %w: %v", op, apperr.ErrValidation, err)
			}
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

func parseTimestamp(v string) time.Time {
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}
	}
	return t
}
