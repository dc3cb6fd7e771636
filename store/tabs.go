package store

import (
	"context"
	"strings"
	"time"

	"goodhabits/apperr"
	"goodhabits/logger"
	"goodhabits/models"
)

// ReplaceTabsForUser drops the user's previous snapshot and stores records in
// its place. Both steps share one transaction, so readers never see a
// half-written snapshot.
func (s *Store) ReplaceTabsForUser(ctx context.Context, username string, records []models.TabRecord) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return apperr.Invalid("username", "is required")
	}
	capturedAt := s.now().Unix()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wrap("replace tabs", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM tabs WHERE username = ?", username); err != nil {
		return wrap("replace tabs", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO tabs (username, title, url, duration, captured_at) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return wrap("replace tabs", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		title, err := s.seal(rec.Title)
		if err != nil {
			return err
		}
		url, err := s.seal(rec.URL)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, username, title, url, rec.Duration, capturedAt); err != nil {
			return wrap("replace tabs", err)
		}
	}

	return wrap("replace tabs", tx.Commit())
}

// ListTabsForUser returns the user's latest snapshot. A snapshot sealed under
// a different secret, as happens after a restart with a generated key, reads
// as empty until the client uploads again.
func (s *Store) ListTabsForUser(ctx context.Context, username string) ([]models.TabRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, username, title, url, duration, captured_at FROM tabs WHERE username = ? ORDER BY id",
		strings.TrimSpace(username))
	if err != nil {
		return nil, wrap("list tabs", err)
	}
	defer rows.Close()

	var tabs []models.TabRecord
	for rows.Next() {
		var t models.TabRecord
		var capturedAt int64
		if err := rows.Scan(&t.ID, &t.Username, &t.Title, &t.URL, &t.Duration, &capturedAt); err != nil {
			return nil, wrap("list tabs", err)
		}
		if t.Title, err = s.open(t.Title); err == nil {
			t.URL, err = s.open(t.URL)
		}
		if err != nil {
			logger.Warn("tab snapshot cannot be unsealed, treating it as empty", "username", t.Username, "err", err)
			return nil, nil
		}
		t.CapturedAt = time.Unix(capturedAt, 0)
		tabs = append(tabs, t)
	}
	return tabs, wrap("list tabs", rows.Err())
}

func (s *Store) seal(v string) (string, error) {
	if s.sealer == nil {
		return v, nil
	}
	sealed, err := s.sealer.Seal(v)
	if err != nil {
		return "", wrap("seal tab", err)
	}
	return sealed, nil
}

func (s *Store) open(v string) (string, error) {
	if s.sealer == nil {
		return v, nil
	}
	plain, err := s.sealer.Open(v)
	if err != nil {
		return "", wrap("open tab", err)
	}
	return plain, nil
}
