package store

import (
	"context"

	"goodhabits/models"
)

// SaveAPIToken records the hash of a freshly issued bearer token.
func (s *Store) SaveAPIToken(ctx context.Context, tokenHash, username string) error {
	_, err := s.db.ExecContext(ctx, "INSERT INTO api_sessions (token_hash, username) VALUES (?, ?)", tokenHash, username)
	return wrap("save api token", err)
}

func (s *Store) LookupAPIToken(ctx context.Context, tokenHash string) (models.APISession, error) {
	var sess models.APISession
	var createdAt string
	err := s.db.QueryRowContext(ctx, "SELECT username, created_at FROM api_sessions WHERE token_hash = ?", tokenHash).
		Scan(&sess.Username, &createdAt)
	if err != nil {
		return models.APISession{}, wrap("lookup api token", err)
	}
	sess.CreatedAt = parseTimestamp(createdAt)
	return sess, nil
}
