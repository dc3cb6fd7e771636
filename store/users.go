package store

import (
	"context"
	"strings"

	"goodhabits/apperr"
	"goodhabits/models"
)

const DefaultBio = "No bio yet."

// CreateUser registers username with an already hashed password. The display
// name starts out as the username.
func (s *Store) CreateUser(ctx context.Context, username, passwordHash string) (models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return models.User{}, apperr.Invalid("username", "is required")
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO users (username, password_hash, login_count, display_name, bio) VALUES (?, ?, 0, ?, ?)",
		username, passwordHash, username, DefaultBio)
	if err != nil {
		return models.User{}, wrap("create user", err)
	}
	return s.FindUserByName(ctx, username)
}

func (s *Store) FindUserByName(ctx context.Context, username string) (models.User, error) {
	var u models.User
	var createdAt string
	err := s.db.QueryRowContext(ctx, `
		SELECT username, password_hash, COALESCE(display_name, username), COALESCE(bio, ''), login_count, created_at
		FROM users WHERE username = ?`, strings.TrimSpace(username)).
		Scan(&u.Username, &u.PasswordHash, &u.DisplayName, &u.Bio, &u.LoginCount, &createdAt)
	if err != nil {
		return models.User{}, wrap("find user", err)
	}
	u.CreatedAt = parseTimestamp(createdAt)
	return u, nil
}

// IncrementLoginCount bumps the counter and returns its new value.
func (s *Store) IncrementLoginCount(ctx context.Context, username string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"UPDATE users SET login_count = login_count + 1 WHERE username = ? RETURNING login_count", username).
		Scan(&count)
	if err != nil {
		return 0, wrap("increment login count", err)
	}
	return count, nil
}

// UpdateProfile changes the fields that are non-nil. A blank display name is rejected.
func (s *Store) UpdateProfile(ctx context.Context, username string, displayName, bio *string) error {
	if displayName != nil {
		trimmed := strings.TrimSpace(*displayName)
		if trimmed == "" {
			return apperr.Invalid("display_name", "is required")
		}
		displayName = &trimmed
	}
	res, err := s.db.ExecContext(ctx,
		"UPDATE users SET display_name = COALESCE(?, display_name), bio = COALESCE(?, bio) WHERE username = ?",
		displayName, bio, username)
	if err != nil {
		return wrap("update profile", err)
	}
	return expectRow("update profile", res)
}

func (s *Store) UpdatePassword(ctx context.Context, username, passwordHash string) error {
	res, err := s.db.ExecContext(ctx, "UPDATE users SET password_hash = ? WHERE username = ?", passwordHash, username)
	if err != nil {
		return wrap("update password", err)
	}
	return expectRow("update password", res)
}
