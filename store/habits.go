package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"goodhabits/apperr"
	"goodhabits/models"
)

const habitColumns = "id, username, habit_name, target_frequency, created_date, last_tracked, streak"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanHabit(row rowScanner) (models.Habit, error) {
	var h models.Habit
	var frequency, createdDate string
	var lastTracked sql.NullString

	if err := row.Scan(&h.ID, &h.Username, &h.Name, &frequency, &createdDate, &lastTracked, &h.Streak); err != nil {
		return models.Habit{}, err
	}
	h.Frequency = models.Frequency(frequency)

	var err error
	h.CreatedDate, err = time.Parse(time.DateOnly, createdDate)
	if err != nil {
		return models.Habit{}, fmt.Errorf("failed to parse created_date: %w", err)
	}
	if lastTracked.Valid {
		t, err := time.Parse(time.DateOnly, lastTracked.String)
		if err != nil {
			return models.Habit{}, fmt.Errorf("failed to parse last_tracked: %w", err)
		}
		h.LastTracked = &t
	}
	return h, nil
}

// CreateHabit adds a habit with a zero streak, dated today.
func (s *Store) CreateHabit(ctx context.Context, username, name string, frequency models.Frequency) (models.Habit, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Habit{}, apperr.Invalid("name", "is required")
	}
	if !frequency.Valid() {
		return models.Habit{}, apperr.Invalid("frequency", "must be one of: Daily Weekly Monthly")
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO habits (username, habit_name, target_frequency, created_date, streak)
		VALUES (?, ?, ?, ?, 0)`,
		username, name, string(frequency), s.now().Format(time.DateOnly))
	if err != nil {
		return models.Habit{}, wrap("create habit", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.Habit{}, wrap("create habit", err)
	}
	return s.GetHabit(ctx, id)
}

func (s *Store) GetHabit(ctx context.Context, id int64) (models.Habit, error) {
	h, err := scanHabit(s.db.QueryRowContext(ctx, "SELECT "+habitColumns+" FROM habits WHERE id = ?", id))
	if err != nil {
		return models.Habit{}, wrap(fmt.Sprintf("habit %d", id), err)
	}
	return h, nil
}

func (s *Store) ListHabitsForUser(ctx context.Context, username string) ([]models.Habit, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+habitColumns+" FROM habits WHERE username = ? ORDER BY id", username)
	if err != nil {
		return nil, wrap("list habits", err)
	}
	defer rows.Close()

	var habits []models.Habit
	for rows.Next() {
		h, err := scanHabit(rows)
		if err != nil {
			return nil, wrap("list habits", err)
		}
		habits = append(habits, h)
	}
	return habits, wrap("list habits", rows.Err())
}

// TrackHabit increments the streak and stamps last_tracked with day in one
// statement, returning the new streak.
func (s *Store) TrackHabit(ctx context.Context, id int64, day time.Time) (int, error) {
	var streak int
	err := s.db.QueryRowContext(ctx, `
		UPDATE habits
		SET streak = streak + 1,
			last_tracked = ?
		WHERE id = ?
		RETURNING streak`, day.Format(time.DateOnly), id).Scan(&streak)
	if err != nil {
		return 0, wrap(fmt.Sprintf("track habit %d", id), err)
	}
	return streak, nil
}

// ResetHabit zeroes the streak. last_tracked is kept.
func (s *Store) ResetHabit(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "UPDATE habits SET streak = 0 WHERE id = ?", id)
	if err != nil {
		return wrap(fmt.Sprintf("reset habit %d", id), err)
	}
	return expectRow(fmt.Sprintf("reset habit %d", id), res)
}

func expectRow(op string, res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return wrap(op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, apperr.ErrNotFound)
	}
	return nil
}
