package streak

import (
	"context"
	"time"

	"goodhabits/logger"
	"goodhabits/metrics"
)

// HabitStore is the part of the persistence gateway the engine writes through.
type HabitStore interface {
	TrackHabit(ctx context.Context, id int64, day time.Time) (int, error)
	ResetHabit(ctx context.Context, id int64) error
}

type TrackResult struct {
	HabitID   int64  `json:"habit_id"`
	Streak    int    `json:"streak"`
	Milestone bool   `json:"milestone"`
	Message   string `json:"message"`
	Display   string `json:"display"`
}

type ResetResult struct {
	HabitID int64  `json:"habit_id"`
	Streak  int    `json:"streak"`
	Message string `json:"message"`
	Display string `json:"display"`
}

type Engine struct {
	store  HabitStore
	picker Picker
	now    func() time.Time
}

// NewEngine builds an engine. A nil picker falls back to NewRandomPicker.
func NewEngine(store HabitStore, picker Picker) *Engine {
	if picker == nil {
		picker = NewRandomPicker()
	}
	return &Engine{store: store, picker: picker, now: time.Now}
}

// WithClock overrides the source of "today".
func (e *Engine) WithClock(now func() time.Time) *Engine {
	c := *e
	c.now = now
	return &c
}

// Track increments the habit's streak and stamps it as tracked today. An
// unknown id returns an error matching apperr.ErrNotFound and changes nothing.
func (e *Engine) Track(ctx context.Context, habitID int64) (TrackResult, error) {
	next, err := e.store.TrackHabit(ctx, habitID, e.now())
	if err != nil {
		return TrackResult{}, err
	}
	milestone := IsMilestone(next)

	metrics.HabitsTracked.Inc()
	if milestone {
		metrics.Milestones.Inc()
		logger.Info("Milestone reached", "habit_id", habitID, "streak", next)
	}

	return TrackResult{
		HabitID:   habitID,
		Streak:    next,
		Milestone: milestone,
		Message:   TrackMessage(e.picker, next),
		Display:   Display(next),
	}, nil
}

// Reset sets the streak back to zero, keeping the last tracked date.
func (e *Engine) Reset(ctx context.Context, habitID int64) (ResetResult, error) {
	if err := e.store.ResetHabit(ctx, habitID); err != nil {
		return ResetResult{}, err
	}
	metrics.Resets.Inc()

	return ResetResult{
		HabitID: habitID,
		Streak:  0,
		Message: ResetMessage(e.picker),
		Display: Display(0),
	}, nil
}
