// Package chat forwards user questions, together with a digest of their
// habits, to a remote completion API.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"goodhabits/apperr"
	"goodhabits/logger"
	"goodhabits/metrics"
	"goodhabits/models"
)

const DefaultTimeout = 30 * time.Second

// Completer sends one system and one user message and returns the reply text.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

type HabitLister interface {
	ListHabitsForUser(ctx context.Context, username string) ([]models.Habit, error)
}

type TabLister interface {
	ListTabsForUser(ctx context.Context, username string) ([]models.TabRecord, error)
}

type Bridge struct {
	habits    HabitLister
	tabs      TabLister
	completer Completer
	timeout   time.Duration
}

// NewBridge wires the bridge. A nil completer leaves chat disabled and every
// call fails with apperr.ErrRemoteService. A non-positive timeout uses DefaultTimeout.
func NewBridge(habits HabitLister, tabs TabLister, completer Completer, timeout time.Duration) *Bridge {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Bridge{habits: habits, tabs: tabs, completer: completer, timeout: timeout}
}

func (b *Bridge) Enabled() bool {
	return b.completer != nil
}

// Ask answers query with the user's current habit state as context. Nothing
// carries over between calls.
func (b *Bridge) Ask(ctx context.Context, username, query string) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", apperr.Invalid("query", "is required")
	}

	habits, err := b.habits.ListHabitsForUser(ctx, username)
	if err != nil {
		return "", err
	}
	return b.complete(ctx, systemPrompt(HabitDigest(habits)), query)
}

// AnalyzeTabs asks for a short nudge based on the user's latest tab snapshot.
func (b *Bridge) AnalyzeTabs(ctx context.Context, username string) (string, error) {
	tabs, err := b.tabs.ListTabsForUser(ctx, username)
	if err != nil {
		return "", err
	}
	return b.Ask(ctx, username, tabQuery(TabDigest(tabs)))
}

func (b *Bridge) complete(ctx context.Context, system, user string) (string, error) {
	if b.completer == nil {
		metrics.ChatRequests.WithLabelValues("disabled").Inc()
		return "", fmt.Errorf("%w: chat is not configured", apperr.ErrRemoteService)
	}

	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	start := time.Now()
	reply, err := b.completer.Complete(ctx, system, user)
	if err != nil {
		outcome := "error"
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			outcome = "timeout"
			err = fmt.Errorf("timed out after %s: %w", b.timeout, err)
		}
		metrics.ChatRequests.WithLabelValues(outcome).Inc()
		logger.Warn("Chat completion failed", "outcome", outcome, "err", err)
		return "", fmt.Errorf("%w: %v", apperr.ErrRemoteService, err)
	}

	metrics.ChatRequests.WithLabelValues("ok").Inc()
	logger.Debug("Chat completion", "duration", time.Since(start))
	return reply, nil
}
