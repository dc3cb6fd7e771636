package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"goodhabits/apperr"
	"goodhabits/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLister struct {
	habits []models.Habit
	tabs   []models.TabRecord
	err    error
}

func (f fakeLister) ListHabitsForUser(context.Context, string) ([]models.Habit, error) {
	return f.habits, f.err
}

func (f fakeLister) ListTabsForUser(context.Context, string) ([]models.TabRecord, error) {
	return f.tabs, f.err
}

type recordingCompleter struct {
	system, user string
	reply        string
	err          error
}

func (r *recordingCompleter) Complete(_ context.Context, system, user string) (string, error) {
	r.system, r.user = system, user
	return r.reply, r.err
}

type blockingCompleter struct{}

func (blockingCompleter) Complete(ctx context.Context, _, _ string) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func TestHabitDigest(t *testing.T) {
	tracked := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	habits := []models.Habit{
		{Name: "Read", Frequency: models.Daily, Streak: 12, LastTracked: &tracked},
		{Name: "Gym", Frequency: models.Weekly, Streak: 0, LastTracked: &tracked},
		{Name: "Call mom", Frequency: models.Monthly},
	}

	want := "You're maintaining a 12-day streak for Read (Daily).\n" +
		"You recently reset your streak for Gym (Weekly). Time for a fresh start!\n" +
		"You've set up Call mom (Monthly) as a new habit to build."
	assert.Equal(t, want, HabitDigest(habits))
	assert.Equal(t, "You haven't started tracking any habits yet.", HabitDigest(nil))
}

func TestTabDigest(t *testing.T) {
	assert.Equal(t, "No tab data available.", TabDigest(nil))
	got := TabDigest([]models.TabRecord{
		{Title: "Gmail", Duration: 1366.068},
		{Title: "deep seek - Google Search", Duration: 1257.444},
	})
	assert.Equal(t, "Gmail: open for 1366.07 seconds\ndeep seek - Google Search: open for 1257.44 seconds", got)
}

func TestAskEmbedsHabitDigest(t *testing.T) {
	completer := &recordingCompleter{reply: "Keep going!"}
	b := NewBridge(fakeLister{habits: []models.Habit{{Name: "Read", Frequency: models.Daily, Streak: 3}}}, fakeLister{}, completer, time.Second)

	reply, err := b.Ask(context.Background(), "alice", "  How do I keep it up?  ")
	require.NoError(t, err)
	assert.Equal(t, "Keep going!", reply)
	assert.Contains(t, completer.system, "You're maintaining a 3-day streak for Read (Daily).")
	assert.Equal(t, "How do I keep it up?", completer.user)
}

func TestAskRejectsBlankQuery(t *testing.T) {
	b := NewBridge(fakeLister{}, fakeLister{}, &recordingCompleter{}, time.Second)
	_, err := b.Ask(context.Background(), "alice", "   ")
	assert.True(t, errors.Is(err, apperr.ErrValidation))
}

func TestAskPropagatesStorageErrors(t *testing.T) {
	storageErr := fmt.Errorf("list habits: %w", apperr.ErrStorageUnavailable)
	completer := &recordingCompleter{}
	b := NewBridge(fakeLister{err: storageErr}, fakeLister{}, completer, time.Second)
	_, err := b.Ask(context.Background(), "alice", "hi")
	assert.True(t, errors.Is(err, apperr.ErrStorageUnavailable))
	assert.Empty(t, completer.user, "no remote call when habits cannot be read")
}

func TestAskTimeout(t *testing.T) {
	b := NewBridge(fakeLister{}, fakeLister{}, blockingCompleter{}, 20*time.Millisecond)

	start := time.Now()
	_, err := b.Ask(context.Background(), "alice", "hello?")
	assert.True(t, errors.Is(err, apperr.ErrRemoteService), "got %v", err)
	assert.Contains(t, err.Error(), "timed out")
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestAskRemoteFailure(t *testing.T) {
	b := NewBridge(fakeLister{}, fakeLister{}, &recordingCompleter{err: errors.New("429 rate limited")}, time.Second)
	_, err := b.Ask(context.Background(), "alice", "hello?")
	assert.True(t, errors.Is(err, apperr.ErrRemoteService))
}

func TestDisabledBridge(t *testing.T) {
	b := NewBridge(fakeLister{}, fakeLister{}, nil, 0)
	assert.False(t, b.Enabled())
	_, err := b.Ask(context.Background(), "alice", "hello?")
	assert.True(t, errors.Is(err, apperr.ErrRemoteService))
}

func TestAnalyzeTabs(t *testing.T) {
	completer := &recordingCompleter{reply: "Less YouTube, more reading."}
	lister := fakeLister{tabs: []models.TabRecord{{Title: "My Heart Will Go On", Duration: 1372.746}}}
	b := NewBridge(lister, lister, completer, time.Second)

	reply, err := b.AnalyzeTabs(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, "Less YouTube, more reading.", reply)
	assert.True(t, strings.HasPrefix(completer.user, "Based on my current tab usage stats:\nMy Heart Will Go On: open for 1372.75 seconds"))
}

func TestOpenAICompleter(t *testing.T) {
	var got struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"), "path %s", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1739114954,
			"model": "gpt-4o-mini",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "You've got this."}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 10, "completion_tokens": 4, "total_tokens": 14}
		}`))
	}))
	defer srv.Close()

	c := NewOpenAICompleter("sk-test", "", srv.URL+"/v1")
	reply, err := c.Complete(context.Background(), "system prompt", "user question")
	require.NoError(t, err)
	assert.Equal(t, "You've got this.", reply)

	assert.Equal(t, DefaultModel, got.Model)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "system prompt", got.Messages[0].Content)
	assert.Equal(t, "user", got.Messages[1].Role)
	assert.Equal(t, "user question", got.Messages[1].Content)
}

func TestOpenAICompleterServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": {"message": "upstream exploded", "type": "server_error"}}`))
	}))
	defer srv.Close()

	c := NewOpenAICompleter("sk-test", "gpt-4o-mini", srv.URL+"/v1")
	_, err := c.Complete(context.Background(), "s", "u")
	assert.Error(t, err)
}
