package chat

import (
	"fmt"
	"strings"

	"goodhabits/models"
)

// HabitDigest summarises the user's habits, one sentence per habit, for the
// system prompt.
func HabitDigest(habits []models.Habit) string {
	if len(habits) == 0 {
		return "You haven't started tracking any habits yet."
	}

	lines := make([]string, 0, len(habits))
	for _, h := range habits {
		var line string
		switch {
		case h.Streak == 0 && h.LastTracked != nil:
			line = fmt.Sprintf("You recently reset your streak for %s (%s). Time for a fresh start!", h.Name, h.Frequency)
		case h.Streak == 0:
			line = fmt.Sprintf("You've set up %s (%s) as a new habit to build.", h.Name, h.Frequency)
		default:
			line = fmt.Sprintf("You're maintaining a %d-day streak for %s (%s).", h.Streak, h.Name, h.Frequency)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func TabDigest(tabs []models.TabRecord) string {
	if len(tabs) == 0 {
		return "No tab data available."
	}
	lines := make([]string, 0, len(tabs))
	for _, t := range tabs {
		lines = append(lines, fmt.Sprintf("%s: open for %.2f seconds", t.Title, t.Duration))
	}
	return strings.Join(lines, "\n")
}

func systemPrompt(habitDigest string) string {
	return `You are a supportive AI assistant who helps users build better habits and plan their days. 
Here's the user's current habit status:
` + habitDigest + `

Keep this context in mind when responding. If relevant to their question, provide specific advice about:
- How to maintain their current streaks
- How to rebuild after broken streaks
- How to plan their day around their habits
- How to stay motivated

Be encouraging but realistic. Acknowledge their progress and setbacks naturally in conversation.`
}

func tabQuery(tabDigest string) string {
	return "Based on my current tab usage stats:\n" + tabDigest +
		"\nPlease provide some insights or suggestions in one or two sentences that encourages me to keep up with my goal."
}
