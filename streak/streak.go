// Package streak owns the habit streak rules: advancing and resetting the
// counter, spotting milestones, and choosing the message shown for each.
//
// The counter arithmetic is deterministic. Message choice goes through a
// Picker so tests can pin it.
package streak

import (
	"strconv"
	"strings"
)

// MilestoneEvery is the streak interval that earns a fire. Display and
// Progress both assume this value.
const MilestoneEvery = 5

const fire = "🔥"

// Advance returns the streak after one more track and whether it lands on a milestone.
func Advance(current int) (next int, milestone bool) {
	if current < 0 {
		current = 0
	}
	next = current + 1
	return next, IsMilestone(next)
}

func IsMilestone(streak int) bool {
	return streak > 0 && streak%MilestoneEvery == 0
}

// Display renders a streak as "N " followed by one fire per completed milestone.
func Display(streak int) string {
	if streak < 0 {
		streak = 0
	}
	return strconv.Itoa(streak) + " " + strings.Repeat(fire, streak/MilestoneEvery)
}

// Progress is the number of filled segments in the five-segment progress bar.
func Progress(streak int) int {
	if streak < 0 {
		return 0
	}
	return streak % MilestoneEvery
}
