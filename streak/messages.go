package streak

import (
	"fmt"
	"math/rand/v2"
	"sync"
)

var milestoneTemplates = []string{
	"🎉 INCREDIBLE! %d DAYS! You've earned another 🔥! Your dedication is absolutely inspiring!",
	"🌟 PHENOMENAL! %d days and another 🔥 added to your collection! You're becoming unstoppable!",
	"⭐ LEGENDARY STATUS! %d days and a new 🔥! You're what consistency looks like!",
	"🏆 BOOM! %d days and you've unlocked another 🔥! You're building an empire of good habits!",
	"🎯 MAGNIFICENT! %d days strong! Another 🔥 to show for your incredible journey!",
}

var encouragements = []string{
	"Keep that momentum going! 💪",
	"Another day stronger! 🌱",
	"You're on fire! 🎯",
	"Building that habit like a pro! ⚡",
	"Consistency is your superpower! ✨",
	"Look at you go! 🚀",
	"That's the way! 🌟",
	"Crushing it! 💫",
	"You're on a roll! 🎲",
	"Every day counts! 🎯",
}

var setbacks = []string{
	"Oof! 😅 Everyone stumbles sometimes. The real champions are the ones who get back up! Want to show that habit who's boss?",
	"Plot twist: This isn't a failure, it's just a dramatic pause in your success story. Ready to start the next chapter? 💪",
	"Well, well, well... look who's hitting the reset button! Remember: The only real L is giving up completely. Let's get back to it! 🚀",
	"Did you just... 😱 No worries! Even Olympic athletes have off days. Tomorrow's a new day to crush it!",
	"Breaking news: Streak broken! But here's the thing - progress isn't perfect. It's messy, it's real, and it starts again NOW! 🌟",
}

var tips = []string{
	"Pro tip: Start small tomorrow. Even tiny wins count!",
	"Quick tip: Set a daily reminder - your future self will thank you.",
	"Hint: Tell a friend about your habit - accountability works wonders!",
	"Suggestion: Put your habit trigger (like running shoes) somewhere visible tonight.",
	"Strategy: Pair this habit with something you already do daily!",
}

// Picker chooses an index in [0, n). Implementations must be safe for
// concurrent use.
type Picker interface {
	Pick(n int) int
}

type randomPicker struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomPicker picks uniformly, seeded from the runtime's entropy.
func NewRandomPicker() Picker {
	return &randomPicker{rng: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))}
}

// NewSeededPicker picks uniformly from a fixed seed, giving a repeatable sequence.
func NewSeededPicker(seed uint64) Picker {
	return &randomPicker{rng: rand.New(rand.NewPCG(seed, seed))}
}

func (p *randomPicker) Pick(n int) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rng.IntN(n)
}

// FixedPicker always returns the same index, clamped to the pool size.
type FixedPicker int

func (f FixedPicker) Pick(n int) int {
	i := int(f)
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

func pick(p Picker, pool []string) string {
	return pool[p.Pick(len(pool))]
}

// TrackMessage selects the text shown after a track that produced streak.
func TrackMessage(p Picker, streak int) string {
	if IsMilestone(streak) {
		return fmt.Sprintf(pick(p, milestoneTemplates), streak)
	}
	return pick(p, encouragements)
}

// ResetMessage is one setback line and one tip separated by a blank line.
func ResetMessage(p Picker) string {
	setback := pick(p, setbacks)
	tip := pick(p, tips)
	return setback + "\n\n" + tip
}

// MilestoneMessages renders every milestone template for streak.
func MilestoneMessages(streak int) []string {
	out := make([]string, len(milestoneTemplates))
	for i, tmpl := range milestoneTemplates {
		out[i] = fmt.Sprintf(tmpl, streak)
	}
	return out
}

func Encouragements() []string { return append([]string(nil), encouragements...) }

func Setbacks() []string { return append([]string(nil), setbacks...) }

func Tips() []string { return append([]string(nil), tips...) }
