package defence

import (
	"time"
)

// ReminderOffset is a lead time before the attack and its announcement.
type ReminderOffset struct {
	Before time.Duration
	Label  string
}

// DefaultReminderOffsets are the pings sent ahead of an attack.
var DefaultReminderOffsets = []ReminderOffset{
	{Before: 60 * time.Minute, Label: "1h till attack"},
	{Before: 30 * time.Minute, Label: "30 minutes till attack"},
	{Before: 15 * time.Minute, Label: "15 minutes till attack"},
	{Before: 5 * time.Minute, Label: "5 minutes till attack"},
}

// Reminder is a planned notification.
type Reminder struct {
	Label  string
	FireAt time.Time
}

// Scheduler computes absolute reminder times and arms them.
type Scheduler struct {
	clock   Clock
	offsets []ReminderOffset
}

// NewScheduler returns a scheduler using offsets, or the defaults when
// none are given.
func NewScheduler(clock Clock, offsets ...ReminderOffset) *Scheduler {
	if clock == nil {
		clock = SystemClock()
	}
	if len(offsets) == 0 {
		offsets = DefaultReminderOffsets
	}
	return &Scheduler{clock: clock, offsets: offsets}
}

// Plan lists the reminders still ahead of now. Fire times at or before
// now are dropped without catch-up.
func (s *Scheduler) Plan(attack, now time.Time) []Reminder {
	var out []Reminder
	for _, off := range s.offsets {
		fireAt := attack.Add(-off.Before)
		if !fireAt.After(now) {
			continue
		}
		out = append(out, Reminder{Label: off.Label, FireAt: fireAt})
	}
	return out
}

// Schedule arms one timer per planned reminder and returns their
// cancellation tokens.
func (s *Scheduler) Schedule(attack, now time.Time, fire func(Reminder)) []Timer {
	planned := s.Plan(attack, now)
	timers := make([]Timer, 0, len(planned))
	for _, r := range planned {
		r := r
		timers = append(timers, s.clock.AfterFunc(r.FireAt.Sub(now), func() { fire(r) }))
	}
	return timers
}
