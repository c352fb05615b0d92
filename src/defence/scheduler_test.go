package defence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchedulerPlanSkipsPast(t *testing.T) {
	s := NewScheduler(newFakeClock(testNow))
	attack := testNow.Add(20 * time.Minute)

	plan := s.Plan(attack, testNow)
	require.Len(t, plan, 2)
	assert.Equal(t, Reminder{Label: "15 minutes till attack", FireAt: testNow.Add(5 * time.Minute)}, plan[0])
	assert.Equal(t, "5 minutes till attack", plan[1].Label)

	// A fire time equal to now is already due and is dropped.
	assert.Len(t, s.Plan(testNow.Add(30*time.Minute), testNow), 2)
	assert.Empty(t, s.Plan(testNow.Add(-time.Hour), testNow))
}

func TestSchedulerScheduleFiresInOrder(t *testing.T) {
	clock := newFakeClock(testNow)
	s := NewScheduler(clock)

	var fired []string
	timers := s.Schedule(testNow.Add(2*time.Hour), testNow, func(r Reminder) {
		assert.Equal(t, r.FireAt, clock.Now())
		fired = append(fired, r.Label)
	})
	require.Len(t, timers, 4)

	assert.True(t, timers[3].Stop())
	clock.Advance(2 * time.Hour)
	assert.Equal(t, []string{"1h till attack", "30 minutes till attack", "15 minutes till attack"}, fired)
	assert.False(t, timers[0].Stop())
}

func TestSchedulerCustomOffsets(t *testing.T) {
	s := NewScheduler(nil, ReminderOffset{Before: time.Minute, Label: "now"})
	plan := s.Plan(testNow.Add(time.Hour), testNow)
	require.Len(t, plan, 1)
	assert.Equal(t, "now", plan[0].Label)
}
