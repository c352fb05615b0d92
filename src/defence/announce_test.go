package defence

import (
	"testing"
	"time"

	"github.com/stake-plus/defcalls/src/directory"
	"github.com/stretchr/testify/assert"
)

func TestVillageIdentifier(t *testing.T) {
	dir := fakeDirectory{
		{1, 2}: directory.Village{Name: "Fort Knox #2"},
		{3, 4}: directory.Village{Name: "!!!"},
	}
	assert.Equal(t, "FortKnox2", villageIdentifier(dir, Coordinates{X: 1, Y: 2}))
	assert.Equal(t, "3_4", villageIdentifier(dir, Coordinates{X: 3, Y: 4}))
	assert.Equal(t, "-5_6", villageIdentifier(nil, Coordinates{X: -5, Y: 6}))
}

func TestChannelName(t *testing.T) {
	date := time.Date(2025, 12, 31, 23, 0, 0, 0, time.UTC)
	assert.Equal(t, "def-Home-2025-12-31", channelName(KindNormal, "Home", date))
	assert.Equal(t, "standing-def-Home-2025-12-31", channelName(KindStanding, "Home", date))
	assert.Equal(t, "crop-Home-2025-12-31", channelName(KindCrop, "Home", date))
}

func TestHoursUntil(t *testing.T) {
	assert.Equal(t, 3, hoursUntil(testNow, testNow.Add(150*time.Minute)))
	assert.Equal(t, 0, hoursUntil(testNow, testNow.Add(-time.Hour)))
	assert.Equal(t, "1 hour", formatHours(time.Hour))
	assert.Equal(t, "2 hours", formatHours(2*time.Hour))
}

func TestCommandRoles(t *testing.T) {
	open := &Config{}
	assert.True(t, open.AllowsRequester(nil))

	restricted := &Config{CommandRoles: []string{"a", "b"}}
	assert.True(t, restricted.AllowsRequester([]string{"x", "b"}))
	assert.False(t, restricted.AllowsRequester([]string{"x"}))
}
