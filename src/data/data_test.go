package data

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stake-plus/defcalls/src/defence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestEnsureParam(t *testing.T) {
	assert.Equal(t, "u:p@tcp(db)/x?parseTime=true", ensureParam("u:p@tcp(db)/x", "parseTime", "true"))
	assert.Equal(t, "u:p@tcp(db)/x?a=1&parseTime=true", ensureParam("u:p@tcp(db)/x?a=1", "parseTime", "true"))
	assert.Equal(t, "x?parseTime=false", ensureParam("x?parseTime=false", "parseTime", "true"))
}

func TestCommunityConfigConversion(t *testing.T) {
	cfg := &defence.Config{
		ParentCategory: "cat",
		ViewRoles:      []string{"v1", "v2"},
		PingRoles:      []string{"p"},
		LogChannel:     "log",
	}
	row := communityConfigFrom("guild", cfg)
	assert.Equal(t, "guild", row.CommunityID)
	assert.Equal(t, "defence_configs", row.TableName())

	back := row.toDefence()
	assert.Equal(t, cfg.ViewRoles, back.ViewRoles)
	back.ViewRoles[0] = "changed"
	assert.Equal(t, "v1", row.ViewRoles[0])
}

func TestConfigStoreServesCache(t *testing.T) {
	s := NewConfigStore(nil)
	s.cache["guild"] = &defence.Config{ParentCategory: "cat", PingRoles: []string{"p"}}

	got, err := s.DefenceConfig(context.Background(), "guild")
	require.NoError(t, err)
	got.PingRoles[0] = "mutated"

	again, err := s.DefenceConfig(context.Background(), "guild")
	require.NoError(t, err)
	assert.Equal(t, []string{"p"}, again.PingRoles)
}

func TestOTPCodes(t *testing.T) {
	code := newOTPCode()
	assert.Len(t, code, 6)
	assert.Equal(t, code, strings.ToUpper(code))

	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.MinCost)
	require.NoError(t, err)
	assert.True(t, otpMatches(hash, " "+strings.ToLower(code)+" "))
	assert.False(t, otpMatches(hash, "ZZZZZZ"))
	assert.Equal(t, "defcalls:otp:ann", otpKey("Ann"))
}

func TestEventValues(t *testing.T) {
	at := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	ev := defence.Event{
		Type:        defence.EventCompleted,
		ChannelID:   "c1",
		Kind:        defence.KindNormal,
		Amount:      5000,
		Coordinates: defence.Coordinates{X: 1, Y: 2},
		At:          at,
		Submission:  &defence.Submission{UserID: "u1", DisplayName: "Ann", Units: 5000, SubmittedAt: at},
	}
	values := eventValues(ev)
	assert.Equal(t, "completed", values["type"])
	assert.Equal(t, at.Unix(), values["time"])
	assert.Equal(t, int64(5000), values["units"])
	assert.NotEmpty(t, values["id"])

	values = eventValues(defence.Event{Type: defence.EventCreated})
	_, ok := values["user_id"]
	assert.False(t, ok)
}

func TestSettingsCache(t *testing.T) {
	SetSettingForTest(map[string]string{"guild_id": "123"})
	defer SetSettingForTest(nil)
	assert.Equal(t, "123", GetSetting("guild_id"))
	assert.Empty(t, GetSetting("missing"))
}
