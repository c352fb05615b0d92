package discord

import (
	"errors"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stake-plus/defcalls/src/defence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToOverwritesMapsEveryoneToGuild(t *testing.T) {
	out := toOverwrites("guild-1", []defence.PermissionOverwrite{
		{RoleID: defence.EveryoneRole, Deny: defence.PermissionView},
		{RoleID: "role-1", Allow: defence.PermissionView | defence.PermissionSend | defence.PermissionReadHistory},
	})
	require.Len(t, out, 2)
	assert.Equal(t, "guild-1", out[0].ID)
	assert.Equal(t, int64(discordgo.PermissionViewChannel), out[0].Deny)
	assert.Zero(t, out[0].Allow)
	assert.Equal(t, int64(discordgo.PermissionViewChannel|discordgo.PermissionSendMessages|discordgo.PermissionReadMessageHistory), out[1].Allow)
	assert.Equal(t, discordgo.PermissionOverwriteTypeRole, out[1].Type)
}

func TestAllowedMentionsOnlyRoles(t *testing.T) {
	am := allowedMentions([]string{"r1"})
	assert.Empty(t, am.Parse)
	assert.Equal(t, []string{"r1"}, am.Roles)
	assert.Empty(t, allowedMentions(nil).Roles)
}

func TestRoleHelpers(t *testing.T) {
	assert.True(t, HasAnyRole([]string{"a", "b"}, []string{"b"}))
	assert.False(t, HasAnyRole([]string{"a"}, nil))

	admin := &discordgo.Member{Permissions: discordgo.PermissionAdministrator | discordgo.PermissionSendMessages}
	assert.True(t, IsAdministrator(admin))
	assert.False(t, IsAdministrator(&discordgo.Member{Permissions: discordgo.PermissionSendMessages}))
	assert.False(t, IsAdministrator(nil))
}

func TestMatchMember(t *testing.T) {
	members := []*discordgo.Member{
		{User: &discordgo.User{ID: "1", Username: "annie"}, Nick: "Ann"},
		{User: &discordgo.User{ID: "2", Username: "bob", GlobalName: "Bobby"}},
		nil,
	}
	require.NotNil(t, matchMember(members, "ann"))
	assert.Equal(t, "2", matchMember(members, "BOBBY").User.ID)
	assert.Nil(t, matchMember(members, "carol"))
	assert.Equal(t, "Ann", DisplayName(members[0]))
	assert.Equal(t, "Bobby", DisplayName(members[1]))
}

func TestCommandDefinitions(t *testing.T) {
	for _, name := range defaultCommandOrder {
		def, ok := CommandDefinition(name)
		require.True(t, ok, name)
		assert.Equal(t, name, def.Name)
	}
	cfg, _ := CommandDefinition(CommandConfig)
	require.NotNil(t, cfg.DefaultMemberPermissions)
	assert.Equal(t, int64(discordgo.PermissionAdministrator), *cfg.DefaultMemberPermissions)
}

func TestDuplicateCommandError(t *testing.T) {
	assert.True(t, isDuplicateCommandError(&discordgo.RESTError{Message: &discordgo.APIErrorMessage{Message: "Command already exists"}}))
	assert.False(t, isDuplicateCommandError(errors.New("boom")))
}

func TestWrapURLsNoEmbed(t *testing.T) {
	assert.Equal(t, "map: <https://ts.example/karte.php?x=1&y=2>.", WrapURLsNoEmbed("map: https://ts.example/karte.php?x=1&y=2."))
	assert.Equal(t, "<#42>", ChannelMention("42"))
}
