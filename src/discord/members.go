package discord

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
)

// ErrMemberNotFound is returned when no guild member matches a name.
var ErrMemberNotFound = errors.New("discord: member not found")

// Member is the subset of a guild member the API needs.
type Member struct {
	ID    string
	Name  string
	Roles []string
}

// Members looks up guild members and sends them direct messages.
type Members struct {
	session *discordgo.Session
	guildID string
}

// NewMembers binds lookups to one guild.
func NewMembers(s *discordgo.Session, guildID string) *Members {
	return &Members{session: s, guildID: guildID}
}

// FindMember returns the member whose nickname, global name or
// username equals name, ignoring case.
func (m *Members) FindMember(ctx context.Context, name string) (Member, error) {
	found, err := m.session.GuildMembersSearch(m.guildID, name, 25, discordgo.WithContext(ctx))
	if err != nil {
		return Member{}, fmt.Errorf("discord: search members: %w", err)
	}
	if match := matchMember(found, name); match != nil {
		return Member{ID: match.User.ID, Name: DisplayName(match), Roles: match.Roles}, nil
	}
	return Member{}, ErrMemberNotFound
}

// SendDM opens a direct channel with userID and posts content.
func (m *Members) SendDM(ctx context.Context, userID, content string) error {
	ch, err := m.session.UserChannelCreate(userID, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("discord: open dm: %w", err)
	}
	if _, err := m.session.ChannelMessageSend(ch.ID, content, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("discord: send dm: %w", err)
	}
	return nil
}

func matchMember(members []*discordgo.Member, name string) *discordgo.Member {
	for _, member := range members {
		if member == nil || member.User == nil {
			continue
		}
		for _, candidate := range []string{member.Nick, member.User.GlobalName, member.User.Username} {
			if candidate != "" && strings.EqualFold(candidate, name) {
				return member
			}
		}
	}
	return nil
}
