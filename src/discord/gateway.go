package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/stake-plus/defcalls/src/defence"
)

var _ defence.Gateway = (*Gateway)(nil)

// Gateway drives defence channels through a discordgo session.
type Gateway struct {
	session *discordgo.Session
}

// NewGateway wraps an open session.
func NewGateway(s *discordgo.Session) *Gateway {
	return &Gateway{session: s}
}

// CreateChannel creates a text channel with the requested overwrites.
func (g *Gateway) CreateChannel(ctx context.Context, spec defence.ChannelSpec) (defence.Channel, error) {
	ch, err := g.session.GuildChannelCreateComplex(spec.CommunityID, discordgo.GuildChannelCreateData{
		Name:                 spec.Name,
		Type:                 discordgo.ChannelTypeGuildText,
		ParentID:             spec.ParentID,
		PermissionOverwrites: toOverwrites(spec.CommunityID, spec.Overwrites),
	}, discordgo.WithContext(ctx))
	if err != nil {
		return defence.Channel{}, fmt.Errorf("discord: create channel %s: %w", spec.Name, err)
	}
	return defence.Channel{ID: ch.ID, Name: ch.Name}, nil
}

// DeleteChannel removes a channel.
func (g *Gateway) DeleteChannel(ctx context.Context, channelID string) error {
	if _, err := g.session.ChannelDelete(channelID, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("discord: delete channel %s: %w", channelID, err)
	}
	return nil
}

// SetPermission replaces one role overwrite on a channel.
func (g *Gateway) SetPermission(ctx context.Context, channelID string, ow defence.PermissionOverwrite) error {
	target := ow.RoleID
	if target == defence.EveryoneRole {
		ch, err := g.session.Channel(channelID, discordgo.WithContext(ctx))
		if err != nil {
			return fmt.Errorf("discord: resolve guild of %s: %w", channelID, err)
		}
		target = ch.GuildID
	}
	err := g.session.ChannelPermissionSet(channelID, target, discordgo.PermissionOverwriteTypeRole,
		permissionBits(ow.Allow), permissionBits(ow.Deny), discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("discord: set permission on %s: %w", channelID, err)
	}
	return nil
}

// SendMessage posts content, resolving only the listed role mentions.
func (g *Gateway) SendMessage(ctx context.Context, channelID string, msg defence.OutboundMessage) error {
	_, err := g.session.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Content:         msg.Content,
		AllowedMentions: allowedMentions(msg.MentionRoles),
	}, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("discord: send to %s: %w", channelID, err)
	}
	return nil
}

func allowedMentions(roles []string) *discordgo.MessageAllowedMentions {
	return &discordgo.MessageAllowedMentions{
		Parse: []discordgo.AllowedMentionType{},
		Roles: append([]string(nil), roles...),
	}
}

func toOverwrites(guildID string, in []defence.PermissionOverwrite) []*discordgo.PermissionOverwrite {
	out := make([]*discordgo.PermissionOverwrite, 0, len(in))
	for _, ow := range in {
		id := ow.RoleID
		if id == defence.EveryoneRole {
			id = guildID
		}
		out = append(out, &discordgo.PermissionOverwrite{
			ID:    id,
			Type:  discordgo.PermissionOverwriteTypeRole,
			Allow: permissionBits(ow.Allow),
			Deny:  permissionBits(ow.Deny),
		})
	}
	return out
}

func permissionBits(p defence.Permission) int64 {
	var bits int64
	if p&defence.PermissionView != 0 {
		bits |= discordgo.PermissionViewChannel
	}
	if p&defence.PermissionSend != 0 {
		bits |= discordgo.PermissionSendMessages
	}
	if p&defence.PermissionReadHistory != 0 {
		bits |= discordgo.PermissionReadMessageHistory
	}
	return bits
}
