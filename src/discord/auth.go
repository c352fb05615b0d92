package discord

import "github.com/bwmarrin/discordgo"

// HasRole checks whether a user has a role in a guild. Empty roleID always returns true.
func HasRole(s *discordgo.Session, guildID, userID, roleID string) bool {
	if roleID == "" {
		return true
	}
	member, err := s.GuildMember(guildID, userID)
	if err != nil {
		return false
	}
	return HasAnyRole(member.Roles, []string{roleID})
}

// HasAnyRole reports whether roles and allowed share an entry.
func HasAnyRole(roles, allowed []string) bool {
	for _, want := range allowed {
		for _, role := range roles {
			if role == want {
				return true
			}
		}
	}
	return false
}

// IsAdministrator reports whether an interaction member holds the
// administrator permission.
func IsAdministrator(member *discordgo.Member) bool {
	return member != nil && member.Permissions&discordgo.PermissionAdministrator != 0
}

// DisplayName prefers the guild nickname, then the global name.
func DisplayName(member *discordgo.Member) string {
	if member == nil || member.User == nil {
		return ""
	}
	if member.Nick != "" {
		return member.Nick
	}
	if member.User.GlobalName != "" {
		return member.User.GlobalName
	}
	return member.User.Username
}
