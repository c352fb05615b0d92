package discord

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

const (
	CommandDefence = "defence"
	CommandConfig  = "config"
	CommandCoords  = "coords"
)

var adminPermission int64 = discordgo.PermissionAdministrator

var commandDefinitions = map[string]*discordgo.ApplicationCommand{
	CommandDefence: {
		Name:        CommandDefence,
		Description: "Open a defence call channel",
		Options: []*discordgo.ApplicationCommandOption{
			{Type: discordgo.ApplicationCommandOptionInteger, Name: "x", Description: "X coordinate", Required: true},
			{Type: discordgo.ApplicationCommandOptionInteger, Name: "y", Description: "Y coordinate", Required: true},
			{Type: discordgo.ApplicationCommandOptionInteger, Name: "amount", Description: "Units required", Required: true},
			{Type: discordgo.ApplicationCommandOptionString, Name: "time", Description: "Attack time, HH:mm server time"},
			{Type: discordgo.ApplicationCommandOptionBoolean, Name: "standing", Description: "Standing defence open for 24 hours"},
			{Type: discordgo.ApplicationCommandOptionInteger, Name: "crop", Description: "Also request this much crop"},
		},
	},
	CommandConfig: {
		Name:                     CommandConfig,
		Description:              "View or change the defence settings",
		DefaultMemberPermissions: &adminPermission,
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "view",
				Description: "Show the current settings",
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "set",
				Description: "Change the settings",
				Options: []*discordgo.ApplicationCommandOption{
					{Type: discordgo.ApplicationCommandOptionChannel, Name: "category", Description: "Category for defence channels", Required: true,
						ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildCategory}},
					{Type: discordgo.ApplicationCommandOptionRole, Name: "view_role", Description: "Role that can see defence channels", Required: true},
					{Type: discordgo.ApplicationCommandOptionRole, Name: "ping_role", Description: "Role pinged on new calls", Required: true},
					{Type: discordgo.ApplicationCommandOptionChannel, Name: "log_channel", Description: "Channel for call summaries", Required: true,
						ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildText}},
					{Type: discordgo.ApplicationCommandOptionChannel, Name: "initiator_log", Description: "Channel recording who opened calls", Required: true,
						ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildText}},
					{Type: discordgo.ApplicationCommandOptionChannel, Name: "crop_category", Description: "Category for crop channels",
						ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildCategory}},
					{Type: discordgo.ApplicationCommandOptionRole, Name: "command_role", Description: "Role allowed to open calls"},
				},
			},
		},
	},
	CommandCoords: {
		Name:        CommandCoords,
		Description: "Link the map at coordinates",
		Options: []*discordgo.ApplicationCommandOption{
			{Type: discordgo.ApplicationCommandOptionInteger, Name: "x", Description: "X coordinate", Required: true},
			{Type: discordgo.ApplicationCommandOptionInteger, Name: "y", Description: "Y coordinate", Required: true},
		},
	},
}

var defaultCommandOrder = []string{
	CommandDefence,
	CommandConfig,
	CommandCoords,
}

// CommandDefinition returns the registered definition for name.
func CommandDefinition(name string) (*discordgo.ApplicationCommand, bool) {
	def, ok := commandDefinitions[name]
	return def, ok
}

// RegisterSlashCommands registers the requested slash commands for a guild.
// When no command names are provided, all known commands are registered.
func RegisterSlashCommands(s *discordgo.Session, log *zap.Logger, guildID string, names ...string) error {
	if guildID == "" {
		return fmt.Errorf("discord: guildID is required to register slash commands")
	}
	if len(names) == 0 {
		names = defaultCommandOrder
	}

	var failures []string
	for _, name := range names {
		definition, ok := commandDefinitions[name]
		if !ok {
			log.Warn("unknown slash command", zap.String("command", name))
			continue
		}

		_, err := s.ApplicationCommandCreate(s.State.User.ID, guildID, definition)
		if err != nil {
			if isDuplicateCommandError(err) {
				log.Info("slash command already registered", zap.String("command", name))
				continue
			}
			failures = append(failures, fmt.Sprintf("%s: %v", name, err))
			log.Error("slash command registration failed", zap.String("command", name), zap.Error(err))
		}
	}

	if len(failures) > 0 {
		return fmt.Errorf("discord: slash command registration errors: %s", strings.Join(failures, "; "))
	}
	return nil
}

func isDuplicateCommandError(err error) bool {
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) {
		if restErr.Message != nil {
			msg := strings.ToLower(restErr.Message.Message)
			if strings.Contains(msg, "already exists") {
				return true
			}
		}
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "50035") && strings.Contains(msg, "already exists")
}
