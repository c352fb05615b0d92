package defence

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/stake-plus/defcalls/src/defence"
	shareddiscord "github.com/stake-plus/defcalls/src/discord"
)

type options map[string]*discordgo.ApplicationCommandInteractionDataOption

func optionMap(opts []*discordgo.ApplicationCommandInteractionDataOption) options {
	out := make(options, len(opts))
	for _, opt := range opts {
		out[opt.Name] = opt
	}
	return out
}

func intOption(opts options, name string) int {
	if opt, ok := opts[name]; ok && opt.Type == discordgo.ApplicationCommandOptionInteger {
		return int(opt.IntValue())
	}
	return 0
}

func stringOption(opts options, name string) string {
	if opt, ok := opts[name]; ok && opt.Type == discordgo.ApplicationCommandOptionString {
		return strings.TrimSpace(opt.StringValue())
	}
	return ""
}

func boolOption(opts options, name string) bool {
	if opt, ok := opts[name]; ok && opt.Type == discordgo.ApplicationCommandOptionBoolean {
		return opt.BoolValue()
	}
	return false
}

// idOption reads channel and role options, whose values are snowflakes.
func idOption(opts options, name string) string {
	if opt, ok := opts[name]; ok && opt.Value != nil {
		return fmt.Sprint(opt.Value)
	}
	return ""
}

func parseDefenceInput(raw []*discordgo.ApplicationCommandInteractionDataOption) DefenceInput {
	opts := optionMap(raw)
	return DefenceInput{
		X:        intOption(opts, "x"),
		Y:        intOption(opts, "y"),
		Amount:   intOption(opts, "amount"),
		Time:     stringOption(opts, "time"),
		Standing: boolOption(opts, "standing"),
		Crop:     intOption(opts, "crop"),
	}
}

func parseConfigInput(raw []*discordgo.ApplicationCommandInteractionDataOption, resolved *discordgo.ApplicationCommandInteractionDataResolved) ConfigInput {
	opts := optionMap(raw)
	channel := func(name string, want discordgo.ChannelType) ResolvedChannel {
		rc := ResolvedChannel{ID: idOption(opts, name)}
		if resolved != nil {
			if ch, ok := resolved.Channels[rc.ID]; ok && ch != nil {
				rc.RightKind = ch.Type == want
			}
		}
		return rc
	}

	in := ConfigInput{
		Category:     channel("category", discordgo.ChannelTypeGuildCategory),
		LogChannel:   channel("log_channel", discordgo.ChannelTypeGuildText),
		InitiatorLog: channel("initiator_log", discordgo.ChannelTypeGuildText),
		ViewRole:     idOption(opts, "view_role"),
		PingRole:     idOption(opts, "ping_role"),
		CommandRole:  idOption(opts, "command_role"),
	}
	if _, ok := opts["crop_category"]; ok {
		crop := channel("crop_category", discordgo.ChannelTypeGuildCategory)
		in.CropCategory = &crop
	}
	return in
}

func requesterFrom(member *discordgo.Member) defence.Requester {
	return defence.Requester{
		ID:     member.User.ID,
		Name:   shareddiscord.DisplayName(member),
		Roles:  member.Roles,
		Source: defence.SourceCommand,
	}
}
