package defence

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stake-plus/defcalls/src/defence"
	"github.com/stake-plus/defcalls/src/directory"
	shareddiscord "github.com/stake-plus/defcalls/src/discord"
	"go.uber.org/zap"
)

// CallCreator opens defence calls.
type CallCreator interface {
	CreateCall(ctx context.Context, req defence.CallRequest) (*defence.Call, error)
}

// ConfigEditor reads and writes community settings.
type ConfigEditor interface {
	DefenceConfig(ctx context.Context, communityID string) (*defence.Config, error)
	Save(ctx context.Context, communityID string, cfg *defence.Config) error
}

// Handler holds the command logic, independent of the Discord session.
type Handler struct {
	Calls      CallCreator
	Configs    ConfigEditor
	Directory  defence.Directory
	MapBaseURL string
	Log        *zap.Logger
}

// DefenceInput is the parsed /defence command.
type DefenceInput struct {
	X, Y     int
	Amount   int
	Time     string
	Standing bool
	Crop     int
}

// ConfigInput is the parsed /config set command. Channel kinds are the
// resolved channel types of the chosen options.
type ConfigInput struct {
	Category     ResolvedChannel
	CropCategory *ResolvedChannel
	LogChannel   ResolvedChannel
	InitiatorLog ResolvedChannel
	ViewRole     string
	PingRole     string
	CommandRole  string
	Admin        bool
}

// ResolvedChannel is a channel option and whether it has the kind the
// option requires.
type ResolvedChannel struct {
	ID        string
	RightKind bool
}

const apology = "❌ Sorry, something went wrong while creating the defence channel. Please try again later."

// Defence runs /defence and returns the ephemeral reply.
func (h *Handler) Defence(ctx context.Context, communityID string, requester defence.Requester, in DefenceInput) string {
	kind := defence.KindNormal
	if in.Standing {
		kind = defence.KindStanding
	}
	coords := defence.Coordinates{X: in.X, Y: in.Y}
	call, err := h.Calls.CreateCall(ctx, defence.CallRequest{
		CommunityID: communityID,
		Requester:   requester,
		Coordinates: coords,
		Amount:      in.Amount,
		Deadline:    in.Time,
		Kind:        kind,
	})
	if err != nil {
		h.Log.Info("defence command rejected",
			zap.String("user", requester.ID),
			zap.Error(err))
		return defenceErrorReply(err)
	}

	reply := "✅ Defence channel created: " + shareddiscord.ChannelMention(call.ChannelID)
	if in.Crop > 0 {
		crop, err := h.Calls.CreateCall(ctx, defence.CallRequest{
			CommunityID: communityID,
			Requester:   requester,
			Coordinates: coords,
			Amount:      in.Crop,
			Deadline:    in.Time,
			Kind:        defence.KindCrop,
		})
		if err != nil {
			h.Log.Error("crop call failed", zap.String("defence_channel", call.ChannelID), zap.Error(err))
		} else {
			reply += "\n✅ Crop channel created: " + shareddiscord.ChannelMention(crop.ChannelID)
		}
	}
	return reply
}

func defenceErrorReply(err error) string {
	switch {
	case errors.Is(err, defence.ErrUnauthorized):
		return "❌ You don't have permission to open defence calls."
	case errors.Is(err, defence.ErrConfigMissing):
		return "❌ Defence is not configured for this server. Ask an administrator to run /config set."
	case errors.Is(err, defence.ErrTimeRequired):
		return "❌ A time is required unless the call is standing."
	case errors.Is(err, defence.ErrInvalidTimeFormat):
		return "❌ Invalid time format. Use HH:mm in 24-hour time, for example 18:30."
	case errors.Is(err, defence.ErrInvalidAmount):
		return "❌ The amount must not be negative."
	default:
		return apology
	}
}

// ConfigView renders the community's settings.
func (h *Handler) ConfigView(ctx context.Context, communityID string) string {
	cfg, err := h.Configs.DefenceConfig(ctx, communityID)
	if errors.Is(err, defence.ErrConfigMissing) {
		return "No defence configuration yet. Use /config set to create one."
	}
	if err != nil {
		h.Log.Error("config view failed", zap.String("community", communityID), zap.Error(err))
		return "❌ Could not load the configuration."
	}

	var b strings.Builder
	b.WriteString("**Defence configuration**\n")
	fmt.Fprintf(&b, "Category: %s\n", shareddiscord.ChannelMention(cfg.ParentCategory))
	if cfg.CropCategory != "" {
		fmt.Fprintf(&b, "Crop category: %s\n", shareddiscord.ChannelMention(cfg.CropCategory))
	}
	fmt.Fprintf(&b, "View roles: %s\n", roleList(cfg.ViewRoles))
	fmt.Fprintf(&b, "Ping roles: %s\n", roleList(cfg.PingRoles))
	if len(cfg.CommandRoles) > 0 {
		fmt.Fprintf(&b, "Command roles: %s\n", roleList(cfg.CommandRoles))
	}
	fmt.Fprintf(&b, "Log channel: %s\n", shareddiscord.ChannelMention(cfg.LogChannel))
	fmt.Fprintf(&b, "Initiator log: %s", shareddiscord.ChannelMention(cfg.InitiatorLogChannel))
	return b.String()
}

// ConfigSet validates and stores new settings.
func (h *Handler) ConfigSet(ctx context.Context, communityID string, in ConfigInput) string {
	if !in.Admin {
		return "❌ Only administrators can change the configuration."
	}
	if !in.Category.RightKind || (in.CropCategory != nil && !in.CropCategory.RightKind) {
		return "❌ Categories must be category channels."
	}
	if !in.LogChannel.RightKind || !in.InitiatorLog.RightKind {
		return "❌ Log channels must be text channels."
	}

	cfg := &defence.Config{
		ParentCategory:      in.Category.ID,
		ViewRoles:           []string{in.ViewRole},
		PingRoles:           []string{in.PingRole},
		LogChannel:          in.LogChannel.ID,
		InitiatorLogChannel: in.InitiatorLog.ID,
	}
	if in.CropCategory != nil {
		cfg.CropCategory = in.CropCategory.ID
	}
	if in.CommandRole != "" {
		cfg.CommandRoles = []string{in.CommandRole}
	}
	if err := h.Configs.Save(ctx, communityID, cfg); err != nil {
		h.Log.Error("config save failed", zap.String("community", communityID), zap.Error(err))
		return "❌ Could not save the configuration."
	}
	h.Log.Info("config updated", zap.String("community", communityID))
	return "✅ Configuration saved."
}

// Coords links the map at (x, y).
func (h *Handler) Coords(x, y int) string {
	link := directory.MapLink(h.MapBaseURL, x, y)
	if h.Directory != nil {
		if v, ok := h.Directory.FindVillageAt(x, y); ok {
			return fmt.Sprintf("📍 **%s** (%s, %s) at (%d, %d)\n%s", v.Name, v.Player, v.TribeName(), x, y, shareddiscord.WrapURLsNoEmbed(link))
		}
	}
	return fmt.Sprintf("📍 (%d, %d)\n%s", x, y, shareddiscord.WrapURLsNoEmbed(link))
}

func roleList(roles []string) string {
	if len(roles) == 0 {
		return "none"
	}
	out := make([]string, 0, len(roles))
	for _, r := range roles {
		out = append(out, "<@&"+r+">")
	}
	return strings.Join(out, ", ")
}
