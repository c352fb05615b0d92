package defence

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/stake-plus/defcalls/src/directory"
)

var nonAlphanumeric = regexp.MustCompile(`[^a-zA-Z0-9]`)

func villageIdentifier(dir Directory, c Coordinates) string {
	if dir != nil {
		if v, ok := dir.FindVillageAt(c.X, c.Y); ok {
			if id := nonAlphanumeric.ReplaceAllString(v.Name, ""); id != "" {
				return id
			}
		}
	}
	return fmt.Sprintf("%d_%d", c.X, c.Y)
}

func channelName(kind Kind, village string, date time.Time) string {
	day := date.UTC().Format("2006-01-02")
	switch kind {
	case KindStanding:
		return fmt.Sprintf("standing-def-%s-%s", village, day)
	case KindCrop:
		return fmt.Sprintf("crop-%s-%s", village, day)
	default:
		return fmt.Sprintf("def-%s-%s", village, day)
	}
}

func mentionRoles(roles []string) string {
	mentions := make([]string, 0, len(roles))
	for _, role := range roles {
		mentions = append(mentions, fmt.Sprintf("<@&%s>", role))
	}
	return strings.Join(mentions, " ")
}

func withMentions(roles []string, text string) string {
	if prefix := mentionRoles(roles); prefix != "" {
		return prefix + " " + text
	}
	return text
}

func initialAnnouncement(call *Call, pingRoles []string, mapBase string) string {
	var b strings.Builder
	link := directory.MapLink(mapBase, call.Coordinates.X, call.Coordinates.Y)
	switch call.Kind {
	case KindCrop:
		fmt.Fprintf(&b, "Crop request: **%d** crop at (**%d**, **%d**)", call.Amount, call.Coordinates.X, call.Coordinates.Y)
	default:
		fmt.Fprintf(&b, "Defence request: **%d** units at (**%d**, **%d**)", call.Amount, call.Coordinates.X, call.Coordinates.Y)
		if call.Kind == KindNormal {
			fmt.Fprintf(&b, "\n🕒 Attack time: **%s BST**", call.Deadline)
		}
	}
	fmt.Fprintf(&b, "\n🌍 %s", link)
	return withMentions(pingRoles, b.String())
}

func completionAnnouncement(call *Call, now time.Time, grace time.Duration) string {
	switch call.Kind {
	case KindStanding:
		return fmt.Sprintf("✅ **Standing def completed, will be deleted in %d hours**", hoursUntil(now, call.ExpiresAt))
	case KindCrop:
		return fmt.Sprintf("✅ **Crop request completed. Channel will be deleted in %s**", formatHours(grace))
	default:
		return fmt.Sprintf("✅ **Def call ended. Channel will be deleted in %s**", formatHours(grace))
	}
}

func expiryAnnouncement(call *Call) string {
	if call.Kind == KindStanding {
		return "⏰ **Standing defence expired. Channel will now be deleted.**"
	}
	return "⏰ **Defence expired. Channel will now be deleted.**"
}

func initiatorLogLine(call *Call, requester Requester) string {
	if requester.Source == SourceAPI {
		if call.Kind == KindStanding {
			return fmt.Sprintf("📢 **API Request** initiated a standing defense call for **%d** units at coordinates **(%d, %d)**",
				call.Amount, call.Coordinates.X, call.Coordinates.Y)
		}
		return fmt.Sprintf("📢 **API Request** initiated a defense call for **%d** units at coordinates **(%d, %d)** for **%s BST**",
			call.Amount, call.Coordinates.X, call.Coordinates.Y, call.Deadline)
	}
	label := "Defence call"
	switch call.Kind {
	case KindStanding:
		label = "Standing defence call"
	case KindCrop:
		label = "Crop request"
	}
	return fmt.Sprintf("%s <#%s> was requested by <@%s>", label, call.ChannelID, requester.ID)
}

func summaryLogLine(call *Call) string {
	switch call.Kind {
	case KindStanding:
		return fmt.Sprintf("Standing def to (%d, %d) %d units", call.Coordinates.X, call.Coordinates.Y, call.Amount)
	case KindCrop:
		return fmt.Sprintf("Crop to (%d, %d) %d crop", call.Coordinates.X, call.Coordinates.Y, call.Amount)
	default:
		return fmt.Sprintf("Defence to (%d, %d) %d units at %s BST", call.Coordinates.X, call.Coordinates.Y, call.Amount, call.Deadline)
	}
}

func hoursUntil(now, end time.Time) int {
	h := math.Ceil(end.Sub(now).Hours())
	if h < 0 {
		return 0
	}
	return int(h)
}

func formatHours(d time.Duration) string {
	h := int(math.Round(d.Hours()))
	if h == 1 {
		return "1 hour"
	}
	return fmt.Sprintf("%d hours", h)
}
